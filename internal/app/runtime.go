package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"puerto-real/internal/config"
	"puerto-real/internal/core"
	"puerto-real/internal/db"
	"puerto-real/internal/logger"
	"puerto-real/internal/metrics"
	"puerto-real/internal/remote"
	"puerto-real/internal/security"
)

// Runtime owns every connection and subscription behind an
// ApplicationService.
type Runtime struct {
	Service ApplicationService
	Store   remote.Store
	Config  *config.Config
	Logger  *logger.Logger

	closers []func() error
}

// Open connects the configured document store and accounts database, starts
// the collection subscriptions and builds the ApplicationService. reg may be
// nil to skip metrics registration.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, reg prometheus.Registerer) (rt *Runtime, err error) {
	if log == nil {
		log = logger.Nop()
	}
	rt = &Runtime{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	store, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}
	rt.Store = store
	storeMetrics := metrics.New(reg)

	purchaseOpts := []core.PurchaseServiceOption{
		core.WithPurchaseLogger(log),
		core.WithPurchaseMetrics(storeMetrics),
	}
	if cfg.Store.AtomicCodes {
		seq, ok := store.(remote.Sequencer)
		if !ok {
			return nil, fmt.Errorf("store driver %s cannot hand out purchase codes", cfg.Store.Driver)
		}
		purchaseOpts = append(purchaseOpts, core.WithSequencer(seq))
	}

	ledger, err := core.NewPurchaseLedger()
	if err != nil {
		return nil, err
	}
	purchases := core.NewPurchaseService(ledger, store, purchaseOpts...)
	suppliers := core.NewSupplierService(store, log, storeMetrics)
	stock := core.NewStockService(store, log, storeMetrics)

	for name, watch := range map[string]func(context.Context) (func(), error){
		core.PurchasesCollection: purchases.Watch,
		core.SuppliersCollection: suppliers.Watch,
		core.ProductsCollection:  stock.Watch,
	} {
		stop, err := watch(ctx)
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", name, err)
		}
		rt.onClose(func() error { stop(); return nil })
	}

	users, err := rt.openUsers(ctx)
	if err != nil {
		return nil, err
	}

	rt.Service = NewAppService(Services{
		Purchases:         purchases,
		Suppliers:         suppliers,
		Stock:             stock,
		Users:             users,
		Store:             store,
		LowStockThreshold: cfg.Analytics.LowStockThreshold,
		Logger:            log,
	})
	log.Info(log.WithField(ctx, "store", cfg.Store.Driver), "application ready")
	return rt, nil
}

// Close stops subscriptions and closes connections in reverse order of
// opening.
func (r *Runtime) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i]())
	}
	r.closers = nil
	return err
}

func (r *Runtime) onClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

func (r *Runtime) openStore(ctx context.Context) (remote.Store, error) {
	cfg := r.Config
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		r.onClose(func() error { pool.Close(); return nil })
		if cfg.DB.AutoMigrate {
			if err := db.Migrate(ctx, pool, "up"); err != nil {
				return nil, err
			}
		}
		return remote.NewPostgresStore(pool, r.Logger), nil

	case config.StoreRedis:
		client, err := remote.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		r.onClose(client.Close)
		return remote.NewRedisStore(client, r.Logger), nil
	}

	// The in-memory store starts out with the demo data so the back office
	// is usable without any backing service.
	store := remote.NewMemoryStore()
	seed, err := core.LoadSeedFile(cfg.App.SeedFile)
	if err != nil {
		return nil, err
	}
	if _, err := core.ApplySeed(ctx, store, seed, false); err != nil {
		return nil, err
	}
	return store, nil
}

func (r *Runtime) openUsers(ctx context.Context) (core.UserService, error) {
	cfg := r.Config.Auth
	conn, err := db.OpenAccounts(cfg.UserDBDriver, cfg.UserDBDSN)
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("accounts database handle: %w", err)
	}
	r.onClose(sqlDB.Close)

	users := core.NewUserService(conn, core.UserServiceConfig{
		Token: security.TokenConfig{
			Secret: cfg.JWTSecret,
			Issuer: cfg.JWTIssuer,
			TTL:    cfg.TokenTTL,
		},
		ResetTTL: cfg.ResetTokenTTL,
		Logger:   r.Logger,
	})
	if err := users.Migrate(ctx); err != nil {
		return nil, err
	}
	return users, nil
}
