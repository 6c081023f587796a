package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"puerto-real/internal/adapters/repl"
	"puerto-real/internal/app"
	"puerto-real/internal/apperr"
)

type searchFlags struct {
	query         string
	fields        []string
	caseSensitive bool
}

func (f *searchFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "free-text filter")
	cmd.Flags().StringSliceVar(&f.fields, "fields", nil, "fields to search: code, supplier, date, amount (default all)")
	cmd.Flags().BoolVar(&f.caseSensitive, "case-sensitive", false, "match the query case-sensitively")
}

func (f *searchFlags) request() app.SearchPurchasesRequest {
	return app.SearchPurchasesRequest{Query: f.query, Fields: f.fields, CaseSensitive: f.caseSensitive}
}

type purchaseFlags struct {
	supplier string
	items    []string
}

func (f *purchaseFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.supplier, "supplier", "", "supplier code or name")
	cmd.Flags().StringArrayVar(&f.items, "item", nil, `item as "name=price", repeatable`)
}

func (f *purchaseFlags) request() (app.PurchaseRequest, error) {
	req := app.PurchaseRequest{Supplier: f.supplier}
	for _, raw := range f.items {
		i := strings.LastIndexByte(raw, '=')
		if i < 0 {
			return req, apperr.Newf(apperr.CodeValidation, "item %q must look like name=price", raw)
		}
		req.Items = append(req.Items, app.ItemInput{Name: raw[:i], Price: raw[i+1:]})
	}
	return req, nil
}

func (r *runner) purchasesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "purchases",
		Aliases: []string{"compras", "p"},
		Short:   "Work with the purchase ledger",
	}

	var search searchFlags
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List purchases, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.ListPurchases(cmd.Context(), search.request())
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintPurchases(cmd.OutOrStdout(), res) })
		},
	}
	search.bind(list)

	show := &cobra.Command{
		Use:   "show <code|id>",
		Short: "Show one purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.GetPurchase(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintPurchase(cmd.OutOrStdout(), res.Purchase) })
		},
	}

	var create purchaseFlags
	createCmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"add"},
		Short:   "Record a purchase",
		Example: `  puerto purchases create --supplier PROV-A --item "Malbec Reserva=18.50" --item "Copa=4.40"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := create.request()
			if err != nil {
				return err
			}
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.CreatePurchase(cmd.Context(), req)
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Purchase %s saved.\n", res.Purchase.Code)
				repl.PrintPurchase(cmd.OutOrStdout(), res.Purchase)
			})
		},
	}
	create.bind(createCmd)

	var update purchaseFlags
	updateCmd := &cobra.Command{
		Use:   "update <code|id>",
		Short: "Replace the supplier and items of a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := update.request()
			if err != nil {
				return err
			}
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.UpdatePurchase(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Purchase %s updated.\n", res.Purchase.Code)
				repl.PrintPurchase(cmd.OutOrStdout(), res.Purchase)
			})
		},
	}
	update.bind(updateCmd)

	deleteCmd := &cobra.Command{
		Use:     "delete <code|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a purchase",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.DeletePurchase(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purchase %s deleted.\n", args[0])
			return nil
		},
	}

	var (
		exportSearch searchFlags
		format       string
		outPath      string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered ledger to a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := svc.ExportPurchases(cmd.Context(), &buf, format, exportSearch.request()); err != nil {
				return err
			}
			if outPath == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", outPath)
			return nil
		},
	}
	exportSearch.bind(exportCmd)
	exportCmd.Flags().StringVar(&format, "format", "xlsx", "export format (xlsx)")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "compras.xlsx", `output file, "-" for stdout`)

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Spend per supplier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.GetPurchaseSummary(cmd.Context())
			if err != nil {
				return err
			}
			return r.emit(cmd.OutOrStdout(), res, func() { repl.PrintPurchaseSummary(cmd.OutOrStdout(), res) })
		},
	}

	cmd.AddCommand(list, show, createCmd, updateCmd, deleteCmd, exportCmd, summary)
	return cmd
}
