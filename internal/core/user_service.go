package core

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"puerto-real/internal/apperr"
	"puerto-real/internal/logger"
	"puerto-real/internal/security"
)

const (
	minPasswordLength = 6

	msgAllFieldsRequired  = "all fields are required"
	msgPasswordsMismatch  = "passwords do not match"
	msgAcceptTerms        = "you must accept the terms and conditions to sign up"
	msgInvalidEmail       = "invalid email format"
	msgWeakPassword       = "password is too weak (minimum 6 characters)"
	msgEmailInUse         = "email already in use"
	msgBadCredentials     = "incorrect email or password"
	msgUserNotFound       = "no user found with this email"
	msgInvalidResetToken  = "reset link is invalid or has expired"
	msgWrongCurrentPasswd = "current password is incorrect"
	msgEmptyDisplayName   = "display name cannot be empty"
)

// UserServiceConfig carries the knobs of NewUserService.
type UserServiceConfig struct {
	Token    security.TokenConfig
	ResetTTL time.Duration
	Argon    security.ArgonParams
	Now      func() time.Time
	Logger   *logger.Logger
}

type userService struct {
	db  *gorm.DB
	cfg UserServiceConfig
	log *logger.Logger
}

// NewUserService constructs a UserService backed by gorm.
func NewUserService(db *gorm.DB, cfg UserServiceConfig) UserService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	if cfg.Argon == (security.ArgonParams{}) {
		cfg.Argon = security.DefaultArgonParams
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &userService{db: db, cfg: cfg, log: log}
}

func (s *userService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&User{}, &Preferences{}, &PasswordReset{}); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "could not migrate account tables")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func checkNewPassword(password, confirm string) error {
	if password != confirm {
		return apperr.New(apperr.CodeValidation, msgPasswordsMismatch)
	}
	if len([]rune(password)) < minPasswordLength {
		return apperr.New(apperr.CodeValidation, msgWeakPassword)
	}
	return nil
}

func (s *userService) SignUp(ctx context.Context, input SignUpInput) (*User, error) {
	input.FullName = strings.TrimSpace(input.FullName)
	input.DNI = strings.TrimSpace(input.DNI)
	input.Email = normalizeEmail(input.Email)

	tags, err := failedTags(input)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not validate sign up")
	}
	if tags != nil {
		return nil, apperr.New(apperr.CodeValidation, msgAllFieldsRequired)
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperr.New(apperr.CodeValidation, msgPasswordsMismatch)
	}
	if !input.AcceptTerms {
		return nil, apperr.New(apperr.CodeValidation, msgAcceptTerms)
	}
	if !validEmail(input.Email) {
		return nil, apperr.New(apperr.CodeValidation, msgInvalidEmail)
	}
	if err := checkNewPassword(input.Password, input.ConfirmPassword); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(input.Password, s.cfg.Argon)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not register user")
	}

	user := &User{
		FullName:     input.FullName,
		DNI:          input.DNI,
		Email:        input.Email,
		DisplayName:  input.FullName,
		PasswordHash: hash,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.CodeConflict, msgEmailInUse)
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&Preferences{UserID: user.ID, Notifications: true}).Error
	})
	if err != nil {
		if apperr.As(err) != nil {
			return nil, err
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.CodeConflict, err, msgEmailInUse)
		}
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not register user")
	}

	s.log.Info(s.log.WithUserID(ctx, user.ID), "user signed up")
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.CodeValidation, "please enter both email and password")
	}
	if !validEmail(email) {
		return nil, apperr.New(apperr.CodeValidation, msgInvalidEmail)
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, apperr.Wrap(apperr.CodeUnauthorized, err, msgBadCredentials)
	}

	token, expiresAt, err := security.MintSessionToken(s.cfg.Token, s.cfg.Now(), user.ID, user.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not start session")
	}
	return &Session{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *userService) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := security.ParseSessionToken(s.cfg.Token, token)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthorized, err, "invalid or expired token")
	}
	user, err := s.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnauthorized, err, "invalid or expired token")
	}
	return user, nil
}

func (s *userService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", apperr.New(apperr.CodeValidation, "please enter your email")
	}
	if !validEmail(email) {
		return "", apperr.New(apperr.CodeNotFound, msgUserNotFound)
	}
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	token, digest, err := security.NewOpaqueToken()
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "could not issue reset token")
	}
	reset := &PasswordReset{
		UserID:    user.ID,
		TokenHash: digest,
		ExpiresAt: s.cfg.Now().Add(s.cfg.ResetTTL),
	}
	if err := s.db.WithContext(ctx).Create(reset).Error; err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "could not issue reset token")
	}
	s.log.Info(s.log.WithUserID(ctx, user.ID), "password reset requested")
	return token, nil
}

func (s *userService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	if err := checkNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}
	hash, err := security.HashPassword(newPassword, s.cfg.Argon)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "could not reset password")
	}

	now := s.cfg.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset PasswordReset
		err := tx.Where("token_hash = ? AND used_at IS NULL", security.DigestToken(token)).First(&reset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !now.Before(reset.ExpiresAt)) {
			return apperr.New(apperr.CodeValidation, msgInvalidResetToken)
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&User{}).Where("id = ?", reset.UserID).Update("password_hash", hash).Error; err != nil {
			return err
		}
		return tx.Model(&reset).Update("used_at", now).Error
	})
	if err != nil {
		if apperr.As(err) != nil {
			return err
		}
		return apperr.Wrap(apperr.CodeInternal, err, "could not reset password")
	}
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uint, current, newPassword, confirmPassword string) error {
	if current == "" || newPassword == "" || confirmPassword == "" {
		return apperr.New(apperr.CodeValidation, msgAllFieldsRequired)
	}
	if err := checkNewPassword(newPassword, confirmPassword); err != nil {
		return err
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return apperr.Wrap(apperr.CodeUnauthorized, err, msgWrongCurrentPasswd)
	}

	hash, err := security.HashPassword(newPassword, s.cfg.Argon)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "could not change password")
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "could not change password")
	}
	return nil
}

func (s *userService) UpdateDisplayName(ctx context.Context, userID uint, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.CodeValidation, msgEmptyDisplayName)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("display_name", name).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not update display name")
	}
	user.DisplayName = name
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, userID uint) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.CodeNotFound, "user id=%d not found", userID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not load user")
	}
	return &user, nil
}

func (s *userService) GetPreferences(ctx context.Context, userID uint) (*Preferences, error) {
	var prefs Preferences
	err := s.db.WithContext(ctx).
		Where(Preferences{UserID: userID}).
		Attrs(Preferences{Notifications: true}).
		FirstOrCreate(&prefs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not load preferences")
	}
	return &prefs, nil
}

func (s *userService) UpdatePreferences(ctx context.Context, userID uint, darkMode, notifications bool) (*Preferences, error) {
	if _, err := s.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	prefs := &Preferences{UserID: userID, DarkMode: darkMode, Notifications: notifications}
	if err := s.db.WithContext(ctx).Save(prefs).Error; err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not save preferences")
	}
	return prefs, nil
}

func (s *userService) findByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "could not load user")
	}
	return &user, nil
}
