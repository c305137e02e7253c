package panel

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/security"
	"github.com/router-for-me/FRPPanel/internal/settings"
	log "github.com/sirupsen/logrus"
)

// RegisterResult reports the outcome of a registration.
type RegisterResult struct {
	UserID            int64
	NeedsVerification bool
}

// Profile is a user together with its port mappings.
type Profile struct {
	User  UserView      `json:"user"`
	Ports []models.Port `json:"ports"`
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") || len(email) > 254 {
		return fail(ErrInvalidInput, "please enter a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < settings.MinPasswordLength {
		return fail(ErrInvalidInput, "password must be at least %d characters", settings.MinPasswordLength)
	}
	if err := security.ValidatePasswordLength(password); err != nil {
		return fail(ErrInvalidInput, "password is too long")
	}
	return nil
}

func link(baseURL, path, token string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// Register creates a self-service account.
// When email verification is required the account starts inactive and a verification link is mailed.
func (s *Service) Register(ctx context.Context, email, password, baseURL string) (RegisterResult, error) {
	current, err := s.facade.Settings(ctx)
	if err != nil {
		return RegisterResult{}, err
	}
	if !current.AllowRegister {
		return RegisterResult{}, fail(ErrForbidden, "registration is closed")
	}
	email = normalizeEmail(email)
	if err = validateEmail(email); err != nil {
		return RegisterResult{}, err
	}
	if err = validatePassword(password); err != nil {
		return RegisterResult{}, err
	}
	if _, exists, errFind := query.SelectOne[models.User](ctx, s.facade, query.ByEmail{Email: email}); errFind != nil {
		return RegisterResult{}, errFind
	} else if exists {
		return RegisterResult{}, fail(ErrConflict, "email is already registered")
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("panel: register: %w", err)
	}
	in := query.InsertUser{Email: email, Password: hashed, IsActive: !current.RequireEmailVerify}
	var token string
	if current.RequireEmailVerify {
		token = security.NewToken()
		in.VerifyToken = &token
	}
	id, err := s.facade.Insert(ctx, in)
	if err != nil {
		return RegisterResult{}, conflictOr(err, "register", "email is already registered")
	}

	if current.RequireEmailVerify {
		if errMail := s.mailer.SendVerification(ctx, email, link(baseURL, "/verify", token)); errMail != nil {
			log.WithError(errMail).Warnf("panel: send verification email to %s failed", email)
		}
	}
	return RegisterResult{UserID: id, NeedsVerification: current.RequireEmailVerify}, nil
}

// Verify activates the account holding token.
func (s *Service) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fail(ErrInvalidInput, "invalid verification link")
	}
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByVerifyToken{Token: token})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrInvalidInput, "verification link is invalid or expired")
	}
	active := true
	var cleared *string
	_, err = s.facade.Exec(ctx, query.UpdateUser{ID: user.ID, Patch: models.UserPatch{
		IsActive:    &active,
		VerifyToken: &cleared,
	}})
	if err != nil {
		return fmt.Errorf("panel: verify: %w", err)
	}
	return nil
}

// Login checks credentials and returns the user.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByEmail{Email: normalizeEmail(email)})
	if err != nil {
		return models.User{}, err
	}
	if !ok || !s.hasher.Verify(user.Password, password) {
		return models.User{}, fail(ErrUnauthorized, "invalid email or password")
	}
	if !user.IsActive {
		return models.User{}, fail(ErrUnauthorized, "please verify your email first")
	}
	return user, nil
}

// Authenticate loads the user behind a session, rejecting missing and disabled accounts.
func (s *Service) Authenticate(ctx context.Context, userID int64) (models.User, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return models.User{}, err
	}
	if !ok || !user.IsActive {
		return models.User{}, fail(ErrUnauthorized, "account is disabled or does not exist")
	}
	return user, nil
}

// ForgotPassword issues a reset token for email and mails the reset link.
// Unknown addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email, baseURL string) error {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByEmail{Email: normalizeEmail(email)})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	token := security.NewToken()
	expires := s.now().Unix() + settings.ResetTokenTTLSeconds
	tokenPtr, expiresPtr := &token, &expires
	_, err = s.facade.Exec(ctx, query.UpdateUser{ID: user.ID, Patch: models.UserPatch{
		ResetToken:   &tokenPtr,
		ResetExpires: &expiresPtr,
	}})
	if err != nil {
		return fmt.Errorf("panel: forgot password: %w", err)
	}
	if errMail := s.mailer.SendPasswordReset(ctx, user.Email, link(baseURL, "/reset-password", token)); errMail != nil {
		log.WithError(errMail).Warnf("panel: send reset email to %s failed", user.Email)
	}
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired reset token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByResetToken{
		Token: strings.TrimSpace(token),
		Now:   s.now().Unix(),
	})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrInvalidInput, "reset link is invalid or expired")
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("panel: reset password: %w", err)
	}
	var clearedToken *string
	var clearedExpires *int64
	_, err = s.facade.Exec(ctx, query.UpdateUser{ID: user.ID, Patch: models.UserPatch{
		Password:     &hashed,
		ResetToken:   &clearedToken,
		ResetExpires: &clearedExpires,
	}})
	if err != nil {
		return fmt.Errorf("panel: reset password: %w", err)
	}
	return nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrNotFound, "user not found")
	}
	if !s.hasher.Verify(user.Password, current) {
		return fail(ErrInvalidInput, "current password is incorrect")
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("panel: change password: %w", err)
	}
	if _, err = s.facade.Exec(ctx, query.UpdateUser{ID: userID, Patch: models.UserPatch{Password: &hashed}}); err != nil {
		return fmt.Errorf("panel: change password: %w", err)
	}
	return nil
}

// Profile returns the user and its port mappings.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return Profile{}, err
	}
	if !ok {
		return Profile{}, fail(ErrNotFound, "user not found")
	}
	ports, err := query.SelectMany[models.Port](ctx, s.facade, query.ByUserID{UserID: userID})
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: newUserView(user, len(ports)), Ports: ports}, nil
}
