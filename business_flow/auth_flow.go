package businessflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/services"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// AuthFlow handles registration, sessions, email verification and password resets
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, userID, token string) error
	VerifyEmail(ctx context.Context, token string) (*dto.UserDTO, error)
	ResendVerification(ctx context.Context, req *dto.EmailRequest) error
	ForgotPassword(ctx context.Context, req *dto.EmailRequest, metadata *ClientMetadata) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error
	Captcha(ctx context.Context) (*dto.CaptchaResponse, error)
	// Authenticate accepts a bearer token only while its session row exists.
	Authenticate(ctx context.Context, token string) (*services.TokenClaims, error)
	Me(ctx context.Context, userID string) (*dto.UserDTO, error)
}

// AuthOptions carries the account policy knobs
type AuthOptions struct {
	BcryptCost       int
	SkipVerification bool
	RequireCaptcha   bool
}

// AuthFlowImpl implements the account business flow
type AuthFlowImpl struct {
	users    repository.UserRepository
	tokens   repository.VerificationTokenRepository
	sessions repository.SessionTokenRepository
	tx       repository.TransactionManager

	tokenService services.TokenService
	emailService services.EmailService
	captcha      services.CaptchaService

	opts   AuthOptions
	logger logging.Logger
	now    utils.Clock

	// dispatch runs email sends off the request path
	dispatch func(func())
}

func NewAuthFlow(
	users repository.UserRepository,
	tokens repository.VerificationTokenRepository,
	sessions repository.SessionTokenRepository,
	tx repository.TransactionManager,
	tokenService services.TokenService,
	emailService services.EmailService,
	captcha services.CaptchaService,
	opts AuthOptions,
	log logging.Logger,
) *AuthFlowImpl {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = utils.DefaultBcryptCost
	}
	return &AuthFlowImpl{
		users:        users,
		tokens:       tokens,
		sessions:     sessions,
		tx:           tx,
		tokenService: tokenService,
		emailService: emailService,
		captcha:      captcha,
		opts:         opts,
		logger:       log,
		now:          utils.SystemClock,
		dispatch:     func(fn func()) { go fn() },
	}
}

// WithClock replaces the wall clock; used by tests.
func (f *AuthFlowImpl) WithClock(now utils.Clock) *AuthFlowImpl {
	f.now = now
	return f
}

// WithDispatcher replaces the background runner for emails; used by tests.
func (f *AuthFlowImpl) WithDispatcher(dispatch func(func())) *AuthFlowImpl {
	f.dispatch = dispatch
	return f
}

func (f *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if err := f.checkCaptcha(ctx, req.CaptchaAnswer); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	existing, err := f.users.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already in use", ErrEmailAlreadyExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.opts.BcryptCost)
	if err != nil {
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	now := f.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var verification *models.VerificationToken
	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.users.Save(txCtx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmailAlreadyExists
			}
			return err
		}
		if f.opts.SkipVerification {
			return nil
		}
		verification, err = f.issueToken(txCtx, user, models.TokenTypeEmailVerification, utils.EmailVerificationTTL)
		return err
	})
	if errors.Is(err, ErrEmailAlreadyExists) {
		return nil, NewBusinessError("EMAIL_ALREADY_EXISTS", "Email already in use", ErrEmailAlreadyExists)
	}
	if err != nil {
		f.logger.Error("Registration failed", append(metadata.LogFields(), "error", err)...)
		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	}

	sent := false
	if verification != nil && f.emailService.Enabled() {
		f.sendVerification(user, verification.Token)
		sent = true
	}
	f.logger.Info("User registered", append(metadata.LogFields(), "user_id", user.ID)...)

	return &dto.RegisterResponse{User: ToUserDTO(*user), VerificationEmailSent: sent}, nil
}

// Login replaces every previous session of the user with a fresh one.
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := f.users.ByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		f.logger.Warn("Login rejected", metadata.LogFields()...)
		return nil, NewBusinessError("INCORRECT_CREDENTIALS", "Incorrect email or password", ErrIncorrectCredentials)
	}
	if !user.EmailVerified && !f.opts.SkipVerification {
		return nil, NewBusinessError("EMAIL_NOT_VERIFIED", "Please verify your email before logging in", ErrEmailNotVerified)
	}

	token, expiresAt, err := f.tokenService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	err = f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := f.sessions.DeleteAllByUser(txCtx, user.ID); err != nil {
			return err
		}
		return f.sessions.Save(txCtx, &models.SessionToken{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: expiresAt,
			CreatedAt: f.now().UTC(),
		})
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	f.logger.Info("User logged in", append(metadata.LogFields(), "user_id", user.ID)...)

	return &dto.LoginResponse{Token: token, TokenType: "Bearer", ExpiresAt: expiresAt, User: ToUserDTO(*user)}, nil
}

func (f *AuthFlowImpl) Logout(ctx context.Context, userID, token string) error {
	err := f.sessions.Delete(ctx, userID, token)
	if errors.Is(err, repository.ErrNotFound) {
		return NewBusinessError("TOKEN_NOT_FOUND", "Token not found", ErrTokenNotFound)
	}
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	return nil
}

func (f *AuthFlowImpl) VerifyEmail(ctx context.Context, token string) (*dto.UserDTO, error) {
	var user *models.User
	err := f.consumeToken(ctx, token, models.TokenTypeEmailVerification, func(txCtx context.Context, vt *models.VerificationToken) error {
		var err error
		user, err = f.users.ByID(txCtx, vt.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		now := f.now().UTC()
		if err := f.users.MarkEmailVerified(txCtx, user.ID, now); err != nil {
			return err
		}
		user.EmailVerified, user.EmailVerifiedAt = true, &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := ToUserDTO(*user)
	return &out, nil
}

func (f *AuthFlowImpl) ResendVerification(ctx context.Context, req *dto.EmailRequest) error {
	if err := f.checkCaptcha(ctx, req.CaptchaAnswer); err != nil {
		return err
	}

	user, err := f.users.ByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return NewBusinessError("RESEND_FAILED", "Failed to resend verification email", err)
	}
	if user == nil {
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	if user.EmailVerified {
		return NewBusinessError("ALREADY_VERIFIED", "Email is already verified", ErrAlreadyVerified)
	}

	vt, err := f.issueToken(ctx, user, models.TokenTypeEmailVerification, utils.EmailVerificationTTL)
	if err != nil {
		return NewBusinessError("RESEND_FAILED", "Failed to resend verification email", err)
	}
	f.sendVerification(user, vt.Token)
	return nil
}

// ForgotPassword answers the same way for unknown addresses so accounts cannot be enumerated.
func (f *AuthFlowImpl) ForgotPassword(ctx context.Context, req *dto.EmailRequest, metadata *ClientMetadata) error {
	if err := f.checkCaptcha(ctx, req.CaptchaAnswer); err != nil {
		return err
	}

	user, err := f.users.ByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return NewBusinessError("FORGOT_PASSWORD_FAILED", "Failed to process password reset", err)
	}
	if user == nil {
		f.logger.Info("Password reset requested for unknown email", metadata.LogFields()...)
		return nil
	}

	vt, err := f.issueToken(ctx, user, models.TokenTypePasswordReset, utils.PasswordResetTTL)
	if err != nil {
		return NewBusinessError("FORGOT_PASSWORD_FAILED", "Failed to process password reset", err)
	}

	name := user.Name
	f.dispatch(func() {
		ctx := context.WithoutCancel(ctx)
		if err := f.emailService.SendPasswordResetEmail(ctx, user.Email, vt.Token, name); err != nil {
			f.logger.Error("Failed to send password reset email", "user_id", user.ID, "error", err)
		}
	})
	return nil
}

// ResetPassword consumes the token, stores the new hash and revokes every session.
func (f *AuthFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), f.opts.BcryptCost)
	if err != nil {
		return NewBusinessError("RESET_PASSWORD_FAILED", "Failed to reset password", err)
	}

	err = f.consumeToken(ctx, req.Token, models.TokenTypePasswordReset, func(txCtx context.Context, vt *models.VerificationToken) error {
		if err := f.users.UpdatePassword(txCtx, vt.UserID, string(hash), f.now().UTC()); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return f.sessions.DeleteAllByUser(txCtx, vt.UserID)
	})
	if err != nil {
		return err
	}
	f.logger.Info("Password reset", metadata.LogFields()...)
	return nil
}

func (f *AuthFlowImpl) Captcha(ctx context.Context) (*dto.CaptchaResponse, error) {
	if f.captcha == nil {
		return nil, NewBusinessError("CAPTCHA_NOT_AVAILABLE", "Captcha service not available", ErrCaptchaUnavailable)
	}
	ch, err := f.captcha.Generate(ctx)
	if err != nil {
		return nil, NewBusinessError("CAPTCHA_INIT_FAILED", "Failed to initialize captcha", errors.Join(ErrCaptchaUnavailable, err))
	}
	return &dto.CaptchaResponse{ID: ch.ID, Image: ch.Image, Thumb: ch.Thumb, ThumbSize: ch.ThumbSize}, nil
}

func (f *AuthFlowImpl) Authenticate(ctx context.Context, token string) (*services.TokenClaims, error) {
	claims, err := f.tokenService.ValidateToken(token)
	if err != nil {
		return nil, NewBusinessError("INVALID_TOKEN", "Invalid or expired token", errors.Join(ErrInvalidToken, err))
	}
	ok, err := f.sessions.IsValid(ctx, claims.UserID, token, f.now().UTC())
	if err != nil {
		return nil, NewBusinessError("SESSION_LOOKUP_FAILED", "Failed to check session", err)
	}
	if !ok {
		return nil, NewBusinessError("INVALID_TOKEN", "Session has been revoked", ErrInvalidToken)
	}
	return claims, nil
}

func (f *AuthFlowImpl) Me(ctx context.Context, userID string) (*dto.UserDTO, error) {
	user, err := f.users.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to load user", err)
	}
	if user == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	}
	out := ToUserDTO(*user)
	return &out, nil
}

// consumeToken marks a live token used and runs apply in the same unit of work.
func (f *AuthFlowImpl) consumeToken(ctx context.Context, raw, tokenType string, apply func(context.Context, *models.VerificationToken) error) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewBusinessError("INVALID_TOKEN", "Invalid or expired token", ErrInvalidToken)
	}

	err := f.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		vt, err := f.tokens.ActiveByToken(txCtx, raw, tokenType, f.now().UTC())
		if err != nil {
			return err
		}
		if vt == nil {
			return ErrInvalidToken
		}
		if err := f.tokens.MarkUsed(txCtx, vt.ID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidToken
			}
			return err
		}
		return apply(txCtx, vt)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidToken):
		return NewBusinessError("INVALID_TOKEN", "Invalid or expired token", ErrInvalidToken)
	case errors.Is(err, ErrUserNotFound):
		return NewBusinessError("USER_NOT_FOUND", "User not found", ErrUserNotFound)
	default:
		return NewBusinessError("TOKEN_CONSUME_FAILED", "Failed to process token", err)
	}
}

func (f *AuthFlowImpl) issueToken(ctx context.Context, user *models.User, tokenType string, ttl time.Duration) (*models.VerificationToken, error) {
	raw, err := utils.RandomHex(utils.VerificationTokenBytes)
	if err != nil {
		return nil, err
	}
	now := f.now().UTC()
	vt := &models.VerificationToken{
		Token:     raw,
		UserID:    user.ID,
		Email:     user.Email,
		Type:      tokenType,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := f.tokens.Save(ctx, vt); err != nil {
		return nil, err
	}
	return vt, nil
}

func (f *AuthFlowImpl) sendVerification(user *models.User, token string) {
	email, name, id := user.Email, user.Name, user.ID
	f.dispatch(func() {
		if err := f.emailService.SendVerificationEmail(context.Background(), email, token, name); err != nil {
			f.logger.Error("Failed to send verification email", "user_id", id, "error", err)
		}
	})
}

func (f *AuthFlowImpl) checkCaptcha(ctx context.Context, answer dto.CaptchaAnswer) error {
	if !f.opts.RequireCaptcha || f.captcha == nil {
		return nil
	}
	if answer.CaptchaID == "" || answer.CaptchaAngle == nil {
		return NewBusinessError("CAPTCHA_INVALID", "Captcha challenge missing", ErrInvalidCaptcha)
	}
	if !f.captcha.Verify(ctx, answer.CaptchaID, *answer.CaptchaAngle) {
		return NewBusinessError("CAPTCHA_INVALID", "Captcha validation failed", ErrInvalidCaptcha)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
