package businessflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/services"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/models"
	testingutil "github.com/marcoalfans/manud-be/testing"
)

type sentMail struct {
	kind, email, token string
}

type recordingEmailService struct {
	mu   sync.Mutex
	sent []sentMail
}

func (s *recordingEmailService) Enabled() bool { return true }

func (s *recordingEmailService) SendVerificationEmail(_ context.Context, email, token, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{"verify", email, token})
	return nil
}

func (s *recordingEmailService) SendPasswordResetEmail(_ context.Context, email, token, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMail{"reset", email, token})
	return nil
}

type fakeCaptcha struct{ accept bool }

func (fakeCaptcha) Generate(context.Context) (*services.RotateChallenge, error) {
	return &services.RotateChallenge{ID: "c1", Image: "img", Thumb: "thumb", ThumbSize: 60}, nil
}

func (c fakeCaptcha) Verify(context.Context, string, float64) bool { return c.accept }

type authFixture struct {
	flow     *AuthFlowImpl
	users    *testingutil.MemoryUserRepository
	tokens   *testingutil.MemoryVerificationTokenRepository
	sessions *testingutil.MemorySessionTokenRepository
	mail     *recordingEmailService
}

func newAuthFixture(t *testing.T, opts AuthOptions, captcha services.CaptchaService) *authFixture {
	t.Helper()
	tokenService, err := services.NewTokenService(time.Hour, "manud-be", "manud-clients", "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	fx := &authFixture{
		users:    testingutil.NewMemoryUserRepository(),
		tokens:   testingutil.NewMemoryVerificationTokenRepository(),
		sessions: testingutil.NewMemorySessionTokenRepository(),
		mail:     &recordingEmailService{},
	}
	fx.flow = NewAuthFlow(fx.users, fx.tokens, fx.sessions, testingutil.PassthroughTx{}, tokenService, fx.mail, captcha, opts, logging.Nop()).
		WithClock(testingutil.FixedClock).
		WithDispatcher(func(fn func()) { fn() })
	return fx
}

func TestAuthFlow_RegisterVerifyLogin(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)

	resp, err := fx.flow.Register(ctx, &dto.RegisterRequest{Name: " Siti ", Email: "Siti@Example.com ", Password: "SecurePass123!"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "siti@example.com", resp.User.Email)
	assert.Equal(t, "Siti", resp.User.DisplayName)
	assert.False(t, resp.User.EmailVerified)
	assert.True(t, resp.VerificationEmailSent)

	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: "siti@example.com", Password: "SecurePass123!"}, nil)
	assert.True(t, IsEmailNotVerified(err))

	vt := fx.tokens.Latest("siti@example.com", models.TokenTypeEmailVerification)
	require.NotNil(t, vt)
	assert.Equal(t, testingutil.FixedNow.Add(24*time.Hour), vt.ExpiresAt)
	require.Len(t, fx.mail.sent, 1)
	assert.Equal(t, sentMail{"verify", "siti@example.com", vt.Token}, fx.mail.sent[0])

	user, err := fx.flow.VerifyEmail(ctx, vt.Token)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)

	_, err = fx.flow.VerifyEmail(ctx, vt.Token)
	assert.True(t, IsInvalidToken(err), "tokens are single use")

	login, err := fx.flow.Login(ctx, &dto.LoginRequest{Email: "SITI@example.com", Password: "SecurePass123!"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", login.TokenType)

	claims, err := fx.flow.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.UID, claims.UserID)
}

func TestAuthFlow_RegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	_, err := testingutil.CreateTestUser(ctx, fx.users, "taken@example.com", true)
	require.NoError(t, err)

	_, err = fx.flow.Register(ctx, &dto.RegisterRequest{Name: "X", Email: "TAKEN@example.com", Password: "SecurePass123!"}, nil)
	assert.True(t, IsEmailAlreadyExists(err))
}

func TestAuthFlow_LoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	_, err := testingutil.CreateTestUser(ctx, fx.users, "user@example.com", true)
	require.NoError(t, err)

	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: "user@example.com", Password: "wrong-password"}, nil)
	assert.True(t, IsIncorrectCredentials(err))

	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: testingutil.TestPassword}, nil)
	assert.True(t, IsIncorrectCredentials(err))
}

func TestAuthFlow_SkipVerification(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{SkipVerification: true}, nil)

	resp, err := fx.flow.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "SecurePass123!"}, nil)
	require.NoError(t, err)
	assert.False(t, resp.VerificationEmailSent)
	assert.Empty(t, fx.mail.sent)

	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: "a@example.com", Password: "SecurePass123!"}, nil)
	assert.NoError(t, err)
}

func TestAuthFlow_LoginRevokesPreviousSessionsAndLogout(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	user, err := testingutil.CreateTestUser(ctx, fx.users, "user@example.com", true)
	require.NoError(t, err)

	first, err := fx.flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)
	second, err := fx.flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)

	_, err = fx.flow.Authenticate(ctx, first.Token)
	assert.True(t, IsInvalidToken(err))

	require.NoError(t, fx.flow.Logout(ctx, user.ID, second.Token))
	assert.True(t, IsTokenNotFound(fx.flow.Logout(ctx, user.ID, second.Token)))

	_, err = fx.flow.Authenticate(ctx, second.Token)
	assert.True(t, IsInvalidToken(err))
}

func TestAuthFlow_ResendVerification(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	_, err := testingutil.CreateTestUser(ctx, fx.users, "pending@example.com", false)
	require.NoError(t, err)
	_, err = testingutil.CreateTestUser(ctx, fx.users, "done@example.com", true)
	require.NoError(t, err)

	require.NoError(t, fx.flow.ResendVerification(ctx, &dto.EmailRequest{Email: "pending@example.com"}))
	assert.Len(t, fx.mail.sent, 1)

	assert.True(t, IsAlreadyVerified(fx.flow.ResendVerification(ctx, &dto.EmailRequest{Email: "done@example.com"})))
	assert.True(t, IsUserNotFound(fx.flow.ResendVerification(ctx, &dto.EmailRequest{Email: "ghost@example.com"})))
}

func TestAuthFlow_ForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	user, err := testingutil.CreateTestUser(ctx, fx.users, "user@example.com", true)
	require.NoError(t, err)

	require.NoError(t, fx.flow.ForgotPassword(ctx, &dto.EmailRequest{Email: "ghost@example.com"}, nil))
	assert.Empty(t, fx.mail.sent, "unknown addresses get the same answer and no mail")

	session, err := fx.flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
	require.NoError(t, err)

	require.NoError(t, fx.flow.ForgotPassword(ctx, &dto.EmailRequest{Email: "USER@example.com"}, nil))
	vt := fx.tokens.Latest(user.Email, models.TokenTypePasswordReset)
	require.NotNil(t, vt)
	assert.Equal(t, testingutil.FixedNow.Add(time.Hour), vt.ExpiresAt)
	require.Len(t, fx.mail.sent, 1)
	assert.Equal(t, "reset", fx.mail.sent[0].kind)

	err = fx.flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: vt.Token, Password: "BrandNewPass1!"}, nil)
	require.NoError(t, err)

	_, err = fx.flow.Authenticate(ctx, session.Token)
	assert.True(t, IsInvalidToken(err), "resetting the password revokes sessions")

	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: testingutil.TestPassword}, nil)
	assert.True(t, IsIncorrectCredentials(err))
	_, err = fx.flow.Login(ctx, &dto.LoginRequest{Email: user.Email, Password: "BrandNewPass1!"}, nil)
	assert.NoError(t, err)

	err = fx.flow.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: vt.Token, Password: "Another1!"}, nil)
	assert.True(t, IsInvalidToken(err))
}

func TestAuthFlow_Captcha(t *testing.T) {
	ctx := context.Background()
	angle := 42.0

	rejecting := newAuthFixture(t, AuthOptions{RequireCaptcha: true}, fakeCaptcha{accept: false})
	_, err := rejecting.flow.Register(ctx, &dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "SecurePass123!"}, nil)
	assert.True(t, IsInvalidCaptcha(err), "missing answer")

	_, err = rejecting.flow.Register(ctx, &dto.RegisterRequest{
		Name: "A", Email: "a@example.com", Password: "SecurePass123!",
		CaptchaAnswer: dto.CaptchaAnswer{CaptchaID: "c1", CaptchaAngle: &angle},
	}, nil)
	assert.True(t, IsInvalidCaptcha(err))

	accepting := newAuthFixture(t, AuthOptions{RequireCaptcha: true}, fakeCaptcha{accept: true})
	_, err = accepting.flow.Register(ctx, &dto.RegisterRequest{
		Name: "A", Email: "a@example.com", Password: "SecurePass123!",
		CaptchaAnswer: dto.CaptchaAnswer{CaptchaID: "c1", CaptchaAngle: &angle},
	}, nil)
	assert.NoError(t, err)

	ch, err := accepting.flow.Captcha(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.CaptchaResponse{ID: "c1", Image: "img", Thumb: "thumb", ThumbSize: 60}, *ch)

	_, err = newAuthFixture(t, AuthOptions{}, nil).flow.Captcha(ctx)
	assert.True(t, IsCaptchaUnavailable(err))
}

func TestAuthFlow_Me(t *testing.T) {
	ctx := context.Background()
	fx := newAuthFixture(t, AuthOptions{}, nil)
	user, err := testingutil.CreateTestUser(ctx, fx.users, "me@example.com", true)
	require.NoError(t, err)

	me, err := fx.flow.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", me.Email)

	_, err = fx.flow.Me(ctx, "missing")
	assert.True(t, IsUserNotFound(err))
}
