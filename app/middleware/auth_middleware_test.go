package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/services"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
)

type stubAuthenticator struct {
	tokens map[string]string
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*services.TokenClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	userID, ok := s.tokens[token]
	if !ok {
		return nil, businessflow.NewBusinessError("INVALID_TOKEN", "Invalid or expired token", businessflow.ErrInvalidToken)
	}
	return &services.TokenClaims{UserID: userID}, nil
}

// errorBody mirrors dto.APIResponse with a typed error detail for decoding.
type errorBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   dto.ErrorDetail `json:"error"`
}

func newProtectedApp(auth Authenticator) *fiber.App {
	app := fiber.New()
	app.Get("/me", NewAuthMiddleware(auth).Authenticate(), func(c fiber.Ctx) error {
		userID, _ := GetUserIDFromContext(c)
		token, _ := GetAccessTokenFromContext(c)
		return c.JSON(fiber.Map{"user": userID, "token": token})
	})
	return app
}

func TestAuthenticate(t *testing.T) {
	auth := stubAuthenticator{tokens: map[string]string{"good": "user-1"}}

	cases := []struct {
		name   string
		header string
		auth   Authenticator
		status int
		code   string
	}{
		{"missing header", "", auth, http.StatusUnauthorized, "MISSING_AUTHORIZATION_HEADER"},
		{"wrong scheme", "Basic abc", auth, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"empty token", "Bearer   ", auth, http.StatusUnauthorized, "MISSING_ACCESS_TOKEN"},
		{"scheme only", "Bearer", auth, http.StatusUnauthorized, "MISSING_ACCESS_TOKEN"},
		{"revoked token", "Bearer stale", auth, http.StatusUnauthorized, "TOKEN_INVALID"},
		{"store failure", "Bearer good", stubAuthenticator{err: errors.New("connection reset")}, http.StatusInternalServerError, "TOKEN_VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := newProtectedApp(tc.auth).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestAuthenticate_SetsLocals(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")

	resp, err := newProtectedApp(stubAuthenticator{tokens: map[string]string{"good": "user-1"}}).Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "user-1", body["user"])
	assert.Equal(t, "good", body["token"])
}
