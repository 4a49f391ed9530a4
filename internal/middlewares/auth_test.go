package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newAuthRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		actor, ok := utils.GetActorFromContext(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, actor)
	})
	return r
}

func doRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthMiddleware(t *testing.T) {
	cfg := config.JWTConfig{SecretKey: testSecret, Issuer: "go-docflow"}
	r := newAuthRouter(JWTAuthMiddleware(cfg))

	valid, err := utils.GenerateToken("u-1", "Alice", "alice@example.com", testSecret, "go-docflow", time.Hour)
	require.NoError(t, err)
	noName, err := utils.GenerateToken("u-2", "", "", testSecret, "go-docflow", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateToken("u-1", "Alice", "", testSecret, "go-docflow", -time.Minute)
	require.NoError(t, err)
	otherIssuer, err := utils.GenerateToken("u-1", "Alice", "", testSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	otherSecret, err := utils.GenerateToken("u-1", "Alice", "", "wrong", "go-docflow", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantName string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "Alice"},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, "Alice"},
		{"default display name", "Bearer " + noName, http.StatusOK, models.DefaultDisplayName},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong issuer", "Bearer " + otherIssuer, http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + otherSecret, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.header)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantName != "" {
				assert.Contains(t, w.Body.String(), `"displayName":"`+tt.wantName+`"`)
			}
		})
	}
}

type fakeVerifier struct {
	token *auth.Token
	err   error
	seen  string
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	f.seen = idToken
	return f.token, f.err
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	v := &fakeVerifier{token: &auth.Token{UID: "fb-1", Claims: map[string]interface{}{"name": "Bob", "email": "bob@example.com"}}}
	r := newAuthRouter(FirebaseAuthMiddleware(v))

	w := doRequest(r, "Bearer id-token")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "id-token", v.seen)
	assert.Contains(t, w.Body.String(), `"uid":"fb-1"`)
	assert.Contains(t, w.Body.String(), `"displayName":"Bob"`)

	v.err = errors.New("expired")
	w = doRequest(r, "Bearer id-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFirebaseAuthMiddlewareDefaultsName(t *testing.T) {
	v := &fakeVerifier{token: &auth.Token{UID: "fb-2", Claims: map[string]interface{}{}}}
	r := newAuthRouter(FirebaseAuthMiddleware(v))

	w := doRequest(r, "Bearer t")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"displayName":"Usuario"`)
}

func TestNewAuthMiddlewareSelectsProvider(t *testing.T) {
	v := &fakeVerifier{token: &auth.Token{UID: "fb-3"}}
	cfg := &config.Config{Auth: config.AuthConfig{Provider: config.AuthFirebase}, JWT: config.JWTConfig{SecretKey: testSecret}}

	mw, err := NewAuthMiddleware(cfg, v)
	require.NoError(t, err)
	w := doRequest(newAuthRouter(mw), "Bearer anything")
	assert.Equal(t, http.StatusOK, w.Code)

	cfg.Auth.Provider = config.AuthJWT
	mw, err = NewAuthMiddleware(cfg, v)
	require.NoError(t, err)
	w = doRequest(newAuthRouter(mw), "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewAuthMiddlewareRejectsMissingVerifier(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Provider: config.AuthFirebase}, JWT: config.JWTConfig{SecretKey: testSecret}}

	mw, err := NewAuthMiddleware(cfg, nil)
	assert.Error(t, err)
	assert.Nil(t, mw)

	cfg.Auth.Provider = "ldap"
	_, err = NewAuthMiddleware(cfg, nil)
	assert.ErrorContains(t, err, "ldap")
}
