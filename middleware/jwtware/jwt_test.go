package jwtware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/middleware/jwtware"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signingKey = []byte("jwtware-signing-key-0123456789abc")

type principals map[string]*auth.Principal

func (p principals) FindPrincipalByEmail(_ context.Context, email string) (*auth.Principal, error) {
	if found, ok := p[auth.NormalizeEmail(email)]; ok {
		return found, nil
	}
	return nil, auth.ErrPrincipalNotFound
}

func (p principals) SavePrincipal(_ context.Context, pr *auth.Principal) (*auth.Principal, error) {
	p[pr.Email] = pr
	return pr, nil
}

func (p principals) UpdatePrincipalRole(_ context.Context, email string, role auth.Role) (*auth.Principal, error) {
	found, ok := p[email]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	found.Role = role
	return found, nil
}

// errorStatus mirrors the server error handler closely enough to assert
// status codes.
func errorStatus(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case auth.IsCode(err, auth.TextCodeUnauthenticated),
		auth.IsCode(err, auth.TextCodeTokenInvalid),
		auth.IsCode(err, auth.TextCodeTokenExpired):
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).SendString(err.Error())
}

type callerBody struct {
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
	HasClaims   bool     `json:"has_claims"`
}

// newRouter mounts routes through the go-router fiber adapter and hands
// back the underlying app for app.Test.
func newRouter(t *testing.T) (router.Router[*fiber.App], *fiber.App) {
	t.Helper()
	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{ErrorHandler: errorStatus})
		return app
	})
	require.NotNil(t, app)
	return srv.Router(), app
}

func whoami(ctx router.Context) error {
	caller := jwtware.CallerFrom(ctx)
	_, ok := jwtware.ClaimsFrom(ctx)
	return ctx.JSON(router.StatusOK, callerBody{
		Email:       caller.Email,
		Role:        string(caller.Role),
		Authorities: caller.Authorities,
		HasClaims:   ok,
	})
}

func newApp(t *testing.T, store principals, tokens *auth.TokenService, mode jwtware.Mode, lookup string) *fiber.App {
	t.Helper()
	r, app := newRouter(t)
	r.Get("/whoami", whoami, jwtware.New(jwtware.Config{Tokens: tokens, Mode: mode, TokenLookup: lookup}))
	return app
}

func request(t *testing.T, app *fiber.App, target, bearer string) (int, callerBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body callerBody
	if resp.StatusCode == http.StatusOK && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp.StatusCode, body
}

func TestJWTWare_VerifyMode(t *testing.T) {
	store := principals{
		"emp@x.io": {Email: "emp@x.io", Role: auth.RoleEmployer},
	}
	tokens := auth.NewTokenService(signingKey, time.Hour, store)
	app := newApp(t, store, tokens, jwtware.ModeVerify, "")

	token, err := tokens.Issue(store["emp@x.io"])
	require.NoError(t, err)

	status, body := request(t, app, "/whoami", "Bearer "+token.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "emp@x.io", body.Email)
	assert.Equal(t, []string{"ROLE_EMPLOYER"}, body.Authorities)
	assert.True(t, body.HasClaims)

	// authorities follow the stored role, not the token
	store["emp@x.io"].Role = auth.RoleApplicant
	_, body = request(t, app, "/whoami", "Bearer "+token.AccessToken)
	assert.Equal(t, []string{"ROLE_APPLICANT"}, body.Authorities)

	delete(store, "emp@x.io")
	status, _ = request(t, app, "/whoami", "Bearer "+token.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestJWTWare_Rejections(t *testing.T) {
	store := principals{"a@x.io": {Email: "a@x.io"}}
	now := time.Now()
	tokens := auth.NewTokenService(signingKey, time.Second, store, auth.WithTokenClock(func() time.Time { return now }))
	other := auth.NewTokenService([]byte("another-signing-key-0123456789abc"), time.Hour, store)
	app := newApp(t, store, tokens, jwtware.ModeVerify, "")

	valid, err := tokens.Issue(store["a@x.io"])
	require.NoError(t, err)
	forged, err := other.Issue(store["a@x.io"])
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		at     time.Time
	}{
		{"missing header", "", now},
		{"wrong scheme", "Basic " + valid.AccessToken, now},
		{"scheme only", "Bearer ", now},
		{"garbage", "Bearer not.a.jwt", now},
		{"foreign signature", "Bearer " + forged.AccessToken, now},
		{"expired", "Bearer " + valid.AccessToken, now.Add(2 * time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := tt.at
			tokens := auth.NewTokenService(signingKey, time.Second, store, auth.WithTokenClock(func() time.Time { return current }))
			app = newApp(t, store, tokens, jwtware.ModeVerify, "")
			status, _ := request(t, app, "/whoami", tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}
}

func TestJWTWare_ParseModeSkipsStore(t *testing.T) {
	store := principals{}
	tokens := auth.NewTokenService(signingKey, time.Hour, store)
	app := newApp(t, store, tokens, jwtware.ModeParse, "header:Authorization,query:token")

	fresh, err := tokens.Issue(&auth.Principal{Email: "new@x.io"})
	require.NoError(t, err)

	status, body := request(t, app, "/whoami", "Bearer "+fresh.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "new@x.io", body.Email)
	assert.Empty(t, body.Authorities)

	withRole, err := tokens.Issue(&auth.Principal{Email: "new@x.io", Role: auth.RoleApplicant})
	require.NoError(t, err)

	status, body = request(t, app, "/whoami?token="+withRole.AccessToken, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "APPLICANT", body.Role)
	assert.Equal(t, []string{"ROLE_APPLICANT"}, body.Authorities)
}

func TestJWTWare_FilterAndListeners(t *testing.T) {
	store := principals{"a@x.io": {Email: "a@x.io"}}
	tokens := auth.NewTokenService(signingKey, time.Hour, store)

	var seen []string
	r, app := newRouter(t)
	r.Use(jwtware.New(jwtware.Config{
		Tokens: tokens,
		Filter: func(ctx router.Context) bool { return ctx.Path() == "/healthz" },
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(_ router.Context, claims *auth.TokenClaims) error {
				seen = append(seen, claims.Email())
				return nil
			},
		},
	}))
	r.Get("/healthz", func(ctx router.Context) error {
		assert.False(t, jwtware.CallerFrom(ctx).Authenticated())
		return ctx.JSON(router.StatusOK, callerBody{})
	})
	r.Get("/whoami", whoami)

	status, body := request(t, app, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Email)

	token, err := tokens.Issue(store["a@x.io"])
	require.NoError(t, err)
	status, body = request(t, app, "/whoami", "Bearer "+token.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a@x.io", body.Email)
	assert.Equal(t, []string{"a@x.io"}, seen)
}

func TestJWTWare_ListenerErrorStopsChain(t *testing.T) {
	store := principals{"a@x.io": {Email: "a@x.io"}}
	tokens := auth.NewTokenService(signingKey, time.Hour, store)

	r, app := newRouter(t)
	called := false
	r.Get("/whoami", func(ctx router.Context) error {
		called = true
		return whoami(ctx)
	}, jwtware.New(jwtware.Config{
		Tokens: tokens,
		ValidationListeners: []jwtware.ValidationListener{
			func(router.Context, *auth.TokenClaims) error { return auth.ErrUnauthenticated },
		},
	}))

	token, err := tokens.Issue(store["a@x.io"])
	require.NoError(t, err)
	status, _ := request(t, app, "/whoami", "Bearer "+token.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, called)
}

func TestJWTWare_RequiresTokens(t *testing.T) {
	assert.Panics(t, func() { jwtware.New(jwtware.Config{}) })
}
