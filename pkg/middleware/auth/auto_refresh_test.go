package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwthelp "github.com/Skotchmaster/teslix_shop/pkg/jwt"
	"github.com/Skotchmaster/teslix_shop/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

type refresherFunc func(ctx context.Context, refreshToken string) (*tokens.Pair, error)

func (f refresherFunc) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	return f(ctx, refreshToken)
}

func access(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	tok, err := tokens.SignAccess(sub, role, exp, secret)
	require.NoError(t, err)
	return tok
}

func run(t *testing.T, h echo.MiddlewareFunc, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return rec, c, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_ValidToken(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	tok := access(t, "7", "user", time.Now().Add(time.Minute))

	rec, c, err := run(t, m.RequireAuth, &http.Cookie{Name: jwthelp.AccessCookie, Value: tok})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(7), c.Get(UserIDKey))
	assert.Equal(t, "user", c.Get(RoleKey))
}

func TestRequireAuth_MissingCookies(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)

	_, _, err := run(t, m.RequireAuth)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAuth_ForgedToken(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	forged, err := tokens.SignAccess("7", "admin", time.Now().Add(time.Minute), []byte("other"))
	require.NoError(t, err)

	_, _, err = run(t, m.RequireAuth, &http.Cookie{Name: jwthelp.AccessCookie, Value: forged})
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAuth_RefreshesExpiredToken(t *testing.T) {
	var got string
	m := NewAutoRefreshMiddleware(secret, refresherFunc(func(_ context.Context, rt string) (*tokens.Pair, error) {
		got = rt
		return &tokens.Pair{
			AccessToken:  access(t, "9", "admin", time.Now().Add(time.Minute)),
			RefreshToken: "new-refresh",
			AccessExp:    time.Now().Add(time.Minute),
			RefreshExp:   time.Now().Add(time.Hour),
		}, nil
	}))
	expired := access(t, "9", "user", time.Now().Add(-time.Minute))

	rec, c, err := run(t, m.RequireAdmin,
		&http.Cookie{Name: jwthelp.AccessCookie, Value: expired},
		&http.Cookie{Name: jwthelp.RefreshCookie, Value: "old-refresh"},
	)
	require.NoError(t, err)
	assert.Equal(t, "old-refresh", got)
	assert.Equal(t, uint(9), c.Get(UserIDKey))

	cookies := rec.Result().Cookies()
	names := map[string]string{}
	for _, ck := range cookies {
		names[ck.Name] = ck.Value
	}
	assert.Equal(t, "new-refresh", names[jwthelp.RefreshCookie])
	assert.NotEmpty(t, names[jwthelp.AccessCookie])
}

func TestRequireAuth_RefreshFails(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, refresherFunc(func(context.Context, string) (*tokens.Pair, error) {
		return nil, errors.New("revoked")
	}))
	expired := access(t, "9", "user", time.Now().Add(-time.Minute))

	_, _, err := run(t, m.RequireAuth,
		&http.Cookie{Name: jwthelp.AccessCookie, Value: expired},
		&http.Cookie{Name: jwthelp.RefreshCookie, Value: "old-refresh"},
	)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAdmin_RejectsUser(t *testing.T) {
	m := NewAutoRefreshMiddleware(secret, nil)
	tok := access(t, "7", "user", time.Now().Add(time.Minute))

	_, _, err := run(t, m.RequireAdmin, &http.Cookie{Name: jwthelp.AccessCookie, Value: tok})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}
