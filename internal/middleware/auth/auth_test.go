package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func doRequest(t *testing.T, mw echo.MiddlewareFunc, decorate func(*http.Request)) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		if id, ok := FromContext(c); ok {
			return c.JSON(http.StatusOK, echo.Map{"id": id.ID, "role": id.Role})
		}
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	token, err := SignToken(secret, 7, "USER")
	require.NoError(t, err)

	rec, err := doRequest(t, Required(secret), func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":7`)
}

func TestTokenFromCookie(t *testing.T) {
	token, err := SignToken(secret, 8, "USER")
	require.NoError(t, err)

	rec, err := doRequest(t, Required(secret), func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "token", Value: token})
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":8`)
}

func TestTokenFromQueryParam(t *testing.T) {
	token, err := SignToken(secret, 9, "USER")
	require.NoError(t, err)

	rec, err := doRequest(t, Required(secret), func(r *http.Request) {
		q := r.URL.Query()
		q.Set("access_token", token)
		r.URL.RawQuery = q.Encode()
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":9`)
}

func TestRequiredRejectsMissingToken(t *testing.T) {
	_, err := doRequest(t, Required(secret), nil)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequiredRejectsBadToken(t *testing.T) {
	_, err := doRequest(t, Required(secret), func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestOptionalAllowsAnonymous(t *testing.T) {
	rec, err := doRequest(t, Optional(secret), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestOptionalIgnoresInvalidToken(t *testing.T) {
	rec, err := doRequest(t, Optional(secret), func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestRequireRoles(t *testing.T) {
	userToken, err := SignToken(secret, 1, "USER")
	require.NoError(t, err)
	adminToken, err := SignToken(secret, 2, "ADMIN")
	require.NoError(t, err)

	mw := RequireRoles(secret, "ADMIN")

	_, err = doRequest(t, mw, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+userToken)
	})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)

	rec, err := doRequest(t, mw, func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken)
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = doRequest(t, mw, nil)
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}
