package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/starter/core/binder"
	"github.com/dmitrymomot/starter/core/response"
)

type loginRequest struct {
	Credential string `json:"login_credential" sanitize:"trim" validate:"required;email;max:255"`
	Password   string `json:"password" validate:"required"`
	Remember   bool   `json:"remember_me"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		t.Parallel()
		req, err := binder.Bind[loginRequest](jsonRequest(`{"login_credential":"ada@example.com","password":"secret","remember_me":true}`))
		require.NoError(t, err)
		assert.Equal(t, loginRequest{Credential: "ada@example.com", Password: "secret", Remember: true}, req)
	})

	t.Run("trims before validating", func(t *testing.T) {
		t.Parallel()
		req, err := binder.Bind[loginRequest](jsonRequest(`{"login_credential":"  ada@example.com ","password":" secret "}`))
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", req.Credential)
		assert.Equal(t, " secret ", req.Password)
	})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"malformed JSON", jsonRequest(`{"login_credential":`), http.StatusBadRequest},
		{"empty body", jsonRequest(``), http.StatusBadRequest},
		{"unknown field", jsonRequest(`{"login_credential":"ada@example.com","password":"x","admin":true}`), http.StatusBadRequest},
		{"trailing data", jsonRequest(`{"login_credential":"ada@example.com","password":"x"} {}`), http.StatusBadRequest},
		{"too large", jsonRequest(`{"password":"` + strings.Repeat("x", binder.DefaultMaxJSONSize) + `"}`), http.StatusRequestEntityTooLarge},
		{"validation", jsonRequest(`{"login_credential":"nope","password":""}`), http.StatusUnprocessableEntity},
		{"wrong content type", func() *http.Request {
			r := jsonRequest(`{}`)
			r.Header.Set("Content-Type", "text/plain")
			return r
		}(), http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := binder.Bind[loginRequest](tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.status, response.AsHTTPError(err).Status)
		})
	}

	t.Run("validation errors are field keyed", func(t *testing.T) {
		t.Parallel()
		_, err := binder.Bind[loginRequest](jsonRequest(`{"login_credential":"nope","password":""}`))
		httpErr := response.AsHTTPError(err)
		assert.Equal(t, "The login credential field must be a valid email address.", httpErr.Message)
		assert.Contains(t, httpErr.Errors, "login_credential")
		assert.Contains(t, httpErr.Errors, "password")
	})
}

func TestPathInt64(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	r.SetPathValue("id", "42")
	id, err := binder.PathInt64(r, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	r.SetPathValue("id", "abc")
	_, err = binder.PathInt64(r, "id")
	assert.ErrorIs(t, err, binder.ErrInvalidPathParam)
	assert.Equal(t, http.StatusNotFound, response.AsHTTPError(err).Status)
}
