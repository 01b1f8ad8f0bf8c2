package auth_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/anusha24-git/UserService"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	manager, _ := newTestSessionManager(t)

	app := fiber.New()
	auth.RegisterAPIRoutes(app,
		auth.WithSessionManager(manager),
		auth.WithControllerLogger(quietLogger{}),
	)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestAPI_SessionLifecycle(t *testing.T) {
	app := newTestApp(t)

	// signup
	resp := postJSON(t, app, "/signup", fiber.Map{
		"name":     "Ann Example",
		"email":    "ann@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotContains(t, string(raw), "secret-pass")
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "hash")

	var created auth.SignupResponse
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "ann@example.com", created.Email)
	assert.NotEmpty(t, created.ID)

	// duplicate signup
	resp = postJSON(t, app, "/signup", fiber.Map{
		"name":     "Ann Again",
		"email":    "Ann@Example.com",
		"password": "other-pass",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// login
	resp = postJSON(t, app, "/login", fiber.Map{
		"email":    "ann@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var login auth.LoginResponse
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.Token)

	// validate with the bare token
	resp = validateRequest(t, app, login.Token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var verdict bool
	decodeBody(t, resp, &verdict)
	assert.True(t, verdict)

	// validate with the Bearer scheme
	resp = validateRequest(t, app, "Bearer "+login.Token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// logout, twice: both succeed
	resp = postJSON(t, app, "/logout", fiber.Map{"token": login.Token})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/logout", fiber.Map{"token": login.Token})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// the revoked token no longer validates
	resp = validateRequest(t, app, login.Token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	decodeBody(t, resp, &verdict)
	assert.False(t, verdict)
}

func validateRequest(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/validate", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAPI_LoginRejections(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/signup", fiber.Map{
		"name":     "Ann",
		"email":    "ann@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	cases := []struct {
		name string
		body fiber.Map
		want int
	}{
		{"wrong password", fiber.Map{"email": "ann@example.com", "password": "nope"}, fiber.StatusBadRequest},
		{"unknown email", fiber.Map{"email": "ghost@example.com", "password": "nope"}, fiber.StatusBadRequest},
		{"missing password", fiber.Map{"email": "ann@example.com"}, fiber.StatusBadRequest},
		{"invalid email shape", fiber.Map{"email": "not-an-email", "password": "nope"}, fiber.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, "/login", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestAPI_SignupValidation(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"missing name", fiber.Map{"email": "ann@example.com", "password": "secret-pass"}},
		{"missing email", fiber.Map{"name": "Ann", "password": "secret-pass"}},
		{"bad email", fiber.Map{"name": "Ann", "email": "not-an-email", "password": "secret-pass"}},
		{"short password", fiber.Map{"name": "Ann", "email": "ann@example.com", "password": "abc"}},
		{"empty body", fiber.Map{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, "/signup", tc.body)
			defer resp.Body.Close()
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPI_ValidateRejections(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"garbage token", "not-a-token"},
		{"garbage with scheme", "Bearer not-a-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := validateRequest(t, app, tc.header)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			var verdict bool
			decodeBody(t, resp, &verdict)
			assert.False(t, verdict)
		})
	}
}

func TestAPI_ValidateSurfacesStoreOutage(t *testing.T) {
	store := newMemoryStore()
	manager := auth.NewSessionManager(nil, newTestConfig()).
		WithStore(store).
		WithHasher(plainHasher{}).
		WithRevocationLedger(auth.NewMemoryRevocationLedger()).
		WithLogger(quietLogger{})

	app := fiber.New()
	auth.RegisterAPIRoutes(app,
		auth.WithSessionManager(manager),
		auth.WithControllerLogger(quietLogger{}),
	)

	resp := postJSON(t, app, "/signup", fiber.Map{
		"name":     "Ann",
		"email":    "ann@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, app, "/login", fiber.Map{
		"email":    "ann@example.com",
		"password": "secret-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var login auth.LoginResponse
	decodeBody(t, resp, &login)

	store.failWith = goerrors.New("connection refused", goerrors.CategoryOperation)

	// A token we cannot reach a verdict on is an outage, not a rejection.
	resp = validateRequest(t, app, login.Token)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	// Token failures themselves still read as "not valid" during the outage;
	// the codec rejects them before the store is consulted.
	resp = validateRequest(t, app, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	var verdict bool
	decodeBody(t, resp, &verdict)
	assert.False(t, verdict)
}

func TestAPI_LogoutToleratesBadInput(t *testing.T) {
	app := newTestApp(t)

	// empty token
	resp := postJSON(t, app, "/logout", fiber.Map{"token": ""})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// unverifiable token
	resp = postJSON(t, app, "/logout", fiber.Map{"token": "garbage"})
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// unparseable body
	req := httptest.NewRequest(http.MethodPost, "/logout", bytes.NewReader([]byte("{nope")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, fiber.StatusNoContent, raw.StatusCode)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"bare token", "abc.def.ghi", "abc.def.ghi"},
		{"bearer scheme", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lower case scheme", "bearer abc.def.ghi", "abc.def.ghi"},
		{"padded", "  Bearer abc.def.ghi  ", "abc.def.ghi"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.BearerToken(tc.header))
		})
	}
}

func TestNewAPIController_RequiresSessions(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewAPIController()
	})
}
