package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chynybekuuludastan/story_generator/internal/api/middleware"
	"github.com/chynybekuuludastan/story_generator/internal/models"
	"github.com/chynybekuuludastan/story_generator/internal/utils/password"
)

// doJSON sends a request and decodes the JSON envelope of the reply
func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

var authConfig = AuthConfig{JWTSecret: "test-secret", JWTExpiration: time.Hour}

func newAuthApp(userID uuid.UUID, users *fakeUserRepo, revoker *fakeRevoker) *fiber.App {
	h := NewAuthHandler(users, revoker, authConfig)
	return newTestApp(userID, models.RoleParent, func(app *fiber.App) {
		app.Post("/register", h.Register)
		app.Post("/login", h.Login)
		app.Post("/logout", h.Logout)
		app.Post("/refresh", h.RefreshToken)
		app.Get("/me", h.GetMe)
		app.Put("/password", h.ChangePassword)
	})
}

func TestRegister(t *testing.T) {
	users := newFakeUserRepo()
	app := newAuthApp(uuid.Nil, users, nil)

	status, body := doJSON(t, app, http.MethodPost, "/register", RegisterRequest{
		Username: "ayse", Email: "ayse@example.com", Password: "uzun-sifre-1",
	})

	require.Equal(t, fiber.StatusCreated, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, models.RoleParent, data["role"])

	created, err := users.FindByEmail("ayse@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint(2), created.RoleID)
	ok, err := password.Verify("uzun-sifre-1", created.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	users := newFakeUserRepo()
	users.add(&models.User{Username: "ayse", Email: "ayse@example.com", RoleID: 2})
	app := newAuthApp(uuid.Nil, users, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/register", RegisterRequest{
		Username: "other", Email: "ayse@example.com", Password: "uzun-sifre-1",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = doJSON(t, app, http.MethodPost, "/register", RegisterRequest{
		Username: "ayse", Email: "new@example.com", Password: "uzun-sifre-1",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, body := doJSON(t, app, http.MethodPost, "/register", RegisterRequest{
		Username: "al", Email: "not-an-email", Password: "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
}

func TestLogin(t *testing.T) {
	users := newFakeUserRepo()
	hash, err := password.Hash("uzun-sifre-1")
	require.NoError(t, err)
	user := users.add(&models.User{Username: "ayse", Email: "ayse@example.com", PasswordHash: hash, RoleID: 2})
	app := newAuthApp(uuid.Nil, users, nil)

	status, body := doJSON(t, app, http.MethodPost, "/login", LoginRequest{Email: "ayse@example.com", Password: "uzun-sifre-1"})
	require.Equal(t, fiber.StatusOK, status)

	data := body["data"].(map[string]interface{})
	claims, err := middleware.ParseJWT(data["access_token"].(string), authConfig.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleParent, claims.Role)
	assert.Empty(t, users.updated, "current hashes are kept")

	status, _ = doJSON(t, app, http.MethodPost, "/login", LoginRequest{Email: "ayse@example.com", Password: "yanlis-sifre"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/login", LoginRequest{Email: "nobody@example.com", Password: "uzun-sifre-1"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	users := newFakeUserRepo()
	legacy, err := bcrypt.GenerateFromPassword([]byte("eski-sifre-1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := users.add(&models.User{Username: "ali", Email: "ali@example.com", PasswordHash: string(legacy), RoleID: 2})
	app := newAuthApp(uuid.Nil, users, nil)

	status, _ := doJSON(t, app, http.MethodPost, "/login", LoginRequest{Email: "ali@example.com", Password: "eski-sifre-1"})

	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, users.updated, user.ID)
	ok, err := password.Verify("eski-sifre-1", users.updated[user.ID])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogoutAndRefreshRevokeCurrentToken(t *testing.T) {
	users := newFakeUserRepo()
	user := users.add(&models.User{Username: "ayse", Email: "ayse@example.com", RoleID: 2})
	revoker := &fakeRevoker{revoked: map[string]time.Duration{}}
	app := newAuthApp(user.ID, users, revoker)

	status, _ := doJSON(t, app, http.MethodPost, "/logout", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Contains(t, revoker.revoked, "test-token")
	assert.LessOrEqual(t, revoker.revoked["test-token"], time.Hour)

	delete(revoker.revoked, "test-token")
	status, body := doJSON(t, app, http.MethodPost, "/refresh", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, revoker.revoked, "test-token")
	assert.NotEmpty(t, body["data"].(map[string]interface{})["access_token"])
}

func TestGetMe(t *testing.T) {
	users := newFakeUserRepo()
	user := users.add(&models.User{Username: "ayse", Email: "ayse@example.com", RoleID: 1})

	status, body := doJSON(t, newAuthApp(user.ID, users, nil), http.MethodGet, "/me", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.RoleAdmin, body["data"].(map[string]interface{})["role"])

	status, _ = doJSON(t, newAuthApp(uuid.New(), users, nil), http.MethodGet, "/me", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, newAuthApp(uuid.Nil, users, nil), http.MethodGet, "/me", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestChangePassword(t *testing.T) {
	users := newFakeUserRepo()
	hash, err := password.Hash("uzun-sifre-1")
	require.NoError(t, err)
	user := users.add(&models.User{Username: "ayse", Email: "ayse@example.com", PasswordHash: hash, RoleID: 2})
	app := newAuthApp(user.ID, users, nil)

	status, _ := doJSON(t, app, http.MethodPut, "/password", ChangePasswordRequest{CurrentPassword: "yanlis", NewPassword: "yeni-sifre-2"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPut, "/password", ChangePasswordRequest{CurrentPassword: "uzun-sifre-1", NewPassword: "uzun-sifre-1"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPut, "/password", ChangePasswordRequest{CurrentPassword: "uzun-sifre-1", NewPassword: "yeni-sifre-2"})
	require.Equal(t, fiber.StatusOK, status)
	ok, err := password.Verify("yeni-sifre-2", users.updated[user.ID])
	require.NoError(t, err)
	assert.True(t, ok)
}
