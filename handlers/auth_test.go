package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/photovaultbackend/models"
	"github.com/camden-git/photovaultbackend/repository"
)

var testJWTSecret = []byte("test-jwt-secret")

// setupTestDB opens a throwaway sqlite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func createTestUser(t *testing.T, repo *repository.UserRepository, email, password, role string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Role: role}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, repo.Create(user))
	return user
}

func loginRequest(t *testing.T, handler *AuthHandler, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(LoginPayload{Email: email, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.Login(rr, req)
	return rr
}

func TestLoginSuccess(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))
	createTestUser(t, repo, "alice@example.com", "hunter2", models.RolePhotographer)
	handler := NewAuthHandler(repo, testJWTSecret)

	rr := loginRequest(t, handler, "alice@example.com", "hunter2")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Empty(t, resp.User.PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))
	createTestUser(t, repo, "alice@example.com", "hunter2", models.RoleViewer)
	handler := NewAuthHandler(repo, testJWTSecret)

	rr := loginRequest(t, handler, "alice@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))
	handler := NewAuthHandler(repo, testJWTSecret)

	rr := loginRequest(t, handler, "nobody@example.com", "x")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthMiddlewareRoundTrip(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))
	user := createTestUser(t, repo, "alice@example.com", "hunter2", models.RolePhotographer)
	handler := NewAuthHandler(repo, testJWTSecret)

	rr := loginRequest(t, handler, "alice@example.com", "hunter2")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	var seen *models.User
	protected := AuthMiddleware(repo, testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	out := httptest.NewRecorder()
	protected.ServeHTTP(out, req)

	assert.Equal(t, http.StatusOK, out.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	repo := repository.NewUserRepository(setupTestDB(t))
	protected := AuthMiddleware(repo, testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/imports", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			out := httptest.NewRecorder()
			protected.ServeHTTP(out, req)
			assert.Equal(t, http.StatusUnauthorized, out.Code)
		})
	}
}
