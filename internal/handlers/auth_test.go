package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-hub/internal/store"
)

func setupAuthRouter(s store.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(s)
	r := gin.New()
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/login", handler.Login)
	r.GET("/api/users", handler.ListUsers)
	r.GET("/api/channels", handler.ListChannels)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, store.EnsureDefaults(context.Background(), s))
	router := setupAuthRouter(s)

	body := bytes.NewBufferString(`{"username":"alice","displayName":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		User struct {
			ID          int    `json:"id"`
			Username    string `json:"username"`
			DisplayName string `json:"displayName"`
			Avatar      string `json:"avatar"`
			Status      string `json:"status"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "Alice", resp.User.DisplayName)
	assert.Contains(t, resp.User.Avatar, "dicebear.com")
	assert.Equal(t, "offline", resp.User.Status)

	// Registration enrolls the user in the default channel.
	general, err := s.GetChannelByName(context.Background(), "general")
	require.NoError(t, err)
	ok, err := s.IsMember(context.Background(), general.ID, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterDefaultsDisplayName(t *testing.T) {
	s := store.NewMemStore()
	router := setupAuthRouter(s)

	body := bytes.NewBufferString(`{"username":"bob"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	user, err := s.GetUserByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.DisplayName)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := store.NewMemStore()
	_, err := s.CreateUser(context.Background(), "alice", "Alice")
	require.NoError(t, err)
	router := setupAuthRouter(s)

	body := bytes.NewBufferString(`{"username":"ALICE"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Username already exists", resp["error"])
}

func TestRegisterMissingUsername(t *testing.T) {
	s := store.NewMemStore()
	router := setupAuthRouter(s)

	for _, body := range []string{`{}`, `{"username":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestLoginSuccess(t *testing.T) {
	s := store.NewMemStore()
	created, err := s.CreateUser(context.Background(), "alice", "Alice")
	require.NoError(t, err)
	router := setupAuthRouter(s)

	body := bytes.NewBufferString(`{"username":"Alice"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		User struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, created.ID, resp.User.ID)
}

func TestLoginUnknownUsername(t *testing.T) {
	s := store.NewMemStore()
	router := setupAuthRouter(s)

	body := bytes.NewBufferString(`{"username":"ghost"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Invalid username", resp["error"])
}

func TestListUsersAndChannels(t *testing.T) {
	s := store.NewMemStore()
	require.NoError(t, store.EnsureDefaults(context.Background(), s))
	_, err := s.CreateUser(context.Background(), "alice", "Alice")
	require.NoError(t, err)
	router := setupAuthRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var usersResp struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&usersResp))
	assert.Len(t, usersResp.Users, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var channelsResp struct {
		Channels []struct {
			Name string `json:"name"`
		} `json:"channels"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&channelsResp))
	require.Len(t, channelsResp.Channels, 1)
	assert.Equal(t, "general", channelsResp.Channels[0].Name)
}
