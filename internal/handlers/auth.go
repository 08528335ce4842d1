package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-hub/internal/store"
)

// AuthHandler serves the REST bootstrap: account registration, login, and the
// user/channel listings a client needs before opening its websocket.
type AuthHandler struct {
	store store.Store
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(s store.Store) *AuthHandler {
	return &AuthHandler{store: s}
}

// Register creates a user and enrolls it in the default channel.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	user, err := h.store.CreateUser(c.Request.Context(), username, displayName)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	// Enrollment in the default channel is best effort: a missing channel
	// does not fail registration.
	if general, err := h.store.GetChannelByName(c.Request.Context(), "general"); err == nil {
		if _, err := h.store.AddMember(c.Request.Context(), general.ID, user.ID); err != nil && !errors.Is(err, store.ErrAlreadyMember) {
			log.Printf("handlers: add user %d to general: %v", user.ID, err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login resolves a username to its account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username is required"})
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListUsers returns every registered user.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListChannels returns every channel, private group chats included.
func (h *AuthHandler) ListChannels(c *gin.Context) {
	channels, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}
