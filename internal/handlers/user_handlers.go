package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shopkart/shopkart-golang/internal/auth"
	"github.com/shopkart/shopkart-golang/internal/models"
)

//
// --- Auth Handlers (Public) ---
//

type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// Register is the handler for POST /api/auth/register/.
// A successful registration returns a token pair so the client is
// logged in immediately.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}

	var exists int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", input.Username).Scan(&exists)
	if err != nil {
		zap.L().Error("register: username lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register"})
		return
	}
	if exists > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username already exists"})
		return
	}

	if input.Email != "" {
		err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", input.Email).Scan(&exists)
		if err != nil {
			zap.L().Error("register: email lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register"})
			return
		}
		if exists > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "email already exists"})
			return
		}
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register"})
		return
	}

	result, err := h.DB.Exec(
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		input.Username, input.Email, password.Hash, time.Now())
	if err != nil {
		zap.L().Error("register: insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register"})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to register"})
		return
	}

	access, refresh, err := auth.GenerateTokenPair(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       userID,
		"username": input.Username,
		"access":   access,
		"refresh":  refresh,
	})
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/auth/login/.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password required"})
		return
	}

	var user models.User
	err := h.DB.QueryRow(
		"SELECT id, username, password_hash FROM users WHERE username = ?",
		input.Username).Scan(&user.ID, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
			return
		}
		zap.L().Error("login: user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to log in"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to log in"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid credentials"})
		return
	}

	access, refresh, err := auth.GenerateTokenPair(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

type RefreshInput struct {
	Refresh string `json:"refresh" binding:"required"`
}

// Refresh is the handler for POST /api/auth/refresh/. It exchanges a
// valid refresh token for a new access token.
func (h *Handlers) Refresh(c *gin.Context) {
	var input RefreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "refresh token required"})
		return
	}

	userID, err := auth.ValidateRefreshToken(input.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired refresh token"})
		return
	}

	access, _, err := auth.GenerateTokenPair(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to issue tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access": access})
}
