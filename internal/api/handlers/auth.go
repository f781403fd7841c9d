package handlers

import (
	"time"

	"guardialog/internal/config"
	"guardialog/internal/models"
	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
	// DebeCambiarPassword tells the client to route to the password-change
	// step before anything else; the API enforces it regardless.
	DebeCambiarPassword bool `json:"debe_cambiar_password"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=4"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid credentials"})
		return
	}

	token, expiresAt, err := h.generateToken(user)
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to generate token"})
		return
	}

	if err := h.authService.CreateSession(user.ID, token, expiresAt); err != nil {
		c.JSON(500, gin.H{"error": "Failed to create session"})
		return
	}

	h.authService.LogAudit(user.ID, "login", "", "", c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(200, LoginResponse{
		Token:               token,
		User:                user,
		DebeCambiarPassword: user.DebeCambiarPassword,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(c *gin.Context) {
	session, exists := c.Get("session")
	if !exists {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	sess := session.(*models.Session)
	if err := h.authService.DeleteSession(sess.Token); err != nil {
		c.JSON(500, gin.H{"error": "Failed to logout"})
		return
	}

	user, _ := c.Get("user")
	u := user.(*models.User)
	h.authService.LogAudit(u.ID, "logout", "", "", c.ClientIP(), c.GetHeader("User-Agent"))

	c.JSON(200, gin.H{"message": "Logged out successfully"})
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	u := user.(*models.User)
	u.PasswordHash = ""
	c.JSON(200, u)
}

// ChangePassword updates the caller's own password and lifts the
// forced-change gate.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		c.JSON(401, gin.H{"error": "Not authenticated"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	u := user.(*models.User)
	if err := h.authService.ChangePassword(u.ID, req.Password); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(200, gin.H{"message": "Password updated successfully"})
}

// generateToken generates a JWT token for the user
func (h *AuthHandler) generateToken(user *models.User) (string, time.Time, error) {
	expiresIn, err := time.ParseDuration(h.cfg.JWT.ExpiresIn)
	if err != nil {
		expiresIn = 24 * time.Hour
	}

	expiresAt := time.Now().Add(expiresIn)

	secret := h.cfg.JWT.Secret
	if secret == "" {
		secret = "guardialog-default-secret-change-in-production"
	}

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"es_admin": user.EsAdmin,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
		"iss":      h.cfg.JWT.Issuer,
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}
