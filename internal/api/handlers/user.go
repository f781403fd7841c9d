package handlers

import (
	"strconv"

	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService *services.UserService
	authService *services.AuthService
}

func NewUserHandler(userService *services.UserService, authService *services.AuthService) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	EsAdmin  bool   `json:"es_admin"`
}

type UpdateUserRequest struct {
	EsAdmin bool `json:"es_admin"`
	Activo  bool `json:"activo"`
}

// GetUsers returns all users
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.GetUsers()
	if err != nil {
		c.JSON(500, gin.H{"error": "Failed to get users"})
		return
	}

	c.JSON(200, gin.H{"users": users})
}

// GetUser returns a specific user
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userService.GetUser(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(200, user)
}

// CreateUser creates a new account. The initial password is temporary; the
// account must change it on first login.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.userService.CreateUser(req.Username, req.Password, req.EsAdmin)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "create", user.ID)
	c.JSON(201, user)
}

// UpdateUser sets the admin/active flags
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := h.userService.UpdateUser(uint(id), req.EsAdmin, req.Activo, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "update", user.ID)
	c.JSON(200, user)
}

// ToggleActivo flips the active flag
func (h *UserHandler) ToggleActivo(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userService.ToggleActivo(uint(id))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "update", user.ID)
	c.JSON(200, user)
}

// ToggleAdmin flips the admin flag
func (h *UserHandler) ToggleAdmin(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.userService.ToggleAdmin(uint(id), currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "update", user.ID)
	c.JSON(200, user)
}

// DeleteUser deletes an account
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.userService.DeleteUser(uint(id), currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "delete", uint(id))
	c.JSON(200, gin.H{"message": "User deleted successfully"})
}

// ResetPassword resets an account to the configured temporary password and
// forces a change on next login.
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := h.userService.ResetPassword(uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit(c, "reset_password", uint(id))
	c.JSON(200, gin.H{"message": "Password reset; user must change it on next login"})
}

func (h *UserHandler) audit(c *gin.Context, action string, targetID uint) {
	actor := currentUser(c)
	h.authService.LogAudit(actor.ID, action, "usuario", strconv.FormatUint(uint64(targetID), 10), c.ClientIP(), c.GetHeader("User-Agent"))
}
