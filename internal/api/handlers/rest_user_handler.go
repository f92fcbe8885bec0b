package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"adoor/estate/internal/auth"
	"adoor/estate/internal/config"
	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/utils"
)

// RestUserHandler handles REST requests for accounts and sessions.
type RestUserHandler struct {
	cfg         *config.Config
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(cfg *config.Config, userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{
		cfg:         cfg,
		userService: userService,
	}
}

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the session token and the user it belongs to.
type AuthResponse struct {
	Token string              `json:"token"`
	User  *models.UserSummary `json:"user"`
	Role  models.Role         `json:"role"`
}

// Register handles POST /v1/auth/register. New accounts are always GENERAL;
// staff and admin roles are granted out of band.
func (h *RestUserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if h.cfg.PasswordRegexp != "" {
		matched, err := regexp.MatchString(h.cfg.PasswordRegexp, req.Password)
		if err != nil || !matched {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet complexity requirements"})
			return
		}
	}

	user, err := h.userService.CreateUser(c.Request.Context(), req.Name, req.Email, req.Phone, req.Password, models.RoleGeneral)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID.String()})
}

// Login handles POST /v1/auth/login.
func (h *RestUserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user.ID, user.Role, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User: &models.UserSummary{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Phone:      user.Phone,
			ProfilePic: user.ProfilePic,
		},
		Role: user.Role,
	})
}

// GetUserByID handles GET /v1/user/:id. Returns the public subset only.
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID.String(),
		"name":        user.Name,
		"profile_pic": user.ProfilePic,
		"date_joined": user.CreatedAt.Format("2006-01-02"),
	})
}
