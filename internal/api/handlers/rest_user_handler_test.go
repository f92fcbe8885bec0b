package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"adoor/estate/internal/api/handlers"
	"adoor/estate/internal/config"
	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/utils"
)

func userTestConfig() *config.Config {
	return &config.Config{
		JwtSecret: "test-secret",
		JwtTTL:    time.Hour,
	}
}

// --- Tests ---

func TestRestUserHandler_Register_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/auth/register", handler.Register)

	userID := utils.NewSixID()
	createdUser := &models.User{
		Base: models.Base{ID: userID},
		Name: "Jordan Baker",
	}
	mockUserSvc.On("CreateUser", mock.Anything, "Jordan Baker", "jordan@example.com", "", "s3cret-pass", models.RoleGeneral).
		Return(createdUser, nil)

	body, _ := json.Marshal(handlers.RegisterRequest{
		Name:     "Jordan Baker",
		Email:    "jordan@example.com",
		Password: "s3cret-pass",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var respBody map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Equal(t, userID.String(), respBody["id"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Register_DuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/auth/register", handler.Register)

	mockUserSvc.On("CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, models.RoleGeneral).
		Return(nil, services.ErrEmailExists)

	body, _ := json.Marshal(handlers.RegisterRequest{
		Name:     "Jordan Baker",
		Email:    "jordan@example.com",
		Password: "s3cret-pass",
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Login_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	userID := utils.NewSixID()
	user := &models.User{
		Base:  models.Base{ID: userID},
		Name:  "Staff Member",
		Email: "staff@example.com",
		Role:  models.RoleStaff,
	}
	mockUserSvc.On("Authenticate", mock.Anything, "staff@example.com", "correct-pass").Return(user, nil)

	body, _ := json.Marshal(handlers.LoginRequest{Email: "staff@example.com", Password: "correct-pass"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody handlers.AuthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.NotEmpty(t, respBody.Token)
	assert.Equal(t, models.RoleStaff, respBody.Role)
	assert.Equal(t, "Staff Member", respBody.User.Name)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_Login_BadCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.POST("/v1/auth/login", handler.Login)

	mockUserSvc.On("Authenticate", mock.Anything, "staff@example.com", "wrong-pass").
		Return(nil, services.ErrUnauthenticated)

	body, _ := json.Marshal(handlers.LoginRequest{Email: "staff@example.com", Password: "wrong-pass"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	userID := utils.NewSixID()
	expectedUser := &models.User{
		Base:      models.Base{ID: userID},
		Name:      "Test User",
		CreatedAt: time.Now().Add(-24 * time.Hour), // Joined yesterday
	}
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(expectedUser, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Equal(t, userID.String(), respBody["id"])
	assert.Equal(t, "Test User", respBody["name"])
	assert.Equal(t, expectedUser.CreatedAt.Format("2006-01-02"), respBody["date_joined"])
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	userID := utils.NewSixID()
	mockUserSvc.On("FindByID", mock.Anything, userID).Return(nil, mongo.ErrNoDocuments)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/"+userID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "User not found")
	mockUserSvc.AssertExpectations(t)
}

func TestRestUserHandler_GetUserByID_InvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockUserSvc := new(MockUserService)
	handler := handlers.NewRestUserHandler(userTestConfig(), mockUserSvc)

	r := gin.New()
	r.GET("/v1/user/:id", handler.GetUserByID)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/user/invalid-id", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var respBody map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &respBody)
	assert.NoError(t, err)
	assert.Contains(t, respBody["error"], "Invalid user ID format")
	mockUserSvc.AssertNotCalled(t, "FindByID")
}
