package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"adoor/estate/internal/api/handlers"
	"adoor/estate/internal/api/middleware"
	"adoor/estate/internal/captcha"
	"adoor/estate/internal/config"
	"adoor/estate/internal/services"
	"adoor/estate/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient, configSvc services.IConfigService) *gin.Engine {
	// Initialize services needed by API handlers HERE
	userService := services.NewUserService(db)
	propertyService := services.NewPropertyService(db, cfg)
	appointmentService := services.NewAppointmentService(db, cfg, propertyService, userService, configSvc)
	inquiryService := services.NewInquiryService(db, cfg, propertyService, userService)
	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}

	// Initialize Captcha Verifier
	captchaVerifier := captcha.NewTurnstileVerifier(cfg)

	r := gin.Default()

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, configSvc)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CaptchaMiddleware(cfg, captchaVerifier))
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restConfigHandler := handlers.NewRestConfigHandler(configSvc)
	restUserHandler := handlers.NewRestUserHandler(cfg, userService)
	restPropertyHandler := handlers.NewRestPropertyHandler(propertyService)
	restAppointmentHandler := handlers.NewRestAppointmentHandler(appointmentService, taskClient)
	restInquiryHandler := handlers.NewRestInquiryHandler(cfg, inquiryService, s3StorageService, taskClient)

	v1 := r.Group("/v1")
	{
		// Public Routes (Rate limiting already applied globally)
		v1.GET("/config", restConfigHandler.GetPublicConfig)
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		v1.POST("/auth/register", restUserHandler.Register)
		v1.POST("/auth/login", restUserHandler.Login)
		v1.GET("/user/:id", restUserHandler.GetUserByID)

		v1.GET("/property/search", restPropertyHandler.SearchProperties)
		v1.GET("/property/:id", restPropertyHandler.GetPropertyByID)

		// Guest-capable Routes: a JWT is honored when present, but walk-in
		// visitors can book viewings and send inquiries without an account.
		guestCapable := v1.Group("/")
		guestCapable.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		{
			guestCapable.POST("/appointment", restAppointmentHandler.CreateAppointment)
			guestCapable.POST("/inquiry", restInquiryHandler.SubmitInquiry)
		}

		// Authenticated Routes (already have rate limiting from global middleware)
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/appointment", restAppointmentHandler.GetMyAppointments)
			authRequired.GET("/appointment/:id", restAppointmentHandler.GetAppointmentByID)
			authRequired.PUT("/appointment/:id/status", restAppointmentHandler.UpdateStatus)
			authRequired.POST("/appointment/:id/reschedule", restAppointmentHandler.Reschedule)
			authRequired.GET("/agent/appointments", restAppointmentHandler.GetAgentSchedule)

			authRequired.GET("/inquiry", restInquiryHandler.GetMyInquiries)
			authRequired.GET("/inquiry/:id", restInquiryHandler.GetInquiryByID)
		}

		// Staff Routes
		staffRequired := v1.Group("/")
		staffRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.StaffMiddleware())
		{
			staffRequired.POST("/property", restPropertyHandler.CreateProperty)
			staffRequired.DELETE("/property/:id", restPropertyHandler.DeleteProperty)

			staffRequired.POST("/inquiry/:id/response", restInquiryHandler.Respond)
			staffRequired.PUT("/inquiry/:id", restInquiryHandler.UpdateInquiry)
			staffRequired.POST("/inquiry/:id/attachment-url", restInquiryHandler.GetAttachmentUploadURL)
			staffRequired.GET("/admin/inquiry", restInquiryHandler.ListInquiries)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// Requires the Redis client for the getTestEmail endpoint.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"` // Use RawMessage
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["kind", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
				return
			}
			kind := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, kind)

			// Poll Redis briefly for the key
			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second) // Short timeout for service call
			defer cancel()
			for i := 0; i < 10; i++ { // Poll up to ~2 seconds
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey) // Delete after fetching
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				// If redis.Nil, wait and retry
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			// Unmarshal the found JSON data
			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			// Return the full email data object
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
