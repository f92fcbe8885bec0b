package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"adoor/estate/internal/api/middleware"
	"adoor/estate/internal/services"
	"adoor/estate/internal/tasks"
	"adoor/estate/internal/utils"
)

// IAsynqClient defines the interface for enqueuing tasks.
// This allows easier mocking than using the concrete asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// requesterID extracts the authenticated user's ID from the Gin context.
// Returns nil when the request is unauthenticated (guest).
func requesterID(c *gin.Context) *utils.SixID {
	userIDStr, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		return nil
	}
	id, err := utils.ParseSixID(userIDStr.(string))
	if err != nil {
		log.Printf("Warning: unparseable user ID %q in context: %v", userIDStr, err)
		return nil
	}
	return &id
}

// mustRequesterID is requesterID for routes behind AuthMiddleware, where a
// missing identity is a server-side wiring error rather than a guest.
func mustRequesterID(c *gin.Context) (utils.SixID, bool) {
	id := requesterID(c)
	if id == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return utils.SixID{}, false
	}
	return *id, true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// enqueueEmail fires an email delivery task. Notification failures are logged
// and swallowed; they never fail the request that triggered them.
func enqueueEmail(ctx context.Context, client IAsynqClient, to, templateID string, data map[string]interface{}) {
	if client == nil || to == "" {
		return
	}
	task, err := tasks.NewEmailDeliveryTask(to, templateID, data)
	if err != nil {
		log.Printf("Error building %s email task for %s: %v", templateID, to, err)
		return
	}
	if _, err := client.EnqueueContext(ctx, task); err != nil {
		log.Printf("Error enqueueing %s email task for %s: %v", templateID, to, err)
	}
}
