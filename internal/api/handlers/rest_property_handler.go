package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/utils"
)

// RestPropertyHandler handles REST requests for the property catalog.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService) *RestPropertyHandler {
	return &RestPropertyHandler{propertyService: propertyService}
}

// CreatePropertyRequest is the payload for POST /v1/property.
type CreatePropertyRequest struct {
	Title        string                  `json:"title" binding:"required"`
	Description  string                  `json:"description"`
	PropertyType string                  `json:"property_type"`
	ListingType  string                  `json:"listing_type" binding:"required"`
	Pricing      models.Pricing          `json:"pricing"`
	Location     models.PropertyLocation `json:"location"`
	Specs        *models.PropertySpecs   `json:"specs"`
}

// CreateProperty handles POST /v1/property. The authenticated staff user
// becomes the listing agent.
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	agentID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	property, err := h.propertyService.CreateProperty(c.Request.Context(), agentID, services.CreatePropertyInput{
		Title:        req.Title,
		Description:  req.Description,
		PropertyType: req.PropertyType,
		ListingType:  req.ListingType,
		Pricing:      req.Pricing,
		Location:     req.Location,
		Specs:        req.Specs,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// GetPropertyByID handles GET /v1/property/:id. Each fetch counts as a view.
func (h *RestPropertyHandler) GetPropertyByID(c *gin.Context) {
	propertyID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.propertyService.IncrementViews(c.Request.Context(), propertyID); err != nil {
		// A lost view count never fails the read.
		log.Printf("Warning: failed to increment views for property %s: %v", propertyID.String(), err)
	}

	c.JSON(http.StatusOK, property)
}

// SearchProperties handles GET /v1/property/search.
func (h *RestPropertyHandler) SearchProperties(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}

	filter := services.PropertyFilter{
		City:         c.Query("city"),
		PropertyType: c.Query("property_type"),
		ListingType:  c.Query("listing_type"),
		Status:       models.PropertyStatus(c.Query("status")),
	}
	if agentIDStr := c.Query("agent_id"); agentIDStr != "" {
		agentID, err := utils.ParseSixID(agentIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent ID format"})
			return
		}
		filter.AgentID = &agentID
	}

	properties, total, err := h.propertyService.ListProperties(c.Request.Context(), filter, limit, skip)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search properties"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  properties,
		"total": total,
	})
}

// DeleteProperty handles DELETE /v1/property/:id. Only the listing agent may
// delete, which the service enforces.
func (h *RestPropertyHandler) DeleteProperty(c *gin.Context) {
	agentID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	propertyID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	if err := h.propertyService.DeleteProperty(c.Request.Context(), propertyID, agentID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
