package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/utils"
)

// RestAppointmentHandler handles REST requests for viewing appointments.
type RestAppointmentHandler struct {
	appointmentService services.IAppointmentService
	taskClient         IAsynqClient
}

// NewRestAppointmentHandler creates a new RestAppointmentHandler.
func NewRestAppointmentHandler(appointmentService services.IAppointmentService, taskClient IAsynqClient) *RestAppointmentHandler {
	return &RestAppointmentHandler{
		appointmentService: appointmentService,
		taskClient:         taskClient,
	}
}

// CreateAppointmentRequest is the payload for POST /v1/appointment.
// Guest bookings (no Authorization header) must include the guest block.
type CreateAppointmentRequest struct {
	PropertyID      string              `json:"property_id" binding:"required"`
	Date            string              `json:"date" binding:"required"` // "2006-01-02"
	Time            string              `json:"time" binding:"required"` // "15:04"
	Duration        int                 `json:"duration_minutes"`
	ViewingType     models.ViewingType  `json:"viewing_type"`
	Attendees       int                 `json:"attendees"`
	Notes           string              `json:"notes"`
	SpecialRequests string              `json:"special_requests"`
	Guest           *models.ContactInfo `json:"guest"`
}

// UpdateAppointmentStatusRequest is the payload for PUT /v1/appointment/:id/status.
type UpdateAppointmentStatusRequest struct {
	Status             *models.AppointmentStatus   `json:"status"`
	CancellationReason string                      `json:"cancellation_reason"`
	Feedback           *models.AppointmentFeedback `json:"feedback"`
}

// RescheduleAppointmentRequest is the payload for POST /v1/appointment/:id/reschedule.
type RescheduleAppointmentRequest struct {
	Date        string             `json:"date" binding:"required"`
	Time        string             `json:"time" binding:"required"`
	ViewingType models.ViewingType `json:"viewing_type"`
	Reason      string             `json:"reason"`
}

// CreateAppointment handles POST /v1/appointment.
func (h *RestAppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	propertyID, err := utils.ParseSixID(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time, expected HH:MM"})
		return
	}

	appointment, err := h.appointmentService.CreateAppointment(c.Request.Context(), requesterID(c), services.CreateAppointmentInput{
		PropertyID:      propertyID,
		Date:            date,
		Time:            req.Time,
		Duration:        req.Duration,
		ViewingType:     req.ViewingType,
		Attendees:       req.Attendees,
		Notes:           req.Notes,
		SpecialRequests: req.SpecialRequests,
		GuestInfo:       req.Guest,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	enqueueEmail(c.Request.Context(), h.taskClient, appointment.ClientInfo.Email, "appointment_requested", h.emailData(appointment))

	c.JSON(http.StatusCreated, appointment)
}

// GetAppointmentByID handles GET /v1/appointment/:id.
func (h *RestAppointmentHandler) GetAppointmentByID(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	appointmentID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID format"})
		return
	}

	appointment, err := h.appointmentService.GetAppointment(c.Request.Context(), appointmentID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, appointment)
}

// GetMyAppointments handles GET /v1/appointment.
// Optional query: status=Confirmed, upcoming=true.
func (h *RestAppointmentHandler) GetMyAppointments(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	var status *models.AppointmentStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.AppointmentStatus(statusStr)
		status = &s
	}
	upcomingOnly := c.Query("upcoming") == "true"

	appointments, err := h.appointmentService.GetUserAppointments(c.Request.Context(), userID, status, upcomingOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": appointments})
}

// GetAgentSchedule handles GET /v1/agent/appointments.
// Optional query: from=YYYY-MM-DD, defaulting to today.
func (h *RestAppointmentHandler) GetAgentSchedule(c *gin.Context) {
	agentID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	from := time.Now().UTC()
	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, expected YYYY-MM-DD"})
			return
		}
		from = parsed
	}

	appointments, err := h.appointmentService.GetAgentAppointments(c.Request.Context(), agentID, from)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": appointments})
}

// UpdateStatus handles PUT /v1/appointment/:id/status.
func (h *RestAppointmentHandler) UpdateStatus(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	appointmentID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID format"})
		return
	}

	var req UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	appointment, err := h.appointmentService.UpdateStatus(c.Request.Context(), appointmentID, userID, services.AppointmentStatusPatch{
		Status:             req.Status,
		CancellationReason: req.CancellationReason,
		Feedback:           req.Feedback,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.Status != nil {
		data := h.emailData(appointment)
		data["status"] = string(appointment.Status)
		reason := ""
		if appointment.CancellationReason != "" {
			reason = " Reason: " + appointment.CancellationReason
		}
		data["reason"] = reason
		enqueueEmail(c.Request.Context(), h.taskClient, appointment.ClientInfo.Email, "appointment_status", data)
	}

	c.JSON(http.StatusOK, appointment)
}

// Reschedule handles POST /v1/appointment/:id/reschedule.
// Responds with the replacement appointment.
func (h *RestAppointmentHandler) Reschedule(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	appointmentID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID format"})
		return
	}

	var req RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time, expected HH:MM"})
		return
	}

	replacement, err := h.appointmentService.Reschedule(c.Request.Context(), appointmentID, userID, services.RescheduleInput{
		Date:        date,
		Time:        req.Time,
		ViewingType: req.ViewingType,
		Reason:      req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	enqueueEmail(c.Request.Context(), h.taskClient, replacement.ClientInfo.Email, "appointment_rescheduled", h.emailData(replacement))

	c.JSON(http.StatusCreated, replacement)
}

// emailData builds the template placeholders shared by appointment emails.
func (h *RestAppointmentHandler) emailData(appointment *models.Appointment) map[string]interface{} {
	propertyTitle := appointment.PropertyID.String()
	if appointment.Property != nil {
		propertyTitle = appointment.Property.Title
	}
	return map[string]interface{}{
		"name":           appointment.ClientInfo.Name,
		"property_title": propertyTitle,
		"date":           appointment.Date.Format("2006-01-02"),
		"time":           appointment.Time,
	}
}
