package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adoor/estate/internal/config"
	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/storage"
	"adoor/estate/internal/utils"
)

// RestInquiryHandler handles REST requests for property inquiries.
type RestInquiryHandler struct {
	cfg            *config.Config
	inquiryService services.IInquiryService
	s3Storage      storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(cfg *config.Config, inquiryService services.IInquiryService, s3Storage storage.IS3Storage, taskClient IAsynqClient) *RestInquiryHandler {
	return &RestInquiryHandler{
		cfg:            cfg,
		inquiryService: inquiryService,
		s3Storage:      s3Storage,
		taskClient:     taskClient,
	}
}

// SubmitInquiryRequest is the payload for POST /v1/inquiry.
// Guest submissions (no Authorization header) must include the guest block.
type SubmitInquiryRequest struct {
	PropertyID       string                  `json:"property_id" binding:"required"`
	InquiryType      models.InquiryType      `json:"inquiry_type"`
	Subject          string                  `json:"subject" binding:"required"`
	Message          string                  `json:"message" binding:"required"`
	PreferredContact models.PreferredContact `json:"preferred_contact"`
	BestTimeToCall   string                  `json:"best_time_to_call"`
	ProposedBudget   *models.ProposedBudget  `json:"proposed_budget"`
	NeedsFinancing   bool                    `json:"needs_financing"`
	Source           string                  `json:"source"`
	Tags             []string                `json:"tags"`
	Guest            *models.ContactInfo     `json:"guest"`
}

// RespondRequest is the payload for POST /v1/inquiry/:id/response.
type RespondRequest struct {
	Message     string                      `json:"message" binding:"required"`
	Attachments []models.ResponseAttachment `json:"attachments"`
}

// UpdateInquiryRequest is the payload for PUT /v1/inquiry/:id.
type UpdateInquiryRequest struct {
	Status          *models.InquiryStatus   `json:"status"`
	Priority        *models.InquiryPriority `json:"priority"`
	AssignedTo      *string                 `json:"assigned_to"`
	ResolutionNotes *string                 `json:"resolution_notes"`
	InternalNotes   *string                 `json:"internal_notes"`
}

// AttachmentURLRequest is the payload for POST /v1/inquiry/:id/attachment-url.
type AttachmentURLRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	SizeBytes   int64  `json:"size_bytes"`
}

// SubmitInquiry handles POST /v1/inquiry.
func (h *RestInquiryHandler) SubmitInquiry(c *gin.Context) {
	var req SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	propertyID, err := utils.ParseSixID(req.PropertyID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
		return
	}

	inquiry, err := h.inquiryService.SubmitInquiry(c.Request.Context(), requesterID(c), services.SubmitInquiryInput{
		PropertyID:       propertyID,
		InquiryType:      req.InquiryType,
		Subject:          req.Subject,
		Message:          req.Message,
		PreferredContact: req.PreferredContact,
		BestTimeToCall:   req.BestTimeToCall,
		ProposedBudget:   req.ProposedBudget,
		NeedsFinancing:   req.NeedsFinancing,
		Source:           req.Source,
		Tags:             req.Tags,
		GuestInfo:        req.Guest,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	name, email := inquiryContact(inquiry)
	data := map[string]interface{}{
		"name":              name,
		"email":             email,
		"property_title":    inquiryPropertyTitle(inquiry),
		"inquiry_id":        inquiry.ID.String(),
		"inquiry_type":      string(inquiry.InquiryType),
		"subject":           inquiry.Subject,
		"message":           inquiry.Message,
		"preferred_contact": string(inquiry.PreferredContact),
	}
	enqueueEmail(c.Request.Context(), h.taskClient, email, "inquiry_received", data)
	enqueueEmail(c.Request.Context(), h.taskClient, h.cfg.StaffNotifyAddress, "inquiry_staff_alert", data)

	c.JSON(http.StatusCreated, inquiry)
}

// GetMyInquiries handles GET /v1/inquiry. Optional query: status.
func (h *RestInquiryHandler) GetMyInquiries(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	var status *models.InquiryStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.InquiryStatus(statusStr)
		status = &s
	}

	inquiries, err := h.inquiryService.GetUserInquiries(c.Request.Context(), userID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// GetInquiryByID handles GET /v1/inquiry/:id.
func (h *RestInquiryHandler) GetInquiryByID(c *gin.Context) {
	userID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	inquiryID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	inquiry, err := h.inquiryService.GetInquiry(c.Request.Context(), inquiryID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, inquiry)
}

// Respond handles POST /v1/inquiry/:id/response. Staff only, enforced by the
// service.
func (h *RestInquiryHandler) Respond(c *gin.Context) {
	responderID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	inquiryID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	inquiry, err := h.inquiryService.Respond(c.Request.Context(), inquiryID, responderID, req.Message, req.Attachments)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	name, email := inquiryContact(inquiry)
	responderName := ""
	if n := len(inquiry.Responses); n > 0 {
		responderName = inquiry.Responses[n-1].RespondedByInfo.Name
	}
	enqueueEmail(c.Request.Context(), h.taskClient, email, "inquiry_response", map[string]interface{}{
		"name":           name,
		"property_title": inquiryPropertyTitle(inquiry),
		"responder_name": responderName,
		"response":       req.Message,
	})

	c.JSON(http.StatusOK, inquiry)
}

// UpdateInquiry handles PUT /v1/inquiry/:id. Staff triage updates.
func (h *RestInquiryHandler) UpdateInquiry(c *gin.Context) {
	staffID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	inquiryID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	var req UpdateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	patch := services.InquiryPatch{
		Status:          req.Status,
		Priority:        req.Priority,
		ResolutionNotes: req.ResolutionNotes,
		InternalNotes:   req.InternalNotes,
	}
	if req.AssignedTo != nil {
		assigneeID, err := utils.ParseSixID(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		patch.AssignedTo = &assigneeID
	}

	inquiry, err := h.inquiryService.UpdateInquiry(c.Request.Context(), inquiryID, staffID, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, inquiry)
}

// ListInquiries handles GET /v1/admin/inquiry. Staff only, enforced by the
// service. Optional query: status, priority, property_id, assigned_to,
// limit, skip.
func (h *RestInquiryHandler) ListInquiries(c *gin.Context) {
	staffID, ok := mustRequesterID(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}

	filter := services.InquiryFilter{
		Status:   models.InquiryStatus(c.Query("status")),
		Priority: models.InquiryPriority(c.Query("priority")),
	}
	if propertyIDStr := c.Query("property_id"); propertyIDStr != "" {
		propertyID, err := utils.ParseSixID(propertyIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
			return
		}
		filter.PropertyID = &propertyID
	}
	if assignedToStr := c.Query("assigned_to"); assignedToStr != "" {
		assignedTo, err := utils.ParseSixID(assignedToStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		filter.AssignedTo = &assignedTo
	}

	inquiries, total, err := h.inquiryService.GetAllInquiries(c.Request.Context(), staffID, filter, limit, skip)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  inquiries,
		"total": total,
	})
}

// GetAttachmentUploadURL handles POST /v1/inquiry/:id/attachment-url.
// Returns a presigned S3 PUT URL so response attachments go straight to
// object storage.
func (h *RestInquiryHandler) GetAttachmentUploadURL(c *gin.Context) {
	staffID, ok := mustRequesterID(c)
	if !ok {
		return
	}
	inquiryID, err := utils.ParseSixID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return
	}

	var req AttachmentURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	maxBytes := int64(h.cfg.AttachmentMaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && req.SizeBytes > maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attachment exceeds maximum allowed size"})
		return
	}

	// Visibility check doubles as the staff gate.
	if _, err := h.inquiryService.GetInquiry(c.Request.Context(), inquiryID, staffID); err != nil {
		respondServiceError(c, err)
		return
	}

	url, key, err := h.s3Storage.GeneratePresignedPutURL(c.Request.Context(), inquiryID.String(), req.FileName, req.ContentType)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": url,
		"object_key": key,
	})
}

// inquiryContact resolves the inquirer's display name and email, whether the
// inquiry came from a guest or an account holder.
func inquiryContact(inquiry *models.Inquiry) (name, email string) {
	if inquiry.GuestInfo != nil {
		return inquiry.GuestInfo.Name, inquiry.GuestInfo.Email
	}
	if inquiry.User != nil {
		return inquiry.User.Name, inquiry.User.Email
	}
	return "", ""
}

func inquiryPropertyTitle(inquiry *models.Inquiry) string {
	if inquiry.Property != nil {
		return inquiry.Property.Title
	}
	return inquiry.PropertyID.String()
}
