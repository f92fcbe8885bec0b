package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adoor/estate/internal/config"
	"adoor/estate/internal/db"
	"adoor/estate/internal/models"
	"adoor/estate/internal/utils"
)

// IInquiryService defines the interface for the property inquiry lifecycle.
type IInquiryService interface {
	SubmitInquiry(ctx context.Context, requester *utils.SixID, input SubmitInquiryInput) (*models.Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID, requesterID utils.SixID) (*models.Inquiry, error)
	Respond(ctx context.Context, inquiryID, responderID utils.SixID, message string, attachments []models.ResponseAttachment) (*models.Inquiry, error)
	UpdateInquiry(ctx context.Context, inquiryID, staffID utils.SixID, patch InquiryPatch) (*models.Inquiry, error)
	GetUserInquiries(ctx context.Context, userID utils.SixID, status *models.InquiryStatus) ([]models.Inquiry, error)
	GetAllInquiries(ctx context.Context, staffID utils.SixID, filter InquiryFilter, limit, skip int) ([]models.Inquiry, int64, error)
	FindOverdueNew(ctx context.Context, olderThan time.Time) ([]models.Inquiry, error)
	StampSLAReminder(ctx context.Context, inquiryID utils.SixID) error
}

const inquiriesCollection = "inquiries"

// SubmitInquiryInput carries the fields of a new inquiry.
// GuestInfo is required when the requester is not authenticated.
type SubmitInquiryInput struct {
	PropertyID       utils.SixID
	InquiryType      models.InquiryType
	Subject          string
	Message          string
	PreferredContact models.PreferredContact
	BestTimeToCall   string
	ProposedBudget   *models.ProposedBudget
	NeedsFinancing   bool
	Source           string
	Tags             []string
	GuestInfo        *models.ContactInfo
}

// InquiryPatch carries staff updates to an inquiry's triage fields. Every
// field is optional and applied independently; staff may set any status at
// any time.
type InquiryPatch struct {
	Status          *models.InquiryStatus
	Priority        *models.InquiryPriority
	AssignedTo      *utils.SixID
	ResolutionNotes *string
	InternalNotes   *string
}

// InquiryFilter narrows GetAllInquiries results.
type InquiryFilter struct {
	Status     models.InquiryStatus
	Priority   models.InquiryPriority
	PropertyID *utils.SixID
	AssignedTo *utils.SixID
}

// inquiryService implements IInquiryService.
type inquiryService struct {
	db          *mongo.Database
	cfg         *config.Config
	propertySvc IPropertyService
	userSvc     IUserService
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(db *mongo.Database, cfg *config.Config, propertySvc IPropertyService, userSvc IUserService) IInquiryService {
	return &inquiryService{
		db:          db,
		cfg:         cfg,
		propertySvc: propertySvc,
		userSvc:     userSvc,
	}
}

// SubmitInquiry validates and records a new inquiry, then bumps the
// property's inquiry counter atomically.
func (s *inquiryService) SubmitInquiry(ctx context.Context, requester *utils.SixID, input SubmitInquiryInput) (*models.Inquiry, error) {
	if input.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	if input.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}

	inquiryType := input.InquiryType
	if inquiryType == "" {
		inquiryType = models.InquiryTypeGeneral
	}
	if !inquiryType.Valid() {
		return nil, fmt.Errorf("%w: unknown inquiry type %q", ErrInvalidRequest, input.InquiryType)
	}

	preferredContact := input.PreferredContact
	if preferredContact == "" {
		preferredContact = models.PreferredContactEmail
	}
	if !preferredContact.Valid() {
		return nil, fmt.Errorf("%w: unknown contact preference %q", ErrInvalidRequest, input.PreferredContact)
	}

	var userID *utils.SixID
	var guestInfo *models.ContactInfo
	if requester != nil {
		// Authenticated identity wins; any guest block in the payload is ignored.
		if _, err := s.userSvc.FindByID(ctx, *requester); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("%w: requesting user %s", ErrNotFound, requester.String())
			}
			return nil, err
		}
		userID = requester
	} else {
		if input.GuestInfo == nil || input.GuestInfo.Name == "" || input.GuestInfo.Email == "" {
			return nil, fmt.Errorf("%w: guest inquiries require contact name and email", ErrInvalidRequest)
		}
		guestInfo = input.GuestInfo
	}

	// Existence guard before any write.
	if _, err := s.propertySvc.AgentFor(ctx, input.PropertyID); err != nil {
		return nil, err
	}

	collection := s.db.Collection(inquiriesCollection)
	now := time.Now().UTC()

	var newInquiry *models.Inquiry
	var err error

	operation := func() error {
		newInquiry = &models.Inquiry{
			ID:               utils.NewSixID(),
			PropertyID:       input.PropertyID,
			UserID:           userID,
			GuestInfo:        guestInfo,
			InquiryType:      inquiryType,
			Subject:          input.Subject,
			Message:          input.Message,
			PreferredContact: preferredContact,
			BestTimeToCall:   input.BestTimeToCall,
			ProposedBudget:   input.ProposedBudget,
			NeedsFinancing:   input.NeedsFinancing,
			Source:           input.Source,
			Tags:             input.Tags,
			Status:           models.InquiryStatusNew,
			Priority:         models.InquiryPriorityMedium,
			Deleted:          false,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		_, insertErr := collection.InsertOne(ctx, newInquiry)
		return insertErr
	}

	err = db.Try(operation)

	if err != nil {
		inquiryIDStr := "<unknown>"
		if newInquiry != nil {
			inquiryIDStr = newInquiry.ID.String()
		}
		return nil, fmt.Errorf("failed to insert new inquiry for property %s (last attempted inquiry ID: %s) after multiple retries: %w",
			input.PropertyID.String(), inquiryIDStr, err)
	}

	if err := s.propertySvc.IncrementInquiries(ctx, input.PropertyID); err != nil {
		log.Printf("CRITICAL: Inquiry %s recorded but property %s counter increment failed: %v", newInquiry.ID.String(), input.PropertyID.String(), err)
		return nil, fmt.Errorf("failed to update inquiry counter for property %s: %w", input.PropertyID.String(), err)
	}

	s.expand(ctx, newInquiry)
	return newInquiry, nil
}

// GetInquiry fetches an inquiry visible to the requester: its owner, or any
// staff/admin user.
func (s *inquiryService) GetInquiry(ctx context.Context, inquiryID, requesterID utils.SixID) (*models.Inquiry, error) {
	inquiry, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	if inquiry.UserID == nil || *inquiry.UserID != requesterID {
		role, roleErr := s.userSvc.RoleOf(ctx, requesterID)
		if roleErr != nil {
			return nil, roleErr
		}
		if !role.Elevated() {
			return nil, fmt.Errorf("%w: inquiry %s is not visible to user %s", ErrPermissionDenied, inquiryID.String(), requesterID.String())
		}
	}

	s.expand(ctx, inquiry)
	return inquiry, nil
}

// Respond appends a staff reply and advances the status machine:
// the first reply moves New to In Progress and stamps first_response_at
// exactly once; a reply to an In Progress inquiry moves it to Replied;
// replies in later statuses leave the status untouched. The responder is
// auto-assigned if nobody holds the inquiry yet.
func (s *inquiryService) Respond(ctx context.Context, inquiryID, responderID utils.SixID, message string, attachments []models.ResponseAttachment) (*models.Inquiry, error) {
	if message == "" {
		return nil, fmt.Errorf("%w: response message is required", ErrInvalidRequest)
	}

	role, err := s.userSvc.RoleOf(ctx, responderID)
	if err != nil {
		return nil, err
	}
	if !role.Elevated() {
		return nil, fmt.Errorf("%w: only staff can respond to inquiries", ErrPermissionDenied)
	}

	responder, err := s.userSvc.FindByID(ctx, responderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	response := models.InquiryResponse{
		Message:         message,
		RespondedBy:     responderID,
		RespondedByInfo: responder.Contact(),
		RespondedAt:     now,
		Attachments:     attachments,
	}

	collection := s.db.Collection(inquiriesCollection)
	push := bson.M{"responses": response}

	// Stage 1: first response. The status=="New" condition makes the
	// first_response_at stamp exactly-once under concurrent responders.
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": inquiryID, "deleted": false, "status": models.InquiryStatusNew},
		bson.M{
			"$set":  bson.M{"status": models.InquiryStatusInProgress, "first_response_at": now, "updated_at": now},
			"$push": push,
		})
	if err != nil {
		return nil, fmt.Errorf("db error responding to inquiry %s: %w", inquiryID.String(), err)
	}

	if result.MatchedCount == 0 {
		// Stage 2: follow-up reply while being worked.
		result, err = collection.UpdateOne(ctx,
			bson.M{"_id": inquiryID, "deleted": false, "status": models.InquiryStatusInProgress},
			bson.M{
				"$set":  bson.M{"status": models.InquiryStatusReplied, "updated_at": now},
				"$push": push,
			})
		if err != nil {
			return nil, fmt.Errorf("db error responding to inquiry %s: %w", inquiryID.String(), err)
		}
	}

	if result.MatchedCount == 0 {
		// Stage 3: record the reply without touching later statuses.
		result, err = collection.UpdateOne(ctx,
			bson.M{"_id": inquiryID, "deleted": false},
			bson.M{
				"$set":  bson.M{"updated_at": now},
				"$push": push,
			})
		if err != nil {
			return nil, fmt.Errorf("db error responding to inquiry %s: %w", inquiryID.String(), err)
		}
		if result.MatchedCount == 0 {
			return nil, fmt.Errorf("%w: inquiry %s", ErrNotFound, inquiryID.String())
		}
	}

	// Auto-assign to the first responder if nobody holds the inquiry.
	_, err = collection.UpdateOne(ctx,
		bson.M{"_id": inquiryID, "assigned_to": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"assigned_to": responderID, "assigned_at": now}})
	if err != nil {
		log.Printf("Warning: failed to auto-assign inquiry %s to %s: %v", inquiryID.String(), responderID.String(), err)
	}

	updated, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	s.expand(ctx, updated)
	return updated, nil
}

// UpdateInquiry applies staff triage updates. Each patch field is optional
// and independent; the status override is deliberately unconstrained so
// staff can correct any state. Moving into Resolved or Closed stamps
// resolved_at/resolved_by.
func (s *inquiryService) UpdateInquiry(ctx context.Context, inquiryID, staffID utils.SixID, patch InquiryPatch) (*models.Inquiry, error) {
	role, err := s.userSvc.RoleOf(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if !role.Elevated() {
		return nil, fmt.Errorf("%w: only staff can update inquiries", ErrPermissionDenied)
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown inquiry status %q", ErrInvalidRequest, *patch.Status)
		}
		set["status"] = *patch.Status
		if *patch.Status == models.InquiryStatusResolved || *patch.Status == models.InquiryStatusClosed {
			set["resolved_at"] = now
			set["resolved_by"] = staffID
		}
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown inquiry priority %q", ErrInvalidRequest, *patch.Priority)
		}
		set["priority"] = *patch.Priority
	}
	if patch.AssignedTo != nil {
		assigneeRole, err := s.userSvc.RoleOf(ctx, *patch.AssignedTo)
		if err != nil {
			return nil, err
		}
		if !assigneeRole.Elevated() {
			return nil, fmt.Errorf("%w: inquiries can only be assigned to staff", ErrInvalidRequest)
		}
		set["assigned_to"] = *patch.AssignedTo
		set["assigned_at"] = now
	}
	if patch.ResolutionNotes != nil {
		set["resolution_notes"] = *patch.ResolutionNotes
	}
	if patch.InternalNotes != nil {
		set["internal_notes"] = *patch.InternalNotes
	}

	if len(set) == 1 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}

	collection := s.db.Collection(inquiriesCollection)
	result, err := collection.UpdateOne(ctx, bson.M{"_id": inquiryID, "deleted": false}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("db error updating inquiry %s: %w", inquiryID.String(), err)
	}
	if result.MatchedCount == 0 {
		return nil, fmt.Errorf("%w: inquiry %s", ErrNotFound, inquiryID.String())
	}

	updated, err := s.findByID(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	s.expand(ctx, updated)
	return updated, nil
}

// GetUserInquiries returns the inquiries submitted by a user, newest first,
// optionally narrowed to one status.
func (s *inquiryService) GetUserInquiries(ctx context.Context, userID utils.SixID, status *models.InquiryStatus) ([]models.Inquiry, error) {
	collection := s.db.Collection(inquiriesCollection)
	filter := bson.M{"user_id": userID, "deleted": false}
	if status != nil {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown inquiry status %q", ErrInvalidRequest, *status)
		}
		filter["status"] = *status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries for user %s: %w", userID.String(), err)
	}
	defer cursor.Close(ctx)

	var results []models.Inquiry
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode inquiries: %w", err)
	}

	for i := range results {
		s.expand(ctx, &results[i])
	}
	return results, nil
}

// GetAllInquiries returns all inquiries matching the filter, newest first,
// paginated, with the total match count. Staff only.
func (s *inquiryService) GetAllInquiries(ctx context.Context, staffID utils.SixID, filter InquiryFilter, limit, skip int) ([]models.Inquiry, int64, error) {
	role, err := s.userSvc.RoleOf(ctx, staffID)
	if err != nil {
		return nil, 0, err
	}
	if !role.Elevated() {
		return nil, 0, fmt.Errorf("%w: only staff can list all inquiries", ErrPermissionDenied)
	}

	query := bson.M{"deleted": false}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Priority != "" {
		query["priority"] = filter.Priority
	}
	if filter.PropertyID != nil {
		query["property_id"] = *filter.PropertyID
	}
	if filter.AssignedTo != nil {
		query["assigned_to"] = *filter.AssignedTo
	}

	collection := s.db.Collection(inquiriesCollection)

	total, err := collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count inquiries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Inquiry
	if err = cursor.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("failed to decode inquiries: %w", err)
	}

	for i := range results {
		s.expand(ctx, &results[i])
	}
	return results, total, nil
}

// FindOverdueNew returns New inquiries created before the cutoff that have
// not had an SLA reminder yet. Used by the background reminder task.
func (s *inquiryService) FindOverdueNew(ctx context.Context, olderThan time.Time) ([]models.Inquiry, error) {
	collection := s.db.Collection(inquiriesCollection)
	filter := bson.M{
		"deleted":         false,
		"status":          models.InquiryStatusNew,
		"created_at":      bson.M{"$lt": olderThan},
		"sla_reminded_at": bson.M{"$exists": false},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue inquiries: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Inquiry
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode overdue inquiries: %w", err)
	}
	return results, nil
}

// StampSLAReminder marks an inquiry as reminded so the background check does
// not email staff about it again.
func (s *inquiryService) StampSLAReminder(ctx context.Context, inquiryID utils.SixID) error {
	collection := s.db.Collection(inquiriesCollection)
	now := time.Now().UTC()
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": inquiryID, "deleted": false, "sla_reminded_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"sla_reminded_at": now}})
	if err != nil {
		return fmt.Errorf("db error stamping SLA reminder on inquiry %s: %w", inquiryID.String(), err)
	}
	if result.MatchedCount == 0 {
		// Already reminded or gone; either way nothing left to do.
		return nil
	}
	return nil
}

// findByID fetches a non-deleted inquiry or ErrNotFound.
func (s *inquiryService) findByID(ctx context.Context, inquiryID utils.SixID) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	collection := s.db.Collection(inquiriesCollection)
	filter := bson.M{"_id": inquiryID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&inquiry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: inquiry %s", ErrNotFound, inquiryID.String())
		}
		return nil, fmt.Errorf("error finding inquiry by ID %s: %w", inquiryID.String(), err)
	}
	return &inquiry, nil
}

// expand populates the display summaries. Lookup failures only cost the
// summary, never the inquiry itself.
func (s *inquiryService) expand(ctx context.Context, inquiry *models.Inquiry) {
	if property, err := s.propertySvc.Summary(ctx, inquiry.PropertyID); err == nil {
		inquiry.Property = property
	} else {
		log.Printf("Warning: failed to expand property %s on inquiry %s: %v", inquiry.PropertyID.String(), inquiry.ID.String(), err)
	}
	if inquiry.UserID != nil {
		if user, err := s.userSvc.Summary(ctx, *inquiry.UserID); err == nil {
			inquiry.User = user
		}
	}
}
