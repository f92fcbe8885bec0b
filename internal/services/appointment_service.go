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

// IAppointmentService defines the interface for the viewing appointment lifecycle.
type IAppointmentService interface {
	CreateAppointment(ctx context.Context, requester *utils.SixID, input CreateAppointmentInput) (*models.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID, requesterID utils.SixID) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID, requesterID utils.SixID, patch AppointmentStatusPatch) (*models.Appointment, error)
	Reschedule(ctx context.Context, appointmentID, requesterID utils.SixID, input RescheduleInput) (*models.Appointment, error)
	GetUserAppointments(ctx context.Context, userID utils.SixID, status *models.AppointmentStatus, upcomingOnly bool) ([]models.Appointment, error)
	GetAgentAppointments(ctx context.Context, agentID utils.SixID, from time.Time) ([]models.Appointment, error)
}

const appointmentsCollection = "appointments"

// CreateAppointmentInput carries the fields of a new viewing request.
// GuestInfo is required when the requester is not authenticated.
type CreateAppointmentInput struct {
	PropertyID      utils.SixID
	Date            time.Time
	Time            string // "HH:MM", 24h
	Duration        int    // minutes, 0 = default
	ViewingType     models.ViewingType
	Attendees       int
	Notes           string
	SpecialRequests string
	GuestInfo       *models.ContactInfo
}

// AppointmentStatusPatch carries a status change and/or feedback merge.
// A nil Status with non-nil Feedback records feedback without moving state.
type AppointmentStatusPatch struct {
	Status             *models.AppointmentStatus
	CancellationReason string
	Feedback           *models.AppointmentFeedback
}

// RescheduleInput carries the replacement slot for a reschedule.
type RescheduleInput struct {
	Date        time.Time
	Time        string
	ViewingType models.ViewingType // empty = keep original
	Reason      string
}

// appointmentService implements IAppointmentService.
type appointmentService struct {
	db          *mongo.Database
	cfg         *config.Config
	propertySvc IPropertyService
	userSvc     IUserService
	configSvc   IConfigService
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(db *mongo.Database, cfg *config.Config, propertySvc IPropertyService, userSvc IUserService, configSvc IConfigService) IAppointmentService {
	return &appointmentService{
		db:          db,
		cfg:         cfg,
		propertySvc: propertySvc,
		userSvc:     userSvc,
		configSvc:   configSvc,
	}
}

// transitions returns the active appointment transition table: the runtime
// config override when present and parseable, otherwise the built-in table.
func (s *appointmentService) transitions(ctx context.Context) TransitionTable {
	raw := s.configSvc.GetString(ctx, ConfigKeyAppointmentTransitions, "")
	if raw == "" {
		return DefaultAppointmentTransitions()
	}
	table, err := ParseTransitionTable(raw)
	if err != nil {
		log.Printf("WARNING: Invalid %s config value %q: %v. Using built-in table.", ConfigKeyAppointmentTransitions, raw, err)
		return DefaultAppointmentTransitions()
	}
	return table
}

// CreateAppointment validates a viewing request and records it as Pending.
// The appointment's agent is the property's listing agent. Authenticated
// requesters get their contact details snapshotted; guests must supply
// contact details in GuestInfo.
func (s *appointmentService) CreateAppointment(ctx context.Context, requester *utils.SixID, input CreateAppointmentInput) (*models.Appointment, error) {
	if input.Date.IsZero() || input.Time == "" {
		return nil, fmt.Errorf("%w: date and time are required", ErrInvalidRequest)
	}

	duration := input.Duration
	if duration == 0 {
		duration = s.cfg.DefaultViewingDuration
	}
	if duration < s.cfg.MinViewingDuration {
		return nil, fmt.Errorf("%w: viewing duration must be at least %d minutes", ErrInvalidRequest, s.cfg.MinViewingDuration)
	}

	viewingType := input.ViewingType
	if viewingType == "" {
		viewingType = models.ViewingTypeInPerson
	}
	if !viewingType.Valid() {
		return nil, fmt.Errorf("%w: unknown viewing type %q", ErrInvalidRequest, input.ViewingType)
	}

	attendees := input.Attendees
	if attendees == 0 {
		attendees = 1
	}
	if attendees < 0 {
		return nil, fmt.Errorf("%w: attendees cannot be negative", ErrInvalidRequest)
	}

	// Resolve the requester's contact snapshot before touching the property
	// so validation failures never leave partial writes behind.
	var clientInfo models.ContactInfo
	if requester != nil {
		user, err := s.userSvc.FindByID(ctx, *requester)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fmt.Errorf("%w: requesting user %s", ErrNotFound, requester.String())
			}
			return nil, err
		}
		clientInfo = user.Contact()
	} else {
		if input.GuestInfo == nil || input.GuestInfo.Name == "" || input.GuestInfo.Email == "" {
			return nil, fmt.Errorf("%w: guest appointments require contact name and email", ErrInvalidRequest)
		}
		clientInfo = *input.GuestInfo
	}

	agentID, err := s.propertySvc.AgentFor(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}

	collection := s.db.Collection(appointmentsCollection)
	now := time.Now().UTC()

	var newAppointment *models.Appointment

	operation := func() error {
		newAppointment = &models.Appointment{
			ID:              utils.NewSixID(),
			PropertyID:      input.PropertyID,
			ClientID:        requester,
			AgentID:         agentID,
			ClientInfo:      clientInfo,
			Date:            input.Date.UTC(),
			Time:            input.Time,
			Duration:        duration,
			ViewingType:     viewingType,
			Attendees:       attendees,
			Status:          models.AppointmentStatusPending,
			Notes:           input.Notes,
			SpecialRequests: input.SpecialRequests,
			Deleted:         false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		_, insertErr := collection.InsertOne(ctx, newAppointment)
		return insertErr
	}

	err = db.Try(operation)

	if err != nil {
		appointmentIDStr := "<unknown>"
		if newAppointment != nil {
			appointmentIDStr = newAppointment.ID.String()
		}
		return nil, fmt.Errorf("failed to insert new appointment for property %s (last attempted appointment ID: %s) after multiple retries: %w",
			input.PropertyID.String(), appointmentIDStr, err)
	}

	s.expand(ctx, newAppointment)
	return newAppointment, nil
}

// GetAppointment fetches a single appointment visible to the requester
// (the client who booked it or the handling agent).
func (s *appointmentService) GetAppointment(ctx context.Context, appointmentID, requesterID utils.SixID) (*models.Appointment, error) {
	appointment, err := s.findByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActOn(appointment, requesterID) {
		return nil, fmt.Errorf("%w: appointment %s is not visible to user %s", ErrPermissionDenied, appointmentID.String(), requesterID.String())
	}
	s.expand(ctx, appointment)
	return appointment, nil
}

// UpdateStatus applies a status transition and/or merges feedback.
//
// Only the booking client or the handling agent may act; guest-created
// appointments are mutable by the agent alone. Transitions are validated
// against the active table, and the write is conditional on the status the
// transition was computed from, so concurrent updaters cannot both win.
func (s *appointmentService) UpdateStatus(ctx context.Context, appointmentID, requesterID utils.SixID, patch AppointmentStatusPatch) (*models.Appointment, error) {
	if patch.Status == nil && patch.Feedback == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}

	appointment, err := s.findByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActOn(appointment, requesterID) {
		return nil, fmt.Errorf("%w: appointment %s cannot be modified by user %s", ErrPermissionDenied, appointmentID.String(), requesterID.String())
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}

	if patch.Status != nil {
		newStatus := *patch.Status
		if !newStatus.Valid() {
			return nil, fmt.Errorf("%w: unknown appointment status %q", ErrInvalidRequest, newStatus)
		}
		if newStatus == models.AppointmentStatusRescheduled {
			// Rescheduled is only ever entered through Reschedule, which
			// creates the replacement record alongside.
			return nil, fmt.Errorf("%w: use reschedule to move an appointment", ErrConflict)
		}
		if !s.transitions(ctx).Allowed(appointment.Status, newStatus) {
			return nil, fmt.Errorf("%w: appointment %s cannot move from %s to %s", ErrConflict, appointmentID.String(), appointment.Status, newStatus)
		}

		set["status"] = newStatus
		switch newStatus {
		case models.AppointmentStatusConfirmed:
			set["confirmed_by"] = requesterID
			set["confirmed_at"] = now
		case models.AppointmentStatusCancelled:
			set["cancelled_by"] = requesterID
			set["cancelled_at"] = now
			if patch.CancellationReason != "" {
				set["cancellation_reason"] = patch.CancellationReason
			}
		}
	}

	if patch.Feedback != nil {
		// Merge field by field so a client rating and later agent notes
		// both survive. Feedback is accepted in any status.
		if patch.Feedback.Rating != nil {
			if *patch.Feedback.Rating < 1 || *patch.Feedback.Rating > 5 {
				return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidRequest)
			}
			set["feedback.rating"] = *patch.Feedback.Rating
		}
		if patch.Feedback.Comments != "" {
			set["feedback.comments"] = patch.Feedback.Comments
		}
		if patch.Feedback.AgentNotes != "" {
			set["feedback.agent_notes"] = patch.Feedback.AgentNotes
		}
		if patch.Feedback.Interested != nil {
			set["feedback.interested"] = *patch.Feedback.Interested
		}
		set["feedback.given_at"] = now
	}

	collection := s.db.Collection(appointmentsCollection)
	filter := bson.M{
		"_id":     appointmentID,
		"deleted": false,
		"status":  appointment.Status, // Lose the race, lose the write
	}

	result, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("db error updating appointment %s: %w", appointmentID.String(), err)
	}
	if result.MatchedCount == 0 {
		// Diagnose: gone entirely, or status moved underneath us.
		if _, checkErr := s.findByID(ctx, appointmentID); checkErr != nil {
			return nil, checkErr
		}
		return nil, fmt.Errorf("%w: appointment %s was modified concurrently", ErrConflict, appointmentID.String())
	}

	updated, err := s.findByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	s.expand(ctx, updated)
	return updated, nil
}

// Reschedule replaces an appointment with a new Pending one at a different
// slot and marks the original Rescheduled, linking the two records both ways.
//
// The clone is inserted first, then the original is flipped with a write
// conditional on its pre-read status. If that conditional write matches
// nothing (a concurrent transition won), the clone is deleted again so no
// orphaned Pending appointment survives.
func (s *appointmentService) Reschedule(ctx context.Context, appointmentID, requesterID utils.SixID, input RescheduleInput) (*models.Appointment, error) {
	if input.Date.IsZero() || input.Time == "" {
		return nil, fmt.Errorf("%w: new date and time are required", ErrInvalidRequest)
	}

	original, err := s.findByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canActOn(original, requesterID) {
		return nil, fmt.Errorf("%w: appointment %s cannot be rescheduled by user %s", ErrPermissionDenied, appointmentID.String(), requesterID.String())
	}
	if !s.transitions(ctx).Allowed(original.Status, models.AppointmentStatusRescheduled) {
		return nil, fmt.Errorf("%w: appointment %s cannot be rescheduled from status %s", ErrConflict, appointmentID.String(), original.Status)
	}

	viewingType := input.ViewingType
	if viewingType == "" {
		viewingType = original.ViewingType
	}
	if !viewingType.Valid() {
		return nil, fmt.Errorf("%w: unknown viewing type %q", ErrInvalidRequest, input.ViewingType)
	}

	collection := s.db.Collection(appointmentsCollection)
	now := time.Now().UTC()

	var clone *models.Appointment

	operation := func() error {
		clone = &models.Appointment{
			ID:              utils.NewSixID(),
			PropertyID:      original.PropertyID,
			ClientID:        original.ClientID,
			AgentID:         original.AgentID,
			ClientInfo:      original.ClientInfo,
			Date:            input.Date.UTC(),
			Time:            input.Time,
			Duration:        original.Duration,
			ViewingType:     viewingType,
			Attendees:       original.Attendees,
			Status:          models.AppointmentStatusPending,
			MeetingLocation: original.MeetingLocation,
			Notes:           original.Notes,
			SpecialRequests: original.SpecialRequests,
			RescheduledFrom: &original.ID,
			Deleted:         false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		_, insertErr := collection.InsertOne(ctx, clone)
		return insertErr
	}

	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert rescheduled appointment for %s after multiple retries: %w", appointmentID.String(), err)
	}

	set := bson.M{
		"status":         models.AppointmentStatusRescheduled,
		"rescheduled_to": clone.ID,
		"updated_at":     now,
	}
	if input.Reason != "" {
		set["cancellation_reason"] = input.Reason
	}

	filter := bson.M{
		"_id":     appointmentID,
		"deleted": false,
		"status":  original.Status,
	}

	result, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err == nil && result.MatchedCount == 0 {
		err = fmt.Errorf("%w: appointment %s was modified concurrently", ErrConflict, appointmentID.String())
	}
	if err != nil {
		// Compensate: the original keeps its state, so the clone must go.
		if _, delErr := collection.DeleteOne(ctx, bson.M{"_id": clone.ID}); delErr != nil {
			log.Printf("CRITICAL: Failed to delete orphaned reschedule clone %s of appointment %s: %v", clone.ID.String(), appointmentID.String(), delErr)
		}
		return nil, err
	}

	s.expand(ctx, clone)
	return clone, nil
}

// GetUserAppointments returns a client's appointments, soonest first.
func (s *appointmentService) GetUserAppointments(ctx context.Context, userID utils.SixID, status *models.AppointmentStatus, upcomingOnly bool) ([]models.Appointment, error) {
	filter := bson.M{"client_id": userID, "deleted": false}
	if status != nil {
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown appointment status %q", ErrInvalidRequest, *status)
		}
		filter["status"] = *status
	}
	if upcomingOnly {
		startOfToday := time.Now().UTC().Truncate(24 * time.Hour)
		filter["date"] = bson.M{"$gte": startOfToday}
	}

	return s.findAppointments(ctx, filter)
}

// GetAgentAppointments returns the agent's schedule starting at the given
// day, limited to the configured window, soonest first.
func (s *appointmentService) GetAgentAppointments(ctx context.Context, agentID utils.SixID, from time.Time) ([]models.Appointment, error) {
	dayStart := from.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.AddDate(0, 0, s.cfg.AgentScheduleWindowDays)

	filter := bson.M{
		"agent_id": agentID,
		"deleted":  false,
		"date":     bson.M{"$gte": dayStart, "$lt": dayEnd},
	}

	return s.findAppointments(ctx, filter)
}

func (s *appointmentService) findAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	collection := s.db.Collection(appointmentsCollection)
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.Appointment
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}

	for i := range results {
		s.expand(ctx, &results[i])
	}
	return results, nil
}

// findByID fetches a non-deleted appointment or ErrNotFound.
func (s *appointmentService) findByID(ctx context.Context, appointmentID utils.SixID) (*models.Appointment, error) {
	var appointment models.Appointment
	collection := s.db.Collection(appointmentsCollection)
	filter := bson.M{"_id": appointmentID, "deleted": false}

	err := collection.FindOne(ctx, filter).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID.String())
		}
		return nil, fmt.Errorf("error finding appointment by ID %s: %w", appointmentID.String(), err)
	}
	return &appointment, nil
}

// canActOn reports whether the user is the booking client or the handling
// agent. Guest bookings have no client identity, leaving only the agent.
func canActOn(appointment *models.Appointment, userID utils.SixID) bool {
	if appointment.AgentID == userID {
		return true
	}
	return appointment.ClientID != nil && *appointment.ClientID == userID
}

// expand populates the display summaries. Lookup failures only cost the
// summary, never the appointment itself.
func (s *appointmentService) expand(ctx context.Context, appointment *models.Appointment) {
	if property, err := s.propertySvc.Summary(ctx, appointment.PropertyID); err == nil {
		appointment.Property = property
	} else {
		log.Printf("Warning: failed to expand property %s on appointment %s: %v", appointment.PropertyID.String(), appointment.ID.String(), err)
	}
	if agent, err := s.userSvc.Summary(ctx, appointment.AgentID); err == nil {
		appointment.Agent = agent
	}
	if appointment.ClientID != nil {
		if client, err := s.userSvc.Summary(ctx, *appointment.ClientID); err == nil {
			appointment.Client = client
		}
	}
}
