package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"adoor/estate/internal/config"
	"adoor/estate/internal/models"
	"adoor/estate/internal/utils"
)

type inquiryTestEnv struct {
	db          *mongo.Database
	svc         IInquiryService
	userSvc     IUserService
	propertySvc IPropertyService
	staff       *models.User
	property    *models.Property
}

func newInquiryTestEnv(t *testing.T, dbName string) *inquiryTestEnv {
	db := utils.SetupTestDB(t, dbName, inquiriesCollection, propertiesCollection, usersCollection)
	cfg := &config.Config{}
	userSvc := NewUserService(db)
	propertySvc := NewPropertyService(db, cfg)
	svc := NewInquiryService(db, cfg, propertySvc, userSvc)

	ctx := context.Background()
	staff, err := userSvc.CreateUser(ctx, "Agent Smith", "agent@example.com", "", "Password123!", models.RoleStaff)
	require.NoError(t, err)
	property, err := propertySvc.CreateProperty(ctx, staff.ID, samplePropertyInput("Inquired Flat", "Lisbon", "rent"))
	require.NoError(t, err)

	return &inquiryTestEnv{
		db:          db,
		svc:         svc,
		userSvc:     userSvc,
		propertySvc: propertySvc,
		staff:       staff,
		property:    property,
	}
}

func (e *inquiryTestEnv) guestSubmission() SubmitInquiryInput {
	return SubmitInquiryInput{
		PropertyID: e.property.ID,
		Subject:    "Availability question",
		Message:    "Is this still available?",
		GuestInfo:  &models.ContactInfo{Name: "Curious Guest", Email: "guest@example.com"},
	}
}

func TestInquiryService_SubmitInquiry_Guest(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_submit_guest")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	assert.Equal(t, models.InquiryStatusNew, inquiry.Status)
	assert.Equal(t, models.InquiryPriorityMedium, inquiry.Priority)
	assert.Equal(t, models.InquiryTypeGeneral, inquiry.InquiryType)
	assert.Equal(t, models.PreferredContactEmail, inquiry.PreferredContact)
	assert.Equal(t, "Availability question", inquiry.Subject)
	assert.True(t, inquiry.IsGuest())
	require.NotNil(t, inquiry.GuestInfo)
	assert.Equal(t, "guest@example.com", inquiry.GuestInfo.Email)
	assert.Nil(t, inquiry.FirstResponseAt)

	// The property's inquiry counter moved.
	property, err := env.propertySvc.FindPropertyByID(ctx, env.property.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), property.Inquiries)
}

func TestInquiryService_SubmitInquiry_Validation(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_submit_validation")
	ctx := context.Background()

	input := env.guestSubmission()
	input.Message = ""
	_, err := env.svc.SubmitInquiry(ctx, nil, input)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	input = env.guestSubmission()
	input.Subject = ""
	_, err = env.svc.SubmitInquiry(ctx, nil, input)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	input = env.guestSubmission()
	input.GuestInfo = nil
	_, err = env.svc.SubmitInquiry(ctx, nil, input)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	input = env.guestSubmission()
	input.InquiryType = models.InquiryType("Haggling")
	_, err = env.svc.SubmitInquiry(ctx, nil, input)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	input = env.guestSubmission()
	input.PropertyID = utils.NewSixID()
	_, err = env.svc.SubmitInquiry(ctx, nil, input)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInquiryService_RespondChain(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_respond_chain")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	// First reply: New -> In Progress, stamps first_response_at, auto-assigns.
	updated, err := env.svc.Respond(ctx, inquiry.ID, env.staff.ID, "Yes, still available.", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusInProgress, updated.Status)
	require.NotNil(t, updated.FirstResponseAt)
	firstResponseAt := *updated.FirstResponseAt
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, env.staff.ID, *updated.AssignedTo)
	assert.NotNil(t, updated.AssignedAt)
	require.Len(t, updated.Responses, 1)
	assert.Equal(t, "Agent Smith", updated.Responses[0].RespondedByInfo.Name)

	// Second reply: In Progress -> Replied, first_response_at untouched.
	updated, err = env.svc.Respond(ctx, inquiry.ID, env.staff.ID, "Viewings run Tuesday to Friday.", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusReplied, updated.Status)
	require.NotNil(t, updated.FirstResponseAt)
	assert.True(t, updated.FirstResponseAt.Equal(firstResponseAt), "first response timestamp is stamped exactly once")
	assert.Len(t, updated.Responses, 2)

	// Replies in later statuses keep the status where staff put it.
	resolved := models.InquiryStatusResolved
	_, err = env.svc.UpdateInquiry(ctx, inquiry.ID, env.staff.ID, InquiryPatch{Status: &resolved})
	require.NoError(t, err)

	updated, err = env.svc.Respond(ctx, inquiry.ID, env.staff.ID, "Glad we could help.", nil)
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusResolved, updated.Status)
	assert.Len(t, updated.Responses, 3)
}

func TestInquiryService_Respond_Attachments(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_respond_attachments")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	attachments := []models.ResponseAttachment{
		{Key: "inquiries/" + inquiry.ID.String() + "/floorplan.pdf", FileName: "floorplan.pdf", MimeType: "application/pdf"},
	}
	updated, err := env.svc.Respond(ctx, inquiry.ID, env.staff.ID, "Floor plan attached.", attachments)
	require.NoError(t, err)
	require.Len(t, updated.Responses, 1)
	require.Len(t, updated.Responses[0].Attachments, 1)
	assert.Equal(t, "floorplan.pdf", updated.Responses[0].Attachments[0].FileName)
}

func TestInquiryService_Respond_Denied(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_respond_denied")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	general, err := env.userSvc.CreateUser(ctx, "General", "general@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)

	_, err = env.svc.Respond(ctx, inquiry.ID, general.ID, "I want to help!", nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.Respond(ctx, inquiry.ID, env.staff.ID, "", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.svc.Respond(ctx, utils.NewSixID(), env.staff.ID, "Hello?", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInquiryService_UpdateInquiry(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_update")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	high := models.InquiryPriorityHigh
	updated, err := env.svc.UpdateInquiry(ctx, inquiry.ID, env.staff.ID, InquiryPatch{
		Priority:   &high,
		AssignedTo: &env.staff.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryPriorityHigh, updated.Priority)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, env.staff.ID, *updated.AssignedTo)
	assert.NotNil(t, updated.AssignedAt)

	// Resolving stamps the resolution fields.
	resolved := models.InquiryStatusResolved
	notes := "Rented to another applicant"
	updated, err = env.svc.UpdateInquiry(ctx, inquiry.ID, env.staff.ID, InquiryPatch{
		Status:          &resolved,
		ResolutionNotes: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusResolved, updated.Status)
	assert.Equal(t, notes, updated.ResolutionNotes)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.ResolvedBy)
	assert.Equal(t, env.staff.ID, *updated.ResolvedBy)

	// An empty patch is rejected.
	_, err = env.svc.UpdateInquiry(ctx, inquiry.ID, env.staff.ID, InquiryPatch{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Assignment targets must be staff.
	general, err := env.userSvc.CreateUser(ctx, "General", "general@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)
	_, err = env.svc.UpdateInquiry(ctx, inquiry.ID, env.staff.ID, InquiryPatch{AssignedTo: &general.ID})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// And only staff may triage at all.
	_, err = env.svc.UpdateInquiry(ctx, inquiry.ID, general.ID, InquiryPatch{Priority: &high})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestInquiryService_Visibility(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_visibility")
	ctx := context.Background()

	owner, err := env.userSvc.CreateUser(ctx, "Owner", "owner@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)
	other, err := env.userSvc.CreateUser(ctx, "Other", "other@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)

	input := env.guestSubmission()
	input.GuestInfo = nil
	inquiry, err := env.svc.SubmitInquiry(ctx, &owner.ID, input)
	require.NoError(t, err)

	_, err = env.svc.GetInquiry(ctx, inquiry.ID, owner.ID)
	assert.NoError(t, err)

	_, err = env.svc.GetInquiry(ctx, inquiry.ID, env.staff.ID)
	assert.NoError(t, err)

	_, err = env.svc.GetInquiry(ctx, inquiry.ID, other.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	mine, err := env.svc.GetUserInquiries(ctx, owner.ID, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := env.svc.GetUserInquiries(ctx, other.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInquiryService_GetUserInquiries_StatusFilter(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_user_status_filter")
	ctx := context.Background()

	owner, err := env.userSvc.CreateUser(ctx, "Owner", "owner@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)

	input := env.guestSubmission()
	input.GuestInfo = nil
	answered, err := env.svc.SubmitInquiry(ctx, &owner.ID, input)
	require.NoError(t, err)
	_, err = env.svc.SubmitInquiry(ctx, &owner.ID, input)
	require.NoError(t, err)

	_, err = env.svc.Respond(ctx, answered.ID, env.staff.ID, "Still on the market.", nil)
	require.NoError(t, err)

	all, err := env.svc.GetUserInquiries(ctx, owner.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	newOnly := models.InquiryStatusNew
	fresh, err := env.svc.GetUserInquiries(ctx, owner.ID, &newOnly)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.NotEqual(t, answered.ID, fresh[0].ID)

	inProgress := models.InquiryStatusInProgress
	active, err := env.svc.GetUserInquiries(ctx, owner.ID, &inProgress)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, answered.ID, active[0].ID)

	bogus := models.InquiryStatus("Pending")
	_, err = env.svc.GetUserInquiries(ctx, owner.ID, &bogus)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestInquiryService_SubmitInquiry_ConcurrentCounter(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_concurrent_counter")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// Both $inc updates land; neither overwrites the other.
	property, err := env.propertySvc.FindPropertyByID(ctx, env.property.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), property.Inquiries)
}

func TestInquiryService_Respond_ConcurrentFirstResponse(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_concurrent_first_response")
	ctx := context.Background()

	inquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	second, err := env.userSvc.CreateUser(ctx, "Agent Jones", "jones@example.com", "", "Password123!", models.RoleStaff)
	require.NoError(t, err)

	responders := []utils.SixID{env.staff.ID, second.ID, env.staff.ID, second.ID}
	var wg sync.WaitGroup
	errs := make([]error, len(responders))
	for i, responderID := range responders {
		wg.Add(1)
		go func(i int, responderID utils.SixID) {
			defer wg.Done()
			_, errs[i] = env.svc.Respond(ctx, inquiry.ID, responderID, "Racing to reply.", nil)
		}(i, responderID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	updated, err := env.svc.GetInquiry(ctx, inquiry.ID, env.staff.ID)
	require.NoError(t, err)

	// Every reply lands, but only the race winner stamps the first
	// response time: it matches that winner's own responded_at.
	require.Len(t, updated.Responses, len(responders))
	require.NotNil(t, updated.FirstResponseAt)
	matched := false
	for _, resp := range updated.Responses {
		if resp.RespondedAt.Equal(*updated.FirstResponseAt) {
			matched = true
			break
		}
	}
	assert.True(t, matched, "first_response_at belongs to exactly the winning reply")

	require.NotNil(t, updated.AssignedTo)
	assert.Contains(t, responders, *updated.AssignedTo)
}

func TestInquiryService_GetAllInquiries(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_get_all")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
		require.NoError(t, err)
	}
	urgentInquiry, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)
	urgent := models.InquiryPriorityUrgent
	_, err = env.svc.UpdateInquiry(ctx, urgentInquiry.ID, env.staff.ID, InquiryPatch{Priority: &urgent})
	require.NoError(t, err)

	all, total, err := env.svc.GetAllInquiries(ctx, env.staff.ID, InquiryFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	urgentOnly, total, err := env.svc.GetAllInquiries(ctx, env.staff.ID, InquiryFilter{Priority: models.InquiryPriorityUrgent}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, urgentOnly, 1)
	assert.Equal(t, urgentInquiry.ID, urgentOnly[0].ID)

	// Pagination caps the page but not the total.
	page, total, err := env.svc.GetAllInquiries(ctx, env.staff.ID, InquiryFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 2)

	// Non-staff cannot list.
	general, err := env.userSvc.CreateUser(ctx, "General", "general@example.com", "", "Password123!", models.RoleGeneral)
	require.NoError(t, err)
	_, _, err = env.svc.GetAllInquiries(ctx, general.ID, InquiryFilter{}, 10, 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestInquiryService_SLAReminders(t *testing.T) {
	env := newInquiryTestEnv(t, "testdb_inquiry_sla")
	ctx := context.Background()

	overdue, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)
	fresh, err := env.svc.SubmitInquiry(ctx, nil, env.guestSubmission())
	require.NoError(t, err)

	// Backdate one inquiry past the SLA window.
	staleCreatedAt := time.Now().UTC().Add(-48 * time.Hour)
	_, err = env.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": overdue.ID},
		bson.M{"$set": bson.M{"created_at": staleCreatedAt}})
	require.NoError(t, err)

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	found, err := env.svc.FindOverdueNew(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, overdue.ID, found[0].ID)

	require.NoError(t, env.svc.StampSLAReminder(ctx, overdue.ID))

	// Stamped inquiries are not reported again.
	found, err = env.svc.FindOverdueNew(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, found)

	// Stamping twice is harmless.
	assert.NoError(t, env.svc.StampSLAReminder(ctx, overdue.ID))

	// An answered inquiry is never overdue, regardless of age.
	_, err = env.db.Collection(inquiriesCollection).UpdateOne(ctx,
		bson.M{"_id": fresh.ID},
		bson.M{"$set": bson.M{"created_at": staleCreatedAt}})
	require.NoError(t, err)
	_, err = env.svc.Respond(ctx, fresh.ID, env.staff.ID, "On it.", nil)
	require.NoError(t, err)

	found, err = env.svc.FindOverdueNew(ctx, cutoff)
	require.NoError(t, err)
	assert.Empty(t, found)
}
