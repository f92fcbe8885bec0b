package handlers_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"adoor/estate/internal/models"
	"adoor/estate/internal/services"
	"adoor/estate/internal/utils"
)

// --- Mocks ---

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, name, email, phone, password string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, name, email, phone, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *MockUserService) RoleOf(ctx context.Context, userID utils.SixID) (models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Role), args.Error(1)
}
func (m *MockUserService) Summary(ctx context.Context, userID utils.SixID) (*models.UserSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSummary), args.Error(1)
}
func (m *MockUserService) SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error {
	args := m.Called(ctx, userIDToSuspend, adminUserID)
	return args.Error(0)
}
func (m *MockUserService) UnsuspendUser(ctx context.Context, userIDToUnsuspend utils.SixID) error {
	args := m.Called(ctx, userIDToUnsuspend)
	return args.Error(0)
}
func (m *MockUserService) DeleteUser(ctx context.Context, userID utils.SixID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPropertyService implements services.IPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, agentID utils.SixID, input services.CreatePropertyInput) (*models.Property, error) {
	args := m.Called(ctx, agentID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) FindPropertyByID(ctx context.Context, propertyID utils.SixID) (*models.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}
func (m *MockPropertyService) AgentFor(ctx context.Context, propertyID utils.SixID) (utils.SixID, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).(utils.SixID), args.Error(1)
}
func (m *MockPropertyService) ListProperties(ctx context.Context, filter services.PropertyFilter, limit int, skip int) ([]models.Property, int64, error) {
	args := m.Called(ctx, filter, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Property), args.Get(1).(int64), args.Error(2)
}
func (m *MockPropertyService) IncrementViews(ctx context.Context, propertyID utils.SixID) error {
	args := m.Called(ctx, propertyID)
	return args.Error(0)
}
func (m *MockPropertyService) IncrementInquiries(ctx context.Context, propertyID utils.SixID) error {
	args := m.Called(ctx, propertyID)
	return args.Error(0)
}
func (m *MockPropertyService) DeleteProperty(ctx context.Context, propertyID, agentID utils.SixID) error {
	args := m.Called(ctx, propertyID, agentID)
	return args.Error(0)
}
func (m *MockPropertyService) Summary(ctx context.Context, propertyID utils.SixID) (*models.PropertySummary, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertySummary), args.Error(1)
}

// MockAppointmentService implements services.IAppointmentService
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) CreateAppointment(ctx context.Context, requester *utils.SixID, input services.CreateAppointmentInput) (*models.Appointment, error) {
	args := m.Called(ctx, requester, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *MockAppointmentService) GetAppointment(ctx context.Context, appointmentID, requesterID utils.SixID) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *MockAppointmentService) UpdateStatus(ctx context.Context, appointmentID, requesterID utils.SixID, patch services.AppointmentStatusPatch) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, requesterID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *MockAppointmentService) Reschedule(ctx context.Context, appointmentID, requesterID utils.SixID, input services.RescheduleInput) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, requesterID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *MockAppointmentService) GetUserAppointments(ctx context.Context, userID utils.SixID, status *models.AppointmentStatus, upcomingOnly bool) ([]models.Appointment, error) {
	args := m.Called(ctx, userID, status, upcomingOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}
func (m *MockAppointmentService) GetAgentAppointments(ctx context.Context, agentID utils.SixID, from time.Time) ([]models.Appointment, error) {
	args := m.Called(ctx, agentID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

// MockInquiryService implements services.IInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) SubmitInquiry(ctx context.Context, requester *utils.SixID, input services.SubmitInquiryInput) (*models.Inquiry, error) {
	args := m.Called(ctx, requester, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) GetInquiry(ctx context.Context, inquiryID, requesterID utils.SixID) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) Respond(ctx context.Context, inquiryID, responderID utils.SixID, message string, attachments []models.ResponseAttachment) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, responderID, message, attachments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) UpdateInquiry(ctx context.Context, inquiryID, staffID utils.SixID, patch services.InquiryPatch) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, staffID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) GetUserInquiries(ctx context.Context, userID utils.SixID, status *models.InquiryStatus) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) GetAllInquiries(ctx context.Context, staffID utils.SixID, filter services.InquiryFilter, limit, skip int) ([]models.Inquiry, int64, error) {
	args := m.Called(ctx, staffID, filter, limit, skip)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Inquiry), args.Get(1).(int64), args.Error(2)
}
func (m *MockInquiryService) FindOverdueNew(ctx context.Context, olderThan time.Time) ([]models.Inquiry, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *MockInquiryService) StampSLAReminder(ctx context.Context, inquiryID utils.SixID) error {
	args := m.Called(ctx, inquiryID)
	return args.Error(0)
}

// MockS3Storage implements storage.IS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, inquiryID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, inquiryID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

// MockAsynqClient implements handlers.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	mockArgs := []interface{}{ctx, task}
	for _, opt := range opts {
		mockArgs = append(mockArgs, opt)
	}
	args := m.Called(mockArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockConfigService implements services.IConfigService
type MockConfigService struct {
	mock.Mock
}

func (m *MockConfigService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}
func (m *MockConfigService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}
func (m *MockConfigService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.Int(0)
}
func (m *MockConfigService) GetString(ctx context.Context, key string, defaultValue string) string {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.String(0)
}
func (m *MockConfigService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.Bool(0)
}
func (m *MockConfigService) GetFloat64(ctx context.Context, key string, defaultValue float64) float64 {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	if fVal, ok := args.Get(0).(float64); ok {
		return fVal
	}
	return float64(args.Int(0))
}
func (m *MockConfigService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	args := m.Called(ctx, key, defaultValue)
	if err := args.Error(1); err != nil {
		return defaultValue
	}
	return args.Get(0).(time.Duration)
}
func (m *MockConfigService) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockConfigService) SubscribeToChanges(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockConfigService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	args := m.Called(ctx, key, value, isPublic)
	return args.Error(0)
}
func (m *MockConfigService) GetAPIEndpointConfig(ctx context.Context, endpoint string, isAuthenticated bool) (*models.APIEndpointConfig, error) {
	args := m.Called(ctx, endpoint, isAuthenticated)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIEndpointConfig), args.Error(1)
}
