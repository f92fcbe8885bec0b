package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"adoor/estate/internal/config"
	"adoor/estate/internal/email"
	"adoor/estate/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery   = "email:deliver"
	TypeInquirySLACheck = "inquiry:sla:check"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	inquiryService       services.IInquiryService
	configService        services.IConfigService
	emailTemplateService services.IEmailTemplateService
	taskClient           *asynq.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	inquiryService services.IInquiryService,
	configService services.IConfigService,
	emailTemplateService services.IEmailTemplateService,
	taskClient *asynq.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		inquiryService:       inquiryService,
		configService:        configService,
		emailTemplateService: emailTemplateService,
		taskClient:           taskClient,
	}
}

// SetupServer configures and starts an Asynq server instance. Returns nil
// when the process is not a background worker (it can still enqueue tasks).
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	if !isBgWorker {
		fmt.Println("Running in API mode, no task server started.")
		return nil
	}

	serverOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeInquirySLACheck, processor.HandleInquirySLACheckTask)
	fmt.Println("Registered background task handlers.")

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// EmailTaskPayload is the payload of a TypeEmailDelivery task.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"` // Optional locale
	Data       map[string]interface{} `json:"data"`
}

// NewEmailDeliveryTask builds an email delivery task for enqueueing.
func NewEmailDeliveryTask(to, templateID string, data map[string]interface{}) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{To: to, TemplateID: templateID, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload), nil
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	fmt.Printf("Sending email task: To=%s, Template=%s\n", payload.To, payload.TemplateID)

	// Determine locale (use default if not provided)
	locale := payload.Locale
	if locale == "" {
		locale = "en-US"
	}

	// Get Email Template from DB
	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		// Non-retryable if template not found
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	// Simple placeholder replacement (replace {{.key}})
	subjectRendered := tmpl.Subject
	bodyRendered := tmpl.Body
	for key, val := range payload.Data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		valueStr := fmt.Sprintf("%v", val) // Basic string conversion
		subjectRendered = strings.ReplaceAll(subjectRendered, placeholder, valueStr)
		bodyRendered = strings.ReplaceAll(bodyRendered, placeholder, valueStr)
	}

	// Construct the raw email message including headers
	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, payload.To)
	}

	// Basic email structure with essential headers.
	// Note: Proper MIME encoding for HTML or attachments would be more complex.
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", payload.To))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subjectRendered))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n") // End of headers
	sb.WriteString(bodyRendered)
	sb.WriteString("\r\n")

	rawMessage := []byte(sb.String())

	err = p.emailSender.Send(ctx, []string{payload.To}, subjectRendered, rawMessage)
	if err != nil {
		fmt.Printf("Email sending failed (will retry?): %v\n", err)
		return err
	}

	fmt.Printf("Email task processed successfully: To=%s, Template=%s\n", payload.To, payload.TemplateID)
	return nil
}

// NewInquirySLACheckTask builds the periodic SLA check task.
func NewInquirySLACheckTask() *asynq.Task {
	return asynq.NewTask(TypeInquirySLACheck, nil)
}

// HandleInquirySLACheckTask emails staff about New inquiries older than the
// first-response SLA, stamps them as reminded, and re-enqueues itself to run
// again after the configured interval.
func (p *TaskProcessor) HandleInquirySLACheckTask(ctx context.Context, t *asynq.Task) error {
	staffAddress := p.cfg.StaffNotifyAddress
	if staffAddress == "" {
		log.Println("STAFF_NOTIFY_ADDRESS not configured, skipping inquiry SLA check.")
		return p.reEnqueueSLACheck(ctx, t)
	}

	slaHours := p.configService.GetInt(ctx, services.ConfigKeyInquirySLAHours, int(p.cfg.InquiryFirstResponseSLA/time.Hour))
	cutoff := time.Now().UTC().Add(-time.Duration(slaHours) * time.Hour)

	overdue, err := p.inquiryService.FindOverdueNew(ctx, cutoff)
	if err != nil {
		log.Printf("Error finding overdue inquiries: %v", err)
		return err // Retry DB error
	}

	remindedCount := 0
	for _, inquiry := range overdue {
		propertyTitle := inquiry.PropertyID.String()
		if inquiry.Property != nil {
			propertyTitle = inquiry.Property.Title
		}

		task, err := NewEmailDeliveryTask(staffAddress, "inquiry_sla_reminder", map[string]interface{}{
			"inquiry_id":     inquiry.ID.String(),
			"property_title": propertyTitle,
			"created_at":     inquiry.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			log.Printf("Error building SLA reminder email task for inquiry %s: %v", inquiry.ID.String(), err)
			continue
		}
		if _, err := p.taskClient.EnqueueContext(ctx, task); err != nil {
			log.Printf("Error enqueueing SLA reminder email for inquiry %s: %v", inquiry.ID.String(), err)
			continue
		}

		if err := p.inquiryService.StampSLAReminder(ctx, inquiry.ID); err != nil {
			log.Printf("Error stamping SLA reminder on inquiry %s: %v", inquiry.ID.String(), err)
			// Reminder went out; the stamp failing just risks one duplicate next round.
		}
		remindedCount++
	}

	if remindedCount > 0 {
		log.Printf("Inquiry SLA check finished. Sent %d reminders.", remindedCount)
	}

	return p.reEnqueueSLACheck(ctx, t)
}

func (p *TaskProcessor) reEnqueueSLACheck(ctx context.Context, t *asynq.Task) error {
	interval := p.cfg.InquirySLACheckInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	taskInfo, err := p.taskClient.EnqueueContext(ctx, t, asynq.ProcessIn(interval))
	if err != nil {
		log.Printf("ERROR failed to re-enqueue inquiry SLA check task: %v", err)
		return err
	}
	log.Printf("Re-enqueued inquiry SLA check task %s to run in %v.", taskInfo.ID, interval)
	return nil
}

// BootstrapSLACheck schedules the first SLA check for a fresh worker. The
// running check re-enqueues itself under a fresh task ID after every run, so
// bootstrap inspects the queue first and only seeds the loop when no check is
// active or waiting. Restarting a worker while a check is in flight is then a
// no-op instead of spawning a second loop.
func BootstrapSLACheck(ctx context.Context, rdb *redis.Client, client *asynq.Client) error {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: rdb.Options().Addr})
	defer inspector.Close()

	inFlight, err := slaCheckInFlight(inspector)
	if err != nil {
		return err
	}
	if inFlight {
		return nil
	}

	// The fixed ID closes the race of two workers seeding at the same time.
	_, err = client.EnqueueContext(ctx, NewInquirySLACheckTask(), asynq.TaskID(TypeInquirySLACheck))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func slaCheckInFlight(inspector *asynq.Inspector) (bool, error) {
	lists := []func(qname string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error){
		inspector.ListActiveTasks,
		inspector.ListPendingTasks,
		inspector.ListScheduledTasks,
		inspector.ListRetryTasks,
	}
	for _, list := range lists {
		tasks, err := list("default")
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		for _, info := range tasks {
			if info.Type == TypeInquirySLACheck {
				return true, nil
			}
		}
	}
	return false, nil
}
