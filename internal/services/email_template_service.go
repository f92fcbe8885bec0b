package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"adoor/estate/internal/models"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	"inquiry_received": {
		TemplateID: "inquiry_received",
		Locale:     "en-US",
		Subject:    "We received your inquiry about {{.property_title}}",
		Body:       "Hi {{.name}},\n\nThanks for your inquiry about {{.property_title}}. Our team will contact you shortly via {{.preferred_contact}}.\n\nYour message:\n{{.message}}",
	},
	"inquiry_staff_alert": {
		TemplateID: "inquiry_staff_alert",
		Locale:     "en-US",
		Subject:    "New inquiry for {{.property_title}}",
		Body:       "A new {{.inquiry_type}} inquiry ({{.inquiry_id}}) was submitted for {{.property_title}} by {{.name}} ({{.email}}).\n\nMessage:\n{{.message}}",
	},
	"inquiry_response": {
		TemplateID: "inquiry_response",
		Locale:     "en-US",
		Subject:    "Response to your inquiry about {{.property_title}}",
		Body:       "Hi {{.name}},\n\n{{.responder_name}} replied to your inquiry:\n\n{{.response}}",
	},
	"inquiry_sla_reminder": {
		TemplateID: "inquiry_sla_reminder",
		Locale:     "en-US",
		Subject:    "Reminder: inquiry {{.inquiry_id}} still awaiting first response",
		Body:       "Inquiry {{.inquiry_id}} for {{.property_title}} was submitted at {{.created_at}} and has not been answered yet.",
	},
	"appointment_requested": {
		TemplateID: "appointment_requested",
		Locale:     "en-US",
		Subject:    "We received your viewing request for {{.property_title}}",
		Body:       "Hi {{.name}},\n\nYour viewing request for {{.property_title}} on {{.date}} at {{.time}} is pending confirmation by the agent.",
	},
	"appointment_status": {
		TemplateID: "appointment_status",
		Locale:     "en-US",
		Subject:    "Your viewing appointment is now {{.status}}",
		Body:       "Hi {{.name}},\n\nYour viewing appointment for {{.property_title}} on {{.date}} at {{.time}} is now {{.status}}.{{.reason}}",
	},
	"appointment_rescheduled": {
		TemplateID: "appointment_rescheduled",
		Locale:     "en-US",
		Subject:    "Your viewing appointment was rescheduled",
		Body:       "Hi {{.name}},\n\nYour viewing of {{.property_title}} has been moved to {{.date}} at {{.time}}.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

const emailTemplatesCollection = "email_templates"

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// If template not found in DB, try to get from defaults
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}

	update := bson.M{"$set": template}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	collection := s.db.Collection(emailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	_, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}

	return nil
}
