package models

// EmailTemplate is a localized notification template stored in the DB.
// Missing templates fall back to the in-code defaults.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"template_id" json:"template_id"` // e.g. "inquiry_received", "appointment_status"
	Locale     string `bson:"locale" json:"locale"`           // e.g. "en-US"
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"` // plain text or HTML, {{.placeholder}} syntax
}
