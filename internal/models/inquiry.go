package models

import (
	"time"

	"adoor/estate/internal/utils"
)

// InquiryStatus is the lifecycle state of a property inquiry.
type InquiryStatus string

const (
	InquiryStatusNew        InquiryStatus = "New"
	InquiryStatusInProgress InquiryStatus = "In Progress"
	InquiryStatusReplied    InquiryStatus = "Replied"
	InquiryStatusResolved   InquiryStatus = "Resolved"
	InquiryStatusClosed     InquiryStatus = "Closed"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusNew, InquiryStatusInProgress, InquiryStatusReplied,
		InquiryStatusResolved, InquiryStatusClosed:
		return true
	}
	return false
}

// InquiryPriority is the staff triage priority of an inquiry.
type InquiryPriority string

const (
	InquiryPriorityLow    InquiryPriority = "Low"
	InquiryPriorityMedium InquiryPriority = "Medium"
	InquiryPriorityHigh   InquiryPriority = "High"
	InquiryPriorityUrgent InquiryPriority = "Urgent"
)

// Valid reports whether the priority is one of the known levels.
func (p InquiryPriority) Valid() bool {
	switch p {
	case InquiryPriorityLow, InquiryPriorityMedium, InquiryPriorityHigh, InquiryPriorityUrgent:
		return true
	}
	return false
}

// InquiryType categorizes what the inquirer is asking about.
type InquiryType string

const (
	InquiryTypeGeneral      InquiryType = "General Information"
	InquiryTypePrice        InquiryType = "Price Negotiation"
	InquiryTypeViewing      InquiryType = "Viewing Request"
	InquiryTypeAvailability InquiryType = "Availability"
	InquiryTypeFinancing    InquiryType = "Financing"
	InquiryTypeOther        InquiryType = "Other"
)

// Valid reports whether the inquiry type is one of the known categories.
func (t InquiryType) Valid() bool {
	switch t {
	case InquiryTypeGeneral, InquiryTypePrice, InquiryTypeViewing,
		InquiryTypeAvailability, InquiryTypeFinancing, InquiryTypeOther:
		return true
	}
	return false
}

// PreferredContact is the inquirer's preferred reply channel.
type PreferredContact string

const (
	PreferredContactEmail    PreferredContact = "Email"
	PreferredContactPhone    PreferredContact = "Phone"
	PreferredContactWhatsApp PreferredContact = "WhatsApp"
	PreferredContactAny      PreferredContact = "Any"
)

// Valid reports whether the contact preference is one of the known channels.
func (p PreferredContact) Valid() bool {
	switch p {
	case PreferredContactEmail, PreferredContactPhone, PreferredContactWhatsApp, PreferredContactAny:
		return true
	}
	return false
}

// ProposedBudget is the budget an inquirer states for negotiation inquiries.
type ProposedBudget struct {
	Amount       float64 `bson:"amount" json:"amount"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
}

// ResponseAttachment is a file attached to a staff response, stored in S3.
type ResponseAttachment struct {
	Key      string `bson:"key" json:"key"` // S3 object key
	FileName string `bson:"file_name" json:"file_name"`
	MimeType string `bson:"mime_type,omitempty" json:"mime_type,omitempty"`
}

// InquiryResponse is one staff reply appended to an inquiry's thread.
// RespondedByInfo is a snapshot of the responder at the time of the reply.
type InquiryResponse struct {
	Message         string               `bson:"message" json:"message"`
	RespondedBy     utils.SixID          `bson:"responded_by" json:"responded_by"`
	RespondedByInfo ContactInfo          `bson:"responded_by_info" json:"responded_by_info"`
	RespondedAt     time.Time            `bson:"responded_at" json:"responded_at"`
	Attachments     []ResponseAttachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
}

// Inquiry represents an inquiry about a property.
//
// UserID is nil for guest submissions; GuestInfo then carries the contact
// details staff reply to.
type Inquiry struct {
	ID         utils.SixID  `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID utils.SixID  `bson:"property_id" json:"property_id"`
	UserID     *utils.SixID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	GuestInfo  *ContactInfo `bson:"guest_info,omitempty" json:"guest_info,omitempty"`

	InquiryType      InquiryType      `bson:"inquiry_type" json:"inquiry_type"`
	Subject          string           `bson:"subject" json:"subject"`
	Message          string           `bson:"message" json:"message"`
	PreferredContact PreferredContact `bson:"preferred_contact" json:"preferred_contact"`
	BestTimeToCall   string           `bson:"best_time_to_call,omitempty" json:"best_time_to_call,omitempty"`
	ProposedBudget   *ProposedBudget  `bson:"proposed_budget,omitempty" json:"proposed_budget,omitempty"`
	NeedsFinancing   bool             `bson:"needs_financing,omitempty" json:"needs_financing,omitempty"`
	Source           string           `bson:"source,omitempty" json:"source,omitempty"` // e.g. "website", "referral"
	Tags             []string         `bson:"tags,omitempty" json:"tags,omitempty"`

	Status   InquiryStatus   `bson:"status" json:"status"`
	Priority InquiryPriority `bson:"priority" json:"priority"`

	AssignedTo *utils.SixID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedAt *time.Time   `bson:"assigned_at,omitempty" json:"assigned_at,omitempty"`

	Responses       []InquiryResponse `bson:"responses,omitempty" json:"responses,omitempty"`
	FirstResponseAt *time.Time        `bson:"first_response_at,omitempty" json:"first_response_at,omitempty"`

	ResolvedAt      *time.Time   `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	ResolvedBy      *utils.SixID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolutionNotes string       `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`

	InternalNotes      string       `bson:"internal_notes,omitempty" json:"internal_notes,omitempty"`
	RelatedAppointment *utils.SixID `bson:"related_appointment,omitempty" json:"related_appointment,omitempty"`

	// SLARemindedAt marks that the overdue-first-response reminder has been
	// sent, so the background check does not email staff twice.
	SLARemindedAt *time.Time `bson:"sla_reminded_at,omitempty" json:"sla_reminded_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Deleted   bool      `bson:"deleted" json:"-"` // Soft delete flag

	// Expanded display fields, populated on read. Never persisted.
	Property *PropertySummary `bson:"-" json:"property,omitempty"`
	User     *UserSummary     `bson:"-" json:"user,omitempty"`
}

// IsGuest reports whether the inquiry was submitted without an account.
func (i *Inquiry) IsGuest() bool {
	return i.UserID == nil
}
