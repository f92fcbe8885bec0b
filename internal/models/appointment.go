package models

import (
	"time"

	"adoor/estate/internal/utils"
)

// AppointmentStatus is the lifecycle state of a viewing appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "Pending"
	AppointmentStatusConfirmed   AppointmentStatus = "Confirmed"
	AppointmentStatusCompleted   AppointmentStatus = "Completed"
	AppointmentStatusCancelled   AppointmentStatus = "Cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "No Show"
	AppointmentStatusRescheduled AppointmentStatus = "Rescheduled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCancelled,
		AppointmentStatusNoShow, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// ViewingType is the modality of a viewing appointment.
type ViewingType string

const (
	ViewingTypeInPerson  ViewingType = "In-Person"
	ViewingTypeVirtual   ViewingType = "Virtual"
	ViewingTypeVideoCall ViewingType = "Video Call"
)

// Valid reports whether the viewing type is one of the known modalities.
func (v ViewingType) Valid() bool {
	switch v {
	case ViewingTypeInPerson, ViewingTypeVirtual, ViewingTypeVideoCall:
		return true
	}
	return false
}

// AppointmentFeedback holds post-viewing feedback. The client supplies
// rating/comments/interest, the agent supplies agentNotes.
type AppointmentFeedback struct {
	Rating     *int       `bson:"rating,omitempty" json:"rating,omitempty"` // 1..5
	Comments   string     `bson:"comments,omitempty" json:"comments,omitempty"`
	AgentNotes string     `bson:"agent_notes,omitempty" json:"agent_notes,omitempty"`
	Interested *bool      `bson:"interested,omitempty" json:"interested,omitempty"`
	GivenAt    *time.Time `bson:"given_at,omitempty" json:"given_at,omitempty"`
}

// Appointment represents a property viewing appointment.
//
// ClientID is nil for guest-submitted appointments; GuestInfo then carries
// the requester's contact details. ClientInfo is always a point-in-time
// snapshot taken at creation.
type Appointment struct {
	ID         utils.SixID  `bson:"_id,omitempty" json:"id,omitempty"`
	PropertyID utils.SixID  `bson:"property_id" json:"property_id"`
	ClientID   *utils.SixID `bson:"client_id,omitempty" json:"client_id,omitempty"`
	AgentID    utils.SixID  `bson:"agent_id" json:"agent_id"`
	ClientInfo ContactInfo  `bson:"client_info" json:"client_info"`

	Date        time.Time   `bson:"date" json:"date"`
	Time        string      `bson:"time" json:"time"` // "HH:MM", 24h
	Duration    int         `bson:"duration" json:"duration"` // minutes
	ViewingType ViewingType `bson:"viewing_type" json:"viewing_type"`
	Attendees   int         `bson:"attendees" json:"attendees"`

	Status AppointmentStatus `bson:"status" json:"status"`

	MeetingLocation    string `bson:"meeting_location,omitempty" json:"meeting_location,omitempty"`
	VirtualMeetingLink string `bson:"virtual_meeting_link,omitempty" json:"virtual_meeting_link,omitempty"`
	Notes              string `bson:"notes,omitempty" json:"notes,omitempty"`
	SpecialRequests    string `bson:"special_requests,omitempty" json:"special_requests,omitempty"`

	ConfirmedBy        *utils.SixID `bson:"confirmed_by,omitempty" json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time   `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	CancelledBy        *utils.SixID `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time   `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancellationReason string       `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`

	// Reschedule chain links. A rescheduled original points forward via
	// RescheduledTo; its replacement points back via RescheduledFrom.
	RescheduledFrom *utils.SixID `bson:"rescheduled_from,omitempty" json:"rescheduled_from,omitempty"`
	RescheduledTo   *utils.SixID `bson:"rescheduled_to,omitempty" json:"rescheduled_to,omitempty"`

	Feedback *AppointmentFeedback `bson:"feedback,omitempty" json:"feedback,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Deleted   bool      `bson:"deleted" json:"-"` // Soft delete flag

	// Expanded display fields, populated on read. Never persisted.
	Property *PropertySummary `bson:"-" json:"property,omitempty"`
	Agent    *UserSummary     `bson:"-" json:"agent,omitempty"`
	Client   *UserSummary     `bson:"-" json:"client,omitempty"`
}

// IsGuest reports whether the appointment was submitted without an account.
func (a *Appointment) IsGuest() bool {
	return a.ClientID == nil
}
