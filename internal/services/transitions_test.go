package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adoor/estate/internal/models"
)

func TestDefaultAppointmentTransitions(t *testing.T) {
	table := DefaultAppointmentTransitions()

	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusConfirmed))
	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusCancelled))
	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusRescheduled))
	assert.True(t, table.Allowed(models.AppointmentStatusConfirmed, models.AppointmentStatusCompleted))
	assert.True(t, table.Allowed(models.AppointmentStatusConfirmed, models.AppointmentStatusNoShow))

	// Pending cannot jump straight to Completed or No Show.
	assert.False(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusCompleted))
	assert.False(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusNoShow))

	// Terminal statuses go nowhere.
	for _, terminal := range []models.AppointmentStatus{
		models.AppointmentStatusCompleted,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusNoShow,
		models.AppointmentStatusRescheduled,
	} {
		for _, to := range []models.AppointmentStatus{
			models.AppointmentStatusPending,
			models.AppointmentStatusConfirmed,
			models.AppointmentStatusCompleted,
			models.AppointmentStatusCancelled,
		} {
			assert.False(t, table.Allowed(terminal, to), "%s should be terminal", terminal)
		}
	}

	// Repeating the current status is not a transition.
	assert.False(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusPending))
	assert.False(t, table.Allowed(models.AppointmentStatusConfirmed, models.AppointmentStatusConfirmed))
}

func TestParseTransitionTable(t *testing.T) {
	table, err := ParseTransitionTable("Pending>Confirmed,Cancelled;Confirmed>Completed")
	require.NoError(t, err)

	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusConfirmed))
	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusCancelled))
	assert.True(t, table.Allowed(models.AppointmentStatusConfirmed, models.AppointmentStatusCompleted))
	// The override dropped these.
	assert.False(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusRescheduled))
	assert.False(t, table.Allowed(models.AppointmentStatusConfirmed, models.AppointmentStatusCancelled))
}

func TestParseTransitionTable_WhitespaceAndEmptyEntries(t *testing.T) {
	table, err := ParseTransitionTable(" Pending > Confirmed , Cancelled ; ; ")
	require.NoError(t, err)
	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusConfirmed))
	assert.True(t, table.Allowed(models.AppointmentStatusPending, models.AppointmentStatusCancelled))
}

func TestParseTransitionTable_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"missing separator", "Pending Confirmed"},
		{"unknown from status", "Booked>Confirmed"},
		{"unknown to status", "Pending>Booked"},
		{"duplicate entry", "Pending>Confirmed;Pending>Cancelled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTransitionTable(tc.input)
			assert.Error(t, err)
		})
	}
}

func TestTransitionTable_StringRoundTrip(t *testing.T) {
	original := DefaultAppointmentTransitions()
	parsed, err := ParseTransitionTable(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}
