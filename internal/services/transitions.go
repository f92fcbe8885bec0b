package services

import (
	"fmt"
	"strings"

	"adoor/estate/internal/models"
)

// TransitionTable maps a status to the set of statuses it may move to.
// Statuses absent from the table are terminal.
type TransitionTable map[models.AppointmentStatus][]models.AppointmentStatus

// DefaultAppointmentTransitions returns the built-in appointment state
// machine. Completed, Cancelled, No Show and Rescheduled are terminal.
func DefaultAppointmentTransitions() TransitionTable {
	return TransitionTable{
		models.AppointmentStatusPending: {
			models.AppointmentStatusConfirmed,
			models.AppointmentStatusCancelled,
			models.AppointmentStatusRescheduled,
		},
		models.AppointmentStatusConfirmed: {
			models.AppointmentStatusCompleted,
			models.AppointmentStatusCancelled,
			models.AppointmentStatusNoShow,
			models.AppointmentStatusRescheduled,
		},
	}
}

// Allowed reports whether the table permits moving from one status to another.
// A no-op transition (from == to) is never allowed; callers treat repeats as
// conflicts so double submissions surface instead of silently succeeding.
func (t TransitionTable) Allowed(from, to models.AppointmentStatus) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseTransitionTable parses a table from its compact string form:
//
//	"Pending>Confirmed,Cancelled;Confirmed>Completed,Cancelled"
//
// Entries are separated by ';', each entry is "From>To1,To2,...". Unknown
// status names are rejected so a typo in configuration cannot silently open
// or close transitions.
func ParseTransitionTable(s string) (TransitionTable, error) {
	table := TransitionTable{}
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ">", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid transition entry %q: expected \"From>To,...\"", entry)
		}
		from := models.AppointmentStatus(strings.TrimSpace(parts[0]))
		if !from.Valid() {
			return nil, fmt.Errorf("invalid transition entry %q: unknown status %q", entry, parts[0])
		}
		if _, dup := table[from]; dup {
			return nil, fmt.Errorf("duplicate transition entry for status %q", from)
		}
		var targets []models.AppointmentStatus
		for _, rawTo := range strings.Split(parts[1], ",") {
			to := models.AppointmentStatus(strings.TrimSpace(rawTo))
			if !to.Valid() {
				return nil, fmt.Errorf("invalid transition entry %q: unknown status %q", entry, rawTo)
			}
			targets = append(targets, to)
		}
		table[from] = targets
	}
	return table, nil
}

// String renders the table in the compact form ParseTransitionTable accepts.
func (t TransitionTable) String() string {
	// Stable order for readability in config dumps and logs.
	order := []models.AppointmentStatus{
		models.AppointmentStatusPending,
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusCompleted,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusNoShow,
		models.AppointmentStatusRescheduled,
	}
	var entries []string
	for _, from := range order {
		targets, ok := t[from]
		if !ok || len(targets) == 0 {
			continue
		}
		tos := make([]string, len(targets))
		for i, to := range targets {
			tos[i] = string(to)
		}
		entries = append(entries, fmt.Sprintf("%s>%s", from, strings.Join(tos, ",")))
	}
	return strings.Join(entries, ";")
}
