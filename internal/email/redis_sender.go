package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"adoor/estate/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// classifySubject maps an outgoing subject line to a notification kind so
// test code can look the mock email up under a predictable key.
func classifySubject(subject string) string {
	switch {
	case strings.Contains(subject, "Reminder"):
		return "inquiry_sla_reminder"
	case strings.Contains(subject, "Response to your inquiry"):
		return "inquiry_response"
	case strings.Contains(subject, "inquiry"), strings.Contains(subject, "Inquiry"):
		return "inquiry_received"
	case strings.Contains(subject, "rescheduled"):
		return "appointment_rescheduled"
	case strings.Contains(subject, "viewing request"):
		return "appointment_requested"
	case strings.Contains(subject, "appointment"), strings.Contains(subject, "Appointment"):
		return "appointment_status"
	}
	return "unknown"
}

// Send stores a representation of the email in Redis instead of sending it via SMTP.
// The rawMessage []byte is not directly stored in Redis to maintain the existing JSON structure,
// but it's received as per the Sender interface. The `to` parameter is now a slice.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	bodyStr := string(rawMessage)
	kind := classifySubject(subject)

	// For Redis, we typically deal with a single primary recipient for the mock key.
	// If `to` has multiple addresses, we'll use the first one for the key.
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":      strings.Join(to, ", "), // Store all recipients as a comma-separated string
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    bodyStr, // Storing the full raw message as body for simplicity in mock
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":    kind,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	// Store as a simple String with TTL (e.g., 5 minutes)
	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, kind)
	ttl := 5 * time.Minute

	err = s.client.Set(ctx, key, jsonData, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}
