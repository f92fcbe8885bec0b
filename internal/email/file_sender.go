package email

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adoor/estate/internal/config"
)

// FileEmailSender appends every outgoing email to a log file. Used alongside
// the real sender when LOG_EMAILS is set.
type FileEmailSender struct {
	filePath string
	cfg      *config.Config
}

// NewFileEmailSender creates the sender and makes sure the log directory exists.
func NewFileEmailSender(filePath string, cfg *config.Config) (Sender, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("email log file path cannot be empty")
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for email log file '%s': %w", dir, err)
	}

	return &FileEmailSender{filePath: filePath, cfg: cfg}, nil
}

func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("FileEmailSender: failed to open log file '%s': %v", s.filePath, err)
		return fmt.Errorf("failed to open email log file: %w", err)
	}
	defer file.Close()

	timestamp := time.Now().Format(time.RFC3339Nano)
	entry := []byte(fmt.Sprintf("--- Email logged at %s (To: %v, Subject: %s) ---\n", timestamp, to, subject))
	entry = append(entry, rawMessage...)
	entry = append(entry, []byte("--- End logged email ---\n\n")...)

	if _, err := file.Write(entry); err != nil {
		log.Printf("FileEmailSender: failed to write to log file '%s': %v", s.filePath, err)
		return fmt.Errorf("failed to write email to log file: %w", err)
	}

	return nil
}
