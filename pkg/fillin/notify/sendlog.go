package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SendLog records every send attempt in a database table.
type SendLog struct {
	db *sql.DB
}

const createSendLog = `
	CREATE TABLE IF NOT EXISTS send_log (
		id TEXT PRIMARY KEY,
		record INTEGER NOT NULL,
		recipient TEXT NOT NULL,
		provider TEXT NOT NULL,
		provider_message_id TEXT,
		status TEXT NOT NULL,
		error TEXT,
		created_at TIMESTAMP NOT NULL
	)
`

// NewSendLog creates the send_log table in db if it does not exist.
func NewSendLog(ctx context.Context, db *sql.DB) (*SendLog, error) {
	if _, err := db.ExecContext(ctx, createSendLog); err != nil {
		return nil, fmt.Errorf("creating send log: %w", err)
	}
	return &SendLog{db: db}, nil
}

// Record stores one result. Status is "sent" or "failed".
func (l *SendLog) Record(ctx context.Context, provider string, r Result) error {
	status := "sent"
	var messageID, errMsg *string
	if r.MessageID != "" {
		messageID = &r.MessageID
	}
	if r.Err != nil {
		status = "failed"
		msg := r.Err.Error()
		errMsg = &msg
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO send_log (id, record, recipient, provider, provider_message_id, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		"snd_"+uuid.NewString(),
		r.Index,
		r.To,
		provider,
		messageID,
		status,
		errMsg,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("logging send: %w", err)
	}
	return nil
}

// RecordAll stores every result, stopping at the first database error.
func (l *SendLog) RecordAll(ctx context.Context, provider string, results []Result) error {
	for _, r := range results {
		if err := l.Record(ctx, provider, r); err != nil {
			return err
		}
	}
	return nil
}
