package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/guildq/internal/domain"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(ctx context.Context, tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (resource_type, resource_id, event_type, etag, payload)
		VALUES (?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.ExecContext(ctx, query, event.ResourceType, event.ResourceID, event.EventType, event.ETag, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogProjectCreated logs a project creation event
func (w *Writer) LogProjectCreated(ctx context.Context, tx *sql.Tx, project *domain.Project) error {
	payload, err := json.Marshal(map[string]interface{}{
		"name":       project.Name,
		"chapter_id": project.ChapterID,
		"cycle_id":   project.CycleID,
		"player_ids": project.PlayerIDs,
	})
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ResourceType: "project",
		ResourceID:   &project.ID,
		EventType:    "project.created",
		ETag:         &project.ETag,
		Payload:      &payloadStr,
	}

	return w.LogEvent(ctx, tx, event)
}

// LogProjectUpdated logs a project update event
func (w *Writer) LogProjectUpdated(ctx context.Context, tx *sql.Tx, projectID string, etag int64, changes map[string]interface{}) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return err
	}

	payloadStr := string(payload)
	event := &domain.Event{
		ResourceType: "project",
		ResourceID:   &projectID,
		EventType:    "project.updated",
		ETag:         &etag,
		Payload:      &payloadStr,
	}

	return w.LogEvent(ctx, tx, event)
}

// getExecutor returns the appropriate executor (tx or db)
func (w *Writer) getExecutor(tx *sql.Tx) interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
} {
	if tx != nil {
		return tx
	}
	return w.db
}
