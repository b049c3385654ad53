package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
)

// Schema SQL
const schemaSequenceSQL = `CREATE SEQUENCE IF NOT EXISTS event_log_id_seq;`
const schemaTableSQL = `
CREATE TABLE IF NOT EXISTS pubmed_event_log (
    log_id          BIGINT PRIMARY KEY DEFAULT nextval('event_log_id_seq'),
    filename        VARCHAR NOT NULL,      -- archive path or partition name
    filetype        VARCHAR NOT NULL,      -- 'archive', 'chunk'
    event           VARCHAR NOT NULL,
    event_timestamp TIMESTAMP NOT NULL,
    output_path     VARCHAR,               -- partition file written, if any
    message         VARCHAR,
    duration_ms     BIGINT
);
CREATE INDEX IF NOT EXISTS idx_pubmed_event_log_file ON pubmed_event_log (filename, filetype);
CREATE INDEX IF NOT EXISTS idx_pubmed_event_log_event_time ON pubmed_event_log (event, event_timestamp);
`

// InitializeSchema creates the sequence and table in the correct order.
func InitializeSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSequenceSQL)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return fmt.Errorf("failed to execute sequence setup: %w", err)
	}
	_, err = db.Exec(schemaTableSQL)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return fmt.Errorf("failed to execute table/index setup: %w", err)
	}
	return nil
}

// LogFileEvent inserts a new event record into the log.
func LogFileEvent(ctx context.Context, db *sql.DB, filename, filetype, event, outputPath, message string, duration *time.Duration) error {
	query := `
        INSERT INTO pubmed_event_log (filename, filetype, event, event_timestamp, output_path, message, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?);
    `
	var durationMs sql.NullInt64
	if duration != nil {
		durationMs = sql.NullInt64{Int64: duration.Milliseconds(), Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		filename,
		filetype,
		event,
		time.Now().UTC(),
		sql.NullString{String: outputPath, Valid: outputPath != ""},
		sql.NullString{String: message, Valid: message != ""},
		durationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to log event '%s' for '%s': %w", event, filename, err)
	}
	return nil
}

// GetLatestFileEvent retrieves the most recent event record for a file.
func GetLatestFileEvent(ctx context.Context, db *sql.DB, filename, filetype string) (event string, timestamp time.Time, message string, found bool, err error) {
	query := `
        SELECT event, event_timestamp, message
        FROM pubmed_event_log
        WHERE filename = ? AND filetype = ?
        ORDER BY event_timestamp DESC, log_id DESC
        LIMIT 1;
    `
	var msg sql.NullString
	row := db.QueryRowContext(ctx, query, filename, filetype)
	err = row.Scan(&event, &timestamp, &msg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, "", false, nil // Not found, no error
		}
		return "", time.Time{}, "", false, fmt.Errorf("failed query latest event for '%s' (%s): %w", filename, filetype, err)
	}
	return event, timestamp, msg.String, true, nil
}

// HasEventOccurred checks if a specific event has ever happened for a file.
func HasEventOccurred(ctx context.Context, db *sql.DB, filename, filetype, event string) (bool, error) {
	query := `SELECT 1 FROM pubmed_event_log WHERE filename = ? AND filetype = ? AND event = ? LIMIT 1;`
	var exists int
	row := db.QueryRowContext(ctx, query, filename, filetype, event)
	err := row.Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed check event '%s' for '%s' (%s): %w", event, filename, filetype, err)
	}
	return true, nil
}

// EventLog adapts the DuckDB log to the pipeline's EventSink. Recording is
// best-effort: a failed insert is logged, never surfaced, so audit problems
// cannot abort a batch run.
type EventLog struct {
	conn   *sql.DB
	logger *slog.Logger
}

func NewEventLog(conn *sql.DB, logger *slog.Logger) *EventLog {
	return &EventLog{conn: conn, logger: logger}
}

func (l *EventLog) Record(ctx context.Context, filename, filetype, event, outputPath, message string, duration *time.Duration) {
	if err := LogFileEvent(ctx, l.conn, filename, filetype, event, outputPath, message, duration); err != nil {
		l.logger.Warn("Failed to record pipeline event.", slog.String("event", event), "error", err)
	}
}

// DisplayFileHistory queries and prints the event log.
func DisplayFileHistory(ctx context.Context, db *sql.DB, filetypeFilter, eventFilter string, limit int) error {
	query := `
        SELECT filename, filetype, event, event_timestamp, message, duration_ms, output_path
        FROM pubmed_event_log
    `
	conditions := []string{}
	args := []any{}
	argCounter := 1

	if filetypeFilter != "" {
		conditions = append(conditions, fmt.Sprintf("filetype = $%d", argCounter))
		args = append(args, filetypeFilter)
		argCounter++
	}
	if eventFilter != "" {
		conditions = append(conditions, fmt.Sprintf("event = $%d", argCounter))
		args = append(args, eventFilter)
		argCounter++
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY event_timestamp DESC, log_id DESC LIMIT $%d", argCounter)
	args = append(args, limit)

	fmt.Printf("--- Event Log History (Limit %d) ---\n", limit)
	fmt.Printf("%-50s | %-8s | %-15s | %-25s | %-10s | %s\n", "Filename", "Type", "Event", "Timestamp (UTC)", "DurationMS", "Message/Details")
	fmt.Println(strings.Repeat("-", 140))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query event log: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var filename, filetype, event string
		var timestamp time.Time
		var message, outputPath sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&filename, &filetype, &event, &timestamp, &message, &durationMs, &outputPath); err != nil {
			return fmt.Errorf("failed to scan event log row: %w", err)
		}

		durationStr := ""
		if durationMs.Valid {
			durationStr = fmt.Sprintf("%d", durationMs.Int64)
		}

		details := message.String
		if outputPath.Valid && outputPath.String != "" {
			details += fmt.Sprintf(" (Output: %s)", filepath.Base(outputPath.String))
		}

		fmt.Printf("%-50s | %-8s | %-15s | %-25s | %-10s | %s\n",
			filename, filetype, event, timestamp.Format(time.RFC3339), durationStr, details)
		count++
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating event log rows: %w", err)
	}
	fmt.Printf("Displayed %d records.\n", count)
	return nil
}
