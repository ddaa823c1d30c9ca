package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/google/uuid"
)

// Compile-time check that AuditService implements railinspect.AuditService.
var _ railinspect.AuditService = (*AuditService)(nil)

// AuditService implements railinspect.AuditService using PostgreSQL.
type AuditService struct {
	db *DB
}

func (s *AuditService) RecordAudit(ctx context.Context, entry *railinspect.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return railinspect.Internal("Failed to encode audit details", err)
	}

	_, err = s.db.pool.Exec(ctx, `
		INSERT INTO audit_log (
			id, actor_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		detailsJSON, entry.IPAddress, entry.UserAgent, entry.RequestID, entry.CreatedAt)
	if err != nil {
		return wrapError(err, "", "Failed to record audit entry")
	}
	return nil
}

func (s *AuditService) FindAuditEntries(ctx context.Context, filter railinspect.AuditFilter) ([]*railinspect.AuditEntry, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.ResourceID != nil {
		add("resource_id = $%d", *filter.ResourceID)
	}
	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}

	query := `
		SELECT id, actor_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, created_at
		FROM audit_log`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err, "", "Failed to list audit entries")
	}
	defer rows.Close()

	var entries []*railinspect.AuditEntry
	for rows.Next() {
		var (
			e       railinspect.AuditEntry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID,
			&details, &e.IPAddress, &e.UserAgent, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, wrapError(err, "", "Failed to read audit entry")
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, railinspect.Internal("Failed to decode audit details", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "", "Failed to list audit entries")
	}
	return entries, nil
}

func (s *AuditService) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, wrapError(err, "", "Failed to prune audit log")
	}
	return tag.RowsAffected(), nil
}
