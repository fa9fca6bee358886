package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dataagent/internal/models"
)

type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, rec models.AgentCall) error {
	if rec.CallID == "" {
		rec.CallID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO agent_calls(call_id, session_id, fingerprint, query, provider, model, status, error_type, steps, latency_ms, created_at)
VALUES ($1::uuid, NULLIF($2,''), $3, $4, NULLIF($5,''), NULLIF($6,''), $7, NULLIF($8,''), $9, $10, $11)`,
		rec.CallID, rec.SessionID, rec.Fingerprint, rec.Query, rec.Provider, rec.Model, rec.Status, rec.ErrorType, rec.Steps, rec.LatencyMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert agent call: %w", err)
	}
	return nil
}

// RecordAgentCall lets the repo serve as the dispatcher's audit sink.
func (r *AuditRepo) RecordAgentCall(ctx context.Context, rec models.AgentCall) error {
	return r.Insert(ctx, rec)
}

func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]models.AgentCall, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT call_id::text, COALESCE(session_id,''), fingerprint, query, COALESCE(provider,''), COALESCE(model,''),
       status, COALESCE(error_type,''), steps, latency_ms, created_at
FROM agent_calls
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list agent calls: %w", err)
	}
	defer rows.Close()
	out := make([]models.AgentCall, 0, limit)
	for rows.Next() {
		var c models.AgentCall
		if err := rows.Scan(&c.CallID, &c.SessionID, &c.Fingerprint, &c.Query, &c.Provider, &c.Model,
			&c.Status, &c.ErrorType, &c.Steps, &c.LatencyMS, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
