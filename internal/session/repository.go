package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no session exists for a call identifier.
var ErrNotFound = errors.New("call session not found")

// ErrStoreUnavailable signals the backing store could not be reached.
// Callers must treat this as benign and continue with best-effort defaults
// rather than failing the live call.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Repository provides data access for call sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `
	call_id, direction, from_number, to_number,
	customer_name, customer_phone, customer_address,
	problem_description, problem_duration, problem_onset, problem_pattern, prior_fix_attempts,
	equipment_type, equipment_brand, equipment_location, equipment_age,
	booking_attempted, booking_confirmed, booking_id, scheduled_time,
	outcome, safety_emergency, urgency,
	call_summary, user_sentiment, disconnection_reason, transcript,
	visit_counts, last_agent_state,
	status, synced, started_at, ended_at, created_at, updated_at`

// Get retrieves a session by call identifier.
func (r *Repository) Get(ctx context.Context, callID string) (*CallSession, error) {
	var s CallSession
	var visitCounts []byte

	err := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM call_sessions
		WHERE call_id = $1
	`, callID).Scan(
		&s.CallID, &s.Direction, &s.FromNumber, &s.ToNumber,
		&s.CustomerName, &s.CustomerPhone, &s.CustomerAddress,
		&s.ProblemDescription, &s.ProblemDuration, &s.ProblemOnset, &s.ProblemPattern, &s.PriorFixAttempts,
		&s.EquipmentType, &s.EquipmentBrand, &s.EquipmentLocation, &s.EquipmentAge,
		&s.BookingAttempted, &s.BookingConfirmed, &s.BookingID, &s.ScheduledTime,
		&s.Outcome, &s.SafetyEmergency, &s.Urgency,
		&s.CallSummary, &s.UserSentiment, &s.DisconnectionReason, &s.Transcript,
		&visitCounts, &s.LastAgentState,
		&s.Status, &s.Synced, &s.StartedAt, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrStoreUnavailable, callID, err)
	}

	s.VisitCounts = map[string]int{}
	if len(visitCounts) > 0 {
		if err := json.Unmarshal(visitCounts, &s.VisitCounts); err != nil {
			s.VisitCounts = map[string]int{}
		}
	}

	return &s, nil
}

// Upsert writes the full session record, merging on the call identifier so
// concurrent writers never produce duplicate rows. Applying the same upsert
// twice yields the same stored state.
func (r *Repository) Upsert(ctx context.Context, s *CallSession) error {
	s.Touch()

	visitCounts, err := json.Marshal(s.VisitCounts)
	if err != nil {
		visitCounts = []byte("{}")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO call_sessions (`+sessionColumns+`)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23,
			$24, $25, $26, $27,
			$28, $29,
			$30, $31, $32, $33, $34, $35
		)
		ON CONFLICT (call_id) DO UPDATE SET
			direction = EXCLUDED.direction,
			from_number = EXCLUDED.from_number,
			to_number = EXCLUDED.to_number,
			customer_name = EXCLUDED.customer_name,
			customer_phone = EXCLUDED.customer_phone,
			customer_address = EXCLUDED.customer_address,
			problem_description = EXCLUDED.problem_description,
			problem_duration = EXCLUDED.problem_duration,
			problem_onset = EXCLUDED.problem_onset,
			problem_pattern = EXCLUDED.problem_pattern,
			prior_fix_attempts = EXCLUDED.prior_fix_attempts,
			equipment_type = EXCLUDED.equipment_type,
			equipment_brand = EXCLUDED.equipment_brand,
			equipment_location = EXCLUDED.equipment_location,
			equipment_age = EXCLUDED.equipment_age,
			booking_attempted = EXCLUDED.booking_attempted,
			booking_confirmed = EXCLUDED.booking_confirmed,
			booking_id = EXCLUDED.booking_id,
			scheduled_time = EXCLUDED.scheduled_time,
			outcome = EXCLUDED.outcome,
			safety_emergency = EXCLUDED.safety_emergency,
			urgency = EXCLUDED.urgency,
			call_summary = EXCLUDED.call_summary,
			user_sentiment = EXCLUDED.user_sentiment,
			disconnection_reason = EXCLUDED.disconnection_reason,
			transcript = EXCLUDED.transcript,
			visit_counts = EXCLUDED.visit_counts,
			last_agent_state = EXCLUDED.last_agent_state,
			status = EXCLUDED.status,
			synced = EXCLUDED.synced,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			updated_at = EXCLUDED.updated_at
	`,
		s.CallID, s.Direction, s.FromNumber, s.ToNumber,
		s.CustomerName, s.CustomerPhone, s.CustomerAddress,
		s.ProblemDescription, s.ProblemDuration, s.ProblemOnset, s.ProblemPattern, s.PriorFixAttempts,
		s.EquipmentType, s.EquipmentBrand, s.EquipmentLocation, s.EquipmentAge,
		s.BookingAttempted, s.BookingConfirmed, s.BookingID, s.ScheduledTime,
		s.Outcome, s.SafetyEmergency, s.Urgency,
		s.CallSummary, s.UserSentiment, s.DisconnectionReason, s.Transcript,
		visitCounts, s.LastAgentState,
		s.Status, s.Synced, s.StartedAt, s.EndedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrStoreUnavailable, s.CallID, err)
	}
	return nil
}

// MarkSynced flips the synced flag without rewriting the whole record.
// Used by the deferred re-sync worker.
func (r *Repository) MarkSynced(ctx context.Context, callID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_sessions
		SET synced = true, status = $2, updated_at = now()
		WHERE call_id = $1
	`, callID, StatusSynced)
	if err != nil {
		return fmt.Errorf("%w: mark synced %s: %v", ErrStoreUnavailable, callID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnsynced returns analyzed sessions whose dashboard delivery has not
// succeeded yet, oldest first.
func (r *Repository) ListUnsynced(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT call_id
		FROM call_sessions
		WHERE status = $1 AND synced = false
		ORDER BY updated_at ASC
		LIMIT $2
	`, StatusAnalyzed, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list unsynced: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: list unsynced: %v", ErrStoreUnavailable, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindLatestByPhone returns the most recent prior session associated with
// a phone number, matching either the collected customer phone or the
// caller id. The session belonging to excludeCallID is skipped, so a
// lookup never matches the record its own call already persisted. Used by
// customer lookup to recognize repeat callers.
func (r *Repository) FindLatestByPhone(ctx context.Context, phone, excludeCallID string) (*CallSession, error) {
	if phone == "" {
		return nil, ErrNotFound
	}

	var s CallSession
	var visitCounts []byte

	err := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM call_sessions
		WHERE (customer_phone = $1 OR from_number = $1) AND call_id <> $2
		ORDER BY updated_at DESC
		LIMIT 1
	`, phone, excludeCallID).Scan(
		&s.CallID, &s.Direction, &s.FromNumber, &s.ToNumber,
		&s.CustomerName, &s.CustomerPhone, &s.CustomerAddress,
		&s.ProblemDescription, &s.ProblemDuration, &s.ProblemOnset, &s.ProblemPattern, &s.PriorFixAttempts,
		&s.EquipmentType, &s.EquipmentBrand, &s.EquipmentLocation, &s.EquipmentAge,
		&s.BookingAttempted, &s.BookingConfirmed, &s.BookingID, &s.ScheduledTime,
		&s.Outcome, &s.SafetyEmergency, &s.Urgency,
		&s.CallSummary, &s.UserSentiment, &s.DisconnectionReason, &s.Transcript,
		&visitCounts, &s.LastAgentState,
		&s.Status, &s.Synced, &s.StartedAt, &s.EndedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find by phone: %v", ErrStoreUnavailable, err)
	}

	s.VisitCounts = map[string]int{}
	if len(visitCounts) > 0 {
		if err := json.Unmarshal(visitCounts, &s.VisitCounts); err != nil {
			s.VisitCounts = map[string]int{}
		}
	}

	return &s, nil
}
