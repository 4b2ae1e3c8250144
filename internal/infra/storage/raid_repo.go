package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

type RaidRepo struct{ db *sql.DB }

func NewRaidRepo(db *sql.DB) *RaidRepo { return &RaidRepo{db: db} }

func (r *RaidRepo) UpsertEvent(ctx context.Context, e domain.RaidEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO raidhelper_events
  (id, title, description, leader_id, leader_name, channel_id, channel_name,
   start_time, end_time, close_time, last_updated, template_id, signup_count)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  title        = EXCLUDED.title,
  description  = EXCLUDED.description,
  leader_id    = EXCLUDED.leader_id,
  leader_name  = EXCLUDED.leader_name,
  channel_id   = EXCLUDED.channel_id,
  channel_name = EXCLUDED.channel_name,
  start_time   = EXCLUDED.start_time,
  end_time     = EXCLUDED.end_time,
  close_time   = EXCLUDED.close_time,
  last_updated = EXCLUDED.last_updated,
  template_id  = EXCLUDED.template_id,
  signup_count = EXCLUDED.signup_count,
  updated_at   = now()`,
		e.ID, e.Title, e.Description, e.LeaderID, e.LeaderName, e.ChannelID, e.ChannelName,
		e.StartTime, e.EndTime, e.CloseTime, e.LastUpdated, e.TemplateID, e.SignupCount)
	return err
}

// ReplaceSignups: borra y re-inserta los signups del evento en una tx.
// La API de RaidHelper manda el estado completo, no deltas.
func (r *RaidRepo) ReplaceSignups(ctx context.Context, eventID string, signups []domain.RaidSignup) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM raidhelper_signups WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, s := range signups {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO raidhelper_signups
  (event_id, user_id, user_name, entry_time, status, class_name, spec_name, position)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (event_id, user_id) DO NOTHING`,
			eventID, s.UserID, s.UserName, s.EntryTime, s.Status, s.ClassName, s.SpecName, s.Position); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RaidRepo) GetEvent(ctx context.Context, eventID string) (domain.RaidEvent, error) {
	var e domain.RaidEvent
	err := r.db.QueryRowContext(ctx, `
SELECT id, title, description, leader_id, leader_name, channel_id, channel_name,
       start_time, end_time, close_time, last_updated, template_id, signup_count,
       created_at, updated_at
  FROM raidhelper_events
 WHERE id = $1`, eventID).Scan(
		&e.ID, &e.Title, &e.Description, &e.LeaderID, &e.LeaderName, &e.ChannelID, &e.ChannelName,
		&e.StartTime, &e.EndTime, &e.CloseTime, &e.LastUpdated, &e.TemplateID, &e.SignupCount,
		&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.RaidEvent{}, ErrNotFound
	}
	return e, err
}

func (r *RaidRepo) Signups(ctx context.Context, eventID string) ([]domain.RaidSignup, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, event_id, user_id, user_name, entry_time, status, class_name, spec_name, position
  FROM raidhelper_signups
 WHERE event_id = $1
 ORDER BY position, entry_time`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RaidSignup
	for rows.Next() {
		var s domain.RaidSignup
		var class, spec sql.NullString
		var pos sql.NullInt64
		if err := rows.Scan(&s.ID, &s.EventID, &s.UserID, &s.UserName, &s.EntryTime,
			&s.Status, &class, &spec, &pos); err != nil {
			return nil, err
		}
		s.ClassName, s.SpecName, s.Position = class.String, spec.String, int(pos.Int64)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClosedUnprocessed: eventos ya cerrados que todavía no se exportaron.
func (r *RaidRepo) ClosedUnprocessed(ctx context.Context, now time.Time) ([]domain.RaidEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT e.id, e.title, e.description, e.leader_id, e.leader_name, e.channel_id, e.channel_name,
       e.start_time, e.end_time, e.close_time, e.last_updated, e.template_id, e.signup_count,
       e.created_at, e.updated_at
  FROM raidhelper_events e
 WHERE COALESCE(e.close_time, e.end_time, e.start_time) < $1
   AND NOT EXISTS (SELECT 1 FROM processed_events p WHERE p.event_id = e.id)
 ORDER BY e.start_time`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RaidEvent
	for rows.Next() {
		var e domain.RaidEvent
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.LeaderID, &e.LeaderName, &e.ChannelID, &e.ChannelName,
			&e.StartTime, &e.EndTime, &e.CloseTime, &e.LastUpdated, &e.TemplateID, &e.SignupCount,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkProcessed: idempotente — reintentar un evento ya marcado no rompe nada.
func (r *RaidRepo) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processed_events (event_id) VALUES ($1)
ON CONFLICT (event_id) DO NOTHING`, eventID)
	return err
}
