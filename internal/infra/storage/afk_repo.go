package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

type AFKRepo struct{ db *sql.DB }

func NewAFKRepo(db *sql.DB) *AFKRepo { return &AFKRepo{db: db} }

const afkCols = `id, user_id, start_date, end_date, reason, is_active, is_deleted, ended_at, created_at`

func scanWindow(row interface{ Scan(...any) error }) (domain.AFKWindow, error) {
	var w domain.AFKWindow
	err := row.Scan(&w.ID, &w.UserID, &w.StartDate, &w.EndDate, &w.Reason,
		&w.IsActive, &w.IsDeleted, &w.EndedAt, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.AFKWindow{}, ErrNotFound
	}
	return w, err
}

func (r *AFKRepo) Create(ctx context.Context, w domain.AFKWindow) (domain.AFKWindow, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO afk_entries (user_id, start_date, end_date, reason, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+afkCols, w.UserID, w.StartDate, w.EndDate, w.Reason, w.IsActive)
	return scanWindow(row)
}

func (r *AFKRepo) Get(ctx context.Context, id int64) (domain.AFKWindow, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+afkCols+` FROM afk_entries WHERE id = $1 AND NOT is_deleted`, id)
	return scanWindow(row)
}

// ListLive: ventanas que cuentan para overlap (ni borradas ni ended-early).
func (r *AFKRepo) ListLive(ctx context.Context, userID int64) ([]domain.AFKWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+afkCols+`
  FROM afk_entries
 WHERE user_id = $1 AND NOT is_deleted AND ended_at IS NULL
 ORDER BY start_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWindows(rows)
}

func (r *AFKRepo) UpdateEnd(ctx context.Context, id int64, end time.Time) (domain.AFKWindow, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE afk_entries SET end_date = $2 WHERE id = $1
RETURNING `+afkCols, id, end)
	return scanWindow(row)
}

// EndEarly marca ended_at en las ventanas vivas del user. Con windowID apunta
// a una sola; sin él, a todas (el /afkreturn clásico). Devuelve filas tocadas.
func (r *AFKRepo) EndEarly(ctx context.Context, userID int64, windowID *int64, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE afk_entries
   SET ended_at = $3, is_active = FALSE
 WHERE user_id = $1
   AND NOT is_deleted AND ended_at IS NULL
   AND ($2::bigint IS NULL OR id = $2)`, userID, windowID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteHard: solo para ventanas futuras retiradas antes de activarse,
// no dejan rastro de auditoría.
func (r *AFKRepo) DeleteHard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM afk_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete: limpieza administrativa que preserva historial.
// onlyActive limita a filas con is_active; windowID apunta a una sola.
func (r *AFKRepo) SoftDelete(ctx context.Context, userID int64, onlyActive bool, windowID *int64, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE afk_entries
   SET is_deleted = TRUE,
       is_active  = FALSE,
       ended_at   = COALESCE(ended_at, $4)
 WHERE user_id = $1
   AND NOT is_deleted
   AND (NOT $2 OR is_active)
   AND ($3::bigint IS NULL OR id = $3)`, userID, onlyActive, windowID, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RefreshActivation: el sweep. Una transacción, un solo "now" de referencia,
// y solo escribe las filas cuyo cache quedó desfasado.
func (r *AFKRepo) RefreshActivation(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE afk_entries
   SET is_active = FALSE
 WHERE NOT is_deleted AND ended_at IS NOT NULL AND is_active`, // ended-early nunca activa
	)
	if err != nil {
		return 0, err
	}
	nEnded, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
UPDATE afk_entries
   SET is_active = (start_date <= $1 AND $1 <= end_date)
 WHERE NOT is_deleted AND ended_at IS NULL
   AND is_active IS DISTINCT FROM (start_date <= $1 AND $1 <= end_date)`, now)
	if err != nil {
		return 0, err
	}
	nFlipped, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return nEnded + nFlipped, nil
}

// ActiveNow: doble guarda contra la latencia del sweep — además del cache
// exigimos start<=now<=end y ended_at nulo o futuro, así una ventana cerrada
// hace segundos no reaparece en "currently AFK".
func (r *AFKRepo) ActiveNow(ctx context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+joinCols("u", userColsList)+`, `+joinCols("a", afkColsList)+`
  FROM afk_entries a
  JOIN users u ON u.id = a.user_id
 WHERE a.is_active AND NOT a.is_deleted
   AND a.start_date <= $1 AND a.end_date >= $1
   AND (a.ended_at IS NULL OR a.ended_at >= $1)
   AND ($2::text IS NULL OR u.clan_role_id = $2)
   AND ($3::text IS NULL OR u.discord_id = $3)
 ORDER BY a.end_date`, now, clanRoleID, discordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserWindows(rows)
}

// ActiveAndFuture: lo que viene — ventanas vivas que todavía no expiraron.
func (r *AFKRepo) ActiveAndFuture(ctx context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+joinCols("u", userColsList)+`, `+joinCols("a", afkColsList)+`
  FROM afk_entries a
  JOIN users u ON u.id = a.user_id
 WHERE NOT a.is_deleted AND a.ended_at IS NULL
   AND a.end_date >= $1
   AND ($2::text IS NULL OR u.clan_role_id = $2)
   AND ($3::text IS NULL OR u.discord_id = $3)
 ORDER BY a.start_date`, now, clanRoleID, discordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserWindows(rows)
}

// History: todas las entradas del user (incluye soft-deleted, es auditoría).
func (r *AFKRepo) History(ctx context.Context, userID int64, limit int) ([]domain.AFKWindow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+afkCols+`
  FROM afk_entries
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWindows(rows)
}

func (r *AFKRepo) Stats(ctx context.Context, clanRoleID *string, now time.Time) (domain.AFKStats, error) {
	var s domain.AFKStats
	var avgSeconds sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
SELECT count(*),
       count(DISTINCT a.user_id),
       count(*) FILTER (WHERE a.is_active AND a.start_date <= $1 AND a.end_date >= $1),
       count(*) FILTER (WHERE a.ended_at IS NULL AND a.start_date > $1),
       avg(EXTRACT(EPOCH FROM COALESCE(a.ended_at, a.end_date) - a.start_date))
  FROM afk_entries a
  JOIN users u ON u.id = a.user_id
 WHERE NOT a.is_deleted
   AND ($2::text IS NULL OR u.clan_role_id = $2)`, now, clanRoleID).
		Scan(&s.Total, &s.UniqueUsers, &s.ActiveNow, &s.ScheduledFuture, &avgSeconds)
	if err != nil {
		return domain.AFKStats{}, err
	}
	if avgSeconds.Valid {
		s.AvgDuration = time.Duration(avgSeconds.Float64 * float64(time.Second))
	}
	return s, nil
}

// WasAFKAt: ¿existe una ventana viva que cubra el instante t para el user?
// Consulta puntual de solo lectura para el export a sheets.
func (r *AFKRepo) WasAFKAt(ctx context.Context, discordID string, t time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1
    FROM afk_entries a
    JOIN users u ON u.id = a.user_id
   WHERE u.discord_id = $1
     AND NOT a.is_deleted
     AND a.start_date <= $2 AND a.end_date >= $2
     AND (a.ended_at IS NULL OR a.ended_at >= $2)
)`, discordID, t).Scan(&exists)
	return exists, err
}

// ---------- scan helpers ----------

var (
	userColsList = []string{"id", "discord_id", "username", "display_name", "clan_role_id", "created_at", "updated_at"}
	afkColsList  = []string{"id", "user_id", "start_date", "end_date", "reason", "is_active", "is_deleted", "ended_at", "created_at"}
)

func joinCols(alias string, cols []string) string {
	out := alias + "." + cols[0]
	for _, c := range cols[1:] {
		out += fmt.Sprintf(", %s.%s", alias, c)
	}
	return out
}

func collectWindows(rows *sql.Rows) ([]domain.AFKWindow, error) {
	var out []domain.AFKWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func collectUserWindows(rows *sql.Rows) ([]domain.UserWindow, error) {
	var out []domain.UserWindow
	for rows.Next() {
		var uw domain.UserWindow
		var displayName sql.NullString
		err := rows.Scan(
			&uw.User.ID, &uw.User.DiscordID, &uw.User.Username, &displayName,
			&uw.User.ClanRoleID, &uw.User.CreatedAt, &uw.User.UpdatedAt,
			&uw.Window.ID, &uw.Window.UserID, &uw.Window.StartDate, &uw.Window.EndDate,
			&uw.Window.Reason, &uw.Window.IsActive, &uw.Window.IsDeleted,
			&uw.Window.EndedAt, &uw.Window.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		uw.User.DisplayName = displayName.String
		out = append(out, uw)
	}
	return out, rows.Err()
}
