package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pq "github.com/lib/pq"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// ErrDuplicateActive: ya hay un tramo activo para ese (user, clan).
// Lo garantiza el índice único parcial, no solo el chequeo previo del service.
var ErrDuplicateActive = errors.New("active membership interval already exists")

type MembershipRepo struct{ db *sql.DB }

func NewMembershipRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db} }

const membershipCols = `id, user_id, clan_role_id, joined_at, left_at, is_active`

func scanMembership(row interface{ Scan(...any) error }) (domain.ClanMembership, error) {
	var m domain.ClanMembership
	err := row.Scan(&m.ID, &m.UserID, &m.ClanRoleID, &m.JoinedAt, &m.LeftAt, &m.IsActive)
	if err == sql.ErrNoRows {
		return domain.ClanMembership{}, ErrNotFound
	}
	return m, err
}

var activeByClanSQL = `
SELECT u.discord_id, ` + joinCols("m", membershipColsList) + `
  FROM clan_memberships m
  JOIN users u ON u.id = m.user_id
 WHERE m.clan_role_id = $1 AND m.is_active`

// ActiveByClan: tramos activos del clan, indexados por discord_id — la clave
// con la que la reconciliación diffea contra el snapshot del roster.
func (r *MembershipRepo) ActiveByClan(ctx context.Context, clanRoleID string) (map[string]domain.ClanMembership, error) {
	rows, err := r.db.QueryContext(ctx, activeByClanSQL, clanRoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]domain.ClanMembership{}
	for rows.Next() {
		var discordID string
		var m domain.ClanMembership
		if err := rows.Scan(&discordID, &m.ID, &m.UserID, &m.ClanRoleID, &m.JoinedAt, &m.LeftAt, &m.IsActive); err != nil {
			return nil, err
		}
		out[discordID] = m
	}
	return out, rows.Err()
}

// ApplyRosterDiff aplica todos los joins y leaves de una pasada de
// reconciliación en una sola transacción: o entra todo o no entra nada.
// Los joiners se crean lazy en users si hace falta.
func (r *MembershipRepo) ApplyRosterDiff(ctx context.Context, clanRoleID string, joined []domain.RosterMember, leftUserIDs []int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range joined {
		var userID int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO users (discord_id, username, display_name, clan_role_id)
VALUES ($1, $2, NULLIF($3,''), $4)
ON CONFLICT (discord_id) DO UPDATE SET
  username     = EXCLUDED.username,
  display_name = EXCLUDED.display_name,
  clan_role_id = COALESCE(EXCLUDED.clan_role_id, users.clan_role_id),
  updated_at   = now()
RETURNING id`, m.DiscordID, m.Username, m.DisplayName, clanRoleID).Scan(&userID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO clan_memberships (user_id, clan_role_id, joined_at, is_active)
VALUES ($1, $2, $3, TRUE)`, userID, clanRoleID, now); err != nil {
			return translateDuplicate(err)
		}
	}

	if len(leftUserIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
UPDATE clan_memberships
   SET is_active = FALSE, left_at = $3
 WHERE clan_role_id = $1 AND is_active AND user_id = ANY($2)`,
			clanRoleID, pq.Array(leftUserIDs), now); err != nil {
			return err
		}
		// el clan_role_id cacheado en users deja de valer para los que se fueron
		if _, err := tx.ExecContext(ctx, `
UPDATE users SET clan_role_id = NULL, updated_at = now()
 WHERE id = ANY($1) AND clan_role_id = $2`, pq.Array(leftUserIDs), clanRoleID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Open abre un tramo nuevo. El índice único parcial convierte el doble-add
// en ErrDuplicateActive en vez de un merge silencioso.
func (r *MembershipRepo) Open(ctx context.Context, userID int64, clanRoleID string, now time.Time) (domain.ClanMembership, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO clan_memberships (user_id, clan_role_id, joined_at, is_active)
VALUES ($1, $2, $3, TRUE)
RETURNING `+membershipCols, userID, clanRoleID, now)
	m, err := scanMembership(row)
	if err != nil {
		return domain.ClanMembership{}, translateDuplicate(err)
	}
	return m, nil
}

// Close cierra el tramo activo; false si no había ninguno.
func (r *MembershipRepo) Close(ctx context.Context, userID int64, clanRoleID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE clan_memberships
   SET is_active = FALSE, left_at = $3
 WHERE user_id = $1 AND clan_role_id = $2 AND is_active`, userID, clanRoleID, now)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// HistoryFilter: filtros opcionales del historial. El rango matchea tramos
// cuyo joined_at O left_at cae dentro — "movimientos recientes del clan".
type HistoryFilter struct {
	UserID          *int64
	ClanRoleID      *string
	From, To        *time.Time
	IncludeInactive bool
	Limit           int
}

func (r *MembershipRepo) History(ctx context.Context, f HistoryFilter) ([]domain.MemberInterval, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+joinCols("u", userColsList)+`, `+joinCols("m", membershipColsList)+`
  FROM clan_memberships m
  JOIN users u ON u.id = m.user_id
 WHERE ($1::bigint IS NULL OR m.user_id = $1)
   AND ($2::text IS NULL OR m.clan_role_id = $2)
   AND ($5 OR m.is_active)
   AND ($3::timestamptz IS NULL OR
        (m.joined_at BETWEEN $3 AND $4) OR
        (m.left_at IS NOT NULL AND m.left_at BETWEEN $3 AND $4))
 ORDER BY m.joined_at DESC
 LIMIT $6`, f.UserID, f.ClanRoleID, f.From, f.To, f.IncludeInactive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MemberInterval
	for rows.Next() {
		var mi domain.MemberInterval
		var displayName sql.NullString
		err := rows.Scan(
			&mi.User.ID, &mi.User.DiscordID, &mi.User.Username, &displayName,
			&mi.User.ClanRoleID, &mi.User.CreatedAt, &mi.User.UpdatedAt,
			&mi.Membership.ID, &mi.Membership.UserID, &mi.Membership.ClanRoleID,
			&mi.Membership.JoinedAt, &mi.Membership.LeftAt, &mi.Membership.IsActive,
		)
		if err != nil {
			return nil, err
		}
		mi.User.DisplayName = displayName.String
		out = append(out, mi)
	}
	return out, rows.Err()
}

var membershipColsList = []string{"id", "user_id", "clan_role_id", "joined_at", "left_at", "is_active"}

func translateDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateActive
	}
	return err
}
