package storage

import (
	"context"
	"database/sql"

	pq "github.com/lib/pq"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// ErrNotFound es el sentinel del dominio; los repos lo devuelven tal cual
// para que los services no dependan de esta capa para compararlo.
var ErrNotFound = domain.ErrNotFound

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, discord_id, username, display_name, clan_role_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var displayName sql.NullString
	err := row.Scan(&u.ID, &u.DiscordID, &u.Username, &displayName, &u.ClanRoleID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.DisplayName = displayName.String
	return u, nil
}

// GetOrCreate: upsert por discord_id. Si el user ya existe refresca nombre,
// display name y clan; upstream (Discord) es la fuente de verdad de esos campos.
func (r *UserRepo) GetOrCreate(ctx context.Context, discordID, username, displayName string, clanRoleID *string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO users (discord_id, username, display_name, clan_role_id)
VALUES ($1, $2, NULLIF($3,''), $4)
ON CONFLICT (discord_id) DO UPDATE SET
  username     = EXCLUDED.username,
  display_name = EXCLUDED.display_name,
  clan_role_id = COALESCE(EXCLUDED.clan_role_id, users.clan_role_id),
  updated_at   = now()
RETURNING `+userCols, discordID, username, displayName, clanRoleID)
	return scanUser(row)
}

func (r *UserRepo) GetByDiscordID(ctx context.Context, discordID string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userCols+` FROM users WHERE discord_id = $1`, discordID)
	return scanUser(row)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepo) ListByClan(ctx context.Context, clanRoleID string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userCols+`
  FROM users
 WHERE clan_role_id = $1
 ORDER BY lower(username)`, clanRoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// FindByDiscordIDs: mapa discord_id -> user, para anotar exports en batch.
func (r *UserRepo) FindByDiscordIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := map[string]domain.User{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userCols+`
  FROM users
 WHERE discord_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out[u.DiscordID] = u
	}
	return out, rows.Err()
}
