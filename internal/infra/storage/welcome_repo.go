package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

type WelcomeRepo struct{ db *sql.DB }

func NewWelcomeRepo(db *sql.DB) *WelcomeRepo { return &WelcomeRepo{db: db} }

func (r *WelcomeRepo) Get(ctx context.Context, guildRoleID string) (domain.WelcomeMessage, error) {
	var m domain.WelcomeMessage
	err := r.db.QueryRowContext(ctx, `
SELECT guild_role_id, message, updated_at
  FROM guild_welcome_messages
 WHERE guild_role_id = $1`, guildRoleID).Scan(&m.GuildRoleID, &m.Message, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.WelcomeMessage{}, ErrNotFound
	}
	return m, err
}

func (r *WelcomeRepo) Set(ctx context.Context, guildRoleID, message string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_welcome_messages (guild_role_id, message)
VALUES ($1, $2)
ON CONFLICT (guild_role_id) DO UPDATE SET
  message    = EXCLUDED.message,
  updated_at = now()`, guildRoleID, message)
	return err
}
