package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Limpieza periódica (cron de Lambda): dedup de exports viejo y las
// ausencias soft-deleted que ya nadie va a auditar.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _ = pool.Exec(cctx, `DELETE FROM processed_events WHERE processed_at < now() - INTERVAL '30 days';`)
	_, _ = pool.Exec(cctx, `
DELETE FROM afk_entries
WHERE is_deleted
  AND COALESCE(ended_at, created_at) < now() - INTERVAL '180 days';`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
