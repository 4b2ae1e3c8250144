package service

import (
	"context"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.UserRepo
type UserRepo interface {
	GetOrCreate(ctx context.Context, discordID, username, displayName string, clanRoleID *string) (domain.User, error)
	GetByDiscordID(ctx context.Context, discordID string) (domain.User, error)
	ListByClan(ctx context.Context, clanRoleID string) ([]domain.User, error)
	FindByDiscordIDs(ctx context.Context, discordIDs []string) (map[string]domain.User, error)
}

// Lo implementa internal/infra/storage.AFKRepo
type AFKRepo interface {
	Create(ctx context.Context, w domain.AFKWindow) (domain.AFKWindow, error)
	Get(ctx context.Context, id int64) (domain.AFKWindow, error)
	ListLive(ctx context.Context, userID int64) ([]domain.AFKWindow, error)
	UpdateEnd(ctx context.Context, id int64, end time.Time) (domain.AFKWindow, error)
	EndEarly(ctx context.Context, userID int64, windowID *int64, now time.Time) (int64, error)
	DeleteHard(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, userID int64, onlyActive bool, windowID *int64, now time.Time) (int64, error)
	RefreshActivation(ctx context.Context, now time.Time) (int64, error)
	ActiveNow(ctx context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error)
	ActiveAndFuture(ctx context.Context, clanRoleID, discordID *string, now time.Time) ([]domain.UserWindow, error)
	History(ctx context.Context, userID int64, limit int) ([]domain.AFKWindow, error)
	Stats(ctx context.Context, clanRoleID *string, now time.Time) (domain.AFKStats, error)
	WasAFKAt(ctx context.Context, discordID string, at time.Time) (bool, error)
}

// Lo implementa internal/infra/storage.MembershipRepo
type MembershipRepo interface {
	ActiveByClan(ctx context.Context, clanRoleID string) (map[string]domain.ClanMembership, error)
	ApplyRosterDiff(ctx context.Context, clanRoleID string, joined []domain.RosterMember, leftUserIDs []int64, now time.Time) error
	Open(ctx context.Context, userID int64, clanRoleID string, now time.Time) (domain.ClanMembership, error)
	Close(ctx context.Context, userID int64, clanRoleID string, now time.Time) (bool, error)
	History(ctx context.Context, f storage.HistoryFilter) ([]domain.MemberInterval, error)
}

// Lo implementa internal/infra/storage.RaidRepo
type RaidRepo interface {
	UpsertEvent(ctx context.Context, ev domain.RaidEvent) error
	ReplaceSignups(ctx context.Context, eventID string, sgs []domain.RaidSignup) error
	GetEvent(ctx context.Context, eventID string) (domain.RaidEvent, error)
	Signups(ctx context.Context, eventID string) ([]domain.RaidSignup, error)
	ClosedUnprocessed(ctx context.Context, now time.Time) ([]domain.RaidEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Lo implementa internal/adapters/raidhelper.Client
type RaidHelperAPI interface {
	FetchServerEvents(ctx context.Context) ([]domain.RaidEvent, error)
	FetchEventDetails(ctx context.Context, eventID string) (domain.RaidEvent, []domain.RaidSignup, error)
}

// Fila ya resuelta (clan + estado AFK) lista para exportar.
type ExportRow struct {
	Signup   domain.RaidSignup
	ClanName string
	WasAFK   bool
}

// Lo implementa internal/adapters/sheets.Exporter
type RosterExporter interface {
	ExportEvent(ctx context.Context, ev domain.RaidEvent, rows []ExportRow) error
}
