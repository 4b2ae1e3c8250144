package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// AFKChecker: lo único que el pipeline de raids necesita saber de AFK.
type AFKChecker interface {
	WasAFKAt(ctx context.Context, discordID string, t time.Time) (bool, error)
}

// RaidService importa eventos de RaidHelper y, cuando cierran, arma el
// export con clan y estado AFK de cada inscripto.
type RaidService struct {
	api      RaidHelperAPI
	raids    RaidRepo
	users    UserRepo
	afk      AFKChecker
	exporter RosterExporter
	clans    map[string]string
	now      func() time.Time
}

func NewRaidService(api RaidHelperAPI, raids RaidRepo, users UserRepo, afk AFKChecker, exporter RosterExporter, clans map[string]string) *RaidService {
	return &RaidService{
		api:      api,
		raids:    raids,
		users:    users,
		afk:      afk,
		exporter: exporter,
		clans:    clans,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyncActiveEvents trae los eventos publicados del server y refresca evento
// y signups en la base. Un evento que falla no frena a los demás.
func (s *RaidService) SyncActiveEvents(ctx context.Context) (int, error) {
	events, err := s.api.FetchServerEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("listar eventos: %w", err)
	}

	synced := 0
	for _, ev := range events {
		detail, signups, err := s.api.FetchEventDetails(ctx, ev.ID)
		if err != nil {
			log.Printf("⚠️ raid %s: detalle falló: %v", ev.ID, err)
			continue
		}
		if err := s.raids.UpsertEvent(ctx, detail); err != nil {
			log.Printf("⚠️ raid %s: upsert falló: %v", ev.ID, err)
			continue
		}
		if err := s.raids.ReplaceSignups(ctx, detail.ID, signups); err != nil {
			log.Printf("⚠️ raid %s: signups fallaron: %v", ev.ID, err)
			continue
		}
		synced++
	}
	return synced, nil
}

// ProcessClosedEvents exporta los eventos ya cerrados que todavía no se
// procesaron. Cada fila sale anotada con el clan del user y si tenía una
// ventana AFK cubriendo el inicio del evento (ausencia justificada).
func (s *RaidService) ProcessClosedEvents(ctx context.Context) (int, error) {
	closed, err := s.raids.ClosedUnprocessed(ctx, s.now())
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, ev := range closed {
		if err := s.exportEvent(ctx, ev); err != nil {
			log.Printf("⚠️ raid %s: export falló: %v", ev.ID, err)
			continue
		}
		if err := s.raids.MarkProcessed(ctx, ev.ID); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (s *RaidService) exportEvent(ctx context.Context, ev domain.RaidEvent) error {
	signups, err := s.raids.Signups(ctx, ev.ID)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(signups))
	for _, sg := range signups {
		ids = append(ids, sg.UserID)
	}
	byDiscord, err := s.users.FindByDiscordIDs(ctx, ids)
	if err != nil {
		return err
	}

	rows := make([]ExportRow, 0, len(signups))
	for _, sg := range signups {
		row := ExportRow{Signup: sg}
		if u, ok := byDiscord[sg.UserID]; ok && u.ClanRoleID != nil {
			if name, ok := s.clans[*u.ClanRoleID]; ok {
				row.ClanName = name
			}
		}
		wasAFK, err := s.afk.WasAFKAt(ctx, sg.UserID, ev.StartTime)
		if err != nil {
			return err
		}
		row.WasAFK = wasAFK
		rows = append(rows, row)
	}

	return s.exporter.ExportEvent(ctx, ev, rows)
}
