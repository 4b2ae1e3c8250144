package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/lock"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"
)

// ErrSyncInProgress: ya hay un reconcile corriendo para ese clan. El ticker
// lo trata como skip, no como falla.
var ErrSyncInProgress = errors.New("roster sync already in progress for this clan")

// RosterService mantiene la membresía de cada clan sincronizada con el
// roster real (los roles de Discord) y guarda los tramos join/leave para
// el historial. Un reconcile por clan a la vez, vía TryLock.
type RosterService struct {
	users   UserRepo
	members MembershipRepo
	clans   map[string]string // roleID -> nombre
	locks   *lock.KeyedMutex
	now     func() time.Time
}

func NewRosterService(users UserRepo, members MembershipRepo, clans map[string]string, locks *lock.KeyedMutex) *RosterService {
	return &RosterService{
		users:   users,
		members: members,
		clans:   clans,
		locks:   locks,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ReconcileResult: qué cambió en una pasada. Vacío las dos listas = no-op.
type ReconcileResult struct {
	Joined []domain.RosterMember
	Left   []string // discord IDs
}

// Reconcile compara el roster observado contra los tramos activos y aplica
// el diff en una sola transacción: abre tramos para los nuevos, cierra los
// de los que se fueron. Idempotente: con el mismo roster dos veces seguidas
// la segunda no toca nada.
func (s *RosterService) Reconcile(ctx context.Context, clanRoleID string, roster []domain.RosterMember) (ReconcileResult, error) {
	if _, ok := s.clans[clanRoleID]; !ok {
		return ReconcileResult{}, fmt.Errorf("clan desconocido: %s", clanRoleID)
	}

	unlock, ok := s.locks.TryLock("clan:" + clanRoleID)
	if !ok {
		return ReconcileResult{}, ErrSyncInProgress
	}
	defer unlock()

	active, err := s.members.ActiveByClan(ctx, clanRoleID)
	if err != nil {
		return ReconcileResult{}, err
	}

	seen := make(map[string]bool, len(roster))
	var joined []domain.RosterMember
	for _, m := range roster {
		if seen[m.DiscordID] {
			continue // roster con duplicados no nos rompe el diff
		}
		seen[m.DiscordID] = true
		if _, ok := active[m.DiscordID]; !ok {
			joined = append(joined, m)
		}
	}

	var leftIDs []int64
	var leftDiscord []string
	for discordID, ms := range active {
		if !seen[discordID] {
			leftIDs = append(leftIDs, ms.UserID)
			leftDiscord = append(leftDiscord, discordID)
		}
	}
	sort.Strings(leftDiscord)

	if len(joined) == 0 && len(leftIDs) == 0 {
		return ReconcileResult{}, nil
	}

	if err := s.members.ApplyRosterDiff(ctx, clanRoleID, joined, leftIDs, s.now()); err != nil {
		return ReconcileResult{}, err
	}
	return ReconcileResult{Joined: joined, Left: leftDiscord}, nil
}

// AddMember abre un tramo a mano (comando de admin). Estricto: si ya hay
// tramo activo en ese clan devuelve ErrAlreadyMember, no hace upsert.
func (s *RosterService) AddMember(ctx context.Context, clanRoleID string, m domain.RosterMember) (domain.ClanMembership, error) {
	if _, ok := s.clans[clanRoleID]; !ok {
		return domain.ClanMembership{}, fmt.Errorf("clan desconocido: %s", clanRoleID)
	}

	unlock := s.locks.Lock("clan:" + clanRoleID)
	defer unlock()

	u, err := s.users.GetOrCreate(ctx, m.DiscordID, m.Username, m.DisplayName, &clanRoleID)
	if err != nil {
		return domain.ClanMembership{}, err
	}

	ms, err := s.members.Open(ctx, u.ID, clanRoleID, s.now())
	if errors.Is(err, storage.ErrDuplicateActive) {
		return domain.ClanMembership{}, domain.ErrAlreadyMember
	}
	return ms, err
}

// RemoveMember cierra el tramo activo a mano. Estricto: sin tramo activo
// devuelve ErrNotMember.
func (s *RosterService) RemoveMember(ctx context.Context, clanRoleID, discordID string) error {
	unlock := s.locks.Lock("clan:" + clanRoleID)
	defer unlock()

	u, err := s.users.GetByDiscordID(ctx, discordID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotMember
	}
	if err != nil {
		return err
	}

	closed, err := s.members.Close(ctx, u.ID, clanRoleID, s.now())
	if err != nil {
		return err
	}
	if !closed {
		return domain.ErrNotMember
	}
	return nil
}

// History devuelve tramos (con su user) que tocan el rango pedido.
func (s *RosterService) History(ctx context.Context, f storage.HistoryFilter) ([]domain.MemberInterval, error) {
	return s.members.History(ctx, f)
}

// HistoryByDiscord: igual que History pero filtrando por discord ID, que es
// lo único que la capa de presentación conoce. User desconocido = historial
// vacío, no error.
func (s *RosterService) HistoryByDiscord(ctx context.Context, discordID string, f storage.HistoryFilter) ([]domain.MemberInterval, error) {
	u, err := s.users.GetByDiscordID(ctx, discordID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.UserID = &u.ID
	return s.members.History(ctx, f)
}

// ClanName resuelve el nombre legible de un role ID configurado.
func (s *RosterService) ClanName(roleID string) string {
	if n, ok := s.clans[roleID]; ok {
		return n
	}
	return roleID
}
