package service

import (
	"context"
	"errors"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/lock"
)

// AFKService es el motor de ausencias: declarar, extender, volver antes,
// cancelar y las consultas. Toda escritura por user pasa por un lock con
// clave "afk:<discordID>" para que dos declares concurrentes no se cuelen
// entre el chequeo de overlap y el insert.
type AFKService struct {
	users UserRepo
	afk   AFKRepo
	locks *lock.KeyedMutex
	now   func() time.Time
}

func NewAFKService(users UserRepo, afk AFKRepo, locks *lock.KeyedMutex) *AFKService {
	return &AFKService{
		users: users,
		afk:   afk,
		locks: locks,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type DeclareParams struct {
	DiscordID   string
	Username    string
	DisplayName string
	ClanRoleID  *string
	Start       time.Time
	End         time.Time
	Reason      string
}

// Declare registra una ventana [Start, End]. Rechaza rangos invertidos y
// cualquier solape (bordes inclusivos) con otra ventana viva del mismo user.
func (s *AFKService) Declare(ctx context.Context, p DeclareParams) (domain.AFKWindow, error) {
	if !p.End.After(p.Start) {
		return domain.AFKWindow{}, domain.ErrInvalidRange
	}

	unlock := s.locks.Lock("afk:" + p.DiscordID)
	defer unlock()

	u, err := s.users.GetOrCreate(ctx, p.DiscordID, p.Username, p.DisplayName, p.ClanRoleID)
	if err != nil {
		return domain.AFKWindow{}, err
	}

	live, err := s.afk.ListLive(ctx, u.ID)
	if err != nil {
		return domain.AFKWindow{}, err
	}
	for _, w := range live {
		if w.Overlaps(p.Start, p.End) {
			return domain.AFKWindow{}, &domain.OverlapError{Existing: w}
		}
	}

	now := s.now()
	w := domain.AFKWindow{
		UserID:    u.ID,
		StartDate: p.Start,
		EndDate:   p.End,
		Reason:    p.Reason,
		// la dejamos activa de entrada si ya arrancó; el sweep la mantiene después
		IsActive: !now.Before(p.Start) && !now.After(p.End),
	}
	return s.afk.Create(ctx, w)
}

// QuickDeclare: AFK desde ya hasta el fin del día (UTC), o hasta el fin del
// día N-1 días después si days > 1. Pasa por Declare, así que respeta overlap.
func (s *AFKService) QuickDeclare(ctx context.Context, p DeclareParams, days int) (domain.AFKWindow, error) {
	if days < 1 {
		return domain.AFKWindow{}, domain.ErrInvalidArgument
	}
	now := s.now()
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC).
		AddDate(0, 0, days-1)
	p.Start = now
	p.End = end
	return s.Declare(ctx, p)
}

// ReturnEarly cierra ventanas activas seteando ended_at = now. Con windowID
// nil cierra todas las activas del user; devuelve cuántas cerró (0 no es error:
// "no estabas AFK" lo decide la capa de arriba).
func (s *AFKService) ReturnEarly(ctx context.Context, discordID string, windowID *int64) (int64, error) {
	u, err := s.users.GetByDiscordID(ctx, discordID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	unlock := s.locks.Lock("afk:" + discordID)
	defer unlock()

	return s.afk.EndEarly(ctx, u.ID, windowID, s.now())
}

// Extend corre el fin de una ventana activa hacia adelante. Solo el dueño,
// solo ventanas activas, solo horas positivas. No re-chequea overlap contra
// ventanas futuras: extender nunca puede pisar el comienzo de otra porque
// el declare ya garantizó que la siguiente arranca después del fin actual...
// salvo que la extensión la alcance — y en ese caso preferimos dejar que el
// sweep resuelva a bloquear al user que solo quiere avisar que se demora.
func (s *AFKService) Extend(ctx context.Context, discordID string, windowID int64, hours int) (domain.AFKWindow, error) {
	if hours <= 0 {
		return domain.AFKWindow{}, domain.ErrInvalidArgument
	}

	u, err := s.users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return domain.AFKWindow{}, err
	}

	unlock := s.locks.Lock("afk:" + discordID)
	defer unlock()

	w, err := s.afk.Get(ctx, windowID)
	if err != nil {
		return domain.AFKWindow{}, err
	}
	if w.UserID != u.ID {
		return domain.AFKWindow{}, domain.ErrWrongOwner
	}
	if !w.ActiveAt(s.now()) {
		return domain.AFKWindow{}, domain.ErrAlreadyEnded
	}

	return s.afk.UpdateEnd(ctx, windowID, w.EndDate.Add(time.Duration(hours)*time.Hour))
}

// RemoveFuture borra (de verdad, no soft) una ventana que todavía no arrancó.
// Para las que ya corren está ReturnEarly.
func (s *AFKService) RemoveFuture(ctx context.Context, discordID string, windowID int64) (domain.AFKWindow, error) {
	u, err := s.users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return domain.AFKWindow{}, err
	}

	unlock := s.locks.Lock("afk:" + discordID)
	defer unlock()

	w, err := s.afk.Get(ctx, windowID)
	if err != nil {
		return domain.AFKWindow{}, err
	}
	if w.UserID != u.ID {
		return domain.AFKWindow{}, domain.ErrWrongOwner
	}
	if !w.Live() || !w.FutureAt(s.now()) {
		return domain.AFKWindow{}, domain.ErrNotFuture
	}
	if err := s.afk.DeleteHard(ctx, w.ID); err != nil {
		return domain.AFKWindow{}, err
	}
	return w, nil
}

// SoftDelete marca ventanas como borradas sin perder el registro (comando de
// admin). all=false limita a las activas ahora; windowID apunta a una sola.
// Devuelve cuántas marcó.
func (s *AFKService) SoftDelete(ctx context.Context, discordID string, all bool, windowID *int64) (int64, error) {
	u, err := s.users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.Lock("afk:" + discordID)
	defer unlock()

	return s.afk.SoftDelete(ctx, u.ID, !all, windowID, s.now())
}

// RefreshActivation es el sweep: recalcula is_active de todas las ventanas
// vivas contra el reloj. Devuelve cuántas filas cambió.
func (s *AFKService) RefreshActivation(ctx context.Context) (int64, error) {
	return s.afk.RefreshActivation(ctx, s.now())
}

// ActiveNow lista quién está AFK en este momento, opcionalmente filtrado por
// clan o por un user puntual. Doble guarda: is_active y el rango de fechas,
// así un sweep atrasado no nos hace mentir.
func (s *AFKService) ActiveNow(ctx context.Context, clanRoleID, discordID *string) ([]domain.UserWindow, error) {
	return s.afk.ActiveNow(ctx, clanRoleID, discordID, s.now())
}

// ActiveAndFuture: lo de ActiveNow más lo ya agendado.
func (s *AFKService) ActiveAndFuture(ctx context.Context, clanRoleID, discordID *string) ([]domain.UserWindow, error) {
	return s.afk.ActiveAndFuture(ctx, clanRoleID, discordID, s.now())
}

// History devuelve las últimas ventanas del user, borradas incluidas.
func (s *AFKService) History(ctx context.Context, discordID string, limit int) ([]domain.AFKWindow, error) {
	u, err := s.users.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return s.afk.History(ctx, u.ID, limit)
}

func (s *AFKService) Stats(ctx context.Context, clanRoleID *string) (domain.AFKStats, error) {
	return s.afk.Stats(ctx, clanRoleID, s.now())
}

// WasAFKAt responde si el user tenía una ventana cubriendo el instante t.
// Lo usa el export de raids para anotar ausencias justificadas.
func (s *AFKService) WasAFKAt(ctx context.Context, discordID string, t time.Time) (bool, error) {
	return s.afk.WasAFKAt(ctx, discordID, t)
}
