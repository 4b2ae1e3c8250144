package domain

import "time"

// User: miembro de la comunidad. Se crea lazy la primera vez que lo vemos
// (comando, roster sync o API) y nunca se borra.
type User struct {
	ID          int64
	DiscordID   string
	Username    string
	DisplayName string
	ClanRoleID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AFKWindow: una ausencia declarada [StartDate, EndDate].
// IsActive es cache — lo mantiene el sweep, no un trigger.
type AFKWindow struct {
	ID        int64
	UserID    int64
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	IsActive  bool
	IsDeleted bool
	EndedAt   *time.Time // seteado una sola vez cuando el user vuelve antes
	CreatedAt time.Time
}

// Live: ni soft-delete ni ended-early. Solo estas ventanas cuentan
// para el chequeo de overlap y los listados.
func (w AFKWindow) Live() bool {
	return !w.IsDeleted && w.EndedAt == nil
}

// ActiveAt: el valor que el sweep debería dejar en IsActive en el instante t.
func (w AFKWindow) ActiveAt(t time.Time) bool {
	if w.IsDeleted || w.EndedAt != nil {
		return false
	}
	return !t.Before(w.StartDate) && !t.After(w.EndDate)
}

// Overlaps: intersección con bordes inclusivos — tocar un extremo ya es overlap.
func (w AFKWindow) Overlaps(start, end time.Time) bool {
	return !start.After(w.EndDate) && !w.StartDate.After(end)
}

// FutureAt: estrictamente futura en t (solo estas se pueden cancelar duro).
func (w AFKWindow) FutureAt(t time.Time) bool {
	return w.StartDate.After(t)
}

type WindowState string

const (
	WindowFuture     WindowState = "future"
	WindowActive     WindowState = "active"
	WindowExpired    WindowState = "expired"
	WindowEndedEarly WindowState = "ended_early"
	WindowDeleted    WindowState = "deleted"
)

// StateAt: Future → Active → Expired, con salidas a EndedEarly/Deleted.
// De Deleted y EndedEarly no se vuelve.
func (w AFKWindow) StateAt(t time.Time) WindowState {
	switch {
	case w.IsDeleted:
		return WindowDeleted
	case w.EndedAt != nil:
		return WindowEndedEarly
	case t.Before(w.StartDate):
		return WindowFuture
	case t.After(w.EndDate):
		return WindowExpired
	default:
		return WindowActive
	}
}

// ClanMembership: un tramo contiguo de pertenencia a un clan.
// Máximo un tramo activo por (user, clan); salir y volver crea filas nuevas,
// así el historial de joins/leaves queda auditable.
type ClanMembership struct {
	ID         int64
	UserID     int64
	ClanRoleID string
	JoinedAt   time.Time
	LeftAt     *time.Time
	IsActive   bool
}

// UserWindow: par user+ventana para listados (quién está AFK y por qué).
type UserWindow struct {
	User   User
	Window AFKWindow
}

// MemberInterval: par user+tramo para el historial de clan.
type MemberInterval struct {
	User       User
	Membership ClanMembership
}

// RosterMember: lo mínimo que el proveedor de roster sabe de un miembro.
type RosterMember struct {
	DiscordID   string
	Username    string
	DisplayName string
}

// AFKStats: agregados para /afkstats.
type AFKStats struct {
	Total           int
	UniqueUsers     int
	ActiveNow       int
	ScheduledFuture int
	AvgDuration     time.Duration // sobre coalesce(ended_at, end_date) - start_date
}

// RaidEvent: evento importado de RaidHelper.
type RaidEvent struct {
	ID          string
	Title       string
	Description string
	LeaderID    string
	LeaderName  string
	ChannelID   string
	ChannelName string
	StartTime   time.Time
	EndTime     *time.Time
	CloseTime   *time.Time
	LastUpdated *time.Time
	TemplateID  string
	SignupCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RaidSignup: inscripción de un user a un evento (único por event+user).
type RaidSignup struct {
	ID        int64
	EventID   string
	UserID    string
	UserName  string
	EntryTime time.Time
	Status    string // primary, bench, tentative, absence...
	ClassName string
	SpecName  string
	Position  int
}

// WelcomeMessage: template de bienvenida por clan.
type WelcomeMessage struct {
	GuildRoleID string
	Message     string
	UpdatedAt   time.Time
}
