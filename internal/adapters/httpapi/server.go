package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/config"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"
)

// Server espeja por HTTP lo que los comandos hacen en Discord, para que
// otras herramientas de la comunidad consulten sin pasar por el bot.
type Server struct {
	afk    *service.AFKService
	roster *service.RosterService
	cfg    config.Config
}

func New(cfg config.Config, afk *service.AFKService, roster *service.RosterService) *Server {
	return &Server{afk: afk, roster: roster, cfg: cfg}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/afk", s.listAFK)
		r.Post("/afk", s.createAFK)
		r.Get("/afk/{discordID}", s.afkHistory)
		r.Get("/afk/{discordID}/active", s.afkActiveAt)

		r.Get("/clan/{roleID}/members", s.clanMembers)
		r.Get("/clan/{roleID}/history", s.clanHistory)
	})
	return r
}

// auth: bearer token plano con comparación constant-time. Sin token
// configurado la API queda cerrada.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			httpError(w, http.StatusServiceUnavailable, "api disabled")
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.APIToken)) != 1 {
			httpError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------- AFK ----------

type windowDTO struct {
	ID        int64      `json:"id"`
	DiscordID string     `json:"discord_id,omitempty"`
	Username  string     `json:"username,omitempty"`
	Start     time.Time  `json:"start_date"`
	End       time.Time  `json:"end_date"`
	Reason    string     `json:"reason,omitempty"`
	State     string     `json:"state"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func toWindowDTO(w domain.AFKWindow, now time.Time) windowDTO {
	return windowDTO{
		ID:      w.ID,
		Start:   w.StartDate,
		End:     w.EndDate,
		Reason:  w.Reason,
		State:   string(w.StateAt(now)),
		EndedAt: w.EndedAt,
	}
}

func (s *Server) listAFK(w http.ResponseWriter, r *http.Request) {
	var clanRoleID *string
	if raw := r.URL.Query().Get("clan"); raw != "" {
		roleID, ok := s.cfg.ResolveClan(raw)
		if !ok {
			httpError(w, http.StatusBadRequest, "unknown clan")
			return
		}
		clanRoleID = &roleID
	}

	var (
		uws []domain.UserWindow
		err error
	)
	if r.URL.Query().Get("upcoming") == "true" {
		uws, err = s.afk.ActiveAndFuture(r.Context(), clanRoleID, nil)
	} else {
		uws, err = s.afk.ActiveNow(r.Context(), clanRoleID, nil)
	}
	if err != nil {
		writeErr(w, err)
		return
	}

	now := time.Now().UTC()
	out := make([]windowDTO, 0, len(uws))
	for _, uw := range uws {
		dto := toWindowDTO(uw.Window, now)
		dto.DiscordID = uw.User.DiscordID
		dto.Username = uw.User.Username
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type createAFKReq struct {
	DiscordID string    `json:"discord_id"`
	Username  string    `json:"username"`
	Start     time.Time `json:"start_date"`
	End       time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

func (s *Server) createAFK(w http.ResponseWriter, r *http.Request) {
	var req createAFKReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DiscordID == "" {
		httpError(w, http.StatusBadRequest, "discord_id required")
		return
	}

	win, err := s.afk.Declare(r.Context(), service.DeclareParams{
		DiscordID: req.DiscordID,
		Username:  req.Username,
		Start:     req.Start.UTC(),
		End:       req.End.UTC(),
		Reason:    req.Reason,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	dto := toWindowDTO(win, time.Now().UTC())
	dto.DiscordID = req.DiscordID
	writeJSON(w, http.StatusCreated, dto)
}

func (s *Server) afkHistory(w http.ResponseWriter, r *http.Request) {
	discordID := chi.URLParam(r, "discordID")
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	windows, err := s.afk.History(r.Context(), discordID, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	now := time.Now().UTC()
	out := make([]windowDTO, 0, len(windows))
	for _, win := range windows {
		out = append(out, toWindowDTO(win, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) afkActiveAt(w http.ResponseWriter, r *http.Request) {
	discordID := chi.URLParam(r, "discordID")
	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, "at must be RFC3339")
			return
		}
		at = t.UTC()
	}

	afk, err := s.afk.WasAFKAt(r.Context(), discordID, at)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"discord_id": discordID,
		"at":         at,
		"afk":        afk,
	})
}

// ---------- clanes ----------

type intervalDTO struct {
	DiscordID string     `json:"discord_id"`
	Username  string     `json:"username"`
	ClanRole  string     `json:"clan_role_id"`
	ClanName  string     `json:"clan_name"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
	Active    bool       `json:"is_active"`
}

func (s *Server) toIntervalDTO(mi domain.MemberInterval) intervalDTO {
	return intervalDTO{
		DiscordID: mi.User.DiscordID,
		Username:  mi.User.Username,
		ClanRole:  mi.Membership.ClanRoleID,
		ClanName:  s.cfg.ClanName(mi.Membership.ClanRoleID),
		JoinedAt:  mi.Membership.JoinedAt,
		LeftAt:    mi.Membership.LeftAt,
		Active:    mi.Membership.IsActive,
	}
}

func (s *Server) clanMembers(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if _, ok := s.cfg.Clans[roleID]; !ok {
		httpError(w, http.StatusNotFound, "unknown clan")
		return
	}

	intervals, err := s.roster.History(r.Context(), storage.HistoryFilter{
		ClanRoleID: &roleID, IncludeInactive: false, Limit: 500,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]intervalDTO, 0, len(intervals))
	for _, mi := range intervals {
		out = append(out, s.toIntervalDTO(mi))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) clanHistory(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if _, ok := s.cfg.Clans[roleID]; !ok {
		httpError(w, http.StatusNotFound, "unknown clan")
		return
	}

	f := storage.HistoryFilter{ClanRoleID: &roleID, IncludeInactive: true, Limit: 200}
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		f.From = &t
		to := time.Now().UTC()
		if rawTo := q.Get("to"); rawTo != "" {
			if to, err = time.Parse(time.RFC3339, rawTo); err != nil {
				httpError(w, http.StatusBadRequest, "to must be RFC3339")
				return
			}
		}
		f.To = &to
	}

	var (
		intervals []domain.MemberInterval
		err       error
	)
	if discordID := q.Get("discord_id"); discordID != "" {
		intervals, err = s.roster.HistoryByDiscord(r.Context(), discordID, f)
	} else {
		intervals, err = s.roster.History(r.Context(), f)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]intervalDTO, 0, len(intervals))
	for _, mi := range intervals {
		out = append(out, s.toIntervalDTO(mi))
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------- plumbing ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr mapea la taxonomía del core a códigos HTTP.
func writeErr(w http.ResponseWriter, err error) {
	var overlap *domain.OverlapError
	if errors.As(err, &overlap) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":       "overlapping window",
			"existing_id": overlap.Existing.ID,
			"start_date":  overlap.Existing.StartDate,
			"end_date":    overlap.Existing.EndDate,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		httpError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrInvalidArgument):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyMember):
		httpError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotMember), errors.Is(err, domain.ErrNotFuture),
		errors.Is(err, domain.ErrAlreadyEnded), errors.Is(err, domain.ErrWrongOwner):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("httpapi: %v", err)
		httpError(w, http.StatusInternalServerError, "internal error")
	}
}
