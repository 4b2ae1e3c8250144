package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/timeparse"
)

// memberClanRole: primer rol de clan mapeado que tiene el member, para el
// snapshot del user. Nil si no pertenece a ninguno.
func (r *Router) memberClanRole(m *discordgo.Member) *string {
	for _, rid := range m.Roles {
		if _, ok := r.cfg.Clans[rid]; ok {
			roleID := rid
			return &roleID
		}
	}
	return nil
}

func (r *Router) declareParamsFor(ic *discordgo.InteractionCreate) service.DeclareParams {
	return service.DeclareParams{
		DiscordID:   ic.Member.User.ID,
		Username:    ic.Member.User.Username,
		DisplayName: ic.Member.Nick,
		ClanRoleID:  r.memberClanRole(ic.Member),
	}
}

func (r *Router) handleAFK(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	startDate, _ := optStr(ic, "start_date")
	endDate, _ := optStr(ic, "end_date")
	startTime, _ := optStr(ic, "start_time")
	endTime, _ := optStr(ic, "end_time")

	now := time.Now().UTC()
	start, err := parseWhen(startDate, startTime, "0000", now)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	end, err := parseWhen(endDate, endTime, "2359", now)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}

	p := r.declareParamsFor(ic)
	p.Start, p.End = start, end
	p.Reason, _ = optStr(ic, "reason")

	w, err := r.afk.Declare(ctx, p)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ AFK `#%d` registrada: %s → %s", w.ID, ts(w.StartDate), ts(w.EndDate)))
}

func (r *Router) handleAFKQuick(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	days := int64(1)
	if v, ok := optInt(ic, "days"); ok {
		days = v
	}
	p := r.declareParamsFor(ic)
	p.Reason, _ = optStr(ic, "reason")

	w, err := r.afk.QuickDeclare(ctx, p, int(days))
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ AFK `#%d` hasta %s. ¡Que descanses!", w.ID, ts(w.EndDate)))
}

func (r *Router) handleAFKReturn(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	var windowID *int64
	if v, ok := optInt(ic, "id"); ok {
		windowID = &v
	}
	n, err := r.afk.ReturnEarly(ctx, ic.Member.User.ID, windowID)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	if n == 0 {
		ReplyEphemeral(s, ic, "No tenías ausencias abiertas. ¡Pero qué bueno verte!")
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ Cerré %d ausencia(s). Bienvenido de vuelta 👋", n))
}

func (r *Router) handleAFKExtend(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	id, _ := optInt(ic, "id")
	hours, _ := optInt(ic, "hours")

	w, err := r.afk.Extend(ctx, ic.Member.User.ID, id, int(hours))
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ AFK `#%d` extendida hasta %s.", w.ID, ts(w.EndDate)))
}

func (r *Router) handleAFKCancel(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	id, _ := optInt(ic, "id")

	w, err := r.afk.RemoveFuture(ctx, ic.Member.User.ID, id)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ Cancelada la AFK `#%d` que arrancaba %s.", w.ID, ts(w.StartDate)))
}

func (r *Router) handleAFKDelete(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireAdminOrRoles(s, ic) {
		return
	}
	target, ok := optUser(s, ic, "user")
	if !ok {
		ReplyEphemeral(s, ic, "⚠️ Falta el miembro.")
		return
	}
	all, _ := optBool(ic, "all")
	var windowID *int64
	if v, ok := optInt(ic, "id"); ok {
		windowID = &v
	}

	n, err := r.afk.SoftDelete(ctx, target.ID, all, windowID)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("🗑️ Marqué %d ausencia(s) de <@%s> como borradas.", n, target.ID))
}

func (r *Router) handleAFKList(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	var clanRoleID *string
	if raw, ok := optStr(ic, "clan"); ok {
		roleID, found := r.cfg.ResolveClan(raw)
		if !found {
			ReplyEphemeral(s, ic, "⚠️ No conozco el clan `"+raw+"`.")
			return
		}
		clanRoleID = &roleID
	}
	upcoming, _ := optBool(ic, "upcoming")

	now := time.Now().UTC()
	uws, err := r.afk.ActiveNow(ctx, clanRoleID, nil)
	title := "😴 AFK ahora"
	if upcoming {
		uws, err = r.afk.ActiveAndFuture(ctx, clanRoleID, nil)
		title = "😴 AFK ahora y agendadas"
	}
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	if len(uws) == 0 {
		ReplyEphemeral(s, ic, "Nadie está AFK. 🎉")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** (%d)\n", title, len(uws))
	for _, uw := range uws {
		b.WriteString(fmtUserWindow(uw, now))
		b.WriteByte('\n')
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) handleAFKMy(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	me := ic.Member.User.ID
	uws, err := r.afk.ActiveAndFuture(ctx, nil, &me)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	if len(uws) == 0 {
		ReplyEphemeral(s, ic, "No tenés ausencias activas ni agendadas.")
		return
	}

	now := time.Now().UTC()
	var b strings.Builder
	b.WriteString("**Tus ausencias**\n")
	for _, uw := range uws {
		b.WriteString(fmtWindow(uw.Window, now))
		b.WriteByte('\n')
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) handleAFKHistory(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	targetID := ic.Member.User.ID
	if target, ok := optUser(s, ic, "user"); ok && target.ID != targetID {
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		targetID = target.ID
	}
	limit := int64(10)
	if v, ok := optInt(ic, "limit"); ok {
		limit = v
	}

	windows, err := r.afk.History(ctx, targetID, int(limit))
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	if len(windows) == 0 {
		ReplyEphemeral(s, ic, "Sin historial de ausencias.")
		return
	}

	now := time.Now().UTC()
	var b strings.Builder
	fmt.Fprintf(&b, "**Historial de <@%s>** (últimas %d)\n", targetID, len(windows))
	for _, w := range windows {
		b.WriteString(fmtWindow(w, now))
		b.WriteByte('\n')
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) handleAFKStats(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	var clanRoleID *string
	scope := "todos los clanes"
	if raw, ok := optStr(ic, "clan"); ok {
		roleID, found := r.cfg.ResolveClan(raw)
		if !found {
			ReplyEphemeral(s, ic, "⚠️ No conozco el clan `"+raw+"`.")
			return
		}
		clanRoleID = &roleID
		scope = r.cfg.ClanName(roleID)
	}

	st, err := r.afk.Stats(ctx, clanRoleID)
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf(
		"📊 **Ausencias — %s**\nTotal: %d (%d miembros)\nActivas ahora: %d\nAgendadas: %d\nDuración media: %s",
		scope, st.Total, st.UniqueUsers, st.ActiveNow, st.ScheduledFuture,
		timeparse.FormatDuration(st.AvgDuration)))
}
