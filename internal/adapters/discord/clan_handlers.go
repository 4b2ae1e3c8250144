package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"
)

func (r *Router) resolveClanOpt(s *discordgo.Session, ic *discordgo.InteractionCreate, name string) (string, bool) {
	raw, ok := optStr(ic, name)
	if !ok {
		return "", false
	}
	roleID, found := r.cfg.ResolveClan(raw)
	if !found {
		ReplyEphemeral(s, ic, "⚠️ No conozco el clan `"+raw+"`.")
		return "", false
	}
	return roleID, true
}

func (r *Router) handleGetMembers(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	roleID, ok := r.resolveClanOpt(s, ic, "clan")
	if !ok {
		return
	}

	roster, err := r.GuildRoster(roleID)
	if err != nil {
		ReplyEphemeral(s, ic, "⚠️ No pude leer los miembros del rol: "+err.Error())
		return
	}

	// de paso dejamos la base al día con lo que acabamos de ver
	if _, err := r.roster.Reconcile(ctx, roleID, roster); err != nil && !errors.Is(err, service.ErrSyncInProgress) {
		ReplyEphemeral(s, ic, "⚠️ No pude sincronizar: "+err.Error())
		return
	}

	if len(roster) == 0 {
		ReplyEphemeral(s, ic, fmt.Sprintf("**%s** no tiene miembros con el rol.", r.cfg.ClanName(roleID)))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** — %d miembros\n", r.cfg.ClanName(roleID), len(roster))
	const maxLines = 50
	for i, m := range roster {
		if i == maxLines {
			fmt.Fprintf(&b, "… y %d más\n", len(roster)-maxLines)
			break
		}
		name := m.DisplayName
		if name == "" {
			name = m.Username
		}
		fmt.Fprintf(&b, "• %s (<@%s>)\n", name, m.DiscordID)
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) handleClanAdd(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireAdminOrRoles(s, ic) {
		return
	}
	roleID, ok := r.resolveClanOpt(s, ic, "clan")
	if !ok {
		return
	}
	target, ok := optUser(s, ic, "user")
	if !ok {
		ReplyEphemeral(s, ic, "⚠️ Falta el miembro.")
		return
	}

	_, err := r.roster.AddMember(ctx, roleID, domain.RosterMember{
		DiscordID: target.ID,
		Username:  target.Username,
	})
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ <@%s> agregado a **%s**.", target.ID, r.cfg.ClanName(roleID)))
}

func (r *Router) handleClanRemove(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireAdminOrRoles(s, ic) {
		return
	}
	roleID, ok := r.resolveClanOpt(s, ic, "clan")
	if !ok {
		return
	}
	target, ok := optUser(s, ic, "user")
	if !ok {
		ReplyEphemeral(s, ic, "⚠️ Falta el miembro.")
		return
	}

	if err := r.roster.RemoveMember(ctx, roleID, target.ID); err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	ReplyEphemeral(s, ic, fmt.Sprintf("✅ Cerré el tramo de <@%s> en **%s**.", target.ID, r.cfg.ClanName(roleID)))
}

func (r *Router) handleClanHistory(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	f := storage.HistoryFilter{IncludeInactive: true, Limit: 30}
	if v, ok := optBool(ic, "include_inactive"); ok {
		f.IncludeInactive = v
	}
	if raw, ok := optStr(ic, "clan"); ok {
		roleID, found := r.cfg.ResolveClan(raw)
		if !found {
			ReplyEphemeral(s, ic, "⚠️ No conozco el clan `"+raw+"`.")
			return
		}
		f.ClanRoleID = &roleID
	}
	if days, ok := optInt(ic, "days"); ok && days > 0 {
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -int(days))
		f.From, f.To = &from, &to
	}

	var (
		intervals []domain.MemberInterval
		err       error
	)
	if target, ok := optUser(s, ic, "user"); ok {
		intervals, err = r.roster.HistoryByDiscord(ctx, target.ID, f)
	} else {
		intervals, err = r.roster.History(ctx, f)
	}
	if err != nil {
		ReplyEphemeral(s, ic, friendlyError(err))
		return
	}
	if len(intervals) == 0 {
		ReplyEphemeral(s, ic, "Sin movimientos en ese rango.")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Movimientos de clan** (%d)\n", len(intervals))
	for _, mi := range intervals {
		line := fmt.Sprintf("<@%s> → **%s**: entró %s",
			mi.User.DiscordID, r.cfg.ClanName(mi.Membership.ClanRoleID), ts(mi.Membership.JoinedAt))
		if mi.Membership.LeftAt != nil {
			line += ", salió " + ts(*mi.Membership.LeftAt)
		} else {
			line += " (sigue)"
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	ReplyEphemeral(s, ic, b.String())
}

func (r *Router) handleWelcome(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	sub, ok := subcmdName(ic)
	if !ok {
		ReplyEphemeral(s, ic, "Usa `/welcome show` o `/welcome set`.")
		return
	}
	roleID, ok := r.resolveClanOpt(s, ic, "clan")
	if !ok {
		return
	}

	switch sub {
	case "show":
		wm, err := r.welcome.Get(ctx, roleID)
		if errors.Is(err, domain.ErrNotFound) {
			ReplyEphemeral(s, ic, fmt.Sprintf("**%s** no tiene mensaje de bienvenida configurado.", r.cfg.ClanName(roleID)))
			return
		}
		if err != nil {
			ReplyEphemeral(s, ic, friendlyError(err))
			return
		}
		ReplyEphemeral(s, ic, fmt.Sprintf("**Bienvenida de %s:**\n%s", r.cfg.ClanName(roleID), wm.Message))

	case "set":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		msg, _ := optStr(ic, "message")
		if strings.TrimSpace(msg) == "" {
			ReplyEphemeral(s, ic, "⚠️ El mensaje no puede estar vacío.")
			return
		}
		if err := r.welcome.Set(ctx, roleID, msg); err != nil {
			ReplyEphemeral(s, ic, friendlyError(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Bienvenida actualizada para **"+r.cfg.ClanName(roleID)+"**.")
	}
}
