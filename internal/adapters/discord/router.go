package discord

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/infra/config"
)

// Lo implementa internal/infra/storage.WelcomeRepo
type WelcomeStore interface {
	Get(ctx context.Context, guildRoleID string) (domain.WelcomeMessage, error)
	Set(ctx context.Context, guildRoleID, message string) error
}

type Router struct {
	s       *discordgo.Session
	guildID string
	cfg     config.Config

	afk     *service.AFKService
	roster  *service.RosterService
	welcome WelcomeStore

	adminRoleIDs []string
	limiter      *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	cfg config.Config,
	afk *service.AFKService,
	roster *service.RosterService,
	welcome WelcomeStore,
) *Router {
	return &Router{
		s:            s,
		guildID:      cfg.DiscordGuild,
		cfg:          cfg,
		afk:          afk,
		roster:       roster,
		welcome:      welcome,
		adminRoleIDs: append(append([]string{}, cfg.AdminRoleIDs...), cfg.OfficerRoleIDs...),
		limiter:      newUserLimiter(2 * time.Second),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	// Slash commands
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		log.Printf("slash: /%s by=%s guild=%s", data.Name, ic.Member.User.ID, ic.GuildID)

		if !r.limiter.Allow(ic.Member.User.ID) {
			_ = SendEphemeral(s, ic, "🐢 Tranquilo, uno por vez.")
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic in slash /%s: %v", data.Name, rec)
				ReplyEphemeral(s, ic, "⚠️ Ocurrió un error inesperado.")
			}
		}()

		_ = DeferEphemeral(s, ic)
		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()

		switch data.Name {
		case "afk":
			r.handleAFK(ctx, s, ic)
		case "afkquick":
			r.handleAFKQuick(ctx, s, ic)
		case "afkreturn":
			r.handleAFKReturn(ctx, s, ic)
		case "afkextend":
			r.handleAFKExtend(ctx, s, ic)
		case "afkcancel":
			r.handleAFKCancel(ctx, s, ic)
		case "afkdelete":
			r.handleAFKDelete(ctx, s, ic)
		case "afklist":
			r.handleAFKList(ctx, s, ic)
		case "afkmy":
			r.handleAFKMy(ctx, s, ic)
		case "afkhistory":
			r.handleAFKHistory(ctx, s, ic)
		case "afkstats":
			r.handleAFKStats(ctx, s, ic)
		case "getmembers":
			r.handleGetMembers(ctx, s, ic)
		case "clanadd":
			r.handleClanAdd(ctx, s, ic)
		case "clanremove":
			r.handleClanRemove(ctx, s, ic)
		case "clanhistory":
			r.handleClanHistory(ctx, s, ic)
		case "welcome":
			r.handleWelcome(ctx, s, ic)
		}
	})

	// MemberUpdate → si ganó un rol de clan mapeado, mandamos la bienvenida por DM
	r.s.AddHandler(func(s *discordgo.Session, mu *discordgo.GuildMemberUpdate) {
		if mu.GuildID != r.guildID || mu.BeforeUpdate == nil {
			return
		}
		before := make(map[string]bool, len(mu.BeforeUpdate.Roles))
		for _, rid := range mu.BeforeUpdate.Roles {
			before[rid] = true
		}
		for _, rid := range mu.Roles {
			if before[rid] {
				continue
			}
			if _, ok := r.cfg.Clans[rid]; !ok {
				continue
			}
			r.sendWelcome(mu.Member, rid)
		}
	})
}

func (r *Router) sendWelcome(m *discordgo.Member, clanRoleID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wm, err := r.welcome.Get(ctx, clanRoleID)
	if err != nil {
		if err != domain.ErrNotFound {
			log.Printf("welcome %s: %v", clanRoleID, err)
		}
		return
	}
	msg := strings.ReplaceAll(wm.Message, "{user}", m.Mention())
	msg = strings.ReplaceAll(msg, "{clan}", r.cfg.ClanName(clanRoleID))

	ch, err := r.s.UserChannelCreate(m.User.ID)
	if err != nil {
		log.Printf("welcome DM %s: %v", m.User.ID, err)
		return
	}
	if _, err := r.s.ChannelMessageSend(ch.ID, msg); err != nil {
		log.Printf("welcome DM %s: %v", m.User.ID, err)
	}
}

// GuildRoster junta los miembros que tienen el rol del clan, paginando la
// API de a 1000. Es la "fuente de verdad" que consume el reconcile.
func (r *Router) GuildRoster(clanRoleID string) ([]domain.RosterMember, error) {
	defer step("roster " + clanRoleID)()

	var out []domain.RosterMember
	after := ""
	for {
		members, err := r.s.GuildMembers(r.guildID, after, 1000)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return out, nil
		}
		for _, m := range members {
			for _, rid := range m.Roles {
				if rid == clanRoleID {
					out = append(out, domain.RosterMember{
						DiscordID:   m.User.ID,
						Username:    m.User.Username,
						DisplayName: m.Nick,
					})
					break
				}
			}
		}
		after = members[len(members)-1].User.ID
	}
}
