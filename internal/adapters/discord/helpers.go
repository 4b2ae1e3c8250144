package discord

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
	"github.com/jose-valero/clan-ops-bot/internal/timeparse"
)

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
		// subcommand
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionString {
					return so.StringValue(), true
				}
			}
		}
	}
	return "", false
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return false, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionBoolean {
			return o.BoolValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionBoolean {
					return so.BoolValue(), true
				}
			}
		}
	}
	return false, false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int64, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return 0, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return o.IntValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionInteger {
					return so.IntValue(), true
				}
			}
		}
	}
	return 0, false
}

func optUser(s *discordgo.Session, ic *discordgo.InteractionCreate, name string) (*discordgo.User, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionUser {
			return o.UserValue(s), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionUser {
					return so.UserValue(s), true
				}
			}
		}
	}
	return nil, false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// ---------- formato ----------

func ts(t time.Time) string {
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

func stateBadge(st domain.WindowState) string {
	switch st {
	case domain.WindowActive:
		return "🟢"
	case domain.WindowFuture:
		return "🕒"
	case domain.WindowEndedEarly:
		return "↩️"
	case domain.WindowDeleted:
		return "🗑️"
	default:
		return "⚪"
	}
}

func fmtWindow(w domain.AFKWindow, now time.Time) string {
	line := fmt.Sprintf("%s `#%d` %s → %s", stateBadge(w.StateAt(now)), w.ID, ts(w.StartDate), ts(w.EndDate))
	if w.Reason != "" {
		line += " — " + w.Reason
	}
	if w.EndedAt != nil {
		line += fmt.Sprintf(" (volvió %s)", ts(*w.EndedAt))
	}
	return line
}

func fmtUserWindow(uw domain.UserWindow, now time.Time) string {
	name := uw.User.DisplayName
	if name == "" {
		name = uw.User.Username
	}
	return fmt.Sprintf("<@%s> (%s) %s", uw.User.DiscordID, name, fmtWindow(uw.Window, now))
}

// friendlyError traduce los errores tipados del core a algo que un humano
// quiere leer en Discord. Lo inesperado sale genérico y queda en el log.
func friendlyError(err error) string {
	var overlap *domain.OverlapError
	if errors.As(err, &overlap) {
		return fmt.Sprintf("⚠️ Ya tenés una ausencia que pisa ese rango: `#%d` %s → %s. Extendé o cancelá esa.",
			overlap.Existing.ID, ts(overlap.Existing.StartDate), ts(overlap.Existing.EndDate))
	}
	var badFmt *domain.InvalidFormatError
	if errors.As(err, &badFmt) {
		return fmt.Sprintf("⚠️ No entendí `%s`. %s", badFmt.Input, badFmt.Hint)
	}
	var past *domain.PastDateError
	if errors.As(err, &past) {
		return fmt.Sprintf("⚠️ Esa fecha (%s) ya pasó. ¿Typo?", ts(past.Instant))
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		return "⚠️ El fin tiene que ser después del inicio."
	case errors.Is(err, domain.ErrInvalidArgument):
		return "⚠️ Valor inválido."
	case errors.Is(err, domain.ErrNotFound):
		return "⚠️ No encontré esa ausencia."
	case errors.Is(err, domain.ErrWrongOwner):
		return "⚠️ Esa ausencia no es tuya."
	case errors.Is(err, domain.ErrAlreadyEnded):
		return "⚠️ Esa ausencia ya no está activa."
	case errors.Is(err, domain.ErrNotFuture):
		return "⚠️ Solo se cancelan ausencias que todavía no empezaron. Si ya estás de vuelta, usá `/afkreturn`."
	case errors.Is(err, domain.ErrAlreadyMember):
		return "⚠️ Ya tiene un tramo activo en ese clan."
	case errors.Is(err, domain.ErrNotMember):
		return "⚠️ No tiene tramo activo en ese clan."
	}
	return "⚠️ Algo salió mal: " + err.Error()
}

// parseWhen arma un instante con el default horario del comando
// (inicio de día para start, fin de día para end).
func parseWhen(dateStr, timeStr, defTime string, now time.Time) (time.Time, error) {
	if timeStr == "" {
		timeStr = defTime
	}
	return timeparse.ParseDateTime(dateStr, timeStr, now)
}
