package discord

import "github.com/bwmarrin/discordgo"

var minDays = float64(1)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "afk",
		Description: "Declara una ausencia con fecha de inicio y fin",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "start_date", Description: "Fecha de inicio (DDMM, ej 2507)", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "end_date", Description: "Fecha de fin (DDMM)", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "start_time", Description: "Hora de inicio (HHMM, default 0000)"},
			{Type: discordgo.ApplicationCommandOptionString, Name: "end_time", Description: "Hora de fin (HHMM, default 2359)"},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Motivo"},
		},
	},
	{
		Name:        "afkquick",
		Description: "AFK desde ahora hasta el fin del día",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Cuántos días (default 1)", MinValue: &minDays},
			{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Motivo"},
		},
	},
	{
		Name:        "afkreturn",
		Description: "Volviste antes: cierra tus ausencias activas",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Una ausencia puntual (default: todas las activas)"},
		},
	},
	{
		Name:        "afkextend",
		Description: "Extiende una ausencia activa unas horas más",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "ID de la ausencia", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "hours", Description: "Horas a sumar", Required: true},
		},
	},
	{
		Name:        "afkcancel",
		Description: "Cancela una ausencia que todavía no empezó",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "ID de la ausencia futura", Required: true},
		},
	},
	{
		Name:        "afkdelete",
		Description: "Admin: marca como borradas las ausencias de un miembro",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Miembro", Required: true},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "all", Description: "Todas, no solo las activas"},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Una ausencia puntual"},
		},
	},
	{
		Name:        "afklist",
		Description: "Quién está AFK ahora",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Filtrar por clan (alias o role ID)"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "upcoming", Description: "Incluir las agendadas a futuro"},
		},
	},
	{
		Name:        "afkmy",
		Description: "Tus ausencias activas y agendadas",
	},
	{
		Name:        "afkhistory",
		Description: "Historial de ausencias (el de otros, solo admins)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Miembro (default: vos)"},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "limit", Description: "Cuántas entradas (default 10)"},
		},
	},
	{
		Name:        "afkstats",
		Description: "Estadísticas de ausencias",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Filtrar por clan"},
		},
	},
	{
		Name:        "getmembers",
		Description: "Lista los miembros de un clan según sus roles",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Clan (alias o role ID)", Required: true},
		},
	},
	{
		Name:        "clanadd",
		Description: "Admin: abre un tramo de membresía a mano",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Miembro", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Clan (alias o role ID)", Required: true},
		},
	},
	{
		Name:        "clanremove",
		Description: "Admin: cierra el tramo activo de un miembro",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Miembro", Required: true},
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Clan (alias o role ID)", Required: true},
		},
	},
	{
		Name:        "clanhistory",
		Description: "Movimientos de membresía (joins y leaves)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Filtrar por clan"},
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Filtrar por miembro"},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Últimos N días"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "include_inactive", Description: "Incluir tramos cerrados (default sí)"},
		},
	},
	{
		Name:        "welcome",
		Description: "Mensaje de bienvenida por clan",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show",
				Description: "Ver el mensaje configurado",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Clan", Required: true},
				},
			},
			{
				Type: discordgo.ApplicationCommandOptionSubCommand, Name: "set",
				Description: "Admin: cambiar el mensaje",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "clan", Description: "Clan", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Mensaje ({user} se reemplaza por la mención)", Required: true},
				},
			},
		},
	},
}
