package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string

	AdminRoleIDs   []string // roles que pueden usar comandos de admin
	OfficerRoleIDs []string

	// Clanes: role_id -> nombre visible, más aliases cortos para comandos.
	// Se pasan explícitos a los services, nada de lookups ambientales.
	Clans       map[string]string
	ClanAliases map[string]string

	// API REST
	HTTPAddr string // opcional, default :8080
	APIToken string // bearer token plano, comparación constant-time

	// RaidHelper
	RaidHelperServerID string
	RaidHelperAPIKey   string

	// Google Sheets export
	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("faltante env %s", k)
		}
		return v
	}

	cfg := Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", true),

		AdminRoleIDs:   splitIDs(get("ADMIN_ROLE_IDS", false)),
		OfficerRoleIDs: splitIDs(get("OFFICER_ROLE_IDS", false)),

		Clans:       parsePairs(get("CLAN_ROLES", true)),    // "rol1=Requiem Sun,rol2=Requiem Moon"
		ClanAliases: parsePairs(get("CLAN_ALIASES", false)), // "sun=rol1,moon=rol2"

		HTTPAddr: get("HTTP_ADDR", false), // puede quedar vacío
		APIToken: get("API_TOKEN", false),

		RaidHelperServerID: get("RAIDHELPER_SERVER_ID", false),
		RaidHelperAPIKey:   get("RAIDHELPER_API_KEY", false),

		SheetsCredentialsFile: get("GOOGLE_SHEETS_CREDENTIALS", false),
		SheetsSpreadsheetID:   get("GOOGLE_SHEETS_SPREADSHEET_ID", false),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	// los aliases tienen que apuntar a un clan conocido
	for alias, roleID := range cfg.ClanAliases {
		if _, ok := cfg.Clans[roleID]; !ok {
			log.Fatalf("CLAN_ALIASES: alias %q apunta a rol desconocido %q", alias, roleID)
		}
	}
	return cfg
}

// ClanName: nombre visible o el role_id pelado si no está mapeado.
func (c Config) ClanName(roleID string) string {
	if name, ok := c.Clans[roleID]; ok {
		return name
	}
	return roleID
}

// ResolveClan: acepta role_id directo o alias.
func (c Config) ResolveClan(s string) (string, bool) {
	if _, ok := c.Clans[s]; ok {
		return s, true
	}
	if roleID, ok := c.ClanAliases[strings.ToLower(s)]; ok {
		return roleID, true
	}
	return "", false
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePairs: "k1=v1,k2=v2" → map. Par malformado corta el arranque;
// mejor morir temprano que sincronizar contra un clan fantasma.
func parsePairs(s string) map[string]string {
	out := map[string]string{}
	if s == "" {
		return out
	}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" || v == "" {
			log.Fatalf("config: par inválido %q (se espera clave=valor)", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}
