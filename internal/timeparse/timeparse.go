// Package timeparse convierte fechas/horas compactas ("0512", "05.12", "2130")
// en instantes absolutos UTC, infiriendo el año cuando el user no lo escribe.
package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// Si el instante compuesto quedó en el pasado por más de esto, asumimos que
// el user quiso decir el año que viene (típico cerca de fin de año).
// Menos que esto lo tratamos como typo y rechazamos.
const pastGrace = 14 * 24 * time.Hour

// ParseDate acepta DDMM, DD/MM o DD.MM. Solo valida rangos (día 1-31,
// mes 1-12); no cruza el día contra el largo del mes — "3102" pasa.
// Es una soltura heredada y documentada, no un bug a corregir en silencio.
func ParseDate(s string, now time.Time) (time.Time, error) {
	raw := strings.NewReplacer(".", "", "/", "").Replace(s)
	day, month, err := twoPlusTwo(raw)
	if err != nil {
		return time.Time{}, &domain.InvalidFormatError{Input: s, Hint: "usa DDMM, DD/MM o DD.MM"}
	}
	if month < 1 || month > 12 {
		return time.Time{}, &domain.InvalidFormatError{Input: s, Hint: "el mes debe estar entre 1 y 12"}
	}
	if day < 1 || day > 31 {
		return time.Time{}, &domain.InvalidFormatError{Input: s, Hint: "el día debe estar entre 1 y 31"}
	}
	return time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ParseTime acepta HHMM o HH:MM.
func ParseTime(s string) (hour, minute int, err error) {
	raw := strings.ReplaceAll(s, ":", "")
	hour, minute, err = twoPlusTwo(raw)
	if err != nil {
		return 0, 0, &domain.InvalidFormatError{Input: s, Hint: "usa HHMM o HH:MM"}
	}
	if hour < 0 || hour > 23 {
		return 0, 0, &domain.InvalidFormatError{Input: s, Hint: "la hora debe estar entre 0 y 23"}
	}
	if minute < 0 || minute > 59 {
		return 0, 0, &domain.InvalidFormatError{Input: s, Hint: "los minutos deben estar entre 0 y 59"}
	}
	return hour, minute, nil
}

// ParseDateTime compone fecha+hora en UTC y resuelve el año:
//   - pasado reciente (≤14 días): PastDateError, casi seguro typo
//   - pasado lejano (>14 días): año siguiente
func ParseDateTime(dateStr, timeStr string, now time.Time) (time.Time, error) {
	date, err := ParseDate(dateStr, now)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseTime(timeStr)
	if err != nil {
		return time.Time{}, err
	}

	dt := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
	if dt.Before(now) {
		if now.Sub(dt) <= pastGrace {
			return time.Time{}, &domain.PastDateError{Instant: dt}
		}
		dt = dt.AddDate(1, 0, 0)
	}
	return dt, nil
}

// FormatDuration: "2 days, 3 hours and 5 minutes" para embeds y stats.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	switch len(parts) {
	case 0:
		return "less than a minute"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// twoPlusTwo: exactamente 4 dígitos partidos en dos pares.
func twoPlusTwo(raw string) (int, int, error) {
	if len(raw) != 4 {
		return 0, 0, fmt.Errorf("want 4 digits, got %d", len(raw))
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, 0, fmt.Errorf("non-digit %q", r)
		}
	}
	var a, b int
	if _, err := fmt.Sscanf(raw, "%2d%2d", &a, &b); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
