package sheets

import (
	"context"
	"fmt"
	"strings"

	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/domain"
)

// Exporter vuelca cada evento cerrado a una pestaña propia del spreadsheet.
// Implementa service.RosterExporter.
type Exporter struct {
	svc           *gsheets.Service
	spreadsheetID string
}

func NewExporter(ctx context.Context, credentialsFile, spreadsheetID string) (*Exporter, error) {
	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func sheetTitle(ev domain.RaidEvent) string {
	title := ev.Title
	if title == "" {
		title = ev.ID
	}
	// los títulos de pestaña no aceptan algunos caracteres y cortan en 100
	title = strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")").Replace(title)
	title = fmt.Sprintf("%s %s", ev.StartTime.Format("2006-01-02"), title)
	if len(title) > 100 {
		title = title[:100]
	}
	return title
}

func (e *Exporter) ExportEvent(ctx context.Context, ev domain.RaidEvent, rows []service.ExportRow) error {
	title := sheetTitle(ev)

	_, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: title},
			},
		}},
	}).Context(ctx).Do()
	// re-export del mismo evento: la pestaña ya está, pisamos los valores
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, []any{"Posición", "Jugador", "Clan", "Clase", "Spec", "Estado", "Anotado", "AFK declarada"})
	for _, row := range rows {
		afk := ""
		if row.WasAFK {
			afk = "sí"
		}
		values = append(values, []any{
			row.Signup.Position,
			row.Signup.UserName,
			row.ClanName,
			row.Signup.ClassName,
			row.Signup.SpecName,
			row.Signup.Status,
			row.Signup.EntryTime.Format("2006-01-02 15:04"),
			afk,
		})
	}

	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("'%s'!A1", title), &gsheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %q: %w", title, err)
	}
	return nil
}
