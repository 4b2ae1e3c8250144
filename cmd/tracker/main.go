package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jose-valero/clan-ops-bot/internal/adapters/raidhelper"
	"github.com/jose-valero/clan-ops-bot/internal/adapters/sheets"
	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/infra/config"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Tracker de actividad de raids: cada 5 minutos baja los eventos de
// RaidHelper, y cuando uno cierra lo exporta al spreadsheet anotando
// quién tenía ausencia declarada. Corre aparte del bot para que un
// export lento no toque los comandos.
func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	if cfg.RaidHelperServerID == "" || cfg.RaidHelperAPIKey == "" {
		log.Fatal("faltan RAIDHELPER_SERVER_ID / RAIDHELPER_API_KEY")
	}
	if cfg.SheetsCredentialsFile == "" || cfg.SheetsSpreadsheetID == "" {
		log.Fatal("faltan GOOGLE_SHEETS_CREDENTIALS / GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	usersRepo := storage.NewUserRepo(db)
	afkRepo := storage.NewAFKRepo(db)
	raidRepo := storage.NewRaidRepo(db)

	rh := raidhelper.New(cfg.RaidHelperAPIKey, cfg.RaidHelperServerID)
	exporter, err := sheets.NewExporter(context.Background(), cfg.SheetsCredentialsFile, cfg.SheetsSpreadsheetID)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("✅ tracker listo")

	raidSvc := service.NewRaidService(rh, raidRepo, usersRepo, afkRepo, exporter, cfg.Clans)

	runOnce := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()

		if n, err := raidSvc.SyncActiveEvents(ctx); err != nil {
			log.Printf("sync: %v", err)
		} else if n > 0 {
			log.Printf("sync: %d evento(s)", n)
		}
		if n, err := raidSvc.ProcessClosedEvents(ctx); err != nil {
			log.Printf("export: %v", err)
		} else if n > 0 {
			log.Printf("export: %d evento(s) cerrados", n)
		}
	}

	runOnce()
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-stop:
			return
		}
	}
}
