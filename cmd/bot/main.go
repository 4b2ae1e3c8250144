package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/clan-ops-bot/internal/adapters/discord"
	"github.com/jose-valero/clan-ops-bot/internal/adapters/httpapi"
	"github.com/jose-valero/clan-ops-bot/internal/app/service"
	"github.com/jose-valero/clan-ops-bot/internal/infra/config"
	"github.com/jose-valero/clan-ops-bot/internal/infra/lock"
	"github.com/jose-valero/clan-ops-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	usersRepo := storage.NewUserRepo(db)
	afkRepo := storage.NewAFKRepo(db)
	membersRepo := storage.NewMembershipRepo(db)
	welcomeRepo := storage.NewWelcomeRepo(db)

	// Services
	locks := lock.New()
	afkSvc := service.NewAFKService(usersRepo, afkRepo, locks)
	rosterSvc := service.NewRosterService(usersRepo, membersRepo, cfg.Clans, locks)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Router
	r := discordrouter.NewRouter(s, cfg, afkSvc, rosterSvc, welcomeRepo)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// API REST
	if cfg.APIToken != "" {
		api := httpapi.New(cfg, afkSvc, rosterSvc)
		go func() {
			log.Printf("✅ API escuchando en %s", cfg.HTTPAddr)
			if err := http.ListenAndServe(cfg.HTTPAddr, api.Router()); err != nil {
				log.Printf("api: %v", err)
			}
		}()
	} else {
		log.Println("ℹ️ API_TOKEN vacío, API REST apagada")
	}

	// Sweep de activación: una pasada al arrancar y después cada minuto,
	// así is_active nunca se atrasa más de 60s.
	runSweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := afkSvc.RefreshActivation(ctx); err != nil {
			log.Printf("sweep afk: %v", err)
		} else if n > 0 {
			log.Printf("sweep afk: %d ventana(s) actualizadas", n)
		}
	}
	runSweep()
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for range t.C {
			runSweep()
		}
	}()

	// Reconciliación de rosters contra los roles del guild
	reconcileAll := func() {
		for roleID := range cfg.Clans {
			roster, err := r.GuildRoster(roleID)
			if err != nil {
				log.Printf("roster %s: %v", cfg.ClanName(roleID), err)
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			res, err := rosterSvc.Reconcile(ctx, roleID, roster)
			cancel()
			if errors.Is(err, service.ErrSyncInProgress) {
				continue
			}
			if err != nil {
				log.Printf("reconcile %s: %v", cfg.ClanName(roleID), err)
				continue
			}
			if len(res.Joined) > 0 || len(res.Left) > 0 {
				log.Printf("reconcile %s: +%d -%d", cfg.ClanName(roleID), len(res.Joined), len(res.Left))
			}
		}
	}
	reconcileAll()
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for range t.C {
			reconcileAll()
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}
