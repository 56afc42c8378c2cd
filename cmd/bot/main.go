package main

import (
	"log"

	"lookup-bot/internal/bot"
	"lookup-bot/internal/broadcast"
	"lookup-bot/internal/config"
	"lookup-bot/internal/database"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/lookup"
	"lookup-bot/internal/panel"
	"lookup-bot/internal/redeem"
	"lookup-bot/internal/settings"
	"lookup-bot/internal/state"
	"lookup-bot/internal/worker"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Could not migrate database: %v", err)
	}

	// Connect to Redis
	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	// Runtime settings: defaults, persisted rows, then environment
	sts, err := settings.Load(db)
	if err != nil {
		log.Fatalf("Could not load settings: %v", err)
	}

	store := database.NewStore(db)
	lg := ledger.New(store, sts)
	rd := redeem.New(store, sts.Location())
	states := state.NewRedisStore(rdb)
	bc := broadcast.New(lg, sts)

	providers := bot.Providers{
		Phone:   lookup.NewClient(cfg.PhoneAPIURL),
		Vehicle: lookup.NewClient(cfg.VehicleAPIURL),
		Email:   lookup.NewClient(cfg.EmailAPIURL),
	}

	tgBot, err := bot.NewBot(cfg.BotToken, lg, rd, states, sts, bc, providers, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Could not create bot: %v", err)
	}

	// Status panel
	p := panel.New(sts, cfg.AdminPassword, cfg.PanelAllowedIPs)
	go func() {
		if err := p.Serve(cfg.PanelAddr); err != nil {
			log.Printf("Panel stopped: %v", err)
		}
	}()

	// Daily stats reporter
	reporter := worker.NewReporter(lg, rdb, tgBot.Instance, sts)
	go reporter.Start()

	log.Println("Service started successfully")
	tgBot.Start()
}
