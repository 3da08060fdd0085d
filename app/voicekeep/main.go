package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Haibread/voicekeep/commands"
	"github.com/Haibread/voicekeep/config"
	"github.com/Haibread/voicekeep/database"
	"github.com/Haibread/voicekeep/discord"
	"github.com/Haibread/voicekeep/logging"
	"github.com/Haibread/voicekeep/roles"
	"github.com/Haibread/voicekeep/voice"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var log *zap.SugaredLogger

type roleSync struct {
	*roles.Mapper
	*roles.Granter
}

func main() {
	log = logging.InitLogger()
	defer logging.Sync()

	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		log.Warnf("Invalid log level %q: %v", cfg.LogLevel, err)
	}
	settings := config.NewHolder(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to connect to the database: ", err)
	}
	defer database.Close(db)

	triggers := database.NewTriggerRepository(db)
	for _, t := range cfg.Triggers() {
		if err := triggers.Register(ctx, t); err != nil {
			log.Fatal(err)
		}
	}

	mapper := roles.NewMapper(cfg.RoleMapping)
	loader.Watch(func(c *config.Config) {
		settings.Set(c)
		mapper.SetMapping(c.RoleMapping)
		if err := logging.SetLevel(c.LogLevel); err != nil {
			log.Warnf("Invalid log level %q: %v", c.LogLevel, err)
		}
		log.Info("Config file changed, reloaded")
	}, func(err error) {
		log.Warn(err)
	})

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatal("error creating discord session, ", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	provider := discord.NewProvider(dg)
	manager := voice.NewManager(voice.NewStore(), provider, triggers,
		voice.WithJournal(database.NewJournal(db)),
		voice.WithGraceWindow(cfg.GraceWindow),
	)
	if _, err := manager.Restore(ctx); err != nil {
		log.Fatal(err)
	}

	bridge := voice.NewBridge(ctx, manager, provider, triggers)
	dg.AddHandler(bridge.VCUpdate)

	log.Info("Opening Websocket connection")
	if err := dg.Open(); err != nil {
		log.Fatalf("Could not open Websocket connection %s", err)
	}
	defer dg.Close()
	if err := dg.UpdateListeningStatus(cfg.BotStatus); err != nil {
		log.Warn(err)
	}

	cmds := commands.New(ctx, manager, roleSync{mapper, roles.NewGranter(provider)}, settings)
	if err := cmds.Register(dg); err != nil {
		log.Fatal(err)
	}

	sweeper := voice.NewSweeper(manager, provider, cfg.SweepInterval, nil)
	go sweeper.Run(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infof("Serving metrics on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(err)
			}
		}()
	}

	log.Info("Bot is now running.  Press CTRL-C to exit.")
	<-ctx.Done()

	log.Info("Starting to delete commands")
	removed, err := commands.Unregister(dg, dg.State.User.ID)
	if err != nil {
		log.Warn(err)
	}
	log.Infof("Deleted %d commands", removed)
	bridge.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(err)
		}
	}
}
