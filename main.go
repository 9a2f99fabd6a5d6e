package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/bot"
	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/CalebPenning/game-calendar-bot/internal/common"
	"github.com/CalebPenning/game-calendar-bot/internal/config"
	"github.com/CalebPenning/game-calendar-bot/internal/giantbomb"
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/CalebPenning/game-calendar-bot/internal/scheduler"
	"github.com/CalebPenning/game-calendar-bot/internal/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

const (
	programName     = "game-calendar-bot"
	shutdownTimeout = 10 * time.Second
)

// Set at build time
var version = "dev"

var globalFlags = struct {
	configFile string
	envFile    string
	debug      bool
}{}

func main() {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Discord bot that runs the monthly game club rotation",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.envFile, "env-file", ".env", "path to a .env file, ignored when missing")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.AddCommand(serveCommand(), registerCommandsCommand(), versionCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its scheduled announcements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd.Context())
		},
	}
}

func registerCommandsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register-commands",
		Short: "Register the slash commands with discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := commonRun()
			if err != nil {
				return err
			}
			if err := cfg.ValidateDiscord(); err != nil {
				return err
			}
			session, err := bot.NewSession(cfg.Discord.Token)
			if err != nil {
				return err
			}
			commands, err := bot.RegisterCommands(session, cfg.Discord.ApplicationID, cfg.Discord.GuildID)
			if err != nil {
				return err
			}
			scope := "globally"
			if cfg.Discord.GuildID != "" {
				scope = "in guild " + cfg.Discord.GuildID
			}
			fmt.Printf("Registered %d commands %s\n", len(commands), scope)
			return nil
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", programName, version)
		},
	}
}

// commonRun loads the configuration and sets up logging
func commonRun() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.configFile, globalFlags.envFile)
	if err != nil {
		return nil, err
	}

	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	if globalFlags.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		log.Debug().Msg(fmt.Sprintf(format, args...))
	})); err != nil {
		log.Warn().Err(err).Msg("Could not adjust GOMAXPROCS")
	}
	log.Info().Msg(fmt.Sprintf("%s version %s", programName, version))
	return cfg, nil
}

func serveRun(ctx context.Context) (err error) {
	cfg, err := commonRun()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDiscord(); err != nil {
		log.Error().Err(err).Msg("Cannot start")
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Database
	database, err := common.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()
	repo, err := rotation.NewDatabaseRotation(database)
	if err != nil {
		return err
	}

	// Discord session, shared by the commands and the announcements
	session, err := bot.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	announcer := bot.NewAnnouncer(session, bot.StateGuildIDs(session), cfg.Discord.GameChannel)

	location := cfg.Location()
	service := rotation.NewService(repo, rotation.ServiceConfig{
		Policy: rotation.Policy{
			ExcludeRecent:   cfg.Rotation.ExcludeRecent,
			ExcludedUserIDs: cfg.Rotation.ExcludedUserIDs,
		},
		Clock:      calendar.SystemClock{Location: location},
		Notifier:   announcer,
		Registerer: registry,
	})

	search := giantbomb.NewClient(giantbomb.Options{
		APIKey:          cfg.GiantBomb.APIKey,
		BaseURL:         cfg.GiantBomb.BaseURL,
		RequestsPerHour: cfg.GiantBomb.RequestsPerHour,
	})
	if !search.Configured() {
		log.Warn().Msg("GIANT_BOMB_API_KEY is not set, /select-game will be unavailable")
	}

	gameBot := bot.NewBot(session, service, search, bot.Options{
		SearchLimit:      cfg.GiantBomb.SearchLimit,
		SelectionTimeout: cfg.Selection.Timeout,
		Registerer:       registry,
	})

	jobs, err := scheduler.New(service, announcer, scheduler.Config{
		Monthly:                cfg.Schedule.Monthly,
		Weekly:                 cfg.Schedule.Weekly,
		AutoNomination:         cfg.Schedule.AutoNomination,
		NextMonth:              cfg.Schedule.NextMonth,
		AutoNominationDaysLeft: cfg.Rotation.AutoNominationDaysLeft,
		Location:               location,
		Registerer:             registry,
	})
	if err != nil {
		return err
	}

	if cfg.Status.ListenAddress != "" {
		server := status.NewServer(cfg.Status.ListenAddress, registry, func() bool { return session.DataReady })
		if err := server.Start(); err != nil {
			return err
		}
		log.Info().Msg(fmt.Sprintf("Status listening on %s", server.Addr()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = errors.Join(err, server.Shutdown(shutdownCtx))
		}()
	}

	jobs.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, jobs.Stop(shutdownCtx))
	}()

	err = gameBot.Run(ctx, session)
	log.Info().Msg("Shutting down")
	return err
}
