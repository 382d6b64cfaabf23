package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/api/discord"
	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	pdiscord "github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

func serveCmd() *cobra.Command {
	var syncCommands bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and serve the ops HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), syncCommands)
		},
	}
	cmd.Flags().BoolVar(&syncCommands, "sync-commands", true, "overwrite the guild's slash commands on startup")
	return cmd
}

func runServe(parent context.Context, syncCommands bool) error {
	cfg, logger, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	ticketRepo := repository.NewTicketRepository(pg.Pool)
	catalogRepo := repository.NewCatalogRepository(pg.Pool)
	historyRepo := repository.NewTicketHistoryRepository(pg.Pool)
	controlRepo := repository.NewControlRepository(redis.Client, redis.Namespace("control"))

	dispatcher := events.NewInMemoryDispatcher()
	var sink events.Sink
	if cfg.Events.RabbitMQURL != "" {
		publisher, err := events.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer publisher.Close()
		sink = publisher
		logger.Info("forwarding ticket events", zap.String("exchange", cfg.Events.Exchange))
	}
	notifications := worker.NewNotificationWorker(dispatcher, service.NewNotificationService(sink, logger), logger, 0)
	notifications.Start()
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := notifications.Stop(stopCtx); err != nil {
			logger.Warn("notification queue not drained", zap.Error(err))
		}
	}()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	me, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("resolve bot user: %w", err)
	}
	guild, err := pdiscord.NewGuild(session, cfg.Discord.GuildID, me.ID)
	if err != nil {
		return err
	}
	guild.WithRoleCache(session.State)

	metrics := observability.NewMetrics()
	catalogService := service.NewCatalogService(catalogRepo, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CatalogRepo: catalogRepo,
		ControlRepo: controlRepo,
		HistoryRepo: historyRepo,
		Platform:    guild,
		Dispatcher:  dispatcher,
		Scheduler:   service.TimerScheduler{},
		Logger:      logger,
		Tickets:     cfg.Tickets,
		Payments:    cfg.Payments,
	})
	panelService := service.NewPanelService(catalogService, guild, logger)

	router := discord.NewRouter(discord.RouterDependencies{
		Responder: session,
		Tickets:   ticketService,
		Catalog:   catalogService,
		Panels:    panelService,
		Platform:  guild,
		Metrics:   metrics,
		Logger:    logger,
		Config:    cfg.Tickets,
		Timeout:   cfg.App.RequestTimeout(),
	})
	session.AddHandler(router.Handler())
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("discord session ready", zap.String("user", r.User.Username))
	})

	if syncCommands {
		if err := discord.SyncCommands(ctx, session, applicationID(cfg.Discord.ApplicationID, me.ID), cfg.Discord.GuildID, logger); err != nil {
			return fmt.Errorf("sync commands: %w", err)
		}
	}

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer session.Close()

	authService := service.NewAuthService(*cfg)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			cancel()
		}
	}()
	logger.Info("ticket bot started", zap.String("addr", cfg.App.Addr()), zap.String("guild", cfg.Discord.GuildID))

	stopped := make(chan struct{})
	go func() {
		waitForShutdown(logger)
		close(stopped)
	}()
	select {
	case <-ctx.Done():
	case <-stopped:
	}

	return app.Shutdown()
}

// applicationID falls back to the bot user id, which equals the application id for bot accounts.
func applicationID(configured, botID string) string {
	if configured != "" {
		return configured
	}
	return botID
}
