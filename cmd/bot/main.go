package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"giveaway-bot/internal/common/config"
	"giveaway-bot/internal/common/logger"
	"giveaway-bot/internal/common/metrics"
	dqservice "giveaway-bot/internal/features/disqualify/service"
	discorddelivery "giveaway-bot/internal/features/giveaway/delivery/discord"
	httpdelivery "giveaway-bot/internal/features/giveaway/delivery/http"
	"giveaway-bot/internal/features/giveaway/repository"
	redisrepo "giveaway-bot/internal/features/giveaway/repository/redis"
	sqliterepo "giveaway-bot/internal/features/giveaway/repository/sqlite"
	giveawayservice "giveaway-bot/internal/features/giveaway/service"
	modmailservice "giveaway-bot/internal/features/modmail/service"
	"giveaway-bot/internal/platform/chat"
	"giveaway-bot/internal/platform/discord"
	"giveaway-bot/internal/platform/redis"
)

const serviceName = "giveaway-bot"

type store struct {
	giveaways        repository.GiveawayRepository
	disqualification repository.DisqualificationRepository
	close            func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(serviceName, false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(serviceName, cfg.Debug)

	logger.Info().
		Bool("debug", cfg.Debug).
		Str("store", cfg.Store.Backend).
		Msg("Starting giveaway bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer st.close()
	logger.Info().Msg("Store connection established")

	client, err := discord.New(cfg.Discord.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Discord session")
	}

	collector := metrics.NewCollector("giveaway_bot")
	reporter := giveawayservice.NewReporter(client, cfg.Discord.OperatorChannelID, cfg.Discord.OwnerID)

	giveawaySvc := giveawayservice.NewGiveawayService(st.giveaways, client, reporter, collector, giveawayservice.ConfigFrom(cfg))
	expirationSvc := giveawayservice.NewExpirationService(giveawaySvc, collector)
	dqSvc := dqservice.NewService(st.disqualification, client, giveawaySvc, collector, dqservice.Config{
		GuildID:         cfg.Discord.GuildID,
		RoleID:          cfg.Discord.DisqualifiedRoleID,
		Interval:        cfg.Disqualify.Interval,
		LogChannelID:    cfg.Discord.LogChannelID,
		ModLogChannelID: cfg.Discord.ModLogChannelID,
		EntryEmoji:      cfg.Giveaway.EntryEmoji,
	})

	modmailSvc := modmailservice.NewService(client, collector, modmailservice.Config{
		ChannelID:  cfg.Discord.ModmailChannelID,
		Emoji:      cfg.Discord.ModmailEmoji,
		ModRoleIDs: cfg.Discord.ModRoleIDs,
	})

	commands := discorddelivery.NewRouter(client, giveawaySvc, dqSvc, modmailSvc, reporter, collector, discorddelivery.Config{
		Prefix:          cfg.Discord.Prefix,
		ArgDelimiter:    cfg.Discord.ArgDelimiter,
		LogChannelID:    cfg.Discord.LogChannelID,
		GiveawayRoleIDs: cfg.Discord.GiveawayRoleIDs,
		ModRoleIDs:      cfg.Discord.ModRoleIDs,
	})
	client.OnMessage(func(m *chat.Message) { commands.HandleMessage(ctx, m) })
	client.OnReaction(func(r chat.Reaction) { commands.HandleReaction(ctx, r) })

	if err := client.Open(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Discord gateway")
	}
	logger.Info().Str("bot", client.BotUser().Tag()).Msg("Connected to Discord")

	// Completions for giveaways that ended while the bot was offline start
	// on the first pass.
	expirationSvc.Start()
	dqSvc.Start()

	handler := httpdelivery.NewGiveawayHandler(giveawaySvc, expirationSvc, dqSvc)
	router := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Debug:      cfg.Debug,
		AdminToken: cfg.HTTP.AdminToken,
		Origin:     cfg.HTTP.Origin,
		Service:    serviceName,
	}, handler, giveawaySvc, collector.Handler())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	expirationSvc.Stop()
	dqSvc.Stop()
	if err := giveawaySvc.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("in_flight", giveawaySvc.InFlight()).Msg("Completions still running at shutdown")
	}
	if err := client.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close Discord session")
	}

	logger.Info().Msg("Bot exited")
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		db, err := sqliterepo.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return &store{
			giveaways:        sqliterepo.NewSQLiteGiveawayRepository(db),
			disqualification: sqliterepo.NewSQLiteDisqualificationRepository(db),
			close:            db.Close,
		}, nil
	default:
		client, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		return &store{
			giveaways:        redisrepo.NewRedisGiveawayRepository(client),
			disqualification: redisrepo.NewRedisDisqualificationRepository(client),
			close:            client.Close,
		}, nil
	}
}
