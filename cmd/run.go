package cmd

import (
	"context"
	"fmt"

	"lendledger/api"
	"lendledger/config"
	"lendledger/infrastructure"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the HTTP service
func Run(ctx context.Context) error {
	cfg := config.Get()
	if err := configureLogging(cfg); err != nil {
		return err
	}
	log.WithField("environment", cfg.Environment).Info("Starting lendledger...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.NotificationsEnabled() {
		log.Info("Initializing Discord notifications...")
		session, err := discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			return fmt.Errorf("failed to create Discord session: %w", err)
		}
		infrastructure.SubscribeNotifier(a.bus, infrastructure.NewDiscordNotifier(session, cfg.DiscordChannelID))
		log.WithField("channelID", cfg.DiscordChannelID).Info("Discord notifications enabled")
	}

	router := api.NewRouter(api.Config{
		Positions:      a.positions,
		Observer:       a.metrics,
		MetricsHandler: promhttp.Handler(),
		RequestTimeout: cfg.RequestTimeout,
	})

	if err := api.Serve(ctx, cfg.HTTPAddr, router); err != nil {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info("Shutdown completed")
	return nil
}
