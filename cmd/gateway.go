package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Maris2112/tsunamibot-whatsapp/pkg/channel"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/channel/greenapi"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/channel/telegram"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/config"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/gateway"
	"github.com/Maris2112/tsunamibot-whatsapp/pkg/logger"

	"github.com/spf13/cobra"
)

const (
	greenAPIChannelName = "greenapi"
	telegramChannelName = "telegram"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the webhook relay gateway",
	Long:  "Runs the Green API webhook listener and any other enabled channels, with health and readiness endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		adapters, err := enabledAdapters(cfg, log)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, err := gateway.NewService(cfg, adapters, log)
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started", "channels", enabledChannelNames(adapters), "provider", cfg.Provider.Name)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func enabledAdapters(cfg *config.Config, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 2)

	whatsapp, err := greenapi.NewAdapter(cfg.Channels.GreenAPI, log)
	if err != nil {
		return nil, fmt.Errorf("configure %s channel: %w", greenAPIChannelName, err)
	}
	adapters = append(adapters, whatsapp)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
