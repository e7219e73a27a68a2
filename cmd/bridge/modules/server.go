package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/whatsapp"
	"github.com/Aquillum/LiteClaw/internal/config"
	"github.com/Aquillum/LiteClaw/internal/handlers"
	"github.com/Aquillum/LiteClaw/internal/server"
	"github.com/Aquillum/LiteClaw/internal/version"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServerHandler(provideStatusHandler),
		provideServerHandler(handlers.NewBridgeHandler),
		provideServerHandler(handlers.NewMetricsHandler),
		provideServerHandler(provideSlackEventsHandler),
		provideServerHandler(provideWhatsAppWebhookHandler),
		provideServer,
	),
	fx.Invoke(startServer),
)

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

// ---------------------------------------------------------------------------
// handlers
// ---------------------------------------------------------------------------

func provideStatusHandler(log *slog.Logger, registry *channel.Registry, manager *channel.Manager) *handlers.StatusHandler {
	return handlers.NewStatusHandler(log, registry, manager)
}

func provideSlackEventsHandler(log *slog.Logger, cfg config.Config) *handlers.SlackEventsHandler {
	return handlers.NewSlackEventsHandler(log, cfg.Slack.SigningSecret)
}

// provideWhatsAppWebhookHandler wires the Cloud API client when that mode is active.
func provideWhatsAppWebhookHandler(log *slog.Logger, adapter *whatsapp.WhatsAppAdapter, manager *channel.Manager) *handlers.WhatsAppWebhookHandler {
	var webhook handlers.CloudWebhook
	if adapter != nil {
		if cloud, ok := adapter.Client().(*whatsapp.CloudClient); ok {
			webhook = cloud
		}
	}
	return handlers.NewWhatsAppWebhookHandler(log, webhook, manager)
}

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting LiteClaw bridge %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := srv.Listen(); err != nil {
				logger.Error("CRITICAL: cannot bind http port, is another bridge running?",
					slog.String("addr", srv.Addr()),
					slog.Any("error", err),
				)
				return err
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
