package modules

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Aquillum/LiteClaw/internal/channel"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/slack"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/telegram"
	"github.com/Aquillum/LiteClaw/internal/channel/adapters/whatsapp"
	"github.com/Aquillum/LiteClaw/internal/config"
	"github.com/Aquillum/LiteClaw/internal/forward"
	"github.com/Aquillum/LiteClaw/internal/metrics"
)

var ChannelModule = fx.Module(
	"channel",
	fx.Provide(
		channel.NewBotRegistry,
		provideForwarder,
		provideTelegramAdapter,
		provideSlackAdapter,
		provideWhatsAppAdapter,
		provideChannelRegistry,
		provideChannelManager,
		provideDispatcher,
	),
	fx.Invoke(startChannelManager),
)

// ---------------------------------------------------------------------------
// adapters
// ---------------------------------------------------------------------------

func provideForwarder(log *slog.Logger, cfg config.Config) *forward.Client {
	return forward.NewClient(log, cfg.Backend.URL, cfg.Backend.Timeout)
}

// provideTelegramAdapter returns nil when no token is configured.
func provideTelegramAdapter(log *slog.Logger, cfg config.Config, bots *channel.BotRegistry, m *metrics.Metrics) *telegram.TelegramAdapter {
	if !cfg.Telegram.Enabled() {
		return nil
	}
	return telegram.NewTelegramAdapter(log, bots, m, telegram.Options{
		Tokens:        cfg.Telegram.Tokens,
		APIEndpoint:   cfg.Telegram.APIEndpoint,
		RatePerSecond: cfg.Telegram.RatePerSecond,
		PollTimeout:   cfg.Telegram.PollTimeout,
	})
}

// provideSlackAdapter returns nil when no bot token is configured.
func provideSlackAdapter(log *slog.Logger, cfg config.Config) *slack.SlackAdapter {
	if !cfg.Slack.Enabled() {
		return nil
	}
	return slack.NewSlackAdapter(log, slack.Options{
		BotToken:     cfg.Slack.BotToken,
		AppToken:     cfg.Slack.AppToken,
		APIURL:       cfg.Slack.APIURL,
		NameCacheTTL: cfg.Slack.NameCacheTTL,
	})
}

// provideWhatsAppAdapter picks the client for the configured mode and returns
// nil when WhatsApp is disabled.
func provideWhatsAppAdapter(log *slog.Logger, cfg config.Config) *whatsapp.WhatsAppAdapter {
	var client whatsapp.Client
	switch cfg.WhatsApp.Mode {
	case config.WhatsAppModeDisabled:
		return nil
	case config.WhatsAppModeCloud:
		client = whatsapp.NewCloudClient(log, whatsapp.CloudOptions{
			AccessToken:   cfg.WhatsApp.AccessToken,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			VerifyToken:   cfg.WhatsApp.VerifyToken,
			GraphURL:      cfg.WhatsApp.GraphURL,
		})
	default:
		qr := whatsapp.NewQRPage(log, cfg.WorkDir, cfg.WhatsApp.QRLarge)
		client = whatsapp.NewLocalClient(log, cfg.WorkDir, cfg.WhatsApp.Proxy, qr)
	}
	return whatsapp.NewWhatsAppAdapter(log, client)
}

type registryParams struct {
	fx.In

	Logger   *slog.Logger
	Telegram *telegram.TelegramAdapter
	Slack    *slack.SlackAdapter
	WhatsApp *whatsapp.WhatsAppAdapter
}

func provideChannelRegistry(params registryParams) (*channel.Registry, error) {
	registry := channel.NewRegistry()
	adapters := []channel.Adapter{}
	if params.WhatsApp != nil {
		adapters = append(adapters, params.WhatsApp)
	}
	if params.Telegram != nil {
		adapters = append(adapters, params.Telegram)
	}
	if params.Slack != nil {
		adapters = append(adapters, params.Slack)
	}
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
		params.Logger.Info("platform enabled", slog.String("platform", adapter.Platform().String()))
	}
	return registry, nil
}

// ---------------------------------------------------------------------------
// inbound and outbound
// ---------------------------------------------------------------------------

func provideChannelManager(log *slog.Logger, cfg config.Config, registry *channel.Registry, forwarder *forward.Client, m *metrics.Metrics) *channel.Manager {
	return channel.NewManager(log, registry, forwarder, m, channel.ManagerOptions{
		QueueSize:      cfg.Forward.QueueSize,
		Workers:        cfg.Forward.Workers,
		ForwardTimeout: cfg.Backend.Timeout,
		DedupTTL:       cfg.Forward.DedupTTL,
	})
}

func provideDispatcher(log *slog.Logger, registry *channel.Registry, m *metrics.Metrics) *channel.Dispatcher {
	return channel.NewDispatcher(log, registry, m)
}

func startChannelManager(lc fx.Lifecycle, manager *channel.Manager, forwarder *forward.Client, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("forwarding inbound messages", slog.String("backend", forwarder.URL()))
			manager.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return manager.Shutdown(ctx)
		},
	})
}
