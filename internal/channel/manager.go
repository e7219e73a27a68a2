package channel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultQueueSize      = 256
	DefaultInboundWorkers = 4
	DefaultDedupTTL       = 10 * time.Minute
)

// ManagerOptions tunes the inbound pipeline.
type ManagerOptions struct {
	QueueSize      int
	Workers        int
	ForwardTimeout time.Duration
	DedupTTL       time.Duration
}

// Manager owns the adapter connections and the inbound forwarding queue.
type Manager struct {
	registry       *Registry
	forwarder      Forwarder
	observer       InboundObserver
	logger         *slog.Logger
	forwardTimeout time.Duration
	dedup          *TTLCache[string, struct{}]

	inboundQueue   chan inboundTask
	inboundWorkers int
	inboundOnce    sync.Once
	inboundCtx     context.Context
	inboundCancel  context.CancelFunc
	workers        sync.WaitGroup

	mu          sync.Mutex
	connections map[Platform]Connection
}

func NewManager(log *slog.Logger, registry *Registry, forwarder Forwarder, observer InboundObserver, opts ManagerOptions) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultInboundWorkers
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = DefaultDedupTTL
	}
	return &Manager{
		registry:       registry,
		forwarder:      forwarder,
		observer:       observer,
		logger:         log.With(slog.String("component", "channel")),
		forwardTimeout: opts.ForwardTimeout,
		dedup:          NewTTLCache[string, struct{}](opts.DedupTTL),
		inboundQueue:   make(chan inboundTask, opts.QueueSize),
		inboundWorkers: opts.Workers,
		connections:    map[Platform]Connection{},
	}
}

// Start launches the inbound workers and connects every receiver. A receiver
// that fails to connect is logged and leaves its platform uninitialized.
func (m *Manager) Start(ctx context.Context) {
	m.startInboundWorkers(ctx)
	if m.registry == nil {
		return
	}
	for _, adapter := range m.registry.List() {
		receiver, ok := adapter.(Receiver)
		if !ok {
			continue
		}
		platform := adapter.Platform()
		conn, err := receiver.Connect(ctx, m)
		if err != nil {
			m.logger.Error("adapter connect failed", slog.String("platform", platform.String()), slog.Any("error", err))
			continue
		}
		m.mu.Lock()
		m.connections[platform] = conn
		m.mu.Unlock()
		m.logger.Info("adapter connected", slog.String("platform", platform.String()))
	}
}

// Connected reports whether platform has a running connection.
func (m *Manager) Connected(platform Platform) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[platform]
	return ok && conn.Running()
}

// Shutdown stops all connections, then the inbound workers. Queued envelopes
// that have not been picked up are discarded.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	conns := make([]Connection, 0, len(m.connections))
	for platform, conn := range m.connections {
		conns = append(conns, conn)
		delete(m.connections, platform)
	}
	m.mu.Unlock()

	var errs []error
	for _, conn := range conns {
		if err := conn.Stop(ctx); err != nil && !errors.Is(err, ErrStopNotSupported) {
			errs = append(errs, err)
		}
	}
	if m.inboundCancel != nil {
		m.inboundCancel()
	}
	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
