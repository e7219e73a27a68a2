package channel

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aquillum/LiteClaw/internal/channel/adapters/adapterutil"
)

// Inbound outcomes reported to the InboundObserver.
const (
	InboundAccepted  = "accepted"
	InboundDuplicate = "duplicate"
	InboundQueueFull = "queue_full"
	InboundStopped   = "stopped"
	InboundForwarded = "forwarded"
	InboundFailed    = "forward_failed"
)

// Forwarder delivers an envelope to the backend.
type Forwarder interface {
	Forward(ctx context.Context, env Envelope) error
}

// InboundObserver is notified of each envelope outcome.
type InboundObserver interface {
	ObserveInbound(platform Platform, outcome string)
}

type inboundTask struct {
	ctx context.Context
	env Envelope
}

// Emit enqueues env for asynchronous forwarding. It never blocks: when the queue
// is full the envelope is dropped and the drop is logged.
func (m *Manager) Emit(ctx context.Context, env Envelope) {
	if err := m.HandleInbound(ctx, env); err != nil {
		switch {
		case errors.Is(err, ErrQueueFull):
			m.logger.Warn("inbound dropped",
				slog.String("platform", env.Platform.String()),
				slog.String("message_id", env.MessageID),
				slog.String("reason", InboundQueueFull),
			)
		case errors.Is(err, ErrInboundStopped):
			m.logger.Warn("inbound dropped",
				slog.String("platform", env.Platform.String()),
				slog.String("message_id", env.MessageID),
				slog.String("reason", InboundStopped),
			)
		}
	}
}

// HandleInbound enqueues an envelope for the worker pool. Duplicates of a
// recently seen message are silently accepted and discarded. A dropped envelope
// releases its dedup key so a redelivery is accepted.
func (m *Manager) HandleInbound(ctx context.Context, env Envelope) error {
	if m.forwarder == nil {
		return errors.New("inbound forwarder not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dedupKey := ""
	if env.MessageID != "" {
		dedupKey = env.DedupKey()
	}
	if dedupKey != "" && m.dedup.SeenOrAdd(dedupKey, struct{}{}) {
		m.observeInbound(env.Platform, InboundDuplicate)
		m.logger.Debug("inbound duplicate", slog.String("platform", env.Platform.String()), slog.String("message_id", env.MessageID))
		return nil
	}
	m.startInboundWorkers(ctx)
	if m.inboundCtx != nil && m.inboundCtx.Err() != nil {
		m.releaseDedup(dedupKey)
		m.observeInbound(env.Platform, InboundStopped)
		return ErrInboundStopped
	}
	task := inboundTask{
		ctx: context.WithoutCancel(ctx),
		env: env,
	}
	select {
	case m.inboundQueue <- task:
		m.observeInbound(env.Platform, InboundAccepted)
		m.logger.Info("inbound received",
			slog.String("platform", env.Platform.String()),
			slog.String("session", env.SessionKey),
			slog.Bool("from_me", env.FromMe),
			slog.String("text", adapterutil.SummarizeText(env.Body)),
		)
		return nil
	default:
		m.releaseDedup(dedupKey)
		m.observeInbound(env.Platform, InboundQueueFull)
		return ErrQueueFull
	}
}

func (m *Manager) releaseDedup(key string) {
	if key != "" {
		m.dedup.Delete(key)
	}
}

func (m *Manager) forward(ctx context.Context, env Envelope) error {
	fwdCtx := ctx
	if m.forwardTimeout > 0 {
		var cancel context.CancelFunc
		fwdCtx, cancel = context.WithTimeout(ctx, m.forwardTimeout)
		defer cancel()
	}
	if err := m.forwarder.Forward(fwdCtx, env); err != nil {
		return &ForwardError{Platform: env.Platform, MessageID: env.MessageID, Err: err}
	}
	return nil
}

func (m *Manager) startInboundWorkers(ctx context.Context) {
	m.inboundOnce.Do(func() {
		workerCtx := ctx
		if workerCtx == nil {
			workerCtx = context.Background()
		}
		m.inboundCtx, m.inboundCancel = context.WithCancel(context.WithoutCancel(workerCtx))
		for i := 0; i < m.inboundWorkers; i++ {
			m.workers.Add(1)
			go m.runInboundWorker(m.inboundCtx)
		}
	})
}

func (m *Manager) runInboundWorker(ctx context.Context) {
	defer m.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-m.inboundQueue:
			if err := m.forward(task.ctx, task.env); err != nil {
				m.observeInbound(task.env.Platform, InboundFailed)
				m.logger.Error("forward failed",
					slog.String("platform", task.env.Platform.String()),
					slog.String("message_id", task.env.MessageID),
					slog.Any("error", err),
				)
				continue
			}
			m.observeInbound(task.env.Platform, InboundForwarded)
		}
	}
}

func (m *Manager) observeInbound(platform Platform, outcome string) {
	if m.observer != nil {
		m.observer.ObserveInbound(platform, outcome)
	}
}
