package channel

import (
	"context"
	"errors"
	"sync/atomic"
)

var ErrStopNotSupported = errors.New("channel connection stop not supported")

// Emitter receives canonical envelopes from adapters. Emit must not block.
type Emitter interface {
	Emit(ctx context.Context, env Envelope)
}

// Adapter is a platform integration.
type Adapter interface {
	Platform() Platform
}

// Sender delivers outbound messages on one platform.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Typer toggles the typing indicator on one platform.
type Typer interface {
	StartTyping(ctx context.Context, to string) error
	StopTyping(ctx context.Context, to string) error
}

// Receiver starts the platform's inbound loop and reports envelopes to emitter.
type Receiver interface {
	Connect(ctx context.Context, emitter Emitter) (Connection, error)
}

// StatusReporter exposes a platform's state for the status endpoint.
type StatusReporter interface {
	Status() map[string]any
}

type Connection interface {
	Platform() Platform
	Stop(ctx context.Context) error
	Running() bool
}

type BaseConnection struct {
	platform Platform
	stop     func(ctx context.Context) error
	running  atomic.Bool
}

func NewConnection(platform Platform, stop func(ctx context.Context) error) *BaseConnection {
	conn := &BaseConnection{
		platform: platform,
		stop:     stop,
	}
	conn.running.Store(true)
	return conn
}

func (c *BaseConnection) Platform() Platform {
	return c.platform
}

func (c *BaseConnection) Stop(ctx context.Context) error {
	if c.stop == nil {
		return ErrStopNotSupported
	}
	err := c.stop(ctx)
	if err == nil {
		c.running.Store(false)
	}
	return err
}

func (c *BaseConnection) Running() bool {
	return c.running.Load()
}

// BotObserver is told how many bots a platform has registered.
type BotObserver interface {
	SetBots(platform Platform, n int)
}
