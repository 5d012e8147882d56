package canbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/oshokin/can-sentry/internal/logger"
)

// loggedBus decorates a Bus with debug-level frame tracing. Errors pass
// through untouched; reporting them is the caller's concern.
type loggedBus struct {
	inner Bus
	log   *zap.SugaredLogger
}

// NewLogged wraps the given bus so every frame sent or received is traced
// at debug level through the logger carried by ctx.
func NewLogged(ctx context.Context, inner Bus) Bus {
	return &loggedBus{
		inner: inner,
		log:   logger.FromContext(ctx),
	}
}

// Send traces the frame after a successful transmit.
func (l *loggedBus) Send(frame Frame) error {
	err := l.inner.Send(frame)
	if err == nil {
		l.log.Debugw("can send", "frame", frame.String())
	}

	return err
}

// Receive traces the frame after a successful read.
func (l *loggedBus) Receive() (Frame, error) {
	frame, err := l.inner.Receive()
	if err == nil {
		l.log.Debugw("can receive", "frame", frame.String())
	}

	return frame, err
}

// Close closes the underlying bus.
func (l *loggedBus) Close() error {
	return l.inner.Close()
}
