package deploy

import (
	"context"
	"errors"
	"runtime"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrDeliveriesClosed is returned by Run when the broker stops delivering,
// usually because the connection or channel was closed.
var ErrDeliveriesClosed = errors.New("delivery channel closed")

// Notifier is told about every deployment that finished successfully.
type Notifier interface {
	Deployed(sender string)
}

type Options struct {
	// Platform is the GOOS the script may run on. Defaults to linux.
	Platform string
	Notifier Notifier
}

// Listener consumes platform messages and runs the deploy script for Deploy tasks.
type Listener struct {
	logger   *zap.Logger
	runner   Runner
	platform string
	goos     string
	notifier Notifier
}

func NewListener(logger *zap.Logger, runner Runner, options Options) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.Platform == "" {
		options.Platform = "linux"
	}
	return &Listener{
		logger:   logger,
		runner:   runner,
		platform: options.Platform,
		goos:     runtime.GOOS,
		notifier: options.Notifier,
	}
}

// Run handles deliveries one at a time until ctx is done or the channel is closed.
// It returns ctx.Err() or ErrDeliveriesClosed.
func (l *Listener) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				l.logger.Warn("delivery channel closed")
				return ErrDeliveriesClosed
			}
			l.handle(ctx, d)
		}
	}
}

func (l *Listener) handle(ctx context.Context, d amqp.Delivery) {
	msg, parseErr := ParseMessage(d.Body)
	if err := d.Ack(false); err != nil {
		l.logger.Error("failed to ack message", zap.Uint64("deliveryTag", d.DeliveryTag), zap.Error(err))
	}
	if parseErr != nil {
		l.logger.Warn("dropping undecodable message", zap.ByteString("body", d.Body), zap.Error(parseErr))
		return
	}

	logger := l.logger.With(zap.String("sender", msg.Sender))
	if msg.Task != TaskDeploy {
		logger.Debug("ignoring message without deploy task")
		return
	}
	if l.goos != l.platform {
		logger.Info("skipping deploy on foreign platform", zap.String("goos", l.goos), zap.String("platform", l.platform))
		return
	}

	logger.Info("deploy requested")
	output, err := l.runner.Run(ctx)
	if err != nil {
		logger.Error("deploy failed", zap.ByteString("output", output), zap.Error(err))
		return
	}
	logger.Info("deploy finished", zap.ByteString("output", output))
	if l.notifier != nil {
		l.notifier.Deployed(msg.Sender)
	}
}
