package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/treeplug/internal/catalogsync"
	"github.com/specialistvlad/treeplug/internal/ctxlog"
)

// Publish connects to the configured socket.io endpoint and mirrors the
// registry to it until ctx is done. It is a no-op without a PublishURL.
func (a *App) Publish(ctx context.Context) (stop func(), err error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.PublishURL == "" {
		logger.Debug("Catalog publisher not started: no URL configured.")
		return func() {}, nil
	}

	emitter, err := catalogsync.Dial(ctx, catalogsync.DialOptions{
		URL:       a.config.PublishURL,
		Namespace: a.config.PublishNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("starting catalog publisher: %w", err)
	}
	detach := catalogsync.NewPublisher(emitter).Attach(ctx, a.registry)

	return func() {
		detach()
		if err := emitter.Close(); err != nil {
			logger.Warn("Closing catalog publisher failed.", "error", err)
		}
	}, nil
}
