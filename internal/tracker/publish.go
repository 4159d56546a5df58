package tracker

import (
	"context"
	"fmt"

	"volumetracker/internal/market"
	"volumetracker/pkg/storage/filestore"
)

// Publisher receives the combined view after every cycle.
type Publisher interface {
	Publish(ctx context.Context, view market.View) error
}

// PublisherFunc is a function adapter for Publisher.
type PublisherFunc func(context.Context, market.View) error

func (f PublisherFunc) Publish(ctx context.Context, v market.View) error {
	return f(ctx, v)
}

// FilePublisher rewrites the combined data artifact (current_data.json) that
// static front-ends read.
type FilePublisher struct {
	Path string
}

func (p FilePublisher) Publish(_ context.Context, view market.View) error {
	if err := filestore.WriteJSON(p.Path, view); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, p.Path, err)
	}
	return nil
}
