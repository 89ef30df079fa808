package interfaces

import (
	"context"

	"github.com/civicpulse/pulse/pkg/domain/model"
)

// Broadcaster fans updated tallies out to live listeners. Delivery is
// best-effort and at-most-once; Publish must never block the caller on a
// slow listener. The broadcaster is injected at construction so the
// publish target is testable and swappable.
type Broadcaster interface {
	Publish(ctx context.Context, event *model.ResultsEvent)
}
