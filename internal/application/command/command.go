// Package command contains write operations (CQRS - Commands).
//
// Every command is guarded by an access rule, takes its timestamps from an
// injected clock and publishes one domain event after a successful write.
package command

import (
	"context"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/pkg/logger"
	"github.com/cohort-hub/admissions/pkg/timeutil"
)

// Deps are the collaborators shared by all command handlers.
type Deps struct {
	Clock  timeutil.Clock
	Events shared.EventPublisher
	Logger *logger.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = timeutil.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return d
}

// publish sends the event after the write has already committed. A failing
// subscriber is logged and does not fail the command.
func (d Deps) publish(ctx context.Context, event shared.Event) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Publish(ctx, event); err != nil {
		d.Logger.Warn("event publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.StudentID(event.AggregateID()),
			logger.Err(err),
		)
	}
}
