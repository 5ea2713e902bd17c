package memory

import (
	"context"
	"time"

	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/retention"
)

// Promoter consumes turn.completed events and uploads sessions the
// retention classifier deems valuable. It runs entirely off the response
// path: an upload failure is logged and dropped, never surfaced to the
// user-facing turn.
type Promoter struct {
	service Service
	bus     *event.Bus
	timeout time.Duration
	unsub   func()
}

// NewPromoter wires a promoter to the bus. Call Stop to detach it.
func NewPromoter(service Service, bus *event.Bus) *Promoter {
	p := &Promoter{
		service: service,
		bus:     bus,
		timeout: 30 * time.Second,
	}
	p.unsub = bus.Subscribe(event.TurnCompleted, p.handle)
	return p
}

// Stop detaches the promoter from the bus.
func (p *Promoter) Stop() {
	if p.unsub != nil {
		p.unsub()
	}
}

func (p *Promoter) handle(ev event.Event) {
	data, ok := ev.Data.(event.TurnCompletedData)
	if !ok || data.Session == nil {
		return
	}

	if !retention.ShouldPromote(data.Session, data.Message) {
		logging.Debug().
			Str("sessionID", data.Session.ID).
			Msg("session not promoted")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.service.AddSession(ctx, data.Session); err != nil {
		logging.Warn().
			Err(err).
			Str("sessionID", data.Session.ID).
			Msg("knowledge store upload failed, dropping for this turn")
		return
	}

	logging.Info().
		Str("sessionID", data.Session.ID).
		Str("userID", data.Session.UserID).
		Msg("session promoted to knowledge store")

	p.bus.Publish(event.Event{
		Type: event.MemoryPromoted,
		Data: event.MemoryPromotedData{
			SessionID: data.Session.ID,
			UserID:    data.Session.UserID,
		},
	})
}
