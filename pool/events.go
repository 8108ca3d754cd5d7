package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// EventType identifies the state change an Event notifies.
type EventType string

const (
	EventOwnerSet          EventType = "owner-set"
	EventScoreSubmitted    EventType = "score-submitted"
	EventAverageRecomputed EventType = "average-recomputed"
	EventAccessGranted     EventType = "access-granted"
	EventMadePublic        EventType = "made-public"
)

// Event is the notification emitted after every committed state change.
type Event struct {
	ID    uuid.UUID      `json:"id"`
	Type  EventType      `json:"type"`
	Pool  types.PoolID   `json:"pool"`
	Count uint64         `json:"count,omitempty"` // set on score-submitted
	To    common.Address `json:"to,omitempty"`    // set on owner-set and access-granted
}

// eventChanBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events.
const eventChanBuffer = 64

// Subscribe registers a new notification channel. Events committed after the
// call are delivered in commit order.
func (p *Pools) Subscribe() <-chan Event {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	ch := make(chan Event, eventChanBuffer)
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// emit delivers the event to every subscriber and logs it. Slow subscribers
// are skipped rather than blocking the core.
func (p *Pools) emit(ev Event) {
	ev.ID = uuid.New()
	log.Debugw("pool event",
		"event", string(ev.Type),
		"pool", ev.Pool.String(),
		"count", ev.Count,
		"to", ev.To.Hex(),
	)
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
			log.Warnw("dropping pool event, subscriber is behind",
				"event", string(ev.Type), "pool", ev.Pool.String())
		}
	}
}
