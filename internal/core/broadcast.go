package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// DeliveryReport summarizes one broadcast: how many sends were attempted and
// which connections failed to accept the event.
type DeliveryReport struct {
	Attempted int
	Failed    []string
}

// BroadcastEngine fans an event out to every current member of a room.
//
// Broadcasts on the same room are serialized through a per-room mutex so two
// sequential broadcasts are observed by every member in submission order.
// Broadcasts on different rooms proceed in parallel. The membership snapshot
// is taken from the RoomTable under the room lock, so a departing connection
// never sees a notification about its own departure.
type BroadcastEngine struct {
	rooms    *RoomTable
	registry *PresenceRegistry
	log      *zerolog.Logger

	// onSendFailure is invoked asynchronously for every connection whose
	// send failed; the session manager routes it through the disconnect path.
	onSendFailure func(connID string)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewBroadcastEngine constructs an engine over the given table and registry.
func NewBroadcastEngine(rooms *RoomTable, registry *PresenceRegistry, logger *zerolog.Logger) *BroadcastEngine {
	return &BroadcastEngine{
		rooms:    rooms,
		registry: registry,
		log:      logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// OnSendFailure registers the failure callback. Must be set before the first
// broadcast; the session manager does this during wiring.
func (e *BroadcastEngine) OnSendFailure(fn func(connID string)) {
	e.onSendFailure = fn
}

// Broadcast delivers the event to every member of the room except exclude
// (empty string excludes nobody). A failed send is recorded in the report and
// handed to the failure callback; it never aborts delivery to other members.
func (e *BroadcastEngine) Broadcast(room string, ev *Event, exclude string) DeliveryReport {
	lock := e.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	var report DeliveryReport
	for _, connID := range e.rooms.MembersOf(room) {
		if connID == exclude {
			continue
		}
		conn, ok := e.registry.Conn(connID)
		if !ok {
			// Deregistered between snapshot and send; nothing to deliver.
			continue
		}

		report.Attempted++
		if err := conn.Send(ev); err != nil {
			report.Failed = append(report.Failed, connID)
			e.log.Warn().Err(err).
				Str("conn_id", connID).
				Str("room", room).
				Msg("broadcast send failed")
			if e.onSendFailure != nil {
				go e.onSendFailure(connID)
			}
		}
	}
	return report
}

func (e *BroadcastEngine) roomLock(room string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[room]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[room] = lock
	}
	return lock
}
