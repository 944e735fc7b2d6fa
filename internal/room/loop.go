package room

import (
	"log"
	"time"
)

// DefaultFramerate is the tick frequency when none is configured.
const DefaultFramerate = 15

// Loop is the gravity driver: a fixed-rate ticker that advances every
// started room. Rooms that are not started are simply skipped; there is
// no per-room cancellation.
type Loop struct {
	hub      *Hub
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewLoop creates a driver ticking 1000/framerate milliseconds apart.
func NewLoop(hub *Hub, framerate int) *Loop {
	if framerate <= 0 {
		framerate = DefaultFramerate
	}
	return &Loop{
		hub:      hub,
		interval: time.Second / time.Duration(framerate),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run blocks, ticking until Stop is called. A tick that fires late is
// not compensated for; the period just resumes from there.
func (l *Loop) Run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.tickAll()
		case <-l.stop:
			return
		}
	}
}

// Stop shuts the driver down and waits for the current tick to finish.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Loop) tickAll() {
	for _, r := range l.hub.Rooms() {
		tickRoom(r)
	}
}

// tickRoom isolates one room's tick: a fault in one room must never
// take the driver down with it, so the room is skipped until the next
// scheduled tick.
func tickRoom(r *Room) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("tick panic in room %s: %v", r.Name(), err)
		}
	}()
	r.Tick()
}
