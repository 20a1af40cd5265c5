// internal/agent/agent.go
package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/signalnine/vintel/internal/config"
	"github.com/signalnine/vintel/internal/protocol"
	"github.com/signalnine/vintel/internal/watcher"
)

// Handler consumes parsed messages
type Handler interface {
	Handle(msg *protocol.Message)
}

// Agent is the single consumer of file change events
type Agent struct {
	cfg      *config.Config
	ingester *Ingester
	handler  Handler
	mu       sync.Locker
	primed   bool
}

// New creates a new agent. mu is held while a batch of lines is parsed
// and handled, so readers of the map never see it half updated; nil
// means no one else reads it.
func New(cfg *config.Config, ingester *Ingester, handler Handler, mu sync.Locker) *Agent {
	if mu == nil {
		mu = noLock{}
	}
	return &Agent{
		cfg:      cfg,
		ingester: ingester,
		handler:  handler,
		mu:       mu,
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// Prime registers the recent logs at their current length and hands the
// replayed locations to the handler. The watcher must be created after it,
// otherwise lines written in between are only seen with the next write.
func (a *Agent) Prime() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.primed = true
	primed, err := a.ingester.Prime(a.cfg.LogDir, a.cfg.MaxLogAge, time.Now())
	if err != nil {
		return fmt.Errorf("prime %s: %w", a.cfg.LogDir, err)
	}
	for _, msg := range primed {
		a.handler.Handle(msg)
	}
	log.Printf("Primed %d locations", len(primed))
	return nil
}

// Run primes the recent logs unless Prime was called, catches up on the
// primed files and then handles events until the context is cancelled or
// the event channel closes
func (a *Agent) Run(ctx context.Context, events <-chan watcher.Event) error {
	log.Printf("Agent starting: log_dir=%s rooms=%s",
		a.cfg.LogDir, strings.Join(a.cfg.Rooms, ","))

	if !a.primed {
		if err := a.Prime(); err != nil {
			log.Printf("Prime error: %v", err)
		}
	}
	// lines written between Prime and the watcher's first scan
	for _, src := range a.ingester.Sources() {
		a.process(watcher.Event{Path: src.Path, Room: src.Room})
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Agent shutting down")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			a.process(ev)
		}
	}
}

func (a *Agent) process(ev watcher.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, msg := range a.ingester.FileChanged(ev.Path, ev.Room) {
		a.handler.Handle(msg)
	}
}
