package logstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/verte-zerg/topicq/internal/store"
)

// AccordionKey is the blob key holding open/closed flags of the browse view.
const AccordionKey = "accordion_open_v1"

// Accordion persists per group/person expanded flags. Unknown pairs are closed.
type Accordion struct {
	mu    sync.Mutex
	blobs store.Blobs
}

// NewAccordion returns an Accordion over blobs.
func NewAccordion(blobs store.Blobs) *Accordion {
	return &Accordion{blobs: blobs}
}

// IsOpen reports the stored flag for the pair.
func (a *Accordion) IsOpen(ctx context.Context, groupID, personID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)[accordionKey(groupID, personID)]
}

// Snapshot reads the stored flags once and returns a lookup over them.
func (a *Accordion) Snapshot(ctx context.Context) func(groupID, personID string) bool {
	a.mu.Lock()
	state := a.load(ctx)
	a.mu.Unlock()
	return func(groupID, personID string) bool {
		return state[accordionKey(groupID, personID)]
	}
}

// SetOpen stores the flag for the pair.
func (a *Accordion) SetOpen(ctx context.Context, groupID, personID string, open bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	state := a.load(ctx)
	state[accordionKey(groupID, personID)] = open
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode accordion state: %w", err)
	}
	if err := a.blobs.Put(ctx, AccordionKey, data); err != nil {
		return fmt.Errorf("failed to write accordion state: %w", err)
	}
	return nil
}

func (a *Accordion) load(ctx context.Context) map[string]bool {
	state := map[string]bool{}
	data, ok, err := a.blobs.Get(ctx, AccordionKey)
	if err != nil || !ok {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil || state == nil {
		return map[string]bool{}
	}
	return state
}

func accordionKey(groupID, personID string) string {
	return groupID + "|" + personID
}
