package channel

import (
	"sync"
)

// Outcome is what a pending request ends with.
type Outcome struct {
	Response Response
	Err      error
}

// CorrelationTable holds the pending requests of one side of the channel.
// Entries are inserted when a request is sent and removed when its response
// arrives, the caller gives up or the connection drops.
type CorrelationTable struct {
	mu      sync.Mutex
	pending map[string]chan Outcome
}

// NewCorrelationTable returns an empty correlation table.
func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{pending: map[string]chan Outcome{}}
}

// Register adds a pending request.
func (t *CorrelationTable) Register(id string) <-chan Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Outcome, 1)
	t.pending[id] = ch
	return ch
}

// Resolve delivers a response to its pending request. Returns false when
// nobody waits for that id.
func (t *CorrelationTable) Resolve(resp Response) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, ok := t.pending[resp.ID]
	if !ok {
		return false
	}
	delete(t.pending, resp.ID)
	ch <- Outcome{Response: resp}
	return true
}

// Has returns true if the id is pending.
func (t *CorrelationTable) Has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[id]
	return ok
}

// Remove forgets a pending request.
func (t *CorrelationTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

// AbandonAll fails every pending request with err.
func (t *CorrelationTable) AbandonAll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, ch := range t.pending {
		ch <- Outcome{Err: err}
		delete(t.pending, id)
	}
}

// Len returns the number of pending requests.
func (t *CorrelationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
