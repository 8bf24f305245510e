package chat

import (
	"context"
	"sync"
)

// MemoryHistory keeps histories in process memory
type MemoryHistory struct {
	mu      sync.Mutex
	max     int
	entries map[string][]Entry
}

// NewMemoryHistory keeps at most max entries per user (MaxEntries when max <= 0)
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = MaxEntries
	}
	return &MemoryHistory{max: max, entries: make(map[string][]Entry)}
}

func (h *MemoryHistory) Append(_ context.Context, e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[e.UserID], e)
	if len(list) > h.max {
		list = append([]Entry(nil), list[len(list)-h.max:]...)
	}
	h.entries[e.UserID] = list
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, userID string, n int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.entries[userID]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]Entry, len(list))
	copy(out, list)
	return out, nil
}
