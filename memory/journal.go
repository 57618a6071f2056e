package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Entry is a single recorded compaction event.
type Entry struct {
	ID              string
	Summary         string
	SummarizedCount int
	CreatedAt       time.Time
}

// Journal is a process-local, append-only record of compaction events keyed
// by session. It exists so callers can inspect what the engine folded away
// and search past summaries.
//
// Concurrency: protected by RWMutex. Search is a linear substring scan,
// case sensitive; fine for the volumes a single chat client produces.
type Journal struct {
	mu      sync.RWMutex
	entries map[string][]Entry // sessionID -> ordered events
}

// NewJournal creates an empty Journal.
func NewJournal() *Journal {
	return &Journal{entries: make(map[string][]Entry)}
}

// Record appends a compaction event for the session.
func (j *Journal) Record(sessionID string, res Result) {
	if !res.Compacted {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	id := fmt.Sprintf("compaction_%d", len(j.entries[sessionID]))
	j.entries[sessionID] = append(j.entries[sessionID], Entry{
		ID:              id,
		Summary:         res.Summary,
		SummarizedCount: res.SummarizedCount,
		CreatedAt:       time.Now(),
	})
}

// Entries returns a copy of the session's compaction history in order.
func (j *Journal) Entries(sessionID string) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	stored := j.entries[sessionID]
	out := make([]Entry, len(stored))
	copy(out, stored)
	return out
}

// Search returns up to limit entries whose summary contains query. An empty
// query matches everything.
func (j *Journal) Search(sessionID, query string, limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var out []Entry
	for _, e := range j.entries[sessionID] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if query == "" || strings.Contains(e.Summary, query) {
			out = append(out, e)
		}
	}
	return out
}

// Delete removes the session's entire compaction history.
func (j *Journal) Delete(sessionID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, sessionID)
}
