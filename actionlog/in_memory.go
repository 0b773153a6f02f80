package actionlog

import (
	"context"
	"sync"

	"github.com/openagora/agora/core"
)

// InMemoryStore is a volatile ActionLog implementation keeping all records in
// a process-local slice. It is safe for concurrent use and best suited for
// tests and single-process simulation runs. Records are value types, so
// callers can never mutate stored state through query results.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []core.Record
	nextSeq int64
}

// NewInMemoryStore constructs an empty in-memory action log.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextSeq: 1}
}

// Append implements core.ActionLog. The assigned sequence number defines the
// total append order; per-recipient delivery order follows from it.
func (s *InMemoryStore) Append(ctx context.Context, a core.Action) (core.AppendResult, error) {
	if err := ctx.Err(); err != nil {
		return core.AppendResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq
	s.nextSeq++
	s.records = append(s.records, core.Record{Seq: seq, Action: a})
	return core.AppendResult{Seq: seq}, nil
}

// Query implements core.ActionLog returning matches in append order.
func (s *InMemoryStore) Query(ctx context.Context, f core.Filter) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Record
	for _, rec := range s.records {
		if !Matches(rec, f) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of appended records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
