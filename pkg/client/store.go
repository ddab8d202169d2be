package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
)

// Event is a row change notification from the realtime feed
type Event struct {
	Table          string          `json:"table"`
	Type           string          `json:"type"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	RowID          uuid.UUID       `json:"row_id"`
	New            json.RawMessage `json:"new,omitempty"`
	Old            json.RawMessage `json:"old,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Event types mirror the server's change feed
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Entity is anything with a row id
type Entity interface {
	GetID() uuid.UUID
}

// EventSink receives change events for one table
type EventSink interface {
	Table() string
	ApplyEvent(event Event)
}

// Store holds one collection in memory and keeps it fresh: Load fetches
// the current page, ApplyEvent folds realtime changes in incrementally.
// All methods are safe for concurrent use.
type Store[T Entity] struct {
	client *Client
	path   string
	table  string

	mu         sync.RWMutex
	items      []T
	total      int64
	generation uint64
	loading    bool
	err        error
}

// NewStore creates a store for the collection at path (e.g. "/contacts")
// fed by change events for table (e.g. "contacts").
func NewStore[T Entity](client *Client, path, table string) *Store[T] {
	return &Store[T]{client: client, path: path, table: table}
}

// Table returns the change-feed table this store listens on
func (s *Store[T]) Table() string {
	return s.table
}

// Load fetches the collection. A Reset between the request and the
// response (scope change) makes the stale result a no-op.
func (s *Store[T]) Load(ctx context.Context) error {
	return s.LoadWith(ctx, nil)
}

// LoadWith fetches the collection with extra query parameters
func (s *Store[T]) LoadWith(ctx context.Context, query url.Values) error {
	s.mu.Lock()
	s.loading = true
	gen := s.generation
	s.mu.Unlock()

	path := s.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page models.PaginationResult[T]
	err := s.client.get(ctx, path, &page)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		// Scope changed mid-flight, drop the result
		return nil
	}

	s.loading = false
	s.err = err
	if err != nil {
		return err
	}

	s.items = page.Data
	s.total = page.Total
	return nil
}

// Reset clears local state and invalidates any in-flight Load
func (s *Store[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.items = nil
	s.total = 0
	s.loading = false
	s.err = nil
}

// Items returns a copy of the current collection
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id
func (s *Store[T]) Get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of locally held items
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Total returns the server-side collection size from the last Load
func (s *Store[T]) Total() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Loading reports whether a Load is in flight
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last Load error
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Upsert inserts or replaces an item locally. Used for optimistic writes;
// the matching change event later reconciles by id instead of duplicating.
func (s *Store[T]) Upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].GetID() == item.GetID() {
			s.items[i] = item
			return
		}
	}
	s.items = append([]T{item}, s.items...)
	s.total++
}

// Remove deletes an item locally
func (s *Store[T]) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *Store[T]) removeLocked(id uuid.UUID) {
	for i := range s.items {
		if s.items[i].GetID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.total > 0 {
				s.total--
			}
			return
		}
	}
}

// ApplyEvent folds a change event into local state. Inserts prepend unless
// an optimistic copy already exists; updates merge only the fields present
// in the payload, preserving optimistic local fields; deletes remove.
func (s *Store[T]) ApplyEvent(event Event) {
	if event.Table != s.table {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case EventInsert:
		for i := range s.items {
			if s.items[i].GetID() == event.RowID {
				// Optimistic copy already present, merge instead
				json.Unmarshal(event.New, &s.items[i])
				return
			}
		}
		var item T
		if err := json.Unmarshal(event.New, &item); err != nil {
			return
		}
		s.items = append([]T{item}, s.items...)
		s.total++

	case EventUpdate:
		for i := range s.items {
			if s.items[i].GetID() == event.RowID {
				json.Unmarshal(event.New, &s.items[i])
				return
			}
		}

	case EventDelete:
		s.removeLocked(event.RowID)
	}
}

// Create posts a new item to the collection and upserts the response
// locally so it shows before the change event arrives.
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	var created T
	if err := s.client.post(ctx, s.path, item, &created); err != nil {
		return created, err
	}
	s.Upsert(created)
	return created, nil
}

// Update puts an item and upserts the response locally
func (s *Store[T]) Update(ctx context.Context, item T) (T, error) {
	var updated T
	path := fmt.Sprintf("%s/%s", s.path, item.GetID())
	if err := s.client.put(ctx, path, item, &updated); err != nil {
		return updated, err
	}
	s.Upsert(updated)
	return updated, nil
}

// Delete removes an item remotely and locally
func (s *Store[T]) Delete(ctx context.Context, id uuid.UUID) error {
	path := fmt.Sprintf("%s/%s", s.path, id)
	if err := s.client.delete(ctx, path); err != nil {
		return err
	}
	s.Remove(id)
	return nil
}
