// Package memory keeps threads and messages in process memory. It backs
// local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"QuoteChat/entity"
)

type pairKey struct {
	customerID int64
	productID  int64
}

type Store struct {
	mu       sync.RWMutex
	threads  map[string]*entity.Thread
	byPair   map[pairKey]string
	messages map[string][]entity.Message
	now      func() time.Time
}

func New() *Store {
	return &Store{
		threads:  make(map[string]*entity.Thread),
		byPair:   make(map[pairKey]string),
		messages: make(map[string][]entity.Message),
		now:      time.Now,
	}
}

func (s *Store) GetOrCreateThread(_ context.Context, thread *entity.Thread, seed *entity.Message) (*entity.Thread, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{thread.CustomerID, thread.ProductID}
	if id, ok := s.byPair[key]; ok {
		return s.threads[id].Clone(), false, nil
	}

	stored := thread.Clone()
	now := s.now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if seed != nil {
		seed.ThreadID = stored.ID
		stored.LastMessageAt = entity.StampMessages(stored.LastMessageAt, now, []*entity.Message{seed})
		s.messages[stored.ID] = append(s.messages[stored.ID], *seed)
	}
	s.threads[stored.ID] = stored
	s.byPair[key] = stored.ID

	*thread = *stored
	return stored.Clone(), true, nil
}

func (s *Store) GetThread(_ context.Context, id string) (*entity.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	thread, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", id, entity.ErrNotFound)
	}
	return thread.Clone(), nil
}

func (s *Store) ListThreads(_ context.Context, filter entity.ThreadFilter) ([]entity.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entity.Thread, 0, len(s.threads))
	for _, thread := range s.threads {
		if filter.CustomerID != 0 && thread.CustomerID != filter.CustomerID {
			continue
		}
		if filter.Status != "" && thread.Status != filter.Status {
			continue
		}
		result = append(result, *thread)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LastMessageAt.Equal(result[j].LastMessageAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].LastMessageAt.After(result[j].LastMessageAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) ListMessages(_ context.Context, threadID string, since *time.Time) ([]entity.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}

	log := s.messages[threadID]
	start := 0
	if since != nil {
		// the log is ordered by created_at
		start = sort.Search(len(log), func(i int) bool {
			return log[i].CreatedAt.After(*since)
		})
	}
	result := make([]entity.Message, len(log)-start)
	copy(result, log[start:])
	return result, nil
}

func (s *Store) Commit(_ context.Context, thread *entity.Thread, expectedVersion int64, msgs []*entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.threads[thread.ID]
	if !ok {
		return fmt.Errorf("thread %s: %w", thread.ID, entity.ErrNotFound)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("thread %s at version %d, expected %d: %w", thread.ID, stored.Version, expectedVersion, entity.ErrConflict)
	}

	now := s.now().UTC()
	last := entity.StampMessages(stored.LastMessageAt, now, msgs)
	for _, msg := range msgs {
		msg.ThreadID = thread.ID
		s.messages[thread.ID] = append(s.messages[thread.ID], *msg)
	}

	thread.Version = expectedVersion + 1
	thread.LastMessageAt = last
	thread.UpdatedAt = now
	// identity columns never change
	thread.CustomerID = stored.CustomerID
	thread.ProductID = stored.ProductID
	thread.CreatedAt = stored.CreatedAt
	s.threads[thread.ID] = thread.Clone()
	return nil
}

func (s *Store) SetStatus(_ context.Context, threadID string, status entity.ThreadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, entity.ErrNotFound)
	}
	stored.Status = status
	stored.Version++
	stored.UpdatedAt = s.now().UTC()
	return nil
}
