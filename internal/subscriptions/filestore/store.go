// Package filestore keeps subscriptions in a single JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/subscriptions"
)

// Store implements subscriptions.Repository on top of a JSON array file.
// The whole file is read on every call and rewritten through a temporary
// file and rename, so readers never observe a partial write.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by path. The parent directory is created if needed.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Create appends sub to the file.
func (s *Store) Create(_ context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return err
	}
	for i := range subs {
		if subs[i].Email == sub.Email {
			return subscriptions.ErrAlreadySubscribed
		}
	}
	return s.save(append(subs, *sub))
}

// GetByEmail returns the subscription for email.
func (s *Store) GetByEmail(_ context.Context, email string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].Email == email {
			sub := subs[i]
			return &sub, nil
		}
	}
	return nil, subscriptions.ErrNotFound
}

// DeleteByEmail removes the subscription for email.
func (s *Store) DeleteByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return err
	}
	kept := subs[:0]
	for _, sub := range subs {
		if sub.Email != email {
			kept = append(kept, sub)
		}
	}
	if len(kept) == len(subs) {
		return subscriptions.ErrNotFound
	}
	return s.save(kept)
}

// List returns all subscriptions, oldest first.
func (s *Store) List(_ context.Context) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// load reads the file. A missing or empty file is an empty list.
func (s *Store) load() ([]domain.Subscription, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Subscription{}, nil
		}
		return nil, fmt.Errorf("read subscriptions: %w", err)
	}
	subs := make([]domain.Subscription, 0)
	if len(data) == 0 {
		return subs, nil
	}
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("decode subscriptions: %w", err)
	}
	return subs, nil
}

func (s *Store) save(subs []domain.Subscription) error {
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscriptions-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write subscriptions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace subscriptions file: %w", err)
	}
	return nil
}
