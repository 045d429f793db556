// File: internal/infra/db/filestore/session_store.go
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hosted-checkout/internal/domain"
	"hosted-checkout/internal/domain/model"
	"hosted-checkout/internal/domain/ports/repository"
)

var _ repository.CheckoutSessionRepository = (*SessionStore)(nil)

type fileData struct {
	Sessions map[string]*model.CheckoutSession `json:"sessions"`
}

// SessionStore keeps sessions in memory and, when a path is set, mirrors them
// to a JSON file after every write. A single mutex serializes all access, which
// makes UpdateIfPending a compare-and-swap.
type SessionStore struct {
	mu       sync.Mutex
	path     string
	sessions map[string]*model.CheckoutSession
	log      zerolog.Logger
}

// NewMemory returns a store that never touches disk.
func NewMemory(logger *zerolog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*model.CheckoutSession),
		log:      logger.With().Str("component", "session_store").Str("backend", "memory").Logger(),
	}
}

// Open loads path if it exists and persists every change back to it.
func Open(path string, logger *zerolog.Logger) (*SessionStore, error) {
	s := &SessionStore{
		path:     path,
		sessions: make(map[string]*model.CheckoutSession),
		log:      logger.With().Str("component", "session_store").Str("backend", "file").Logger(),
	}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	case len(b) > 0:
		var data fileData
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for id, sess := range data.Sessions {
			s.sessions[id] = sess
		}
	}
	s.log.Info().Str("path", path).Int("sessions", len(s.sessions)).Msg("session file loaded")
	return s, nil
}

func (s *SessionStore) Create(ctx context.Context, sess *model.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.CheckoutID]; ok {
		return domain.ErrAlreadyExists
	}
	s.sessions[sess.CheckoutID] = sess.Clone()
	if err := s.flush(); err != nil {
		delete(s.sessions, sess.CheckoutID)
		return err
	}
	return nil
}

func (s *SessionStore) FindByID(ctx context.Context, id string) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *SessionStore) FindByInvoiceID(ctx context.Context, invoiceID string) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Invoice != nil && sess.Invoice.InvoiceID == invoiceID {
			return sess.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *SessionStore) Update(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return s.apply(id, patch, false)
}

func (s *SessionStore) UpdateIfPending(ctx context.Context, id string, patch model.SessionPatch) (*model.CheckoutSession, error) {
	return s.apply(id, patch, true)
}

func (s *SessionStore) apply(id string, patch model.SessionPatch, onlyPending bool) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if onlyPending && cur.Status != model.CheckoutStatusPending {
		return nil, domain.ErrInvalidStatus
	}
	next := cur.Clone()
	patch.Apply(next)
	s.sessions[id] = next
	if err := s.flush(); err != nil {
		s.sessions[id] = cur
		return nil, err
	}
	return next.Clone(), nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	if err := s.flush(); err != nil {
		s.sessions[id] = cur
		return err
	}
	return nil
}

func (s *SessionStore) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make(map[string]*model.CheckoutSession)
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) {
			removed[id] = sess
			delete(s.sessions, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := s.flush(); err != nil {
		for id, sess := range removed {
			s.sessions[id] = sess
		}
		return 0, err
	}
	return len(removed), nil
}

// flush writes the whole map to a temp file and renames it over path.
// Callers hold s.mu.
func (s *SessionStore) flush() error {
	if s.path == "" {
		return nil
	}
	b, err := json.MarshalIndent(fileData{Sessions: s.sessions}, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode sessions")
		return domain.ErrOperationFailed
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".sessions-*.json")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create temp file")
		return domain.ErrOperationFailed
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		s.log.Error().Err(err).Msg("failed to write sessions")
		return domain.ErrOperationFailed
	}
	if err := tmp.Close(); err != nil {
		return domain.ErrOperationFailed
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		s.log.Error().Err(err).Msg("failed to replace session file")
		return domain.ErrOperationFailed
	}
	return nil
}
