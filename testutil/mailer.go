package testutil

import (
	"context"
	"sync"

	"teetime/mailer"
)

// Mailer records sent emails. When Err is set, Send fails and records nothing.
type Mailer struct {
	mu   sync.Mutex
	Sent []mailer.Email
	Err  error
}

func (m *Mailer) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, e)
	return nil
}

func (m *Mailer) Emails() []mailer.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mailer.Email, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// Store is an in-memory object store. Delete records every attempt and
// returns DeleteErr when set.
type Store struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	DeleteErr error
}

func NewStore() *Store {
	return &Store{Objects: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[key] = body
	return "https://cdn.test/" + key, nil
}

func (s *Store) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, url)
	return s.DeleteErr
}
