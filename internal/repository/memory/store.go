// Package memory implements every repository interface over in-process
// maps guarded by an explicit locking discipline. It backs the server when
// no database is configured and all service-level tests.
package memory

import (
	"context"
	"sync"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/domain/repositories"
)

// Store holds all logical tables behind one writer lock. Individual
// operations take the lock themselves; ExecTx takes it once for the whole
// function so multi-record cascades (folder rename/delete) cannot
// interleave with concurrent mutations - the lost-update race a naive
// load-mutate-save cycle is open to.
type Store struct {
	mu sync.RWMutex

	documents      map[string]*models.Document
	versions       map[string][]*models.DocumentVersion // by document ID, ascending
	folders        map[string]*models.Folder
	users          map[string]*models.User
	usersByName    map[string]string
	agentTokens    map[string]*models.AgentToken
	tokensByPrefix map[string]string
	audit          []*models.AuditLogEntry
	idempotency    map[string]*models.IdempotencyRecord
	shares         map[string]*models.Share
	sharesByToken  map[string]string
	settings       *models.Settings
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents:      make(map[string]*models.Document),
		versions:       make(map[string][]*models.DocumentVersion),
		folders:        make(map[string]*models.Folder),
		users:          make(map[string]*models.User),
		usersByName:    make(map[string]string),
		agentTokens:    make(map[string]*models.AgentToken),
		tokensByPrefix: make(map[string]string),
		idempotency:    make(map[string]*models.IdempotencyRecord),
		shares:         make(map[string]*models.Share),
		sharesByToken:  make(map[string]string),
	}
}

type txMarker struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txMarker{}).(bool)
	return ok
}

// ExecTx implements repositories.TransactionManager. Memory transactions
// are an exclusive hold of the store lock, not a rollback scope.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, txMarker{}, true))
}

// rlock acquires the read lock unless the context already holds the
// transaction lock. Usage: defer s.rlock(ctx)()
func (s *Store) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// wlock acquires the write lock unless the context already holds the
// transaction lock.
func (s *Store) wlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}
