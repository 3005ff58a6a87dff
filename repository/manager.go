package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-jobportal"
	"github.com/uptrace/bun"
)

var _ auth.PrincipalTransactor = (*Manager)(nil)

// Manager groups the stores over one database handle.
type Manager struct {
	db           *bun.DB
	principals   *PrincipalStore
	jobs         *JobStore
	applications *ApplicationStore
	links        *LinkedAccountStore
	activity     *ActivityStore
}

// NewManager builds every store on db.
func NewManager(db *bun.DB) *Manager {
	return &Manager{
		db:           db,
		principals:   NewPrincipalStore(db),
		jobs:         NewJobStore(db),
		applications: NewApplicationStore(db),
		links:        NewLinkedAccountStore(db),
		activity:     NewActivityStore(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.principals == nil || m.jobs == nil || m.applications == nil || m.links == nil || m.activity == nil {
		return errors.New("repository stores should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// RunInTx runs f with a Manager whose stores share one transaction.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx *TxManager) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
			return f(ctx, &TxManager{
				Principals:   m.principals.WithTx(tx),
				Jobs:         m.jobs.WithTx(tx),
				Applications: NewApplicationStore(tx),
				Links:        NewLinkedAccountStore(tx),
			})
		})
	}
}

// RunPrincipalTx implements auth.PrincipalTransactor.
func (m *Manager) RunPrincipalTx(ctx context.Context, f func(ctx context.Context, store auth.PrincipalStore) error) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx *TxManager) error {
		return f(ctx, tx.Principals)
	})
}

// TxManager exposes the stores bound to a transaction.
type TxManager struct {
	Principals   *PrincipalStore
	Jobs         *JobStore
	Applications *ApplicationStore
	Links        *LinkedAccountStore
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Principals() *PrincipalStore {
	return m.principals
}

func (m *Manager) Jobs() *JobStore {
	return m.jobs
}

func (m *Manager) Applications() *ApplicationStore {
	return m.applications
}

func (m *Manager) LinkedAccounts() *LinkedAccountStore {
	return m.links
}

func (m *Manager) Activity() *ActivityStore {
	return m.activity
}
