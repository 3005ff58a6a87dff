package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PrincipalStore implements auth.PrincipalStore on a go-repository-bun
// repository keyed by email.
type PrincipalStore struct {
	repository.Repository[*auth.Principal]
	db bun.IDB
}

var _ auth.PrincipalStore = (*PrincipalStore)(nil)

// NewPrincipalStore creates a new store.
func NewPrincipalStore(db *bun.DB) *PrincipalStore {
	repo := repository.NewRepository[*auth.Principal](db, repository.ModelHandlers[*auth.Principal]{
		NewRecord: func() *auth.Principal { return &auth.Principal{} },
		GetID: func(p *auth.Principal) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *auth.Principal, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})
	return &PrincipalStore{Repository: repo, db: db}
}

// WithTx returns a copy of the store whose queries run on tx.
func (s *PrincipalStore) WithTx(tx bun.IDB) *PrincipalStore {
	return &PrincipalStore{Repository: s.Repository, db: tx}
}

// FindPrincipalByEmail implements auth.PrincipalStore.
func (s *PrincipalStore) FindPrincipalByEmail(ctx context.Context, email string) (*auth.Principal, error) {
	email = auth.NormalizeEmail(email)
	p, err := s.Repository.GetByIdentifierTx(ctx, s.db, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, auth.WithDetails(auth.ErrPrincipalNotFound, nil, map[string]any{"email": email})
		}
		return nil, err
	}
	return p, nil
}

// SavePrincipal implements auth.PrincipalStore. The unique email index
// decides races between concurrent inserts.
func (s *PrincipalStore) SavePrincipal(ctx context.Context, p *auth.Principal) (*auth.Principal, error) {
	row := *p
	row.Email = auth.NormalizeEmail(row.Email)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt == nil {
		row.CreatedAt = &now
	}
	row.UpdatedAt = &now

	created, err := s.Repository.CreateTx(ctx, s.db, &row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, auth.WithDetails(auth.ErrPrincipalExists, err, map[string]any{"email": row.Email})
		}
		return nil, err
	}
	if created == nil {
		created = &row
	}
	return created, nil
}

// UpdatePrincipalRole implements auth.PrincipalStore. Only the role and
// updated_at columns are written.
func (s *PrincipalStore) UpdatePrincipalRole(ctx context.Context, email string, role auth.Role) (*auth.Principal, error) {
	current, err := s.FindPrincipalByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &auth.Principal{ID: current.ID, Role: role, UpdatedAt: &now}
	_, err = s.Repository.UpdateTx(ctx, s.db, record,
		repository.UpdateByID(current.ID.String()),
		updateColumns("role", "updated_at"),
	)
	if err != nil {
		return nil, err
	}
	return s.FindPrincipalByEmail(ctx, current.Email)
}

// updateColumns limits an update to the named columns.
func updateColumns(columns ...string) repository.UpdateCriteria {
	return func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Column(columns...)
	}
}
