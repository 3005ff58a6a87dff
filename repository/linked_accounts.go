package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-jobportal/social"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkedAccountModel is the Bun model for provider links.
type LinkedAccountModel struct {
	bun.BaseModel `bun:"table:linked_accounts,alias:lac"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	PrincipalID uuid.UUID `bun:"principal_id,notnull,type:uuid"`
	Provider    string    `bun:"provider,notnull"`
	Subject     string    `bun:"subject,notnull"`
	Email       string    `bun:"email"`
	Name        string    `bun:"name"`
	AvatarURL   string    `bun:"avatar_url"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	LastLoginAt time.Time `bun:"last_login_at,notnull"`
}

// LinkedAccountStore implements social.AccountLinker using Bun.
type LinkedAccountStore struct {
	db bun.IDB
}

// NewLinkedAccountStore creates a new store.
func NewLinkedAccountStore(db bun.IDB) *LinkedAccountStore {
	return &LinkedAccountStore{db: db}
}

// LinkAccount implements social.AccountLinker. A repeated login for the
// same provider subject refreshes the profile fields and last_login_at.
func (s *LinkedAccountStore) LinkAccount(ctx context.Context, account *social.LinkedAccount) error {
	model := fromLinkedAccount(account)
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (provider, subject) DO UPDATE").
		Set("principal_id = EXCLUDED.principal_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("last_login_at = EXCLUDED.last_login_at").
		Exec(ctx)
	return err
}

// FindLinkedAccounts implements social.AccountLinker.
func (s *LinkedAccountStore) FindLinkedAccounts(ctx context.Context, principalID uuid.UUID) ([]*social.LinkedAccount, error) {
	var models []LinkedAccountModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("?TableAlias.principal_id = ?", principalID).
		OrderExpr("?TableAlias.provider ASC").
		Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*social.LinkedAccount, 0, len(models))
	for i := range models {
		out = append(out, toLinkedAccount(&models[i]))
	}
	return out, nil
}

func fromLinkedAccount(a *social.LinkedAccount) *LinkedAccountModel {
	now := time.Now().UTC()
	m := &LinkedAccountModel{
		ID:          a.ID,
		PrincipalID: a.PrincipalID,
		Provider:    a.Provider,
		Subject:     a.Subject,
		Email:       a.Email,
		Name:        a.Name,
		AvatarURL:   a.AvatarURL,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.LastLoginAt.IsZero() {
		m.LastLoginAt = now
	}
	return m
}

func toLinkedAccount(m *LinkedAccountModel) *social.LinkedAccount {
	return &social.LinkedAccount{
		ID:          m.ID,
		PrincipalID: m.PrincipalID,
		Provider:    m.Provider,
		Subject:     m.Subject,
		Email:       m.Email,
		Name:        m.Name,
		AvatarURL:   m.AvatarURL,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: m.LastLoginAt,
	}
}
