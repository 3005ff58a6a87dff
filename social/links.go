package social

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LinkedAccount records that a principal signed in through a provider.
// Subject is the provider's stable user id.
type LinkedAccount struct {
	ID          uuid.UUID
	PrincipalID uuid.UUID
	Provider    string
	Subject     string
	Email       string
	Name        string
	AvatarURL   string
	CreatedAt   time.Time
	LastLoginAt time.Time
}

// AccountLinker stores provider links. LinkAccount upserts on
// (Provider, Subject).
type AccountLinker interface {
	LinkAccount(ctx context.Context, account *LinkedAccount) error
	FindLinkedAccounts(ctx context.Context, principalID uuid.UUID) ([]*LinkedAccount, error)
}

// WithAccountLinker records a LinkedAccount on every completed login.
// Link failures are logged and do not fail the login.
func WithAccountLinker(linker AccountLinker) Option {
	return func(a *Authenticator) {
		a.linker = linker
	}
}

// subjectFrom reads the provider user id: "sub" for OIDC, "id" for
// plain OAuth2 APIs such as GitHub.
func subjectFrom(attrs map[string]any) string {
	for _, key := range []string{"sub", "id"} {
		switch v := attrs[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		}
	}
	return ""
}

func stringAttr(attrs map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := attrs[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (a *Authenticator) link(ctx context.Context, provider string, principalID uuid.UUID, email string, attrs map[string]any) {
	if a.linker == nil {
		return
	}
	subject := subjectFrom(attrs)
	if subject == "" {
		a.logger.Warn("oauth2 identity has no subject, link skipped", "provider", provider, "email", email)
		return
	}

	err := a.linker.LinkAccount(ctx, &LinkedAccount{
		PrincipalID: principalID,
		Provider:    provider,
		Subject:     subject,
		Email:       email,
		Name:        stringAttr(attrs, "name", "login"),
		AvatarURL:   stringAttr(attrs, "picture", "avatar_url"),
		LastLoginAt: time.Now().UTC(),
	})
	if err != nil {
		a.logger.Error("failed to link provider account", "provider", provider, "email", email, "error", err)
	}
}
