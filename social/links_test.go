package social

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLinker struct {
	links []*LinkedAccount
	err   error
}

func (r *recordingLinker) LinkAccount(_ context.Context, a *LinkedAccount) error {
	if r.err != nil {
		return r.err
	}
	r.links = append(r.links, a)
	return nil
}

func (r *recordingLinker) FindLinkedAccounts(_ context.Context, id uuid.UUID) ([]*LinkedAccount, error) {
	var out []*LinkedAccount
	for _, l := range r.links {
		if l.PrincipalID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestSubjectFrom(t *testing.T) {
	assert.Equal(t, "abc", subjectFrom(map[string]any{"sub": " abc "}))
	assert.Equal(t, "583231", subjectFrom(map[string]any{"id": float64(583231)}))
	assert.Equal(t, "7", subjectFrom(map[string]any{"id": 7}))
	assert.Equal(t, "sub-wins", subjectFrom(map[string]any{"sub": "sub-wins", "id": "other"}))
	assert.Empty(t, subjectFrom(map[string]any{"email": "x@example.com"}))
}

func TestCompleteAuthLinksAccount(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	f.provider.attrs = map[string]any{"sub": "g-123", "email": "Grace@Navy.mil", "name": "Grace", "picture": "https://img/g.png"}
	linker := &recordingLinker{}
	WithAccountLinker(linker)(f.auth)

	redirect, err := f.auth.BeginAuth(ctx, "google")
	require.NoError(t, err)
	result, err := f.auth.CompleteAuth(ctx, "google", "code", redirect.State)
	require.NoError(t, err)

	require.Len(t, linker.links, 1)
	link := linker.links[0]
	assert.Equal(t, "google", link.Provider)
	assert.Equal(t, "g-123", link.Subject)
	assert.Equal(t, "grace@navy.mil", link.Email)
	assert.Equal(t, "Grace", link.Name)
	assert.Equal(t, "https://img/g.png", link.AvatarURL)
	assert.Equal(t, result.Principal.ID, link.PrincipalID)
	assert.False(t, link.LastLoginAt.IsZero())
}

func TestCompleteAuthLinkFailureDoesNotFailLogin(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	f.provider.attrs = map[string]any{"sub": "g-1", "email": "grace@navy.mil"}
	WithAccountLinker(&recordingLinker{err: errors.New("db down")})(f.auth)

	redirect, err := f.auth.BeginAuth(ctx, "google")
	require.NoError(t, err)
	result, err := f.auth.CompleteAuth(ctx, "google", "code", redirect.State)
	require.NoError(t, err)
	assert.NotNil(t, result.Token)
}
