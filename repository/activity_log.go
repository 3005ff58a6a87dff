package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-jobportal/activitymap"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityRecord is a persisted, normalized activity event.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_log,alias:act"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	ActorID    string         `bun:"actor_id,notnull" json:"actor_id"`
	Verb       string         `bun:"verb,notnull" json:"verb"`
	ObjectType string         `bun:"object_type" json:"object_type,omitempty"`
	ObjectID   string         `bun:"object_id" json:"object_id,omitempty"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Metadata   map[string]any `bun:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

// ActivityStore persists activity events. It implements auth.ActivitySink.
type ActivityStore struct {
	db   bun.IDB
	opts []activitymap.Option
}

// NewActivityStore creates a store; opts tune normalization.
func NewActivityStore(db bun.IDB, opts ...activitymap.Option) *ActivityStore {
	return &ActivityStore{db: db, opts: opts}
}

// Record implements auth.ActivitySink.
func (s *ActivityStore) Record(ctx context.Context, event auth.ActivityEvent) error {
	n := activitymap.Normalize(event, s.opts...)
	record := &ActivityRecord{
		ID:         uuid.New(),
		ActorID:    n.ActorID,
		Verb:       n.Verb,
		ObjectType: n.ObjectType,
		ObjectID:   n.ObjectID,
		Channel:    n.Channel,
		Metadata:   n.Metadata,
		OccurredAt: n.OccurredAt.UTC(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// ActivityFilter narrows FindActivity. Zero fields match everything.
type ActivityFilter struct {
	ActorID  string
	ObjectID string
	Verb     string
	Limit    int
}

// FindActivity returns matching records, newest first.
func (s *ActivityStore) FindActivity(ctx context.Context, filter ActivityFilter) ([]ActivityRecord, error) {
	var records []ActivityRecord
	q := s.db.NewSelect().Model(&records)
	if filter.ActorID != "" {
		q = q.Where("?TableAlias.actor_id = ?", filter.ActorID)
	}
	if filter.ObjectID != "" {
		q = q.Where("?TableAlias.object_id = ?", filter.ObjectID)
	}
	if filter.Verb != "" {
		q = q.Where("?TableAlias.verb = ?", filter.Verb)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.OrderExpr("?TableAlias.occurred_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}
