// Package store defines what hcs needs from its event store. Drivers live in
// the hasura and sqlite subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/eviefp/hcs/internal/model"
)

// ErrInsertData is returned when a store's replace response lacks the
// deleted or inserted count.
var ErrInsertData = errors.New("store response is missing affected row counts")

// Querier lists stored events.
type Querier interface {
	// EventsBetween returns events whose start lies in [start, end), ordered
	// by ascending start.
	EventsBetween(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// Replacer reconciles an import batch.
type Replacer interface {
	// ReplaceEvents atomically deletes every event stored under key and
	// inserts events in their place.
	ReplaceEvents(ctx context.Context, key string, events []model.Event) (model.ReplaceResult, error)
}

type Store interface {
	Querier
	Replacer
	Close() error
}
