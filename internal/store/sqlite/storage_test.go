package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eviefp/hcs/internal/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func at(h, m int) *time.Time {
	t := time.Date(2024, 1, 15, h, m, 0, 0, time.UTC)
	return &t
}

func TestReplaceEvents(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	events := []model.Event{
		{Key: "work", Summary: "Standup", Start: at(9, 0), End: at(9, 15)},
		{Key: "work", Summary: "Review", Start: at(14, 0)},
	}

	res, err := s.ReplaceEvents(ctx, "work", events)
	require.NoError(t, err)
	require.Equal(t, model.ReplaceResult{Deleted: 0, Inserted: 2}, res)

	res, err = s.ReplaceEvents(ctx, "work", events)
	require.NoError(t, err)
	require.Equal(t, model.ReplaceResult{Deleted: 2, Inserted: 2}, res)

	got, err := s.EventsBetween(ctx, *at(0, 0), *at(23, 59))
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestReplaceEventsOnlyTouchesKey(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.ReplaceEvents(ctx, "work", []model.Event{{Key: "work", Summary: "Standup", Start: at(9, 0)}})
	require.NoError(t, err)
	_, err = s.ReplaceEvents(ctx, "home", []model.Event{{Key: "home", Summary: "Dinner", Start: at(19, 0)}})
	require.NoError(t, err)

	res, err := s.ReplaceEvents(ctx, "work", nil)
	require.NoError(t, err)
	require.Equal(t, model.ReplaceResult{Deleted: 1, Inserted: 0}, res)

	got, err := s.EventsBetween(ctx, *at(0, 0), *at(23, 59))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Dinner", got[0].Summary)
}

func TestEventsBetween(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.ReplaceEvents(ctx, "work", []model.Event{
		{Key: "work", Summary: "late", Start: at(17, 0)},
		{Key: "work", Summary: "boundary start", Start: at(8, 0)},
		{Key: "work", Summary: "no start"},
		{Key: "work", Summary: "boundary end", Start: at(18, 0)},
		{Key: "work", Summary: "early", Start: at(9, 30), Organizer: "CONFIRMED"},
	})
	require.NoError(t, err)

	got, err := s.EventsBetween(ctx, *at(8, 0), *at(18, 0))
	require.NoError(t, err)

	summaries := make([]string, len(got))
	for i, e := range got {
		summaries[i] = e.Summary
	}
	require.Equal(t, []string{"boundary start", "early", "late"}, summaries)

	require.Equal(t, "CONFIRMED", got[1].Organizer)
	require.True(t, got[1].Start.Equal(*at(9, 30)))
	require.Equal(t, time.UTC, got[1].Start.Location())
	require.Nil(t, got[1].End)
}

func TestEventsBetweenSubSecondBounds(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.ReplaceEvents(ctx, "work", []model.Event{{Key: "work", Summary: "Standup", Start: at(9, 0)}})
	require.NoError(t, err)

	after := at(9, 0).Add(700 * time.Millisecond)
	got, err := s.EventsBetween(ctx, after, after.Add(24*time.Hour))
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = s.EventsBetween(ctx, *at(8, 0), after)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "events.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.ReplaceEvents(ctx, "work", []model.Event{{Key: "work", Summary: "Standup", Start: at(9, 0)}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.EventsBetween(ctx, *at(0, 0), *at(23, 0))
	require.NoError(t, err)
	require.Len(t, got, 1)
}
