package changelog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

func entry(slug string) feature.ChangelogEntry {
	return feature.ChangelogEntry{Started: []feature.Record{{"slug": slug}}}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Append(ctx, feature.ChangelogEntry{}))
	require.NoError(t, s.Append(ctx, feature.ChangelogEntry{Updated: map[string]feature.Record{}}))

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAppendAndReadAll(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Append(ctx, entry("f")))

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	for _, e := range all {
		require.Len(t, e.Started, 1)
		assert.Equal(t, "f", e.Started[0].Slug())
	}
}

func TestAppendSameInstantGetsSuffix(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	s := NewWithClock(store.NewMemory(""), func() time.Time { return fixed })

	require.NoError(t, s.Append(ctx, entry("a")))
	require.NoError(t, s.Append(ctx, entry("b")))
	require.NoError(t, s.Append(ctx, entry("c")))

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	base := fixed.Format(time.RFC3339Nano)
	assert.Contains(t, all, base)
	assert.Contains(t, all, base+"-1")
	assert.Contains(t, all, base+"-2")
}

func TestEntriesAreNeverMerged(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Append(ctx, entry("a")))
	require.NoError(t, s.Append(ctx, entry("b")))

	all, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
