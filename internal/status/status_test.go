package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/statuswatch/internal/feature"
	"github.com/dropDatabas3/statuswatch/internal/store"
)

func TestDiffNeverSeenIsJustStarted(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	d, err := s.Diff(ctx, feature.Record{"slug": "f", "x": "first"})
	require.NoError(t, err)
	assert.True(t, d.JustStarted)
	assert.Empty(t, d.Updated)
}

func TestDiffDetectsChangedField(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Commit(ctx, []feature.Record{{"slug": "f", "x": "first", "y": "same"}}))

	d, err := s.Diff(ctx, feature.Record{"slug": "f", "x": "last", "y": "same"})
	require.NoError(t, err)
	assert.False(t, d.JustStarted)
	require.Len(t, d.Updated, 1)
	assert.Equal(t, feature.FieldChange{From: "first", To: "last"}, d.Updated["x"])
}

func TestDiffNewFieldHasNilFrom(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Commit(ctx, []feature.Record{{"slug": "f", "x": "v"}}))

	d, err := s.Diff(ctx, feature.Record{"slug": "f", "x": "v", "extra": "now"})
	require.NoError(t, err)
	require.Len(t, d.Updated, 1)
	assert.Equal(t, feature.FieldChange{From: nil, To: "now"}, d.Updated["extra"])
}

func TestDiffIgnoresReservedFields(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Commit(ctx, []feature.Record{{"slug": "f", "x": "v"}}))

	rec := feature.Record{"slug": "f", "x": "v"}
	rec.ApplyDiff(feature.DiffResult{JustStarted: true})

	d, err := s.Diff(ctx, rec)
	require.NoError(t, err)
	assert.Empty(t, d.Updated)
}

func TestDiffHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	_, err := s.Diff(ctx, feature.Record{"slug": "f", "x": "v"})
	require.NoError(t, err)

	// sin Commit, el slug sigue siendo nuevo
	d, err := s.Diff(ctx, feature.Record{"slug": "f", "x": "v"})
	require.NoError(t, err)
	assert.True(t, d.JustStarted)
}

func TestCommitIsPerSlugUpsert(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	require.NoError(t, s.Commit(ctx, []feature.Record{{"slug": "a", "x": "1"}, {"slug": "b", "x": "2"}}))
	// batch posterior sin "a": no debe perderse
	require.NoError(t, s.Commit(ctx, []feature.Record{{"slug": "b", "x": "3"}}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, "1", snap["a"]["x"])
	assert.Equal(t, "3", snap["b"]["x"])
}

func TestCommitStripsReservedFields(t *testing.T) {
	ctx := context.Background()
	s := New(store.NewMemory(""))

	rec := feature.Record{"slug": "f", "x": "v"}
	rec.ApplyDiff(feature.DiffResult{JustStarted: true, Updated: map[string]feature.FieldChange{}})
	require.NoError(t, s.Commit(ctx, []feature.Record{rec}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	_, hasUpdated := snap["f"][feature.FieldUpdated]
	_, hasStarted := snap["f"][feature.FieldJustStarted]
	assert.False(t, hasUpdated)
	assert.False(t, hasStarted)
}
