package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/statuswatch/internal/feature"
)

type sentCall struct {
	Slug  string
	IsNew bool
}

type fakeNotifier struct {
	calls []sentCall
}

func (f *fakeNotifier) SendNotifications(ctx context.Context, slug string, payload []byte, isNew bool) error {
	f.calls = append(f.calls, sentCall{Slug: slug, IsNew: isNew})
	return nil
}

func TestNotifyChangesDispatchesStartedAndUpdated(t *testing.T) {
	started := feature.Record{"slug": "nueva"}
	started.ApplyDiff(feature.DiffResult{JustStarted: true})

	changed := feature.Record{"slug": "cambiada"}
	changed.ApplyDiff(feature.DiffResult{Updated: map[string]feature.FieldChange{"x": {From: "a", To: "b"}}})

	quiet := feature.Record{"slug": "quieta"}
	quiet.ApplyDiff(feature.DiffResult{})

	n := &fakeNotifier{}
	c := NewCoordinator(n)
	require.NoError(t, c.NotifyChanges(context.Background(), []feature.Record{started, changed, quiet}))

	assert.Equal(t, []sentCall{
		{Slug: "nueva", IsNew: true},
		{Slug: "cambiada", IsNew: false},
	}, n.calls)
}

func TestNotifyChangesMakesNoCallsWhenNothingQualifies(t *testing.T) {
	quiet := feature.Record{"slug": "quieta"}
	quiet.ApplyDiff(feature.DiffResult{})

	n := &fakeNotifier{}
	c := NewCoordinator(n)
	require.NoError(t, c.NotifyChanges(context.Background(), []feature.Record{quiet}))
	assert.Empty(t, n.calls)
}
