package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icried/internal/cloud"
	"icried/internal/cloud/memory"
	"icried/internal/core"
)

func TestBreakerPassesThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := cloud.NewBreaker(store, cloud.DefaultBreakerSettings())

	require.NoError(t, b.Save(ctx, cloud.Record{Type: core.KindTag, Name: "x"}))
	require.NoError(t, b.SaveAll(ctx, core.KindTag, []cloud.Record{
		{Type: core.KindTag, Name: "y"},
		{Type: core.KindTag, Name: "z"},
	}))
	recs, err := b.Query(ctx, core.KindTag)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, 1, store.Batches())

	st, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, cloud.StatusAvailable, st)
}

func TestBreakerIgnoresUnknownItem(t *testing.T) {
	ctx := context.Background()
	b := cloud.NewBreaker(memory.New(), cloud.BreakerSettings{Name: "t", ConsecutiveFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Fetch(ctx, core.KindEntry, "missing")
		assert.ErrorIs(t, err, cloud.ErrUnknownItem)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	var transitions []gobreaker.State
	b := cloud.NewBreaker(store, cloud.BreakerSettings{
		Name:                "t",
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	})

	boom := errors.New("boom")
	store.SetError(boom)
	for i := 0; i < 2; i++ {
		_, err := b.Query(ctx, core.KindTag)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	store.SetError(nil)
	_, err := b.Query(ctx, core.KindTag)
	assert.ErrorIs(t, err, cloud.ErrCloudUnavailable)
	assert.ErrorIs(t, b.Save(ctx, cloud.Record{Type: core.KindTag, Name: "x"}), cloud.ErrCloudUnavailable)

	st, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, cloud.StatusTemporarilyUnavailable, st)
}
