package analytics

import (
	"context"
	"testing"

	"live-auction/internal/models"
	"live-auction/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestRecorder_AppendsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewMemoryRepo()
	rec := NewRecorder(repo)

	require.NoError(t, rec.Record(ctx, "room1", models.AnalyticsEvent{EventType: models.EventSessionStart, User: "v1", Timestamp: 1}))
	require.NoError(t, rec.Record(ctx, "room1", models.AnalyticsEvent{EventType: models.EventBidPlaced, User: "USER-A", Amount: 150, Timestamp: 2}))
	require.NoError(t, rec.Record(ctx, "room2", models.AnalyticsEvent{EventType: models.EventBidPlaced, User: "USER-B", Amount: 90, Timestamp: 3}))

	src, err := NewLoader(repo).Load(ctx, "room1")
	require.NoError(t, err)
	require.Len(t, src.Events, 2)
	require.Equal(t, models.EventSessionStart, src.Events[0].Kind())
	require.Equal(t, int64(150), src.Events[1].Amount)

	require.NoError(t, repo.Close())
	require.Error(t, rec.Record(ctx, "room1", models.AnalyticsEvent{EventType: models.EventBidPlaced}))
}
