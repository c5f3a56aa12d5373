//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"signage-studio/internal/config"
	"signage-studio/internal/database"
	"signage-studio/internal/event"
	"signage-studio/internal/handler"
	"signage-studio/internal/repository"
	"signage-studio/internal/router"
	"signage-studio/internal/service"
	"signage-studio/internal/websocket"
)

type testServer struct {
	*httptest.Server
	DB  *database.DB
	Bus *event.InMemoryBus
}

// newServer starts the content server against TEST_DATABASE_URL.
func newServer(t *testing.T) *testServer {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	bus := event.NewBus()
	hub := websocket.NewHub(bus)
	go func() { _ = hub.Run(ctx) }()

	pool := db.Pool
	cfg := &config.Config{
		RequestTimeout: 10 * time.Second,
		CORSOrigins:    []string{"*"},
		RateLimitRPM:   10000,
	}
	h := router.Handlers{
		Block:     handler.NewBlockHandler(service.NewBlockService(repository.NewBlockRepository(pool), bus)),
		Sequence:  handler.NewSequenceHandler(service.NewSequenceService(repository.NewSequenceRepository(pool), bus)),
		Timeline:  handler.NewTimelineHandler(service.NewTimelineService(repository.NewTimelineRepository(pool), bus)),
		WebSocket: handler.NewWebSocketHandler(hub, nil),
	}

	srv := httptest.NewServer(router.New(cfg, h, db))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, DB: db, Bus: bus}
}

// seedCampaign inserts a campaign whose ids do not collide with other runs.
// Timelines are sequenced in the given order and each gets one block.
func seedCampaign(t *testing.T, s *testServer, timelines int) (campaignID int64, timelineIDs, blockIDs []int64) {
	t.Helper()

	base := time.Now().UnixNano() % 1_000_000_000 * 100
	campaignID = base
	seed := database.Seed{Campaigns: []database.SeedCampaign{{ID: campaignID, Name: fmt.Sprintf("it-%d", base)}}}

	for i := 0; i < timelines; i++ {
		tid := base + int64(i) + 1
		bid := base + int64(i) + 50
		seed.Campaigns[0].Timelines = append(seed.Campaigns[0].Timelines, database.SeedTimeline{
			ID:            tid,
			Name:          fmt.Sprintf("timeline %d", i),
			SequenceIndex: i,
			Blocks: []database.SeedBlock{{
				ID:   bid,
				Type: "RSS",
				Name: "feed",
			}},
		})
		timelineIDs = append(timelineIDs, tid)
		blockIDs = append(blockIDs, bid)
	}

	require.NoError(t, seed.Validate())
	require.NoError(t, s.DB.ApplySeed(context.Background(), seed))

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = s.DB.Pool.Exec(ctx, `DELETE FROM blocks WHERE id = ANY($1)`, blockIDs)
		_, _ = s.DB.Pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, campaignID)
	})
	return campaignID, timelineIDs, blockIDs
}
