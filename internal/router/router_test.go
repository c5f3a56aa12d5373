package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"signage-studio/internal/config"
	"signage-studio/internal/event"
	"signage-studio/internal/handler"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
	"signage-studio/internal/service"
	"signage-studio/internal/websocket"
)

type healthFunc func(context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func newTestRouter(health HealthChecker) (http.Handler, *repository.MockBlockStore, *repository.MockTimelineStore) {
	cfg := &config.Config{RequestTimeout: time.Second, RateLimitRPM: 1000, CORSOrigins: []string{"*"}}
	bus := event.NewBus()
	blocks := new(repository.MockBlockStore)
	timelines := new(repository.MockTimelineStore)

	h := Handlers{
		Block:     handler.NewBlockHandler(service.NewBlockService(blocks, bus)),
		Sequence:  handler.NewSequenceHandler(service.NewSequenceService(new(repository.MockSequenceStore), bus)),
		Timeline:  handler.NewTimelineHandler(service.NewTimelineService(timelines, bus)),
		WebSocket: handler.NewWebSocketHandler(websocket.NewHub(bus), nil),
	}
	return New(cfg, h, health), blocks, timelines
}

func TestRouter_Health(t *testing.T) {
	r, _, _ := newTestRouter(healthFunc(func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	r, _, _ = newTestRouter(healthFunc(func(context.Context) error { return errors.New("down") }))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Routes(t *testing.T) {
	r, blocks, timelines := newTestRouter(nil)
	blocks.On("Remove", mock.Anything, int64(4)).Return(nil)
	blocks.On("Length", mock.Anything, int64(4)).Return(model.Length{Seconds: 9}, nil)
	timelines.On("ListByCampaign", mock.Anything, int64(1)).Return([]model.Timeline{}, nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/v1/blocks/4/length", http.StatusOK},
		{http.MethodDelete, "/api/v1/blocks/4", http.StatusOK},
		{http.MethodGet, "/api/v1/campaigns/1/timelines", http.StatusOK},
		{http.MethodPost, "/api/v1/blocks/4/length", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}
