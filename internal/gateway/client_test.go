package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-studio/internal/model"
	"signage-studio/pkg/apierror"
)

func writeEnvelope(w http.ResponseWriter, status int, resp model.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestClient_BlockLength(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/blocks/7/length", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, model.APIResponse{Success: true, Data: model.Length{Hours: 2, Minutes: 30}})
	})
	mux.HandleFunc("GET /api/v1/blocks/8/length", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, model.APIResponse{Error: &model.APIError{Code: "NOT_FOUND", Message: "block not found"}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)

	got, err := c.BlockLength(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.Length{Hours: 2, Minutes: 30}, got)

	_, err = c.BlockLength(context.Background(), 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrBlockNotFound)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, http.StatusNotFound, apiErr.HTTPStatus)
}

func TestClient_WritesSendVersionHeader(t *testing.T) {
	var gotVersion string
	var gotBody model.SetLengthRequest
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/blocks/7/length", func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get(HeaderWriteVersion)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, http.StatusOK, model.APIResponse{Success: true, Data: model.WriteResult{Applied: true, Version: 99}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := WithVersion(context.Background(), 99)
	err := NewClient(srv.URL).SetBlockLength(ctx, 7, model.Length{Hours: 2, Minutes: 45})

	require.NoError(t, err)
	assert.Equal(t, "99", gotVersion)
	assert.Equal(t, model.SetLengthRequest{Hours: 2, Minutes: 45}, gotBody)
}

func TestClient_SequenceCalls(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/v1/campaigns/{campaign}/sequence/{timeline}", func(w http.ResponseWriter, r *http.Request) {
		var req model.SetSequenceIndexRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		calls = append(calls, r.PathValue("campaign")+"/"+r.PathValue("timeline")+"@"+jsonInt(req.Index))
		writeEnvelope(w, http.StatusOK, model.APIResponse{Success: true})
	})
	mux.HandleFunc("DELETE /api/v1/sequences/{timeline}", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "remove "+r.PathValue("timeline"))
		writeEnvelope(w, http.StatusOK, model.APIResponse{Success: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	require.NoError(t, c.SetTimelineSequenceIndex(context.Background(), 1, 12, 0))
	require.NoError(t, c.RemoveTimelineFromSequence(context.Background(), 11))

	assert.Equal(t, []string{"1/12@0", "remove 11"}, calls)
}

func jsonInt(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestClient_BadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).RemoveBlockFromChannel(context.Background(), 1)

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_RESPONSE", apiErr.Code)
}

func TestClient_Subscribe(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"a","type":"file.created","payload":{}}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"b","type":"timeline.deleted","payload":{"timeline_id":12}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	events, unsubscribe := NewClient(srv.URL).Subscribe()

	select {
	case n := <-events:
		assert.Equal(t, model.Notification{Type: model.NotificationTimelineDeleted, TimelineID: 12}, n)
	case <-time.After(3 * time.Second):
		t.Fatal("no notification received")
	}

	unsubscribe()
	_, open := <-events
	assert.False(t, open)
}

func TestParseNotification(t *testing.T) {
	n, ok := ParseNotification([]byte(`{"type":"timeline.deleted","payload":{"timeline_id":4}}`))
	assert.True(t, ok)
	assert.Equal(t, int64(4), n.TimelineID)

	_, ok = ParseNotification([]byte(`{"type":"timeline.deleted","payload":{}}`))
	assert.False(t, ok)

	_, ok = ParseNotification([]byte(`not json`))
	assert.False(t, ok)
}
