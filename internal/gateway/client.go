package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"signage-studio/internal/model"
	"signage-studio/pkg/apierror"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	reconnectMin       = 500 * time.Millisecond
	reconnectMax       = 30 * time.Second
	notificationBuffer = 64
)

// Client talks to the content server over its REST API and websocket stream.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		dialer:  websocket.DefaultDialer,
		log:     slog.With("component", "gateway.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func (c *Client) BlockLength(ctx context.Context, blockID int64) (model.Length, error) {
	var length model.Length
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/blocks/%d/length", blockID), nil, &length); err != nil {
		return model.Length{}, fmt.Errorf("get block length: %w", notFound(err, model.ErrBlockNotFound))
	}
	return length, nil
}

func (c *Client) SetBlockLength(ctx context.Context, blockID int64, length model.Length) error {
	body := model.SetLengthRequest{Hours: length.Hours, Minutes: length.Minutes, Seconds: length.Seconds}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/blocks/%d/length", blockID), body, nil); err != nil {
		return fmt.Errorf("set block length: %w", notFound(err, model.ErrBlockNotFound))
	}
	return nil
}

func (c *Client) RemoveBlockFromChannel(ctx context.Context, blockID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/blocks/%d", blockID), nil, nil); err != nil {
		return fmt.Errorf("remove block from channel: %w", notFound(err, model.ErrBlockNotFound))
	}
	return nil
}

func (c *Client) RemoveTimelineFromSequence(ctx context.Context, timelineID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/sequences/%d", timelineID), nil, nil); err != nil {
		return fmt.Errorf("remove timeline from sequence: %w", err)
	}
	return nil
}

func (c *Client) SetTimelineSequenceIndex(ctx context.Context, campaignID, timelineID int64, index int) error {
	path := fmt.Sprintf("/api/v1/campaigns/%d/sequence/%d", campaignID, timelineID)
	if err := c.do(ctx, http.MethodPut, path, model.SetSequenceIndexRequest{Index: index}, nil); err != nil {
		return fmt.Errorf("set sequence index: %w", notFound(err, model.ErrTimelineNotFound))
	}
	return nil
}

func (c *Client) Timelines(ctx context.Context, campaignID int64) ([]model.Timeline, error) {
	var data model.TimelineListData
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/campaigns/%d/timelines", campaignID), nil, &data); err != nil {
		return nil, fmt.Errorf("list timelines: %w", notFound(err, model.ErrCampaignNotFound))
	}
	return data.Timelines, nil
}

// DeleteTimeline deletes a timeline on the server, which then notifies every
// connected console.
func (c *Client) DeleteTimeline(ctx context.Context, timelineID int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/timelines/%d", timelineID), nil, nil); err != nil {
		return fmt.Errorf("delete timeline: %w", notFound(err, model.ErrTimelineNotFound))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if v := VersionFrom(ctx); v != 0 {
		req.Header.Set(HeaderWriteVersion, strconv.FormatUint(v, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apierror.New("BAD_RESPONSE", "unreadable response body", err.Error(), resp.StatusCode)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		if env.Error == nil {
			return apierror.New("HTTP_ERROR", http.StatusText(resp.StatusCode), "", resp.StatusCode)
		}
		return apierror.New(env.Error.Code, env.Error.Message, env.Error.Details, resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// notFound tags a 404 from the server with the matching sentinel error.
func notFound(err error, sentinel error) error {
	if apiErr, ok := apierror.From(err); ok && apiErr.HTTPStatus == http.StatusNotFound {
		return fmt.Errorf("%w: %w", sentinel, apiErr)
	}
	return err
}

// Subscribe opens the server's websocket stream. The connection is re-dialled
// with backoff until the returned function is called.
func (c *Client) Subscribe() (<-chan model.Notification, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan model.Notification, notificationBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		c.stream(ctx, out)
	}()

	return out, func() {
		cancel()
		<-done
	}
}

func (c *Client) stream(ctx context.Context, out chan<- model.Notification) {
	wsURL, err := c.websocketURL()
	if err != nil {
		c.log.Error("invalid websocket url", "error", err)
		return
	}

	backoff := reconnectMin
	for {
		conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("notification stream dial failed", "url", wsURL, "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}

		backoff = reconnectMin
		c.log.Info("notification stream connected", "url", wsURL)
		c.read(ctx, conn, out)
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, out chan<- model.Notification) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("notification stream read failed", "error", err)
			}
			return
		}

		n, ok := ParseNotification(data)
		if !ok {
			continue
		}
		select {
		case out <- n:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) websocketURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// ParseNotification decodes a server bus event. Events of other types are
// reported as not ok.
func ParseNotification(data []byte) (model.Notification, bool) {
	if !gjson.ValidBytes(data) {
		return model.Notification{}, false
	}
	parsed := gjson.ParseBytes(data)

	switch model.NotificationType(parsed.Get("type").String()) {
	case model.NotificationTimelineDeleted:
		id := parsed.Get("payload.timeline_id")
		if !id.Exists() {
			return model.Notification{}, false
		}
		return model.Notification{Type: model.NotificationTimelineDeleted, TimelineID: id.Int()}, true
	default:
		return model.Notification{}, false
	}
}
