package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/notification"
	"github.com/gracechurch/church-backend/internal/testutil"
	"github.com/gracechurch/church-backend/middleware"
)

type sseFixture struct {
	srv   *httptest.Server
	hub   *Hub
	store *notification.Store
}

func newSSEFixture(t *testing.T, opts Options) *sseFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := notification.NewStore(notification.NewRepository(testutil.NewDB(t, notification.Models())), zap.NewNop())
	hub := NewHub(store, opts, zap.NewNop())
	h := NewHandler(hub, []string{"*"}, zap.NewNop())

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			middleware.SetAccessContext(c, middleware.AccessContext{UserID: uid, RoleName: c.GetHeader("X-Test-Role"), Status: "active"})
		}
		c.Next()
	})
	r.GET("/stream", h.Stream)

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return &sseFixture{srv: srv, hub: hub, store: store}
}

type sseClient struct {
	body   *bufio.Reader
	frames chan rawFrame
}

func (f *sseFixture) connect(t *testing.T, user, role string) *sseClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/stream?connectionId="+user, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Role", role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	c := &sseClient{body: bufio.NewReader(resp.Body), frames: make(chan rawFrame, 32)}
	go func() {
		defer close(c.frames)
		for {
			line, err := c.body.ReadString('\n')
			if err != nil {
				return
			}
			data, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: ")
			if !ok {
				continue
			}
			var fr rawFrame
			if json.Unmarshal([]byte(data), &fr) == nil {
				c.frames <- fr
			}
		}
	}()
	return c
}

func (c *sseClient) next(t *testing.T) rawFrame {
	t.Helper()
	select {
	case f, ok := <-c.frames:
		if !ok {
			t.Fatal("stream ended")
		}
		return f
	case <-time.After(3 * time.Second):
		t.Fatal("no frame within 3s")
	}
	return rawFrame{}
}

func (c *sseClient) nextNotification(t *testing.T) notification.Notification {
	t.Helper()
	for {
		f := c.next(t)
		if f.Type != FrameNotification {
			continue
		}
		var n notification.Notification
		if err := json.Unmarshal(f.Payload, &n); err != nil {
			t.Fatal(err)
		}
		return n
	}
}

func TestSSEBroadcastEndToEnd(t *testing.T) {
	f := newSSEFixture(t, quietOptions())
	ctx := context.Background()
	f.store.Create(ctx, notification.NewAnnouncement("a0", "Earlier", "already here", notification.PriorityLow))

	c := f.connect(t, "u1", notification.RoleMember)
	if fr := c.next(t); fr.Type != FrameConnected {
		t.Fatalf("first frame = %s", fr.Type)
	}
	fr := c.next(t)
	var initial []notification.NotificationView
	_ = json.Unmarshal(fr.Payload, &initial)
	if fr.Type != FrameInitialNotifications || len(initial) != 1 || initial[0].Read {
		t.Fatalf("initial frame = %s %s", fr.Type, fr.Payload)
	}
	waitFor(t, "registration", func() bool { return f.hub.Count() == 1 })

	b := NewBroadcaster(f.hub, nil, zap.NewNop())
	created := f.store.Create(ctx, notification.NewAnnouncement("a1", "Potluck", "Sunday", notification.PriorityMedium))
	b.Deliver(created)

	got := c.nextNotification(t)
	if got.ID != created.ID {
		t.Fatalf("received %s, want %s", got.ID, created.ID)
	}

	views := f.store.ListForUser(ctx, "u1", notification.RoleMember, 10, true)
	if len(views) != 2 || views[0].ID != created.ID || views[0].Read {
		t.Fatalf("before MarkRead: %+v", views)
	}
	if !f.store.MarkRead(ctx, created.ID, "u1") {
		t.Fatal("MarkRead failed")
	}
	views = f.store.ListForUser(ctx, "u1", notification.RoleMember, 10, true)
	if !views[0].Read {
		t.Error("still unread after MarkRead")
	}
}

func TestSSEPollDeliveryWithoutBroadcaster(t *testing.T) {
	opts := quietOptions()
	opts.DisablePolling = false
	opts.PollInterval = 20 * time.Millisecond
	f := newSSEFixture(t, opts)
	ctx := context.Background()

	c := f.connect(t, "u1", notification.RoleMember)
	c.next(t)
	c.next(t)
	waitFor(t, "registration", func() bool { return f.hub.Count() == 1 })
	time.Sleep(5 * time.Millisecond)

	// stored only; nothing calls Deliver
	created := f.store.Create(ctx, notification.SystemAlert("Maintenance", "Tonight", notification.PriorityHigh))
	got := c.nextNotification(t)
	if got.ID != created.ID {
		t.Errorf("polled %s, want %s", got.ID, created.ID)
	}
}

func TestSSEVisitorStream(t *testing.T) {
	f := newSSEFixture(t, quietOptions())
	c := f.connect(t, "", "")

	fr := c.next(t)
	var p ConnectedPayload
	_ = json.Unmarshal(fr.Payload, &p)
	if p.Role != notification.RoleVisitor || p.UserID != "" {
		t.Errorf("visitor connected payload = %+v", p)
	}
}
