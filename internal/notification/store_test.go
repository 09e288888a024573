package notification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gracechurch/church-backend/internal/testutil"
)

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// steppingClock advances one second per call so creation order is strict.
type steppingClock struct {
	t time.Time
}

func (c *steppingClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.NewDB(t, Models())
	s := NewStore(NewRepository(db), zap.NewNop())
	clk := &steppingClock{t: baseTime}
	s.SetClock(clk.Now)
	return s
}

func mustCreate(t *testing.T, s *Store, in CreateInput) *Notification {
	t.Helper()
	n := s.Create(context.Background(), in)
	if n == nil {
		t.Fatalf("Create(%q) returned nil", in.Title)
	}
	return n
}

func idSet(views []NotificationView) map[string]bool {
	out := make(map[string]bool, len(views))
	for _, v := range views {
		out[v.ID] = true
	}
	return out
}

func TestStoreCreateDefaults(t *testing.T) {
	s := newTestStore(t)
	n := mustCreate(t, s, CreateInput{Title: "Welcome", Message: "hello", Type: TypeSystem})

	if n.ID == "" {
		t.Error("ID not assigned")
	}
	if n.Priority != PriorityMedium {
		t.Errorf("Priority = %q, want medium", n.Priority)
	}
	if n.TargetAudience != AudienceAll {
		t.Errorf("TargetAudience = %q, want all", n.TargetAudience)
	}
	if n.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
}

func TestStoreCreateRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"blank title", CreateInput{Title: "  ", Type: TypeSystem}},
		{"unknown type", CreateInput{Title: "x", Type: "gossip"}},
		{"unknown priority", CreateInput{Title: "x", Type: TypeSystem, Priority: "extreme"}},
		{"specific without recipients", CreateInput{Title: "x", Type: TypeSystem, TargetAudience: AudienceSpecific}},
		{"specific with blank recipients", CreateInput{Title: "x", Type: TypeSystem, TargetAudience: AudienceSpecific, SpecificUserIDs: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if n := s.Create(context.Background(), tt.in); n != nil {
				t.Errorf("Create() = %+v, want nil", n)
			}
		})
	}
}

func TestStoreAudienceVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	all := mustCreate(t, s, CreateInput{Title: "all", Type: TypeAnnouncement, TargetAudience: AudienceAll})
	members := mustCreate(t, s, CreateInput{Title: "members", Type: TypeEvent, TargetAudience: AudienceMembers})
	admin := mustCreate(t, s, CreateInput{Title: "admin", Type: TypeAdmin, TargetAudience: AudienceAdmin})
	specific := mustCreate(t, s, CreateInput{
		Title: "for A", Type: TypeSystem, TargetAudience: AudienceSpecific, SpecificUserIDs: []string{"user-a"},
	})

	tests := []struct {
		name   string
		userID string
		role   string
		want   []string
		hidden []string
	}{
		{"admin", "admin-1", RoleAdmin, []string{all.ID, members.ID, admin.ID}, []string{specific.ID}},
		{"member", "member-1", RoleMember, []string{all.ID, members.ID}, []string{admin.ID, specific.ID}},
		{"visitor", "", RoleVisitor, []string{all.ID}, []string{members.ID, admin.ID, specific.ID}},
		{"specific recipient", "user-a", RoleMember, []string{all.ID, members.ID, specific.ID}, []string{admin.ID}},
		{"specific non-recipient", "user-b", RoleMember, []string{all.ID, members.ID}, []string{specific.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idSet(s.ListForUser(ctx, tt.userID, tt.role, 50, true))
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing %s", id)
				}
			}
			for _, id := range tt.hidden {
				if got[id] {
					t.Errorf("unexpected %s", id)
				}
			}
		})
	}
}

func TestStoreListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	var created []*Notification
	for i := 0; i < 5; i++ {
		created = append(created, mustCreate(t, s, CreateInput{Title: "n", Type: TypeAnnouncement}))
	}

	got := s.ListForUser(context.Background(), "u", RoleMember, 3, true)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != created[4].ID || got[2].ID != created[2].ID {
		t.Errorf("not newest first: %s, %s", got[0].ID, got[2].ID)
	}

	if n := len(s.ListForUser(context.Background(), "u", RoleMember, 0, true)); n != 5 {
		t.Errorf("default limit returned %d, want 5", n)
	}
}

func TestStoreExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	past := baseTime.Add(-time.Hour)
	future := baseTime.Add(24 * time.Hour)

	expired := mustCreate(t, s, CreateInput{Title: "old", Type: TypeEvent, ExpiresAt: &past})
	live := mustCreate(t, s, CreateInput{Title: "soon", Type: TypeEvent, ExpiresAt: &future})

	got := idSet(s.ListForUser(context.Background(), "u", RoleMember, 20, true))
	if got[expired.ID] {
		t.Error("expired notification returned")
	}
	if !got[live.ID] {
		t.Error("live notification missing")
	}
	if c := s.CountUnread(context.Background(), "u", RoleMember); c != 1 {
		t.Errorf("CountUnread = %d, want 1", c)
	}
}

func TestStoreMarkReadIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	n := mustCreate(t, s, CreateInput{Title: "a", Type: TypeAnnouncement})
	mustCreate(t, s, CreateInput{Title: "b", Type: TypeAnnouncement})

	if c := s.CountUnread(ctx, "u", RoleMember); c != 2 {
		t.Fatalf("CountUnread = %d, want 2", c)
	}
	views := s.ListForUser(ctx, "u", RoleMember, 20, true)
	for _, v := range views {
		if v.Read {
			t.Errorf("%s read before MarkRead", v.ID)
		}
	}

	if !s.MarkRead(ctx, n.ID, "u") {
		t.Fatal("first MarkRead failed")
	}
	if c := s.CountUnread(ctx, "u", RoleMember); c != 1 {
		t.Fatalf("CountUnread after MarkRead = %d, want 1", c)
	}
	if !s.MarkRead(ctx, n.ID, "u") {
		t.Fatal("second MarkRead should succeed")
	}
	if c := s.CountUnread(ctx, "u", RoleMember); c != 1 {
		t.Fatalf("CountUnread after repeat = %d, want 1", c)
	}

	for _, v := range s.ListForUser(ctx, "u", RoleMember, 20, true) {
		if v.Read != (v.ID == n.ID) {
			t.Errorf("%s Read = %v", v.ID, v.Read)
		}
	}
	for _, v := range s.ListForUser(ctx, "u", RoleMember, 20, false) {
		if v.ID == n.ID {
			t.Error("read notification returned with includeRead=false")
		}
	}

	if c := s.CountUnread(ctx, "other", RoleMember); c != 2 {
		t.Errorf("receipt leaked to other user: count = %d", c)
	}
}

func TestStoreMarkReadUnknown(t *testing.T) {
	s := newTestStore(t)
	if s.MarkRead(context.Background(), "does-not-exist", "u") {
		t.Error("MarkRead on unknown id should fail")
	}
	if s.MarkRead(context.Background(), "x", "") {
		t.Error("MarkRead without user should fail")
	}
}

func TestStoreMarkAllRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if !s.MarkAllRead(ctx, "u", RoleMember) {
		t.Fatal("MarkAllRead on empty set should succeed")
	}

	for i := 0; i < 4; i++ {
		mustCreate(t, s, CreateInput{Title: "x", Type: TypeEvent, TargetAudience: AudienceMembers})
	}
	adminOnly := mustCreate(t, s, CreateInput{Title: "staff", Type: TypeAdmin, TargetAudience: AudienceAdmin})

	if !s.MarkAllRead(ctx, "u", RoleMember) {
		t.Fatal("MarkAllRead failed")
	}
	if c := s.CountUnread(ctx, "u", RoleMember); c != 0 {
		t.Errorf("CountUnread = %d, want 0", c)
	}
	// an admin still has the admin-only item unread, and member receipts are per user
	if c := s.CountUnread(ctx, "u", RoleAdmin); c != 1 {
		t.Errorf("admin view CountUnread = %d, want 1", c)
	}
	unread := s.ListForUser(ctx, "u", RoleAdmin, 20, false)
	if len(unread) != 1 || unread[0].ID != adminOnly.ID {
		t.Errorf("unexpected unread set %v", idSet(unread))
	}
}

func TestStoreCountUnreadCapped(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < UnreadCap+5; i++ {
		mustCreate(t, s, CreateInput{Title: "bulk", Type: TypeAnnouncement})
	}
	if c := s.CountUnread(context.Background(), "u", RoleMember); c != UnreadCap {
		t.Errorf("CountUnread = %d, want %d", c, UnreadCap)
	}
}

func TestStoreDeleteOlderThan(t *testing.T) {
	db := testutil.NewDB(t, Models())
	s := NewStore(NewRepository(db), zap.NewNop())
	ctx := context.Background()

	now := baseTime
	s.SetClock(func() time.Time { return now })
	old := mustCreate(t, s, CreateInput{
		Title: "old", Type: TypeSystem, TargetAudience: AudienceSpecific, SpecificUserIDs: []string{"u"},
	})
	s.MarkRead(ctx, old.ID, "u")

	now = baseTime.AddDate(0, 0, 40)
	recent := mustCreate(t, s, CreateInput{Title: "recent", Type: TypeSystem})

	if got := s.DeleteOlderThan(ctx, 30); got != 1 {
		t.Fatalf("DeleteOlderThan = %d, want 1", got)
	}
	got := idSet(s.ListForUser(ctx, "u", RoleMember, 20, true))
	if got[old.ID] || !got[recent.ID] {
		t.Errorf("unexpected remaining set %v", got)
	}

	var receipts, recipients int64
	db.Model(&NotificationRead{}).Count(&receipts)
	db.Model(&NotificationRecipient{}).Count(&recipients)
	if receipts != 0 || recipients != 0 {
		t.Errorf("orphans left: receipts=%d recipients=%d", receipts, recipients)
	}

	if got := s.DeleteOlderThan(ctx, 0); got != 0 {
		t.Errorf("DeleteOlderThan(0) = %d, want 0", got)
	}
}

func TestStorePreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := s.GetPreferences(ctx, "u")
	if p != DefaultPreferences("u") {
		t.Errorf("GetPreferences() = %+v, want defaults", p)
	}

	p.Events = false
	p.QuietHoursEnabled = true
	p.QuietHoursStart = "22:00"
	p.QuietHoursEnd = "07:00"
	if !s.SavePreferences(ctx, p) {
		t.Fatal("SavePreferences failed")
	}
	got := s.GetPreferences(ctx, "u")
	if got.Events || !got.QuietHoursEnabled || got.QuietHoursStart != "22:00" {
		t.Errorf("GetPreferences() = %+v", got)
	}

	got.Events = true
	if !s.SavePreferences(ctx, got) {
		t.Fatal("second SavePreferences failed")
	}
	if !s.GetPreferences(ctx, "u").Events {
		t.Error("update did not persist")
	}
}

func TestUpsertSubscriptionRebindsEndpoint(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, Models())
	repo := NewRepository(db)

	first, err := repo.UpsertSubscription(ctx, &PushSubscription{UserID: "u1", Endpoint: "e", P256dh: "k1", Auth: "a1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.DeactivateSubscription(ctx, first.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.UpsertSubscription(ctx, &PushSubscription{UserID: "u2", Endpoint: "e", P256dh: "k2", Auth: "a2"}); err != nil {
		t.Fatal(err)
	}

	var rows []PushSubscription
	if err := db.Where("endpoint = ?", "e").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	got := rows[0]
	if got.UserID != "u2" || got.P256dh != "k2" || got.Auth != "a2" || !got.IsActive {
		t.Errorf("subscription = %+v, want u2 k2/a2 active", got)
	}

	subs, err := repo.ListActiveSubscriptions(ctx, "u1")
	if err != nil || len(subs) != 0 {
		t.Errorf("previous owner still has %d subscriptions, err %v", len(subs), err)
	}
}
