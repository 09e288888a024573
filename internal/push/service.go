package push

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gracechurch/church-backend/internal/notification"
)

// BatchSize bounds how many users are pushed to concurrently.
const BatchSize = 10

// SubscriptionStore is the persistence the push service needs.
type SubscriptionStore interface {
	UpsertSubscription(ctx context.Context, sub *notification.PushSubscription) (*notification.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID, endpoint string) error
	ListActiveSubscriptions(ctx context.Context, userID string) ([]notification.PushSubscription, error)
	ListActiveSubscriberIDs(ctx context.Context) ([]string, error)
	DeactivateSubscription(ctx context.Context, id string) error
	TouchSubscription(ctx context.Context, id string, at time.Time) error
	GetPreferences(ctx context.Context, userID string) (*notification.Preferences, error)
}

// RoleResolver maps user ids to role names. Ids it does not know are omitted.
type RoleResolver interface {
	RolesByUserIDs(ctx context.Context, userIDs []string) (map[string]string, error)
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	// Location is the zone quiet hours are evaluated in.
	Location *time.Location
}

type Service struct {
	cfg     Config
	store   SubscriptionStore
	roles   RoleResolver
	senders map[string]Sender
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Service)

// WithSender replaces the transport used for one platform.
func WithSender(platform string, s Sender) Option {
	return func(svc *Service) { svc.senders[platform] = s }
}

// WithFCM enables delivery to platform=fcm subscriptions.
func WithFCM(client FCMClient) Option {
	return func(svc *Service) {
		if client != nil {
			svc.senders[notification.PlatformFCM] = NewFCMSender(client)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func NewService(cfg Config, store SubscriptionStore, roles RoleResolver, logger *zap.Logger, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Service{
		cfg:   cfg,
		store: store,
		roles: roles,
		senders: map[string]Sender{
			notification.PlatformWebPush: NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject, nil),
			notification.PlatformFCM:     NewFCMSender(nil),
		},
		now:    time.Now,
		logger: logger.Named("push"),
	}
	for _, opt := range opts {
		opt(s)
	}
	for platform, sender := range s.senders {
		s.senders[platform] = withBreaker(platform, sender, s.logger)
	}
	if !s.Configured() {
		s.logger.Warn("VAPID keys not set, push delivery disabled")
	}
	return s
}

// Configured reports whether both VAPID keys are present.
func (s *Service) Configured() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

func (s *Service) VAPIDPublicKey() string {
	return s.cfg.VAPIDPublicKey
}

// ================ Subscriptions ================

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type SubscribeRequest struct {
	Endpoint  string           `json:"endpoint" binding:"required"`
	Keys      SubscriptionKeys `json:"keys"`
	Platform  string           `json:"platform,omitempty"`
	UserAgent string           `json:"user_agent,omitempty"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

var ErrInvalidSubscription = errors.New("invalid push subscription")

func (s *Service) Subscribe(ctx context.Context, userID string, req SubscribeRequest) (*notification.PushSubscription, error) {
	platform := req.Platform
	if platform == "" {
		platform = notification.PlatformWebPush
	}
	switch platform {
	case notification.PlatformWebPush:
		if req.Keys.P256dh == "" || req.Keys.Auth == "" {
			return nil, errors.Join(ErrInvalidSubscription, errors.New("keys.p256dh and keys.auth are required"))
		}
	case notification.PlatformFCM:
	default:
		return nil, errors.Join(ErrInvalidSubscription, errors.New("unknown platform "+platform))
	}

	sub, err := s.store.UpsertSubscription(ctx, &notification.PushSubscription{
		UserID:    userID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		Platform:  platform,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("push subscription saved", zap.String("user_id", userID), zap.String("platform", platform))
	return sub, nil
}

func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return s.store.DeleteSubscription(ctx, userID, endpoint)
}

// ================ Delivery ================

func (s *Service) allowed(ctx context.Context, userID string, t notification.Type) bool {
	if t == "" {
		return true
	}
	prefs := notification.DefaultPreferences(userID)
	p, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load preferences, using defaults", zap.String("user_id", userID), zap.Error(err))
	} else if p != nil {
		prefs = *p
	}
	return notification.PushAllowed(prefs, t, s.now().In(s.cfg.Location))
}

// SendToUser pushes to every active subscription of one user. An empty
// type skips the preference check.
func (s *Service) SendToUser(ctx context.Context, userID string, p Payload, t notification.Type) Result {
	if !s.Configured() {
		return Result{}
	}
	subs, err := s.store.ListActiveSubscriptions(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list subscriptions", zap.String("user_id", userID), zap.Error(err))
		return Result{}
	}
	if len(subs) == 0 || !s.allowed(ctx, userID, t) {
		return Result{}
	}

	var (
		mu  sync.Mutex
		res Result
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := range subs {
		sub := &subs[i]
		g.Go(func() error {
			ok := s.sendOne(gctx, sub, p)
			mu.Lock()
			if ok {
				res.Success++
			} else {
				res.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func (s *Service) sendOne(ctx context.Context, sub *notification.PushSubscription, p Payload) bool {
	sender, ok := s.senders[sub.Platform]
	if !ok {
		s.logger.Warn("no transport for platform", zap.String("platform", sub.Platform), zap.String("subscription_id", sub.ID))
		return false
	}

	err := sender.Send(ctx, sub, p)
	switch {
	case err == nil:
		if terr := s.store.TouchSubscription(ctx, sub.ID, s.now()); terr != nil {
			s.logger.Warn("failed to update last_used_at", zap.String("subscription_id", sub.ID), zap.Error(terr))
		}
		return true
	case errors.Is(err, ErrGone):
		s.logger.Info("subscription gone, deactivating", zap.String("subscription_id", sub.ID), zap.String("user_id", sub.UserID))
		if derr := s.store.DeactivateSubscription(ctx, sub.ID); derr != nil {
			s.logger.Error("failed to deactivate subscription", zap.String("subscription_id", sub.ID), zap.Error(derr))
		}
	default:
		s.logger.Warn("push delivery failed", zap.String("subscription_id", sub.ID), zap.String("platform", sub.Platform), zap.Error(err))
	}
	return false
}

// SendToUsers pushes to each user in batches of BatchSize and sums the results.
func (s *Service) SendToUsers(ctx context.Context, userIDs []string, p Payload, t notification.Type) Result {
	var total Result
	if !s.Configured() {
		return total
	}
	for start := 0; start < len(userIDs); start += BatchSize {
		end := start + BatchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[start:end]
		results := make([]Result, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		for i, id := range batch {
			g.Go(func() error {
				results[i] = s.SendToUser(gctx, id, p, t)
				return nil
			})
		}
		_ = g.Wait()
		for _, r := range results {
			total = total.Add(r)
		}
	}
	return total
}

// SendToAudience pushes to every subscriber whose role can see the audience.
// Subscribers unknown to the role resolver are treated as visitors.
func (s *Service) SendToAudience(ctx context.Context, audience notification.Audience, p Payload, t notification.Type) Result {
	if !s.Configured() || audience == notification.AudienceSpecific {
		return Result{}
	}
	ids, err := s.store.ListActiveSubscriberIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list subscribers", zap.Error(err))
		return Result{}
	}
	if len(ids) == 0 {
		return Result{}
	}

	var roles map[string]string
	if s.roles != nil && audience != notification.AudienceAll {
		roles, err = s.roles.RolesByUserIDs(ctx, ids)
		if err != nil {
			s.logger.Error("failed to resolve subscriber roles", zap.Error(err))
			return Result{}
		}
	}

	targets := ids[:0:0]
	for _, id := range ids {
		role, ok := roles[id]
		if !ok {
			role = notification.RoleVisitor
		}
		if audience == notification.AudienceAll || notification.RoleCanSee(role, audience) {
			targets = append(targets, id)
		}
	}
	return s.SendToUsers(ctx, targets, p, t)
}

// DeliverNotification pushes a stored notification to its audience.
// Notifications that have already expired are not pushed.
func (s *Service) DeliverNotification(ctx context.Context, n *notification.Notification) {
	if !s.Configured() {
		return
	}
	if n.ExpiresAt != nil && !n.ExpiresAt.After(s.now()) {
		s.logger.Debug("skipping push for expired notification", zap.String("notification_id", n.ID))
		return
	}
	p := PayloadFor(n)
	var res Result
	if n.TargetAudience == notification.AudienceSpecific {
		res = s.SendToUsers(ctx, n.SpecificUserIDs, p, n.Type)
	} else {
		res = s.SendToAudience(ctx, n.TargetAudience, p, n.Type)
	}
	s.logger.Info("push delivered",
		zap.String("notification_id", n.ID),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
	)
}
