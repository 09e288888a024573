package realtime

import (
	"context"
	"sort"

	"github.com/gracechurch/church-backend/internal/notification"
)

// poll sends unread notifications newer than the connection's high-water
// mark, oldest first. A failed query yields nothing and the next tick retries.
func (h *Hub) poll(ctx context.Context, c *Conn) error {
	mark := c.highWaterMark()
	views := h.source.ListForUser(ctx, c.userID, c.role, h.opts.PollPageSize, false)

	fresh := make([]notification.Notification, 0, len(views))
	for _, v := range views {
		if v.CreatedAt.After(mark) {
			fresh = append(fresh, v.Notification)
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].CreatedAt.Before(fresh[j].CreatedAt)
	})

	for i := range fresh {
		if err := c.deliver(&fresh[i]); err != nil {
			return err
		}
	}
	return nil
}
