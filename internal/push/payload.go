package push

import (
	"github.com/gracechurch/church-backend/internal/notification"
)

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	URL            string `json:"url,omitempty"`
	Tag            string `json:"tag,omitempty"`
	NotificationID string `json:"id,omitempty"`
	Type           string `json:"type,omitempty"`
	Priority       string `json:"priority,omitempty"`
}

// PayloadFor builds the push body for a stored notification. The tag lets
// the browser collapse repeats of the same notification.
func PayloadFor(n *notification.Notification) Payload {
	p := Payload{
		Title:          n.Title,
		Body:           n.Message,
		Tag:            "notification-" + n.ID,
		NotificationID: n.ID,
		Type:           string(n.Type),
		Priority:       string(n.Priority),
	}
	if n.ActionURL != nil {
		p.URL = *n.ActionURL
	}
	return p
}

// Result counts per-subscription outcomes.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

func (r Result) Add(o Result) Result {
	return Result{Success: r.Success + o.Success, Failed: r.Failed + o.Failed}
}
