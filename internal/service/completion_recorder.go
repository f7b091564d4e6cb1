package service

import (
	"sync"

	"github.com/noah-isme/sma-professor-gateway/internal/models"
)

// CompletionRecorder captures notifications and navigation for a single
// request so an HTTP caller can render them itself.
type CompletionRecorder struct {
	mu            sync.Mutex
	notifications []models.Notification
	route         string
}

// NewCompletionRecorder constructs an empty recorder.
func NewCompletionRecorder() *CompletionRecorder {
	return &CompletionRecorder{}
}

// Notify records n.
func (r *CompletionRecorder) Notify(n models.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()
}

// GoTo records the last navigation target.
func (r *CompletionRecorder) GoTo(route string) {
	r.mu.Lock()
	r.route = route
	r.mu.Unlock()
}

// Notifications returns the recorded notifications.
func (r *CompletionRecorder) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Route returns the last navigation target, if any.
func (r *CompletionRecorder) Route() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.route
}

// Meta renders the recording as response metadata.
func (r *CompletionRecorder) Meta() map[string]interface{} {
	meta := map[string]interface{}{}
	notifications := r.Notifications()
	if len(notifications) > 0 {
		meta["notification"] = notifications[len(notifications)-1]
	}
	if route := r.Route(); route != "" {
		meta["navigate"] = route
	}
	return meta
}
