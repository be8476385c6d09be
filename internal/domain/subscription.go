package domain

import "time"

// NotificationType is a kind of message a subscriber opted into.
type NotificationType string

// Notification types.
const (
	NotificationTypeIncident    NotificationType = "incident"
	NotificationTypeMaintenance NotificationType = "maintenance"
	NotificationTypeResolution  NotificationType = "resolution"
)

// DefaultNotificationTypes are granted to every new subscription.
var DefaultNotificationTypes = []NotificationType{
	NotificationTypeIncident,
	NotificationTypeMaintenance,
	NotificationTypeResolution,
}

// Subscription is an email subscription to status notifications.
type Subscription struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	CreatedAt time.Time          `json:"createdAt"`
	Verified  bool               `json:"verified"`
	Types     []NotificationType `json:"types"`
}

// Wants reports whether the subscription opted into the notification type.
func (s *Subscription) Wants(t NotificationType) bool {
	for _, have := range s.Types {
		if have == t {
			return true
		}
	}
	return false
}
