package amqp

import (
	"encoding/json"
	"time"
)

// View names the presentation layer caches per user.
const (
	ViewDashboard = "dashboard"
	ViewAccount   = "account"
)

// StaleViewMessage tells the presentation layer that cached views are out of
// date after a ledger mutation. It carries no data, only what to drop.
type StaleViewMessage struct {
	UserID     string    `json:"user_id"`
	Views      []string  `json:"views"`
	AccountIDs []string  `json:"account_ids,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewStaleViewMessage creates an invalidation message for the dashboard view
// and the detail views of the given accounts.
func NewStaleViewMessage(userID string, accountIDs ...string) *StaleViewMessage {
	views := []string{ViewDashboard}
	if len(accountIDs) > 0 {
		views = append(views, ViewAccount)
	}
	return &StaleViewMessage{
		UserID:     userID,
		Views:      views,
		AccountIDs: accountIDs,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *StaleViewMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StaleViewMessageFromJSON creates a message from JSON bytes.
func StaleViewMessageFromJSON(data []byte) (*StaleViewMessage, error) {
	var msg StaleViewMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
