package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// SubscriptionChangedMessage announces a write to one subscription. It only
// carries the id; consumers read current state from storage.
type SubscriptionChangedMessage struct {
	SubscriptionID string    `json:"subscription_id"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewSubscriptionChangedMessage(id, action string) *SubscriptionChangedMessage {
	return &SubscriptionChangedMessage{
		SubscriptionID: id,
		Action:         action,
		Timestamp:      time.Now().UTC(),
	}
}

func (m *SubscriptionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SubscriptionChangedMessageFromJSON decodes and checks a message body.
func SubscriptionChangedMessageFromJSON(data []byte) (*SubscriptionChangedMessage, error) {
	var msg SubscriptionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SubscriptionID == "" {
		return nil, fmt.Errorf("message has no subscription id")
	}
	return &msg, nil
}
