package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/collection"
)

// ActivityMessage describes one confirmed change to an expense.
type ActivityMessage struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}

// NewActivityMessage builds the message for ev.
func NewActivityMessage(ev collection.Event) *ActivityMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ActivityMessage{
		Type:      string(ev.Kind),
		ID:        ev.Expense.ID,
		Title:     ev.Expense.Title,
		Amount:    ev.Expense.Amount,
		Category:  ev.Expense.Category,
		Date:      ev.Expense.Date,
		Timestamp: ts.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityMessageFromJSON creates a message from JSON bytes
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
