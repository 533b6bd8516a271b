package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Operation names the kind of local change a message announces.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpMove   Operation = "move"
	OpDedupe Operation = "dedupe"
)

// JournalChangedMessage announces a local journal write. It carries no
// payload; consumers reload what they need.
type JournalChangedMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id,omitempty"`
	Operation Operation `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewJournalChangedMessage(kind, id string, op Operation, at time.Time) *JournalChangedMessage {
	return &JournalChangedMessage{
		Kind:      kind,
		ID:        id,
		Operation: op,
		Timestamp: at.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *JournalChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// JournalChangedMessageFromJSON decodes a message and checks the
// operation is set.
func JournalChangedMessageFromJSON(data []byte) (*JournalChangedMessage, error) {
	var msg JournalChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Operation == "" {
		return nil, errors.New("missing operation")
	}
	return &msg, nil
}
