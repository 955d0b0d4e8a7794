package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

var errEmptyUser = errors.New("report request missing user")

// ReportRequestMessage asks the worker to build a report for one user.
// It carries only the user key; the worker reads the ledger itself so
// the message never goes stale.
type ReportRequestMessage struct {
	User        string    `json:"user"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewReportRequestMessage(user string) *ReportRequestMessage {
	return &ReportRequestMessage{
		User:        user,
		RequestedAt: time.Now(),
	}
}

func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.User == "" {
		return nil, errEmptyUser
	}
	return &msg, nil
}
