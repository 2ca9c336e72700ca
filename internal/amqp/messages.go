package amqp

import (
	"encoding/json"
	"time"
)

// SummaryExportMessage asks the export worker to rebuild and push one user's
// year summary. It carries only the scope; the worker recomputes the
// aggregates from current ledger data.
type SummaryExportMessage struct {
	UserID    int64     `json:"user_id"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSummaryExportMessage creates an export request for one user and year.
func NewSummaryExportMessage(userID int64, year int) *SummaryExportMessage {
	return &SummaryExportMessage{
		UserID:    userID,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SummaryExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SummaryExportMessageFromJSON decodes a message from JSON bytes.
func SummaryExportMessageFromJSON(data []byte) (*SummaryExportMessage, error) {
	var msg SummaryExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
