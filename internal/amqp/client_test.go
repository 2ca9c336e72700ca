package amqp

import (
	"testing"
	"time"
)

func TestSummaryExportMessageRoundTrip(t *testing.T) {
	msg := NewSummaryExportMessage(7, 2023)
	if msg.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := SummaryExportMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.UserID != 7 || decoded.Year != 2023 {
		t.Fatalf("round trip lost fields: %+v", decoded)
	}
	if !decoded.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp drifted: %v vs %v", decoded.Timestamp, msg.Timestamp)
	}
}

func TestSummaryExportMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := SummaryExportMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}
