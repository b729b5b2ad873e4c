package amqp

import (
	"testing"
)

func TestNewStaleViewMessage(t *testing.T) {
	msg := NewStaleViewMessage("u1", "a1", "a2")
	if msg.UserID != "u1" {
		t.Fatalf("user = %q", msg.UserID)
	}
	if len(msg.Views) != 2 || msg.Views[0] != ViewDashboard || msg.Views[1] != ViewAccount {
		t.Fatalf("views = %v", msg.Views)
	}
	if len(msg.AccountIDs) != 2 {
		t.Fatalf("accounts = %v", msg.AccountIDs)
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}

	dashboardOnly := NewStaleViewMessage("u1")
	if len(dashboardOnly.Views) != 1 || dashboardOnly.Views[0] != ViewDashboard {
		t.Fatalf("views = %v", dashboardOnly.Views)
	}
}

func TestStaleViewMessageRoundTrip(t *testing.T) {
	msg := NewStaleViewMessage("u1", "a1")
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := StaleViewMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.UserID != msg.UserID || len(got.AccountIDs) != 1 || got.AccountIDs[0] != "a1" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStaleViewMessageFromJSONMalformed(t *testing.T) {
	if _, err := StaleViewMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
