package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "watchdog.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestLogAndListRecoveries(t *testing.T) {
	database := openTestDB(t)

	if err := database.LogRecovery("Process not running", "restart issued"); err != nil {
		t.Fatalf("LogRecovery() error: %v", err)
	}
	if err := database.LogRecovery("Invalid Config JSON", "restored from stable"); err != nil {
		t.Fatalf("LogRecovery() error: %v", err)
	}

	events, err := database.RecentRecoveries(10)
	if err != nil {
		t.Fatalf("RecentRecoveries() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Reason != "Invalid Config JSON" {
		t.Errorf("expected newest first, got %q", events[0].Reason)
	}
}

func TestRecentRecoveriesRespectsLimit(t *testing.T) {
	database := openTestDB(t)

	for i := 0; i < 5; i++ {
		if err := database.LogRecovery("Process not running", ""); err != nil {
			t.Fatal(err)
		}
	}

	events, err := database.RecentRecoveries(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}
}

func TestLogAndListControlActions(t *testing.T) {
	database := openTestDB(t)

	if err := database.LogControlAction("restart", true, "192.0.2.10"); err != nil {
		t.Fatalf("LogControlAction() error: %v", err)
	}

	actions, err := database.RecentControlActions(10)
	if err != nil {
		t.Fatalf("RecentControlActions() error: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Action != "restart" || !actions[0].Success || actions[0].RemoteAddr != "192.0.2.10" {
		t.Errorf("unexpected action row: %+v", actions[0])
	}
}

func TestLogServiceEvent(t *testing.T) {
	database := openTestDB(t)
	if err := database.LogServiceEvent("start", "watchdog started"); err != nil {
		t.Fatalf("LogServiceEvent() error: %v", err)
	}
}

func TestEmptyListsAreNotNil(t *testing.T) {
	database := openTestDB(t)

	events, err := database.RecentRecoveries(10)
	if err != nil {
		t.Fatal(err)
	}
	if events == nil {
		t.Error("expected empty slice, got nil")
	}
}
