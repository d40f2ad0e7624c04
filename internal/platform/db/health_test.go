package db

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPoolStats_Fields(t *testing.T) {
	stats := &PoolStats{
		TotalConns:      10,
		IdleConns:       5,
		AcquiredConns:   5,
		MaxConns:        20,
		AcquireCount:    100,
		AcquireDuration: "1.5s",
		Healthy:         true,
	}

	if stats.TotalConns != 10 {
		t.Errorf("expected TotalConns 10, got %d", stats.TotalConns)
	}
	if stats.IdleConns != 5 {
		t.Errorf("expected IdleConns 5, got %d", stats.IdleConns)
	}
	if stats.AcquiredConns != 5 {
		t.Errorf("expected AcquiredConns 5, got %d", stats.AcquiredConns)
	}
	if stats.MaxConns != 20 {
		t.Errorf("expected MaxConns 20, got %d", stats.MaxConns)
	}
	if stats.AcquireCount != 100 {
		t.Errorf("expected AcquireCount 100, got %d", stats.AcquireCount)
	}
	if !stats.Healthy {
		t.Error("expected Healthy to be true")
	}
}

func TestPoolStats_SerializesCamelCase(t *testing.T) {
	b, err := json.Marshal(&PoolStats{TotalConns: 1, AcquireDuration: "250ms", Healthy: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := string(b)
	for _, key := range []string{
		"totalConns", "idleConns", "acquiredConns", "maxConns",
		"acquireCount", "acquireDuration", "healthy",
	} {
		if !strings.Contains(body, `"`+key+`"`) {
			t.Errorf("expected key %q in %s", key, body)
		}
	}
}
