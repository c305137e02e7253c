package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Unix(1_700_000_040, 0)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4", 3, time.Minute, now)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v err=%v", i, res, err)
		}
	}
	res, _ := l.Allow(ctx, "ip:1.2.3.4", 3, time.Minute, now.Add(5*time.Second))
	if res.Allowed {
		t.Fatalf("expected fourth request in window to be rejected")
	}
	if !res.Reset.Equal(time.Unix(1_700_000_100, 0).UTC()) {
		t.Fatalf("unexpected reset %s", res.Reset)
	}
	res, _ = l.Allow(ctx, "ip:5.6.7.8", 3, time.Minute, now)
	if !res.Allowed {
		t.Fatalf("expected separate key to have its own budget")
	}
	res, _ = l.Allow(ctx, "ip:1.2.3.4", 3, time.Minute, now.Add(time.Minute))
	if !res.Allowed {
		t.Fatalf("expected new window to reset the counter")
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)
	_, _ = l.Allow(context.Background(), "ip:a", 1, time.Minute, now)
	if removed := l.Sweep(now.Add(2*time.Minute), time.Minute); removed != 1 {
		t.Fatalf("expected 1 counter swept, got %d", removed)
	}
}

func TestManagerDisabledLimit(t *testing.T) {
	m := NewManager(StaticSettings(SettingsConfig{Limit: 0}), nil, nil)
	for i := 0; i < 100; i++ {
		res, err := m.Allow(context.Background(), "ip:a")
		if err != nil || !res.Allowed {
			t.Fatalf("expected unlimited, got %+v err=%v", res, err)
		}
	}
}

func TestManagerFallsBackToMemoryWhenRedisUnavailable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(StaticSettings(SettingsConfig{
		Limit:     1,
		Window:    time.Minute,
		RedisAddr: "127.0.0.1:1",
	}), func() time.Time { return now }, nil)
	t.Cleanup(func() { _ = m.Close() })

	res, err := m.Allow(context.Background(), "ip:a")
	if err != nil || !res.Allowed {
		t.Fatalf("expected first request allowed via memory, got %+v err=%v", res, err)
	}
	res, _ = m.Allow(context.Background(), "ip:a")
	if res.Allowed {
		t.Fatalf("expected second request rejected via memory")
	}
}

func TestKeyForClient(t *testing.T) {
	if KeyForClient(" ") != "" {
		t.Fatalf("expected empty key for blank ip")
	}
	if KeyForClient("10.0.0.1") != "ip:10.0.0.1" {
		t.Fatalf("unexpected key %q", KeyForClient("10.0.0.1"))
	}
}
