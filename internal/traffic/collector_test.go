package traffic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/store"
)

type fakeDashboard struct {
	mu     sync.Mutex
	in     int64
	out    int64
	hidden bool
}

func (d *fakeDashboard) hide(hidden bool) {
	d.mu.Lock()
	d.hidden = hidden
	d.mu.Unlock()
}

func (d *fakeDashboard) set(in, out int64) {
	d.mu.Lock()
	d.in, d.out = in, out
	d.mu.Unlock()
}

func (d *fakeDashboard) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/proxy/tcp":
			d.mu.Lock()
			body := fmt.Sprintf(`{"proxies":[{"name":"web","conf":{"remotePort":20000},"todayTrafficIn":%d,"todayTrafficOut":%d}]}`, d.in, d.out)
			if d.hidden {
				body = `{"proxies":[]}`
			}
			d.mu.Unlock()
			_, _ = w.Write([]byte(body))
		case "/api/proxy/udp":
			_, _ = w.Write([]byte(`{"proxies":[]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func setupCollector(t *testing.T, dash *fakeDashboard) (*Collector, *query.Facade, int64) {
	t.Helper()
	server := httptest.NewServer(dash.handler(t))
	t.Cleanup(server.Close)

	facade := query.New(store.New())
	ctx := context.Background()
	userID, err := facade.Insert(ctx, query.InsertUser{Email: "a@example.com"})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err = facade.Insert(ctx, query.InsertPort{UserID: userID, Port: 20000}); err != nil {
		t.Fatalf("insert port: %v", err)
	}

	collector := NewCollector(facade, Config{
		DashboardURL: server.URL + "/",
		User:         "admin",
		Password:     "secret",
		Interval:     time.Minute,
	})
	collector.client = server.Client()
	return collector, facade, userID
}

func TestCollectOnce_RecordsDeltas(t *testing.T) {
	dash := &fakeDashboard{}
	dash.set(100, 50)
	collector, facade, userID := setupCollector(t, dash)
	ctx := context.Background()

	stats, err := collector.CollectOnce(ctx)
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	if stats.Proxies != 1 || stats.Recorded != 0 {
		t.Fatalf("expected baseline only, got %+v", stats)
	}

	dash.set(160, 80)
	if stats, err = collector.CollectOnce(ctx); err != nil || stats.Recorded != 1 {
		t.Fatalf("second collect: stats=%+v err=%v", stats, err)
	}
	totals, err := facade.SumTraffic(ctx, query.ByUserID{UserID: userID})
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if totals.Download != 60 || totals.Upload != 30 {
		t.Fatalf("unexpected totals: %+v", totals)
	}

	// Daily counters reset.
	dash.set(10, 5)
	if _, err = collector.CollectOnce(ctx); err != nil {
		t.Fatalf("third collect: %v", err)
	}
	totals, _ = facade.SumTraffic(ctx, query.ByUserID{UserID: userID})
	if totals.Download != 70 || totals.Upload != 35 {
		t.Fatalf("unexpected totals after reset: %+v", totals)
	}

	samples, _ := query.SelectMany[models.TrafficSample](ctx, facade, query.ByUserID{UserID: userID})
	for _, s := range samples {
		if s.PortID == nil {
			t.Fatalf("expected samples linked to the port")
		}
	}
}

func TestCollectOnce_PrunesOldSamples(t *testing.T) {
	dash := &fakeDashboard{}
	collector, facade, userID := setupCollector(t, dash)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	collector.now = func() time.Time { return now }

	old := now.Add(-31 * 24 * time.Hour).Unix()
	recent := now.Add(-time.Hour).Unix()
	for _, at := range []int64{old, recent} {
		if _, err := facade.Insert(ctx, query.InsertTraffic{UserID: userID, UploadBytes: 1, RecordedAt: at}); err != nil {
			t.Fatalf("insert traffic: %v", err)
		}
	}

	stats, err := collector.CollectOnce(ctx)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Pruned != 1 {
		t.Fatalf("expected 1 pruned sample, got %d", stats.Pruned)
	}
}

func TestCollectOnce_UnauthorizedFails(t *testing.T) {
	dash := &fakeDashboard{}
	collector, _, _ := setupCollector(t, dash)
	collector.password = "wrong"
	if _, err := collector.CollectOnce(context.Background()); err == nil {
		t.Fatalf("expected error on unauthorized dashboard")
	}
}

func TestNewCollectorDisabledWithoutURL(t *testing.T) {
	if NewCollector(query.New(store.New()), Config{}) != nil {
		t.Fatalf("expected nil collector without dashboard url")
	}
}

func TestCollectOnce_ReclaimedPortStartsNewBaseline(t *testing.T) {
	dash := &fakeDashboard{}
	dash.set(100, 50)
	collector, facade, firstOwner := setupCollector(t, dash)
	ctx := context.Background()

	if _, err := collector.CollectOnce(ctx); err != nil {
		t.Fatalf("baseline collect: %v", err)
	}
	port, ok, err := query.SelectOne[models.Port](ctx, facade, query.ByPortNumber{Port: 20000})
	if err != nil || !ok {
		t.Fatalf("select port: ok=%v err=%v", ok, err)
	}
	if _, err = facade.Exec(ctx, query.DeleteByID{From: models.CollectionPorts, ID: port.ID}); err != nil {
		t.Fatalf("delete port: %v", err)
	}
	secondOwner, err := facade.Insert(ctx, query.InsertUser{Email: "b@example.com"})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err = facade.Insert(ctx, query.InsertPort{UserID: secondOwner, Port: 20000}); err != nil {
		t.Fatalf("reclaim port: %v", err)
	}

	dash.set(400, 200)
	stats, err := collector.CollectOnce(ctx)
	if err != nil {
		t.Fatalf("collect after reclaim: %v", err)
	}
	if stats.Recorded != 0 {
		t.Fatalf("expected the new owner to start from a fresh baseline, got %+v", stats)
	}

	dash.set(410, 205)
	if _, err = collector.CollectOnce(ctx); err != nil {
		t.Fatalf("collect: %v", err)
	}
	totals, _ := facade.SumTraffic(ctx, query.ByUserID{UserID: secondOwner})
	if totals.Download != 10 || totals.Upload != 5 {
		t.Fatalf("expected only traffic after the reclaim, got %+v", totals)
	}
	if totals, _ = facade.SumTraffic(ctx, query.ByUserID{UserID: firstOwner}); totals.Download != 0 || totals.Upload != 0 {
		t.Fatalf("expected nothing for the previous owner, got %+v", totals)
	}
}

func TestCollectOnce_ForgetsProxiesThatDisappear(t *testing.T) {
	dash := &fakeDashboard{}
	dash.set(100, 50)
	collector, facade, userID := setupCollector(t, dash)
	ctx := context.Background()

	if _, err := collector.CollectOnce(ctx); err != nil {
		t.Fatalf("baseline collect: %v", err)
	}
	dash.hide(true)
	if _, err := collector.CollectOnce(ctx); err != nil {
		t.Fatalf("collect while offline: %v", err)
	}
	dash.hide(false)
	dash.set(900, 700)
	stats, err := collector.CollectOnce(ctx)
	if err != nil {
		t.Fatalf("collect after reconnect: %v", err)
	}
	if stats.Recorded != 0 {
		t.Fatalf("expected a reconnected proxy to set a new baseline, got %+v", stats)
	}
	if totals, _ := facade.SumTraffic(ctx, query.ByUserID{UserID: userID}); totals.Download != 0 {
		t.Fatalf("expected no traffic credited across the gap, got %+v", totals)
	}
}
