package traffic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCollectInterval = time.Minute
	defaultRetention       = 30 * 24 * time.Hour
	defaultRequestTimeout  = 10 * time.Second
)

// Config configures a Collector.
type Config struct {
	DashboardURL string
	User         string
	Password     string
	Interval     time.Duration
	Retention    time.Duration
}

// Collector polls the frps dashboard and records per-port traffic samples.
type Collector struct {
	facade   *query.Facade
	baseURL  string
	user     string
	password string
	interval time.Duration
	retain   time.Duration
	client   *http.Client
	now      func() time.Time

	mu   sync.Mutex
	last map[string]counters // type/remotePort -> last seen counters
}

type counters struct {
	in     int64
	out    int64
	portID int64 // Mapping that owned the remote port when the counters were taken.
}

// CollectStats summarizes one collection pass.
type CollectStats struct {
	Proxies  int
	Recorded int
	Pruned   int64
}

// NewCollector constructs a Collector. It returns nil when no dashboard URL is configured.
func NewCollector(facade *query.Facade, cfg Config) *Collector {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.DashboardURL), "/")
	if facade == nil || baseURL == "" {
		return nil
	}
	c := &Collector{
		facade:   facade,
		baseURL:  baseURL,
		user:     cfg.User,
		password: cfg.Password,
		interval: cfg.Interval,
		retain:   cfg.Retention,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		now:      time.Now,
		last:     make(map[string]counters),
	}
	if c.interval <= 0 {
		c.interval = defaultCollectInterval
	}
	if c.retain <= 0 {
		c.retain = defaultRetention
	}
	return c
}

// Start runs the collection loop in the background.
func (c *Collector) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("traffic collector started (interval=%s, retention=%s)", c.interval, c.retain)
}

func (c *Collector) run(ctx context.Context) {
	if _, err := c.CollectOnce(ctx); err != nil {
		log.WithError(err).Warn("traffic collector: initial collection failed")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.CollectOnce(ctx); err != nil {
				log.WithError(err).Warn("traffic collector: collection failed")
			}
		}
	}
}

// CollectOnce polls every proxy type, records traffic deltas and prunes old samples.
func (c *Collector) CollectOnce(ctx context.Context) (CollectStats, error) {
	if c == nil {
		return CollectStats{}, fmt.Errorf("traffic collector: not configured")
	}
	var stats CollectStats
	var proxies []ProxyStat
	for _, proxyType := range []string{models.ProtocolTCP, models.ProtocolUDP} {
		list, err := c.fetch(ctx, proxyType)
		if err != nil {
			return stats, err
		}
		proxies = append(proxies, list...)
	}
	stats.Proxies = len(proxies)

	now := c.now().Unix()
	c.forgetMissing(proxies)
	for _, proxy := range proxies {
		recorded, err := c.record(ctx, proxy, now)
		if err != nil {
			log.WithError(err).Warnf("traffic collector: record %s failed", proxy.Name)
			continue
		}
		if recorded {
			stats.Recorded++
		}
	}

	cutoff := c.now().Add(-c.retain).Unix()
	res, err := c.facade.Exec(ctx, query.PruneTraffic{Before: cutoff})
	if err != nil {
		return stats, fmt.Errorf("traffic collector: prune: %w", err)
	}
	stats.Pruned = res.RowsAffected
	if stats.Recorded > 0 || stats.Pruned > 0 {
		log.Debugf("traffic collector: %d proxies, %d samples recorded, %d pruned", stats.Proxies, stats.Recorded, stats.Pruned)
	}
	return stats, nil
}

func (c *Collector) fetch(ctx context.Context, proxyType string) ([]ProxyStat, error) {
	requestCtx, cancel := context.WithTimeout(ctx, defaultRequestTimeout)
	defer cancel()

	url := c.baseURL + "/api/proxy/" + proxyType
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("traffic collector: build request: %w", err)
	}
	if c.user != "" || c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("traffic collector: request failed: %w", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("traffic collector: close response body failed")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("traffic collector: unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("traffic collector: read response: %w", err)
	}
	return ParseProxyList(body, proxyType)
}

func proxyKey(proxy ProxyStat) string {
	return fmt.Sprintf("%s/%d", proxy.Type, proxy.RemotePort)
}

// forgetMissing drops baselines of proxies that are no longer reported.
func (c *Collector) forgetMissing(proxies []ProxyStat) {
	present := make(map[string]struct{}, len(proxies))
	for _, proxy := range proxies {
		present[proxyKey(proxy)] = struct{}{}
	}
	c.mu.Lock()
	for key := range c.last {
		if _, ok := present[key]; !ok {
			delete(c.last, key)
		}
	}
	c.mu.Unlock()
}

// record stores the traffic a proxy accumulated since the previous poll.
// The first observation of a remote port only sets its baseline, and so does a change
// of the mapping that owns it. frps resets its daily counters at midnight, so a
// counter lower than the baseline counts from zero.
func (c *Collector) record(ctx context.Context, proxy ProxyStat, now int64) (bool, error) {
	port, owned, err := query.SelectOne[models.Port](ctx, c.facade, query.ByPortNumber{Port: proxy.RemotePort})
	if err != nil {
		return false, err
	}
	current := counters{in: proxy.TrafficIn, out: proxy.TrafficOut}
	if owned {
		current.portID = port.ID
	}

	key := proxyKey(proxy)
	c.mu.Lock()
	previous, seen := c.last[key]
	c.last[key] = current
	c.mu.Unlock()
	if !seen || !owned || previous.portID != current.portID {
		return false, nil
	}

	deltaIn := delta(previous.in, current.in)
	deltaOut := delta(previous.out, current.out)
	if deltaIn == 0 && deltaOut == 0 {
		return false, nil
	}

	portID := port.ID
	_, err = c.facade.Insert(ctx, query.InsertTraffic{
		UserID:        port.UserID,
		PortID:        &portID,
		UploadBytes:   deltaOut,
		DownloadBytes: deltaIn,
		RecordedAt:    now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func delta(previous, current int64) int64 {
	if current < previous {
		return current
	}
	return current - previous
}
