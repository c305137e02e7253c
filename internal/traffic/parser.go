package traffic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProxyStat is one proxy as reported by the frps dashboard API.
type ProxyStat struct {
	Name       string
	Type       string
	RemotePort int
	TrafficIn  int64 // Bytes received today.
	TrafficOut int64 // Bytes sent today.
}

type proxyListPayload struct {
	Proxies []proxyPayload `json:"proxies"`
}

type proxyPayload struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Conf   json.RawMessage `json:"conf"`
	Status string          `json:"status"`

	RemotePort       json.Number `json:"remotePort"`
	RemotePortLegacy json.Number `json:"remote_port"`

	TodayTrafficIn        int64 `json:"todayTrafficIn"`
	TodayTrafficOut       int64 `json:"todayTrafficOut"`
	TodayTrafficInLegacy  int64 `json:"today_traffic_in"`
	TodayTrafficOutLegacy int64 `json:"today_traffic_out"`
	TrafficInLegacy       int64 `json:"traffic_in"`
	TrafficOutLegacy      int64 `json:"traffic_out"`
}

type proxyConf struct {
	Type             string      `json:"type"`
	RemotePort       json.Number `json:"remotePort"`
	RemotePortLegacy json.Number `json:"remote_port"`
}

// ParseProxyList converts a frps /api/proxy/{type} response into proxy stats.
// Proxies without a remote port are skipped. defaultType fills in a missing type.
func ParseProxyList(data []byte, defaultType string) ([]ProxyStat, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("parse proxy list: empty payload")
	}
	var payload proxyListPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse proxy list: decode: %w", err)
	}

	stats := make([]ProxyStat, 0, len(payload.Proxies))
	for _, p := range payload.Proxies {
		stat := ProxyStat{
			Name:       strings.TrimSpace(p.Name),
			Type:       strings.ToLower(strings.TrimSpace(p.Type)),
			TrafficIn:  firstNonZero(p.TodayTrafficIn, p.TodayTrafficInLegacy, p.TrafficInLegacy),
			TrafficOut: firstNonZero(p.TodayTrafficOut, p.TodayTrafficOutLegacy, p.TrafficOutLegacy),
		}
		stat.RemotePort = numberToPort(p.RemotePort, p.RemotePortLegacy)

		if len(p.Conf) > 0 && string(p.Conf) != "null" {
			var conf proxyConf
			if err := json.Unmarshal(p.Conf, &conf); err == nil {
				if stat.RemotePort == 0 {
					stat.RemotePort = numberToPort(conf.RemotePort, conf.RemotePortLegacy)
				}
				if stat.Type == "" {
					stat.Type = strings.ToLower(strings.TrimSpace(conf.Type))
				}
			}
		}
		if stat.Type == "" {
			stat.Type = defaultType
		}
		if stat.RemotePort <= 0 {
			continue
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func numberToPort(values ...json.Number) int {
	for _, v := range values {
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v.String())
		if err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func firstNonZero(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
