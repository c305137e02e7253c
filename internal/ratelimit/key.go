package ratelimit

import "strings"

// KeyForClient builds a limiter key for a client address.
func KeyForClient(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}
