package frpconfig

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/router-for-me/FRPPanel/internal/models"
)

// Server describes the frps endpoint clients connect to.
type Server struct {
	Addr  string
	Port  int
	Token string
}

// ClientConfig mirrors the subset of frpc.toml the panel issues.
type ClientConfig struct {
	ServerAddr string        `toml:"serverAddr"`
	ServerPort int           `toml:"serverPort"`
	User       string        `toml:"user,omitempty"`
	Auth       *AuthConfig   `toml:"auth,omitempty"`
	Proxies    []ProxyConfig `toml:"proxies"`
}

// AuthConfig is the frpc [auth] table.
type AuthConfig struct {
	Method string `toml:"method"`
	Token  string `toml:"token"`
}

// ProxyConfig is one [[proxies]] entry.
type ProxyConfig struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	LocalIP    string `toml:"localIP"`
	LocalPort  int    `toml:"localPort"`
	RemotePort int    `toml:"remotePort"`
}

// BuildClient assembles the client config for user from its active mappings.
func BuildClient(user models.User, ports []models.Port, server Server) ClientConfig {
	cfg := ClientConfig{
		ServerAddr: strings.TrimSpace(server.Addr),
		ServerPort: server.Port,
		User:       fmt.Sprintf("u%d", user.ID),
		Proxies:    make([]ProxyConfig, 0, len(ports)),
	}
	if server.Token != "" {
		cfg.Auth = &AuthConfig{Method: "token", Token: server.Token}
	}
	for _, p := range ports {
		if !p.IsActive {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = fmt.Sprintf("port-%d", p.Port)
		}
		localIP := p.LocalIP
		if localIP == "" {
			localIP = models.DefaultLocalIP
		}
		localPort := p.LocalPort
		if localPort == 0 {
			localPort = p.Port
		}
		proxyType := p.Protocol
		if !models.ValidProtocol(proxyType) {
			proxyType = models.ProtocolTCP
		}
		cfg.Proxies = append(cfg.Proxies, ProxyConfig{
			Name:       name,
			Type:       proxyType,
			LocalIP:    localIP,
			LocalPort:  localPort,
			RemotePort: p.Port,
		})
	}
	return cfg
}

// RenderClient renders frpc.toml for user.
func RenderClient(user models.User, ports []models.Port, server Server) (string, error) {
	cfg := BuildClient(user, ports, server)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# frpc configuration for %s\n", user.Email)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return "", fmt.Errorf("frpconfig: encode client config: %w", err)
	}
	return buf.String(), nil
}
