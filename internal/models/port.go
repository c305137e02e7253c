package models

// Port protocols accepted by frps.
const (
	ProtocolTCP = "tcp"
	ProtocolUDP = "udp"
)

// DefaultLocalIP is the local target address used when none is given.
const DefaultLocalIP = "127.0.0.1"

// Port represents an external port mapping owned by a user.
type Port struct {
	ID     int64 `json:"id"`      // Monotonic identifier, never reused.
	UserID int64 `json:"user_id"` // Owning user.

	Port     int    `json:"port"`     // External port, unique across all users.
	Name     string `json:"name"`     // Display name, also used as the frpc proxy name.
	Protocol string `json:"protocol"` // tcp or udp.

	LocalIP   string `json:"local_ip"`   // Local target address.
	LocalPort int    `json:"local_port"` // Local target port.

	IsActive bool `json:"is_active"` // Inactive ports are left out of client configs.

	CreatedAt int64 `json:"created_at"` // Creation timestamp (epoch seconds).
	UpdatedAt int64 `json:"updated_at"` // Last update timestamp (epoch seconds).
}

// ValidProtocol reports whether p is a supported port protocol.
func ValidProtocol(p string) bool {
	return p == ProtocolTCP || p == ProtocolUDP
}
