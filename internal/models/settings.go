package models

// Settings is the system-wide settings singleton.
type Settings struct {
	AllowRegister         bool   `json:"allow_register"`          // Whether self-registration is open.
	RequireEmailVerify    bool   `json:"require_email_verify"`    // Whether new accounts must verify their email.
	ServerAddr            string `json:"server_ip"`               // Public frps address handed to clients.
	DefaultPortLimit      int    `json:"default_port_limit"`      // Port quota for new users.
	DefaultBandwidthLimit int64  `json:"default_bandwidth_limit"` // Bandwidth quota for new users, 0 means unlimited.
}

// SettingsPatch carries a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	AllowRegister         *bool
	RequireEmailVerify    *bool
	ServerAddr            *string
	DefaultPortLimit      *int
	DefaultBandwidthLimit *int64
}

// Apply returns s with the patch fields applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AllowRegister != nil {
		s.AllowRegister = *p.AllowRegister
	}
	if p.RequireEmailVerify != nil {
		s.RequireEmailVerify = *p.RequireEmailVerify
	}
	if p.ServerAddr != nil {
		s.ServerAddr = *p.ServerAddr
	}
	if p.DefaultPortLimit != nil {
		s.DefaultPortLimit = *p.DefaultPortLimit
	}
	if p.DefaultBandwidthLimit != nil {
		s.DefaultBandwidthLimit = *p.DefaultBandwidthLimit
	}
	return s
}
