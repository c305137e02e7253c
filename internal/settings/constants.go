package settings

import "github.com/router-for-me/FRPPanel/internal/models"

// Defaults for the settings singleton and account quotas.
const (
	// DefaultAllowRegister keeps self-registration open on a fresh install.
	DefaultAllowRegister = true
	// DefaultRequireEmailVerify requires new accounts to verify their email.
	DefaultRequireEmailVerify = true
	// DefaultServerAddr is empty until bootstrap or an admin fills it in.
	DefaultServerAddr = ""
	// DefaultPortLimit is the port quota given to new users.
	DefaultPortLimit = 5
	// DefaultBandwidthLimit is the bandwidth quota for new users (0 means unlimited).
	DefaultBandwidthLimit = 0
	// DefaultPortMin is the lowest external port users may request.
	DefaultPortMin = 10000
	// DefaultPortMax is the highest external port users may request.
	DefaultPortMax = 60000
	// ResetTokenTTLSeconds is how long a password reset token stays valid.
	ResetTokenTTLSeconds = 3600
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
)

// Defaults returns a fully populated settings value.
func Defaults() models.Settings {
	return models.Settings{
		AllowRegister:         DefaultAllowRegister,
		RequireEmailVerify:    DefaultRequireEmailVerify,
		ServerAddr:            DefaultServerAddr,
		DefaultPortLimit:      DefaultPortLimit,
		DefaultBandwidthLimit: DefaultBandwidthLimit,
	}
}
