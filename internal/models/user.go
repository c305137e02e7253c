package models

// User represents a panel account.
type User struct {
	ID int64 `json:"id"` // Monotonic identifier, never reused.

	Email    string `json:"email"`    // Unique login email, case-sensitive as stored.
	Password string `json:"password"` // Opaque password hash.

	IsAdmin  bool `json:"is_admin"`  // Administrator flag.
	IsActive bool `json:"is_active"` // Whether the user can sign in.

	VerifyToken  *string `json:"verify_token"`  // Pending email verification token.
	ResetToken   *string `json:"reset_token"`   // Pending password reset token.
	ResetExpires *int64  `json:"reset_expires"` // Reset token expiry (epoch seconds).

	PortLimit      int   `json:"port_limit"`      // Maximum number of ports.
	BandwidthLimit int64 `json:"bandwidth_limit"` // Bandwidth quota in bytes, 0 means unlimited.

	CreatedAt int64 `json:"created_at"` // Creation timestamp (epoch seconds).
	UpdatedAt int64 `json:"updated_at"` // Last update timestamp (epoch seconds).
}
