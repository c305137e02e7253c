package models

// Announcement is a notice shown to panel users.
type Announcement struct {
	ID int64 `json:"id"` // Monotonic identifier, never reused.

	Title    string `json:"title"`     // Headline.
	Content  string `json:"content"`   // Body text.
	IsActive bool   `json:"is_active"` // Only active announcements are shown to users.

	CreatedAt int64 `json:"created_at"` // Creation timestamp (epoch seconds).
	UpdatedAt int64 `json:"updated_at"` // Last update timestamp (epoch seconds).
}
