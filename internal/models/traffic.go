package models

// TrafficSample is one recorded traffic measurement.
type TrafficSample struct {
	ID     int64  `json:"id"`      // Monotonic identifier, never reused.
	UserID int64  `json:"user_id"` // Owning user.
	PortID *int64 `json:"port_id"` // Measured port, nil once the port is deleted.

	UploadBytes   int64 `json:"upload_bytes"`   // Bytes sent by the client.
	DownloadBytes int64 `json:"download_bytes"` // Bytes received by the client.

	RecordedAt int64 `json:"recorded_at"` // Sample timestamp (epoch seconds).
}
