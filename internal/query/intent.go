package query

import "github.com/router-for-me/FRPPanel/internal/models"

// Intent is a write operation understood by Facade.Exec.
type Intent interface {
	intent()
}

// InsertUser creates a user. Quotas left nil fall back to the settings defaults.
type InsertUser struct {
	Email          string
	Password       string // Already hashed.
	IsAdmin        bool
	IsActive       bool
	VerifyToken    *string
	PortLimit      *int
	BandwidthLimit *int64
}

// InsertPort creates a port mapping.
// Protocol defaults to tcp, LocalIP to 127.0.0.1, LocalPort to Port and Name to "port-<Port>".
type InsertPort struct {
	UserID    int64
	Port      int
	Name      string
	Protocol  string
	LocalIP   string
	LocalPort int
	IsActive  *bool // Defaults to true.
}

// InsertTraffic records one traffic sample. RecordedAt defaults to now.
type InsertTraffic struct {
	UserID        int64
	PortID        *int64
	UploadBytes   int64
	DownloadBytes int64
	RecordedAt    int64
}

// InsertAnnouncement creates an announcement.
type InsertAnnouncement struct {
	Title    string
	Content  string
	IsActive *bool // Defaults to true.
}

// UpdateUser patches a user.
type UpdateUser struct {
	ID    int64
	Patch models.UserPatch
}

// UpdatePort patches a port mapping.
type UpdatePort struct {
	ID    int64
	Patch models.PortPatch
}

// UpdateAnnouncement patches an announcement.
type UpdateAnnouncement struct {
	ID    int64
	Patch models.AnnouncementPatch
}

// DeleteByID removes one row. Users cascade to their mappings and traffic;
// mappings detach their traffic samples.
type DeleteByID struct {
	From models.Collection
	ID   int64
}

// PruneTraffic removes traffic samples recorded before Before.
type PruneTraffic struct {
	Before int64
}

func (InsertUser) intent()         {}
func (InsertPort) intent()         {}
func (InsertTraffic) intent()      {}
func (InsertAnnouncement) intent() {}
func (UpdateUser) intent()         {}
func (UpdatePort) intent()         {}
func (UpdateAnnouncement) intent() {}
func (DeleteByID) intent()         {}
func (PruneTraffic) intent()       {}

// Result reports the outcome of an executed intent.
type Result struct {
	LastInsertID int64 // Id assigned by an insert, 0 otherwise.
	RowsAffected int64 // Rows inserted, changed or removed.
}
