package models

// Collection names a record collection held by the record store.
type Collection string

// Collections known to the record store. The string values double as the
// snapshot document keys.
const (
	CollectionUsers         Collection = "users"
	CollectionPorts         Collection = "ports"
	CollectionTraffic       Collection = "traffic_stats"
	CollectionAnnouncements Collection = "announcements"
)

// Collections lists every collection in snapshot order.
var Collections = []Collection{
	CollectionUsers,
	CollectionPorts,
	CollectionTraffic,
	CollectionAnnouncements,
}

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	switch c {
	case CollectionUsers, CollectionPorts, CollectionTraffic, CollectionAnnouncements:
		return true
	default:
		return false
	}
}
