package store

import (
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/models"
)

// Snapshot is a point-in-time copy of every collection, the settings and the id counters.
type Snapshot struct {
	Users         []models.User               `json:"users"`
	Ports         []models.Port               `json:"ports"`
	Traffic       []models.TrafficSample      `json:"traffic_stats"`
	Announcements []models.Announcement       `json:"announcements"`
	Settings      models.Settings             `json:"settings"`
	Counters      map[models.Collection]int64 `json:"counters"`
}

// Export returns a consistent copy of the store taken under the read lock.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Users:         make([]models.User, 0, len(s.users)),
		Ports:         make([]models.Port, 0, len(s.ports)),
		Traffic:       make([]models.TrafficSample, 0, len(s.traffic)),
		Announcements: make([]models.Announcement, 0, len(s.announcements)),
		Settings:      s.settings,
		Counters:      make(map[models.Collection]int64, len(s.counters)),
	}
	for _, id := range sortedKeys(s.users) {
		snap.Users = append(snap.Users, s.users[id].Clone())
	}
	for _, id := range sortedKeys(s.ports) {
		snap.Ports = append(snap.Ports, *s.ports[id])
	}
	for _, id := range sortedKeys(s.traffic) {
		snap.Traffic = append(snap.Traffic, s.traffic[id].Clone())
	}
	for _, id := range sortedKeys(s.announcements) {
		snap.Announcements = append(snap.Announcements, *s.announcements[id])
	}
	for _, c := range models.Collections {
		snap.Counters[c] = s.counters[c]
	}
	return snap
}

// Import replaces the store contents with snap and rebuilds every index.
// Counters are raised to at least the highest id present so ids stay unique.
// A snapshot that repeats an id, an email or an external port is rejected and
// leaves the store untouched. Import does not fire the change hook.
func (s *Store) Import(snap Snapshot) error {
	next := &Store{now: s.now}
	next.resetLocked()
	next.settings = snap.Settings

	for _, u := range snap.Users {
		if _, dup := next.users[u.ID]; dup {
			return fmt.Errorf("store: import: duplicate user id %d", u.ID)
		}
		if _, dup := next.emailIndex[u.Email]; dup {
			return &ValidationError{Collection: models.CollectionUsers, Field: "email", Value: u.Email}
		}
		u = u.Clone()
		next.users[u.ID] = &u
		next.emailIndex[u.Email] = u.ID
	}
	for _, p := range snap.Ports {
		if _, dup := next.ports[p.ID]; dup {
			return fmt.Errorf("store: import: duplicate port id %d", p.ID)
		}
		if _, dup := next.portIndex[p.Port]; dup {
			return &ValidationError{Collection: models.CollectionPorts, Field: "port", Value: p.Port}
		}
		next.ports[p.ID] = &p
		next.portIndex[p.Port] = p.ID
		addRef(next.portsByUser, p.UserID, p.ID)
	}
	for _, t := range snap.Traffic {
		if _, dup := next.traffic[t.ID]; dup {
			return fmt.Errorf("store: import: duplicate traffic id %d", t.ID)
		}
		t = t.Clone()
		next.traffic[t.ID] = &t
		next.indexSampleLocked(&t)
	}
	for _, a := range snap.Announcements {
		if _, dup := next.announcements[a.ID]; dup {
			return fmt.Errorf("store: import: duplicate announcement id %d", a.ID)
		}
		next.announcements[a.ID] = &a
	}

	next.counters[models.CollectionUsers] = maxID(snap.Counters[models.CollectionUsers], next.users)
	next.counters[models.CollectionPorts] = maxID(snap.Counters[models.CollectionPorts], next.ports)
	next.counters[models.CollectionTraffic] = maxID(snap.Counters[models.CollectionTraffic], next.traffic)
	next.counters[models.CollectionAnnouncements] = maxID(snap.Counters[models.CollectionAnnouncements], next.announcements)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = next.users
	s.ports = next.ports
	s.traffic = next.traffic
	s.announcements = next.announcements
	s.settings = next.settings
	s.counters = next.counters
	s.emailIndex = next.emailIndex
	s.portIndex = next.portIndex
	s.portsByUser = next.portsByUser
	s.trafficByUser = next.trafficByUser
	s.trafficByPort = next.trafficByPort
	return nil
}

func maxID[T any](counter int64, m map[int64]T) int64 {
	for id := range m {
		if id > counter {
			counter = id
		}
	}
	return counter
}
