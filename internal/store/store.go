package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/settings"
)

// Store is the in-memory record store behind the panel.
// It keeps one map per collection plus unique and foreign-key indexes, all guarded by one lock.
type Store struct {
	mu sync.RWMutex

	now      func() time.Time
	onChange func()

	users         map[int64]*models.User
	ports         map[int64]*models.Port
	traffic       map[int64]*models.TrafficSample
	announcements map[int64]*models.Announcement
	settings      models.Settings
	counters      map[models.Collection]int64

	emailIndex    map[string]int64 // email -> user id
	portIndex     map[int]int64    // external port -> port id
	portsByUser   map[int64]idSet  // user id -> port ids
	trafficByUser map[int64]idSet  // user id -> sample ids
	trafficByPort map[int64]idSet  // port id -> sample ids
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty store with default settings.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.resetLocked()
	return s
}

// OnChange registers fn to be called after every successful mutation.
// fn runs outside the store lock and may read from the store.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) resetLocked() {
	s.users = make(map[int64]*models.User)
	s.ports = make(map[int64]*models.Port)
	s.traffic = make(map[int64]*models.TrafficSample)
	s.announcements = make(map[int64]*models.Announcement)
	s.settings = settings.Defaults()
	s.counters = make(map[models.Collection]int64, len(models.Collections))
	s.emailIndex = make(map[string]int64)
	s.portIndex = make(map[int]int64)
	s.portsByUser = make(map[int64]idSet)
	s.trafficByUser = make(map[int64]idSet)
	s.trafficByPort = make(map[int64]idSet)
}

// unlockAndNotify releases the write lock and fires the change hook when changed is true.
func (s *Store) unlockAndNotify(changed bool) {
	hook := s.onChange
	s.mu.Unlock()
	if changed && hook != nil {
		hook()
	}
}

func (s *Store) timestamp() int64 {
	return s.now().Unix()
}

// NextID returns the next id for collection. Ids are never reused, even after deletes.
func (s *Store) NextID(collection models.Collection) (int64, error) {
	if !collection.Valid() {
		return 0, fmt.Errorf("store: unknown collection %q", collection)
	}
	s.mu.Lock()
	id := s.nextIDLocked(collection)
	s.unlockAndNotify(true)
	return id, nil
}

func (s *Store) nextIDLocked(collection models.Collection) int64 {
	s.counters[collection]++
	return s.counters[collection]
}

// Counter returns the last id handed out for collection.
func (s *Store) Counter(collection models.Collection) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[collection]
}

// InsertUser stores u under a fresh id and returns the stored copy.
// A duplicate email yields a *ValidationError.
func (s *Store) InsertUser(u models.User) (models.User, error) {
	s.mu.Lock()
	if _, exists := s.emailIndex[u.Email]; exists {
		s.mu.Unlock()
		return models.User{}, &ValidationError{Collection: models.CollectionUsers, Field: "email", Value: u.Email}
	}
	u = u.Clone()
	u.ID = s.nextIDLocked(models.CollectionUsers)
	if u.CreatedAt == 0 {
		u.CreatedAt = s.timestamp()
	}
	if u.UpdatedAt == 0 {
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = &u
	s.emailIndex[u.Email] = u.ID
	out := u.Clone()
	s.unlockAndNotify(true)
	return out, nil
}

// InsertPort stores p under a fresh id and returns the stored copy.
// The owner must exist and the external port must be free.
func (s *Store) InsertPort(p models.Port) (models.Port, error) {
	s.mu.Lock()
	if _, ok := s.users[p.UserID]; !ok {
		s.mu.Unlock()
		return models.Port{}, fmt.Errorf("store: insert port: user %d: %w", p.UserID, ErrNotFound)
	}
	if _, exists := s.portIndex[p.Port]; exists {
		s.mu.Unlock()
		return models.Port{}, &ValidationError{Collection: models.CollectionPorts, Field: "port", Value: p.Port}
	}
	p.ID = s.nextIDLocked(models.CollectionPorts)
	if p.CreatedAt == 0 {
		p.CreatedAt = s.timestamp()
	}
	if p.UpdatedAt == 0 {
		p.UpdatedAt = p.CreatedAt
	}
	s.ports[p.ID] = &p
	s.portIndex[p.Port] = p.ID
	addRef(s.portsByUser, p.UserID, p.ID)
	out := p
	s.unlockAndNotify(true)
	return out, nil
}

// InsertTraffic stores t under a fresh id and returns the stored copy.
// RecordedAt defaults to now when zero.
func (s *Store) InsertTraffic(t models.TrafficSample) (models.TrafficSample, error) {
	s.mu.Lock()
	if _, ok := s.users[t.UserID]; !ok {
		s.mu.Unlock()
		return models.TrafficSample{}, fmt.Errorf("store: insert traffic: user %d: %w", t.UserID, ErrNotFound)
	}
	if t.PortID != nil {
		if _, ok := s.ports[*t.PortID]; !ok {
			s.mu.Unlock()
			return models.TrafficSample{}, fmt.Errorf("store: insert traffic: port %d: %w", *t.PortID, ErrNotFound)
		}
	}
	t = t.Clone()
	t.ID = s.nextIDLocked(models.CollectionTraffic)
	if t.RecordedAt == 0 {
		t.RecordedAt = s.timestamp()
	}
	s.traffic[t.ID] = &t
	s.indexSampleLocked(&t)
	out := t.Clone()
	s.unlockAndNotify(true)
	return out, nil
}

// InsertAnnouncement stores a under a fresh id and returns the stored copy.
func (s *Store) InsertAnnouncement(a models.Announcement) (models.Announcement, error) {
	s.mu.Lock()
	a.ID = s.nextIDLocked(models.CollectionAnnouncements)
	if a.CreatedAt == 0 {
		a.CreatedAt = s.timestamp()
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = a.CreatedAt
	}
	s.announcements[a.ID] = &a
	out := a
	s.unlockAndNotify(true)
	return out, nil
}

func (s *Store) indexSampleLocked(t *models.TrafficSample) {
	addRef(s.trafficByUser, t.UserID, t.ID)
	if t.PortID != nil {
		addRef(s.trafficByPort, *t.PortID, t.ID)
	}
}

// User returns the user with id.
func (s *Store) User(id int64) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return u.Clone(), true
}

// UserByEmail looks a user up through the email index.
func (s *Store) UserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[email]
	if !ok {
		return models.User{}, false
	}
	return s.users[id].Clone(), true
}

// Port returns the port mapping with id.
func (s *Store) Port(id int64) (models.Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[id]
	if !ok {
		return models.Port{}, false
	}
	return *p, true
}

// PortByNumber looks a mapping up by its external port.
func (s *Store) PortByNumber(number int) (models.Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.portIndex[number]
	if !ok {
		return models.Port{}, false
	}
	return *s.ports[id], true
}

// PortsOfUser returns the mappings owned by userID ordered by id.
func (s *Store) PortsOfUser(userID int64) []models.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.portsByUser[userID].sorted()
	out := make([]models.Port, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.ports[id])
	}
	return out
}

// TrafficOfUser returns the samples recorded for userID ordered by id.
func (s *Store) TrafficOfUser(userID int64) []models.TrafficSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.trafficByUser[userID].sorted()
	out := make([]models.TrafficSample, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.traffic[id].Clone())
	}
	return out
}

// TrafficSample returns the sample with id.
func (s *Store) TrafficSample(id int64) (models.TrafficSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.traffic[id]
	if !ok {
		return models.TrafficSample{}, false
	}
	return t.Clone(), true
}

// Announcement returns the announcement with id.
func (s *Store) Announcement(id int64) (models.Announcement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.announcements[id]
	if !ok {
		return models.Announcement{}, false
	}
	return *a, true
}

// Users returns a copy of every user ordered by id.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, id := range sortedKeys(s.users) {
		out = append(out, s.users[id].Clone())
	}
	return out
}

// Ports returns a copy of every port mapping ordered by id.
func (s *Store) Ports() []models.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Port, 0, len(s.ports))
	for _, id := range sortedKeys(s.ports) {
		out = append(out, *s.ports[id])
	}
	return out
}

// Traffic returns a copy of every traffic sample ordered by id.
func (s *Store) Traffic() []models.TrafficSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TrafficSample, 0, len(s.traffic))
	for _, id := range sortedKeys(s.traffic) {
		out = append(out, s.traffic[id].Clone())
	}
	return out
}

// Announcements returns a copy of every announcement ordered by id.
func (s *Store) Announcements() []models.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Announcement, 0, len(s.announcements))
	for _, id := range sortedKeys(s.announcements) {
		out = append(out, *s.announcements[id])
	}
	return out
}

// Len returns the number of records in collection.
func (s *Store) Len(collection models.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch collection {
	case models.CollectionUsers:
		return len(s.users)
	case models.CollectionPorts:
		return len(s.ports)
	case models.CollectionTraffic:
		return len(s.traffic)
	case models.CollectionAnnouncements:
		return len(s.announcements)
	default:
		return 0
	}
}

// UpdateUser applies patch to the user with id.
// It reports false when the user does not exist.
func (s *Store) UpdateUser(id int64, patch models.UserPatch) (bool, error) {
	s.mu.Lock()
	current, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	next := patch.Apply(current.Clone())
	if next.Email != current.Email {
		if owner, exists := s.emailIndex[next.Email]; exists && owner != id {
			s.mu.Unlock()
			return false, &ValidationError{Collection: models.CollectionUsers, Field: "email", Value: next.Email}
		}
		delete(s.emailIndex, current.Email)
		s.emailIndex[next.Email] = id
	}
	next.UpdatedAt = s.timestamp()
	s.users[id] = &next
	s.unlockAndNotify(true)
	return true, nil
}

// UpdatePort applies patch to the mapping with id.
// It reports false when the mapping does not exist.
func (s *Store) UpdatePort(id int64, patch models.PortPatch) (bool, error) {
	s.mu.Lock()
	current, ok := s.ports[id]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	next := patch.Apply(*current)
	if next.Port != current.Port {
		if owner, exists := s.portIndex[next.Port]; exists && owner != id {
			s.mu.Unlock()
			return false, &ValidationError{Collection: models.CollectionPorts, Field: "port", Value: next.Port}
		}
		delete(s.portIndex, current.Port)
		s.portIndex[next.Port] = id
	}
	next.UpdatedAt = s.timestamp()
	s.ports[id] = &next
	s.unlockAndNotify(true)
	return true, nil
}

// UpdateAnnouncement applies patch to the announcement with id.
func (s *Store) UpdateAnnouncement(id int64, patch models.AnnouncementPatch) bool {
	s.mu.Lock()
	current, ok := s.announcements[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	next := patch.Apply(*current)
	next.UpdatedAt = s.timestamp()
	s.announcements[id] = &next
	s.unlockAndNotify(true)
	return true
}

// DeleteUser removes the user together with its port mappings and traffic samples.
func (s *Store) DeleteUser(id int64) bool {
	s.mu.Lock()
	u, ok := s.users[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	for sampleID := range s.trafficByUser[id] {
		s.removeSampleLocked(sampleID)
	}
	for portID := range s.portsByUser[id] {
		s.removePortLocked(portID)
	}
	delete(s.emailIndex, u.Email)
	delete(s.users, id)
	s.unlockAndNotify(true)
	return true
}

// DeletePort removes the mapping and detaches its traffic samples.
func (s *Store) DeletePort(id int64) bool {
	s.mu.Lock()
	if _, ok := s.ports[id]; !ok {
		s.mu.Unlock()
		return false
	}
	s.removePortLocked(id)
	s.unlockAndNotify(true)
	return true
}

func (s *Store) removePortLocked(id int64) {
	p := s.ports[id]
	for sampleID := range s.trafficByPort[id] {
		if t, ok := s.traffic[sampleID]; ok {
			t.PortID = nil
		}
	}
	delete(s.trafficByPort, id)
	delete(s.portIndex, p.Port)
	dropRef(s.portsByUser, p.UserID, id)
	delete(s.ports, id)
}

// DeleteTrafficSample removes one traffic sample.
func (s *Store) DeleteTrafficSample(id int64) bool {
	s.mu.Lock()
	if _, ok := s.traffic[id]; !ok {
		s.mu.Unlock()
		return false
	}
	s.removeSampleLocked(id)
	s.unlockAndNotify(true)
	return true
}

func (s *Store) removeSampleLocked(id int64) {
	t, ok := s.traffic[id]
	if !ok {
		return
	}
	dropRef(s.trafficByUser, t.UserID, id)
	if t.PortID != nil {
		dropRef(s.trafficByPort, *t.PortID, id)
	}
	delete(s.traffic, id)
}

// DeleteAnnouncement removes one announcement.
func (s *Store) DeleteAnnouncement(id int64) bool {
	s.mu.Lock()
	if _, ok := s.announcements[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.announcements, id)
	s.unlockAndNotify(true)
	return true
}

// PruneTraffic deletes samples recorded before cutoff and returns how many were removed.
func (s *Store) PruneTraffic(cutoff int64) int {
	s.mu.Lock()
	removed := 0
	for id, t := range s.traffic {
		if t.RecordedAt < cutoff {
			s.removeSampleLocked(id)
			removed++
		}
	}
	s.unlockAndNotify(removed > 0)
	return removed
}

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings applies patch and returns the resulting settings.
func (s *Store) UpdateSettings(patch models.SettingsPatch) models.Settings {
	s.mu.Lock()
	s.settings = patch.Apply(s.settings)
	out := s.settings
	s.unlockAndNotify(true)
	return out
}
