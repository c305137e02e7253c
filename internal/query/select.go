package query

import (
	"context"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/models"
)

// Record is any row type the façade can select.
type Record interface {
	models.User | models.Port | models.TrafficSample | models.Announcement
}

// CollectionOf returns the collection holding rows of type T.
func CollectionOf[T Record]() models.Collection {
	var zero T
	switch any(zero).(type) {
	case models.User:
		return models.CollectionUsers
	case models.Port:
		return models.CollectionPorts
	case models.TrafficSample:
		return models.CollectionTraffic
	default:
		return models.CollectionAnnouncements
	}
}

// SelectMany returns every row of type T matching pred, ordered by id.
func SelectMany[T Record](ctx context.Context, f *Facade, pred Predicate) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		rows      any
		supported bool
	)
	collection := CollectionOf[T]()
	switch collection {
	case models.CollectionUsers:
		rows, supported = f.selectUsers(pred)
	case models.CollectionPorts:
		rows, supported = f.selectPorts(pred)
	case models.CollectionTraffic:
		rows, supported = f.selectTraffic(pred)
	default:
		rows, supported = f.selectAnnouncements(pred)
	}
	if !supported {
		return []T{}, f.unsupported(collection, pred)
	}
	out, ok := rows.([]T)
	if !ok {
		return nil, fmt.Errorf("query: unexpected row type %T for %s", rows, collection)
	}
	return out, nil
}

// SelectOne returns the first row of type T matching pred.
// ok is false when nothing matches.
func SelectOne[T Record](ctx context.Context, f *Facade, pred Predicate) (row T, ok bool, err error) {
	rows, err := SelectMany[T](ctx, f, pred)
	if err != nil || len(rows) == 0 {
		return row, false, err
	}
	return rows[0], true, nil
}

// Count returns the number of rows in collection matching pred.
func (f *Facade) Count(ctx context.Context, collection models.Collection, pred Predicate) (int, error) {
	switch collection {
	case models.CollectionUsers:
		rows, err := SelectMany[models.User](ctx, f, pred)
		return len(rows), err
	case models.CollectionPorts:
		rows, err := SelectMany[models.Port](ctx, f, pred)
		return len(rows), err
	case models.CollectionTraffic:
		rows, err := SelectMany[models.TrafficSample](ctx, f, pred)
		return len(rows), err
	case models.CollectionAnnouncements:
		rows, err := SelectMany[models.Announcement](ctx, f, pred)
		return len(rows), err
	default:
		return 0, fmt.Errorf("%w: count on %q", ErrUnsupportedQuery, collection)
	}
}

func (f *Facade) selectUsers(pred Predicate) ([]models.User, bool) {
	switch p := pred.(type) {
	case All:
		return f.store.Users(), true
	case ByID:
		return optional(f.store.User(p.ID)), true
	case ByEmail:
		return optional(f.store.UserByEmail(p.Email)), true
	case ByAdmin:
		return filter(f.store.Users(), func(u models.User) bool { return u.IsAdmin }), true
	case ByActive:
		return filter(f.store.Users(), func(u models.User) bool { return u.IsActive }), true
	case ByVerifyToken:
		return filter(f.store.Users(), func(u models.User) bool {
			return u.VerifyToken != nil && *u.VerifyToken == p.Token
		}), true
	case ByResetToken:
		return filter(f.store.Users(), func(u models.User) bool {
			return u.ResetToken != nil && *u.ResetToken == p.Token &&
				u.ResetExpires != nil && *u.ResetExpires > p.Now
		}), true
	default:
		return nil, false
	}
}

func (f *Facade) selectPorts(pred Predicate) ([]models.Port, bool) {
	switch p := pred.(type) {
	case All:
		return f.store.Ports(), true
	case ByID:
		return optional(f.store.Port(p.ID)), true
	case ByUserID:
		return f.store.PortsOfUser(p.UserID), true
	case ByPortNumber:
		return optional(f.store.PortByNumber(p.Port)), true
	case ByIDAndUserID:
		port, ok := f.store.Port(p.ID)
		return optional(port, ok && port.UserID == p.UserID), true
	case ByUserIDActive:
		return filter(f.store.PortsOfUser(p.UserID), func(port models.Port) bool { return port.IsActive }), true
	case ByActive:
		return filter(f.store.Ports(), func(port models.Port) bool { return port.IsActive }), true
	default:
		return nil, false
	}
}

func (f *Facade) selectTraffic(pred Predicate) ([]models.TrafficSample, bool) {
	switch p := pred.(type) {
	case All:
		return f.store.Traffic(), true
	case ByID:
		return optional(f.store.TrafficSample(p.ID)), true
	case ByUserID:
		return f.store.TrafficOfUser(p.UserID), true
	case Since:
		return filter(f.store.Traffic(), func(t models.TrafficSample) bool { return t.RecordedAt >= p.From }), true
	case ByUserIDSince:
		return filter(f.store.TrafficOfUser(p.UserID), func(t models.TrafficSample) bool { return t.RecordedAt >= p.From }), true
	default:
		return nil, false
	}
}

func (f *Facade) selectAnnouncements(pred Predicate) ([]models.Announcement, bool) {
	switch p := pred.(type) {
	case All:
		return f.store.Announcements(), true
	case ByID:
		return optional(f.store.Announcement(p.ID)), true
	case ByActive:
		return filter(f.store.Announcements(), func(a models.Announcement) bool { return a.IsActive }), true
	default:
		return nil, false
	}
}

func optional[T any](row T, ok bool) []T {
	if !ok {
		return []T{}
	}
	return []T{row}
}

func filter[T any](rows []T, keep func(T) bool) []T {
	out := rows[:0]
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}
