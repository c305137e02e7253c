package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/store"
	log "github.com/sirupsen/logrus"
)

// ErrUnsupportedQuery is returned in strict mode for predicates a collection does not accept.
var ErrUnsupportedQuery = errors.New("query: unsupported query")

// Facade maps query intents onto record store operations.
type Facade struct {
	store  *store.Store
	strict bool
}

// Option configures a Facade.
type Option func(*Facade)

// Strict makes unsupported predicates fail with ErrUnsupportedQuery instead of
// matching nothing.
func Strict(enabled bool) Option {
	return func(f *Facade) {
		f.strict = enabled
	}
}

// New constructs a Facade over s.
func New(s *store.Store, opts ...Option) *Facade {
	f := &Facade{store: s}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Store returns the underlying record store.
func (f *Facade) Store() *store.Store {
	return f.store
}

func (f *Facade) unsupported(collection models.Collection, pred Predicate) error {
	if f.strict {
		return fmt.Errorf("%w: %T on %s", ErrUnsupportedQuery, pred, collection)
	}
	log.Debugf("query: %T is not supported on %s, returning no rows", pred, collection)
	return nil
}

// Exec runs a write intent.
func (f *Facade) Exec(ctx context.Context, in Intent) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	switch v := in.(type) {
	case InsertUser:
		return f.insertUser(v)
	case InsertPort:
		return f.insertPort(v)
	case InsertTraffic:
		return f.insertTraffic(v)
	case InsertAnnouncement:
		return f.insertAnnouncement(v)
	case UpdateUser:
		ok, err := f.store.UpdateUser(v.ID, v.Patch)
		return affected(ok), err
	case UpdatePort:
		ok, err := f.store.UpdatePort(v.ID, v.Patch)
		return affected(ok), err
	case UpdateAnnouncement:
		return affected(f.store.UpdateAnnouncement(v.ID, v.Patch)), nil
	case DeleteByID:
		return f.deleteByID(v)
	case PruneTraffic:
		return Result{RowsAffected: int64(f.store.PruneTraffic(v.Before))}, nil
	default:
		return Result{}, fmt.Errorf("%w: intent %T", ErrUnsupportedQuery, in)
	}
}

// Insert runs an insert intent and returns the new row id.
func (f *Facade) Insert(ctx context.Context, in Intent) (int64, error) {
	res, err := f.Exec(ctx, in)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

func affected(ok bool) Result {
	if ok {
		return Result{RowsAffected: 1}
	}
	return Result{}
}

func (f *Facade) insertUser(in InsertUser) (Result, error) {
	defaults := f.store.Settings()
	u := models.User{
		Email:          in.Email,
		Password:       in.Password,
		IsAdmin:        in.IsAdmin,
		IsActive:       in.IsActive,
		VerifyToken:    in.VerifyToken,
		PortLimit:      defaults.DefaultPortLimit,
		BandwidthLimit: defaults.DefaultBandwidthLimit,
	}
	if in.PortLimit != nil {
		u.PortLimit = *in.PortLimit
	}
	if in.BandwidthLimit != nil {
		u.BandwidthLimit = *in.BandwidthLimit
	}
	stored, err := f.store.InsertUser(u)
	if err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: stored.ID, RowsAffected: 1}, nil
}

func (f *Facade) insertPort(in InsertPort) (Result, error) {
	p := models.Port{
		UserID:    in.UserID,
		Port:      in.Port,
		Name:      in.Name,
		Protocol:  in.Protocol,
		LocalIP:   in.LocalIP,
		LocalPort: in.LocalPort,
		IsActive:  true,
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("port-%d", in.Port)
	}
	if p.Protocol == "" {
		p.Protocol = models.ProtocolTCP
	}
	if p.LocalIP == "" {
		p.LocalIP = models.DefaultLocalIP
	}
	if p.LocalPort == 0 {
		p.LocalPort = in.Port
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	stored, err := f.store.InsertPort(p)
	if err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: stored.ID, RowsAffected: 1}, nil
}

func (f *Facade) insertTraffic(in InsertTraffic) (Result, error) {
	stored, err := f.store.InsertTraffic(models.TrafficSample{
		UserID:        in.UserID,
		PortID:        in.PortID,
		UploadBytes:   in.UploadBytes,
		DownloadBytes: in.DownloadBytes,
		RecordedAt:    in.RecordedAt,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: stored.ID, RowsAffected: 1}, nil
}

func (f *Facade) insertAnnouncement(in InsertAnnouncement) (Result, error) {
	a := models.Announcement{Title: in.Title, Content: in.Content, IsActive: true}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}
	stored, err := f.store.InsertAnnouncement(a)
	if err != nil {
		return Result{}, err
	}
	return Result{LastInsertID: stored.ID, RowsAffected: 1}, nil
}

func (f *Facade) deleteByID(in DeleteByID) (Result, error) {
	var ok bool
	switch in.From {
	case models.CollectionUsers:
		ok = f.store.DeleteUser(in.ID)
	case models.CollectionPorts:
		ok = f.store.DeletePort(in.ID)
	case models.CollectionTraffic:
		ok = f.store.DeleteTrafficSample(in.ID)
	case models.CollectionAnnouncements:
		ok = f.store.DeleteAnnouncement(in.ID)
	default:
		return Result{}, fmt.Errorf("%w: delete from %q", ErrUnsupportedQuery, in.From)
	}
	return affected(ok), nil
}

// Settings returns the settings singleton.
func (f *Facade) Settings(ctx context.Context) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	return f.store.Settings(), nil
}

// UpdateSettings applies patch to the settings singleton and returns the result.
func (f *Facade) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	return f.store.UpdateSettings(patch), nil
}
