package panel

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/frpconfig"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
)

// UserView is a user as shown to clients, without credentials or tokens.
type UserView struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	IsAdmin        bool   `json:"is_admin"`
	IsActive       bool   `json:"is_active"`
	PortLimit      int    `json:"port_limit"`
	BandwidthLimit int64  `json:"bandwidth_limit"`
	PortCount      int    `json:"port_count"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

func newUserView(u models.User, portCount int) UserView {
	return UserView{
		ID:             u.ID,
		Email:          u.Email,
		IsAdmin:        u.IsAdmin,
		IsActive:       u.IsActive,
		PortLimit:      u.PortLimit,
		BandwidthLimit: u.BandwidthLimit,
		PortCount:      portCount,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// CreateUserRequest describes an account created by an administrator.
type CreateUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	IsActive       *bool  `json:"is_active"`       // Defaults to true.
	PortLimit      *int   `json:"port_limit"`      // Defaults to the settings default.
	BandwidthLimit *int64 `json:"bandwidth_limit"` // Defaults to the settings default.
}

// ListUsersQuery selects a page of users.
type ListUsersQuery struct {
	Page   int
	Limit  int
	Search string // Case-insensitive email substring.
}

// UserPage is one page of users.
type UserPage struct {
	Users []UserView `json:"users"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// UserDetail is a user together with all of its mappings.
type UserDetail struct {
	User  UserView      `json:"user"`
	Ports []models.Port `json:"ports"`
}

// AdminUserUpdate carries the account fields an administrator may change.
type AdminUserUpdate struct {
	IsActive       *bool  `json:"is_active"`
	PortLimit      *int   `json:"port_limit"`
	BandwidthLimit *int64 `json:"bandwidth_limit"`
}

// CountPair is a total alongside its active subset.
type CountPair struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// TrafficTotals is the all-time upload and download volume.
type TrafficTotals struct {
	Upload   int64 `json:"upload"`
	Download int64 `json:"download"`
}

// SystemStats summarizes the panel for the admin dashboard.
type SystemStats struct {
	Users   CountPair     `json:"users"`
	Ports   CountPair     `json:"ports"`
	Traffic TrafficTotals `json:"traffic"`
}

// CreateUser creates an account on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (UserView, error) {
	email := normalizeEmail(req.Email)
	if err := validateEmail(email); err != nil {
		return UserView{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return UserView{}, err
	}
	if req.PortLimit != nil && *req.PortLimit < 0 {
		return UserView{}, fail(ErrInvalidInput, "port limit must not be negative")
	}
	if req.BandwidthLimit != nil && *req.BandwidthLimit < 0 {
		return UserView{}, fail(ErrInvalidInput, "bandwidth limit must not be negative")
	}
	_, exists, err := query.SelectOne[models.User](ctx, s.facade, query.ByEmail{Email: email})
	if err != nil {
		return UserView{}, err
	}
	if exists {
		return UserView{}, fail(ErrConflict, "email is already registered")
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserView{}, fmt.Errorf("panel: create user: %w", err)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	id, err := s.facade.Insert(ctx, query.InsertUser{
		Email:          email,
		Password:       hashed,
		IsActive:       active,
		PortLimit:      req.PortLimit,
		BandwidthLimit: req.BandwidthLimit,
	})
	if err != nil {
		return UserView{}, conflictOr(err, "create user", "email is already registered")
	}
	created, _, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: id})
	if err != nil {
		return UserView{}, err
	}
	return newUserView(created, 0), nil
}

// ListUsers returns a page of users with their port counts, newest first.
func (s *Service) ListUsers(ctx context.Context, q ListUsersQuery) (UserPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultUserPageSize
	}
	if q.Limit > maxUserPageSize {
		q.Limit = maxUserPageSize
	}
	users, err := query.SelectMany[models.User](ctx, s.facade, query.All{})
	if err != nil {
		return UserPage{}, err
	}
	ports, err := query.SelectMany[models.Port](ctx, s.facade, query.All{})
	if err != nil {
		return UserPage{}, err
	}
	portCounts := make(map[int64]int, len(users))
	for _, p := range ports {
		portCounts[p.UserID]++
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		if search != "" && !strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		views = append(views, newUserView(u, portCounts[u.ID]))
	}
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].CreatedAt != views[j].CreatedAt {
			return views[i].CreatedAt > views[j].CreatedAt
		}
		return views[i].ID > views[j].ID
	})

	page := UserPage{Total: len(views), Page: q.Page, Limit: q.Limit, Users: []UserView{}}
	offset := (q.Page - 1) * q.Limit
	if offset < len(views) {
		end := offset + q.Limit
		if end > len(views) {
			end = len(views)
		}
		page.Users = views[offset:end]
	}
	return page, nil
}

// GetUser returns a user and all of its mappings.
func (s *Service) GetUser(ctx context.Context, userID int64) (UserDetail, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail(profile), nil
}

// UpdateUser applies an administrator's changes to a user. Administrators cannot be disabled.
func (s *Service) UpdateUser(ctx context.Context, userID int64, update AdminUserUpdate) error {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrNotFound, "user not found")
	}
	if user.IsAdmin && update.IsActive != nil && !*update.IsActive {
		return fail(ErrInvalidInput, "administrators cannot be disabled")
	}
	if update.PortLimit != nil && *update.PortLimit < 0 {
		return fail(ErrInvalidInput, "port limit must not be negative")
	}
	if update.BandwidthLimit != nil && *update.BandwidthLimit < 0 {
		return fail(ErrInvalidInput, "bandwidth limit must not be negative")
	}
	_, err = s.facade.Exec(ctx, query.UpdateUser{ID: userID, Patch: models.UserPatch{
		IsActive:       update.IsActive,
		PortLimit:      update.PortLimit,
		BandwidthLimit: update.BandwidthLimit,
	}})
	if err != nil {
		return fmt.Errorf("panel: update user: %w", err)
	}
	return nil
}

// DeleteUser removes a user with its mappings and traffic. Administrators cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrNotFound, "user not found")
	}
	if user.IsAdmin {
		return fail(ErrInvalidInput, "administrators cannot be deleted")
	}
	if _, err = s.facade.Exec(ctx, query.DeleteByID{From: models.CollectionUsers, ID: userID}); err != nil {
		return fmt.Errorf("panel: delete user: %w", err)
	}
	return nil
}

// ClientConfig renders the frpc.toml for a user's active mappings.
func (s *Service) ClientConfig(ctx context.Context, userID int64) (string, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fail(ErrNotFound, "user not found")
	}
	ports, err := query.SelectMany[models.Port](ctx, s.facade, query.ByUserIDActive{UserID: userID})
	if err != nil {
		return "", err
	}
	current, err := s.facade.Settings(ctx)
	if err != nil {
		return "", err
	}
	server := s.server
	if addr := strings.TrimSpace(current.ServerAddr); addr != "" {
		server.Addr = addr
	}
	rendered, err := frpconfig.RenderClient(user, ports, server)
	if err != nil {
		return "", fmt.Errorf("panel: client config: %w", err)
	}
	return rendered, nil
}

// SystemStats counts non-admin users, mappings and all recorded traffic.
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	var out SystemStats
	users, err := query.SelectMany[models.User](ctx, s.facade, query.All{})
	if err != nil {
		return out, err
	}
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		out.Users.Total++
		if u.IsActive {
			out.Users.Active++
		}
	}
	if out.Ports.Total, err = s.facade.Count(ctx, models.CollectionPorts, query.All{}); err != nil {
		return out, err
	}
	if out.Ports.Active, err = s.facade.Count(ctx, models.CollectionPorts, query.ByActive{}); err != nil {
		return out, err
	}
	totals, err := s.facade.SumTraffic(ctx, query.All{})
	if err != nil {
		return out, err
	}
	out.Traffic = TrafficTotals{Upload: totals.Upload, Download: totals.Download}
	return out, nil
}
