package panel

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
)

// AnnouncementRequest describes a new announcement.
type AnnouncementRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsActive *bool  `json:"is_active"`
}

// ListAnnouncements returns announcements, newest first. activeOnly hides inactive ones.
func (s *Service) ListAnnouncements(ctx context.Context, activeOnly bool) ([]models.Announcement, error) {
	var pred query.Predicate = query.All{}
	if activeOnly {
		pred = query.ByActive{}
	}
	rows, err := query.SelectMany[models.Announcement](ctx, s.facade, pred)
	if err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}

// CreateAnnouncement publishes an announcement.
func (s *Service) CreateAnnouncement(ctx context.Context, req AnnouncementRequest) (models.Announcement, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Announcement{}, fail(ErrInvalidInput, "title is required")
	}
	id, err := s.facade.Insert(ctx, query.InsertAnnouncement{Title: title, Content: req.Content, IsActive: req.IsActive})
	if err != nil {
		return models.Announcement{}, fmt.Errorf("panel: create announcement: %w", err)
	}
	created, _, err := query.SelectOne[models.Announcement](ctx, s.facade, query.ByID{ID: id})
	if err != nil {
		return models.Announcement{}, err
	}
	return created, nil
}

// UpdateAnnouncement patches an announcement.
func (s *Service) UpdateAnnouncement(ctx context.Context, id int64, patch models.AnnouncementPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fail(ErrInvalidInput, "title is required")
		}
		patch.Title = &title
	}
	res, err := s.facade.Exec(ctx, query.UpdateAnnouncement{ID: id, Patch: patch})
	if err != nil {
		return fmt.Errorf("panel: update announcement: %w", err)
	}
	if res.RowsAffected == 0 {
		return fail(ErrNotFound, "announcement not found")
	}
	return nil
}

// DeleteAnnouncement removes an announcement.
func (s *Service) DeleteAnnouncement(ctx context.Context, id int64) error {
	res, err := s.facade.Exec(ctx, query.DeleteByID{From: models.CollectionAnnouncements, ID: id})
	if err != nil {
		return fmt.Errorf("panel: delete announcement: %w", err)
	}
	if res.RowsAffected == 0 {
		return fail(ErrNotFound, "announcement not found")
	}
	return nil
}

// Settings returns the system settings.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.facade.Settings(ctx)
}

// UpdateSettings validates and applies a settings change.
func (s *Service) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	if patch.DefaultPortLimit != nil && *patch.DefaultPortLimit < 0 {
		return models.Settings{}, fail(ErrInvalidInput, "default port limit must not be negative")
	}
	if patch.DefaultBandwidthLimit != nil && *patch.DefaultBandwidthLimit < 0 {
		return models.Settings{}, fail(ErrInvalidInput, "default bandwidth limit must not be negative")
	}
	if patch.ServerAddr != nil {
		addr := strings.TrimSpace(*patch.ServerAddr)
		patch.ServerAddr = &addr
	}
	return s.facade.UpdateSettings(ctx, patch)
}
