package panel

import (
	"context"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
)

const (
	defaultStatsHours = 24
	maxStatsHours     = 48
	topUsersLimit     = 10
)

// UserTrafficReport is one user's hourly traffic plus its all-time totals.
type UserTrafficReport struct {
	Stats []query.HourlyTraffic `json:"stats"`
	Total query.Totals          `json:"total"`
}

// GlobalTrafficReport is the hourly traffic of every user, all-time totals and the heaviest users.
type GlobalTrafficReport struct {
	Stats  []query.HourlyTraffic `json:"stats"`
	Total  query.Totals          `json:"total"`
	ByUser []query.UserTraffic   `json:"byUser"`
}

// ClampHours bounds a requested statistics window to 1..48 hours, defaulting to 24.
func ClampHours(hours int) int {
	if hours <= 0 {
		return defaultStatsHours
	}
	if hours > maxStatsHours {
		return maxStatsHours
	}
	return hours
}

func (s *Service) since(hours int) int64 {
	return s.now().Add(-time.Duration(ClampHours(hours)) * time.Hour).Unix()
}

// UserTraffic reports traffic for userID over the last hours.
func (s *Service) UserTraffic(ctx context.Context, userID int64, hours int) (UserTrafficReport, error) {
	_, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return UserTrafficReport{}, err
	}
	if !ok {
		return UserTrafficReport{}, fail(ErrNotFound, "user not found")
	}
	stats, err := s.facade.SumTrafficByHour(ctx, query.ByUserIDSince{UserID: userID, From: s.since(hours)})
	if err != nil {
		return UserTrafficReport{}, err
	}
	total, err := s.facade.SumTraffic(ctx, query.ByUserID{UserID: userID})
	if err != nil {
		return UserTrafficReport{}, err
	}
	return UserTrafficReport{Stats: stats, Total: total}, nil
}

// GlobalTraffic reports traffic across all users over the last hours.
func (s *Service) GlobalTraffic(ctx context.Context, hours int) (GlobalTrafficReport, error) {
	since := s.since(hours)
	stats, err := s.facade.SumTrafficByHour(ctx, query.Since{From: since})
	if err != nil {
		return GlobalTrafficReport{}, err
	}
	total, err := s.facade.SumTraffic(ctx, query.All{})
	if err != nil {
		return GlobalTrafficReport{}, err
	}
	byUser, err := s.facade.TopUsersByTraffic(ctx, since, topUsersLimit)
	if err != nil {
		return GlobalTrafficReport{}, err
	}
	return GlobalTrafficReport{Stats: stats, Total: total, ByUser: byUser}, nil
}
