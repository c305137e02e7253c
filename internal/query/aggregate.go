package query

import (
	"context"
	"sort"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
)

// HourLayout formats traffic bucket labels.
const HourLayout = "2006-01-02 15:00"

// Totals sums traffic bytes. Empty sets yield zeros.
type Totals struct {
	Upload   int64 `json:"total_upload"`
	Download int64 `json:"total_download"`
}

// HourlyTraffic is the traffic recorded within one UTC hour.
type HourlyTraffic struct {
	Hour     string `json:"time_bucket"`
	Upload   int64  `json:"upload"`
	Download int64  `json:"download"`
}

// UserTraffic is one user's traffic within a window.
type UserTraffic struct {
	UserID   int64  `json:"id"`
	Email    string `json:"email"`
	Upload   int64  `json:"upload"`
	Download int64  `json:"download"`
}

// SumTraffic totals the traffic samples matching pred.
func (f *Facade) SumTraffic(ctx context.Context, pred Predicate) (Totals, error) {
	rows, err := SelectMany[models.TrafficSample](ctx, f, pred)
	if err != nil {
		return Totals{}, err
	}
	var totals Totals
	for _, row := range rows {
		totals.Upload += row.UploadBytes
		totals.Download += row.DownloadBytes
	}
	return totals, nil
}

// SumTrafficByHour groups the traffic samples matching pred into UTC hour buckets,
// ordered oldest first.
func (f *Facade) SumTrafficByHour(ctx context.Context, pred Predicate) ([]HourlyTraffic, error) {
	rows, err := SelectMany[models.TrafficSample](ctx, f, pred)
	if err != nil {
		return nil, err
	}
	buckets := make(map[string]*HourlyTraffic)
	for _, row := range rows {
		hour := time.Unix(row.RecordedAt, 0).UTC().Format(HourLayout)
		bucket, ok := buckets[hour]
		if !ok {
			bucket = &HourlyTraffic{Hour: hour}
			buckets[hour] = bucket
		}
		bucket.Upload += row.UploadBytes
		bucket.Download += row.DownloadBytes
	}
	out := make([]HourlyTraffic, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

// TopUsersByTraffic ranks non-admin users by traffic recorded at or after since.
// Users without samples are included with zero totals. limit <= 0 means no limit.
func (f *Facade) TopUsersByTraffic(ctx context.Context, since int64, limit int) ([]UserTraffic, error) {
	users, err := SelectMany[models.User](ctx, f, All{})
	if err != nil {
		return nil, err
	}
	out := make([]UserTraffic, 0, len(users))
	for _, u := range users {
		if u.IsAdmin {
			continue
		}
		totals, errSum := f.SumTraffic(ctx, ByUserIDSince{UserID: u.ID, From: since})
		if errSum != nil {
			return nil, errSum
		}
		out = append(out, UserTraffic{
			UserID:   u.ID,
			Email:    u.Email,
			Upload:   totals.Upload,
			Download: totals.Download,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Upload+out[i].Download > out[j].Upload+out[j].Download
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
