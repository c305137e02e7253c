package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/store"
)

func newTestFacade(t *testing.T, opts ...Option) *Facade {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	return New(store.New(store.WithClock(func() time.Time { return fixed })), opts...)
}

func mustInsert(t *testing.T, f *Facade, in Intent) int64 {
	t.Helper()
	id, errInsert := f.Insert(context.Background(), in)
	if errInsert != nil {
		t.Fatalf("insert %T: %v", in, errInsert)
	}
	return id
}

func TestInsertUserUsesSettingsDefaults(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	limit := 9
	if _, errUpdate := f.UpdateSettings(ctx, models.SettingsPatch{DefaultPortLimit: &limit}); errUpdate != nil {
		t.Fatalf("update settings: %v", errUpdate)
	}
	id := mustInsert(t, f, InsertUser{Email: "a@example.com", Password: "hash"})

	u, ok, errSelect := SelectOne[models.User](ctx, f, ByID{ID: id})
	if errSelect != nil || !ok {
		t.Fatalf("select user: ok=%v err=%v", ok, errSelect)
	}
	if u.PortLimit != 9 {
		t.Fatalf("expected port limit 9, got %d", u.PortLimit)
	}
	if u.IsActive {
		t.Fatalf("expected new user inactive by default")
	}
}

func TestInsertPortDefaults(t *testing.T) {
	f := newTestFacade(t)
	userID := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	portID := mustInsert(t, f, InsertPort{UserID: userID, Port: 20000})

	p, ok, errSelect := SelectOne[models.Port](context.Background(), f, ByID{ID: portID})
	if errSelect != nil || !ok {
		t.Fatalf("select port: ok=%v err=%v", ok, errSelect)
	}
	if p.Name != "port-20000" || p.Protocol != models.ProtocolTCP || p.LocalIP != models.DefaultLocalIP || p.LocalPort != 20000 || !p.IsActive {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestDuplicatePortRejectedAcrossUsers(t *testing.T) {
	f := newTestFacade(t)
	a := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	b := mustInsert(t, f, InsertUser{Email: "b@example.com"})
	mustInsert(t, f, InsertPort{UserID: a, Port: 20000})

	_, errInsert := f.Insert(context.Background(), InsertPort{UserID: b, Port: 20000})
	if !errors.Is(errInsert, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", errInsert)
	}
}

func TestUnsupportedPredicateReturnsEmpty(t *testing.T) {
	f := newTestFacade(t)
	userID := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	mustInsert(t, f, InsertPort{UserID: userID, Port: 20000})

	rows, errSelect := SelectMany[models.Port](context.Background(), f, ByEmail{Email: "a@example.com"})
	if errSelect != nil {
		t.Fatalf("expected no error, got %v", errSelect)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(rows))
	}
}

func TestStrictModeRejectsUnsupportedPredicate(t *testing.T) {
	f := newTestFacade(t, Strict(true))
	_, errSelect := SelectMany[models.Port](context.Background(), f, ByEmail{Email: "a@example.com"})
	if !errors.Is(errSelect, ErrUnsupportedQuery) {
		t.Fatalf("expected ErrUnsupportedQuery, got %v", errSelect)
	}
}

func TestByIDAndUserIDChecksOwnership(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	a := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	b := mustInsert(t, f, InsertUser{Email: "b@example.com"})
	portID := mustInsert(t, f, InsertPort{UserID: a, Port: 20000})

	if _, ok, _ := SelectOne[models.Port](ctx, f, ByIDAndUserID{ID: portID, UserID: b}); ok {
		t.Fatalf("expected port hidden from non-owner")
	}
	if _, ok, _ := SelectOne[models.Port](ctx, f, ByIDAndUserID{ID: portID, UserID: a}); !ok {
		t.Fatalf("expected port visible to owner")
	}
}

func TestResetTokenExpiry(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	id := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	token := "reset-token"
	expires := int64(1000)
	tokenPtr, expiresPtr := &token, &expires
	if _, errExec := f.Exec(ctx, UpdateUser{ID: id, Patch: models.UserPatch{ResetToken: &tokenPtr, ResetExpires: &expiresPtr}}); errExec != nil {
		t.Fatalf("update user: %v", errExec)
	}
	if _, ok, _ := SelectOne[models.User](ctx, f, ByResetToken{Token: token, Now: 999}); !ok {
		t.Fatalf("expected token valid before expiry")
	}
	if _, ok, _ := SelectOne[models.User](ctx, f, ByResetToken{Token: token, Now: 1000}); ok {
		t.Fatalf("expected token expired at expiry")
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	f := newTestFacade(t)
	title := "x"
	res, errExec := f.Exec(context.Background(), UpdateAnnouncement{ID: 42, Patch: models.AnnouncementPatch{Title: &title}})
	if errExec != nil {
		t.Fatalf("expected no error, got %v", errExec)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("expected 0 rows affected, got %d", res.RowsAffected)
	}
}

func TestDeleteUserCascadesThroughFacade(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	userID := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	portID := mustInsert(t, f, InsertPort{UserID: userID, Port: 20000})
	mustInsert(t, f, InsertTraffic{UserID: userID, PortID: &portID, UploadBytes: 10})

	res, errExec := f.Exec(ctx, DeleteByID{From: models.CollectionUsers, ID: userID})
	if errExec != nil || res.RowsAffected != 1 {
		t.Fatalf("delete user: res=%+v err=%v", res, errExec)
	}
	for _, collection := range []models.Collection{models.CollectionPorts, models.CollectionTraffic} {
		n, errCount := f.Count(ctx, collection, All{})
		if errCount != nil || n != 0 {
			t.Fatalf("expected empty %s, got %d (err=%v)", collection, n, errCount)
		}
	}
}

func TestSumTrafficZeroForEmptySet(t *testing.T) {
	f := newTestFacade(t)
	totals, errSum := f.SumTraffic(context.Background(), ByUserID{UserID: 99})
	if errSum != nil {
		t.Fatalf("sum traffic: %v", errSum)
	}
	if totals.Upload != 0 || totals.Download != 0 {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestSumTrafficByHour(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	userID := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Unix()
	for _, sample := range []InsertTraffic{
		{UserID: userID, UploadBytes: 1, DownloadBytes: 2, RecordedAt: base + 3600 + 5},
		{UserID: userID, UploadBytes: 3, DownloadBytes: 4, RecordedAt: base + 10},
		{UserID: userID, UploadBytes: 5, DownloadBytes: 6, RecordedAt: base + 20},
		{UserID: userID, UploadBytes: 100, RecordedAt: base - 3600},
	} {
		mustInsert(t, f, sample)
	}

	buckets, errSum := f.SumTrafficByHour(ctx, ByUserIDSince{UserID: userID, From: base})
	if errSum != nil {
		t.Fatalf("sum by hour: %v", errSum)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", buckets)
	}
	if buckets[0].Hour != "2026-03-01 10:00" || buckets[0].Upload != 8 || buckets[0].Download != 10 {
		t.Fatalf("unexpected first bucket: %+v", buckets[0])
	}
	if buckets[1].Hour != "2026-03-01 11:00" || buckets[1].Upload != 1 {
		t.Fatalf("unexpected second bucket: %+v", buckets[1])
	}
}

func TestTopUsersByTrafficIncludesIdleUsers(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	mustInsert(t, f, InsertUser{Email: "admin", IsAdmin: true})
	idle := mustInsert(t, f, InsertUser{Email: "idle@example.com"})
	busy := mustInsert(t, f, InsertUser{Email: "busy@example.com"})
	mustInsert(t, f, InsertTraffic{UserID: busy, UploadBytes: 50, RecordedAt: 500})
	mustInsert(t, f, InsertTraffic{UserID: busy, UploadBytes: 1000, RecordedAt: 10})

	top, errTop := f.TopUsersByTraffic(ctx, 100, 10)
	if errTop != nil {
		t.Fatalf("top users: %v", errTop)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 non-admin users, got %+v", top)
	}
	if top[0].UserID != busy || top[0].Upload != 50 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	if top[1].UserID != idle || top[1].Upload != 0 || top[1].Download != 0 {
		t.Fatalf("unexpected idle entry: %+v", top[1])
	}
}

func TestPruneTrafficKeepsCutoff(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	userID := mustInsert(t, f, InsertUser{Email: "a@example.com"})
	mustInsert(t, f, InsertTraffic{UserID: userID, RecordedAt: 10})
	mustInsert(t, f, InsertTraffic{UserID: userID, RecordedAt: 20})

	res, errExec := f.Exec(ctx, PruneTraffic{Before: 20})
	if errExec != nil || res.RowsAffected != 1 {
		t.Fatalf("prune: res=%+v err=%v", res, errExec)
	}
	n, _ := f.Count(ctx, models.CollectionTraffic, Since{From: 20})
	if n != 1 {
		t.Fatalf("expected sample at cutoff retained, got %d", n)
	}
}

func TestCanceledContext(t *testing.T) {
	f := newTestFacade(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, errSelect := SelectMany[models.User](ctx, f, All{}); !errors.Is(errSelect, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", errSelect)
	}
}
