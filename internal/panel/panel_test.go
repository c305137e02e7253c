package panel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/frpconfig"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/store"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (plainHasher) Verify(hash, password string) bool   { return hash == "plain:"+password }

type recordingMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *recordingMailer) SendVerification(_ context.Context, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _ string, link string) error {
	return m.SendVerification(context.Background(), "", link)
}

func (m *recordingMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

type fixture struct {
	svc    *Service
	facade *query.Facade
	mailer *recordingMailer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.facade = query.New(store.New(store.WithClock(clock)))
	f.mailer = &recordingMailer{}
	f.svc = New(f.facade, Options{
		Ports:  config.PortRange{Min: 20000, Max: 20009},
		Server: frpconfig.Server{Addr: "frp.local", Port: 7000, Token: "secret"},
		Hasher: plainHasher{},
		Mailer: f.mailer,
		Now:    clock,
	})
	return f
}

func (f *fixture) user(t *testing.T, email string, limit int) int64 {
	t.Helper()
	id, err := f.facade.Insert(context.Background(), query.InsertUser{
		Email:     email,
		Password:  "plain:password123",
		IsActive:  true,
		PortLimit: &limit,
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	_, token, ok := strings.Cut(link, "?token=")
	if !ok || token == "" {
		t.Fatalf("no token in link %q", link)
	}
	return token
}

func TestRegisterVerifyLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, " a@example.com ", "password123", "http://panel")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !res.NeedsVerification {
		t.Fatalf("expected verification to be required by default")
	}
	if _, err = f.svc.Login(ctx, "a@example.com", "password123"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unverified login to fail, got %v", err)
	}

	if err = f.svc.Verify(ctx, tokenFrom(t, f.mailer.last())); err != nil {
		t.Fatalf("verify: %v", err)
	}
	user, err := f.svc.Login(ctx, "a@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != res.UserID || user.VerifyToken != nil {
		t.Fatalf("unexpected user after verify: %+v", user)
	}
	if user.PortLimit != 5 {
		t.Fatalf("expected default port limit 5, got %d", user.PortLimit)
	}

	if _, err = f.svc.Login(ctx, "a@example.com", "wrong-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected bad password to fail, got %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, "a@example.com", "password123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Register(ctx, "a@example.com", "password123", ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := f.svc.Register(ctx, "not-an-email", "password123", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := f.svc.Register(ctx, "b@example.com", "short", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected short password rejected, got %v", err)
	}

	closed := false
	if _, err := f.svc.UpdateSettings(ctx, models.SettingsPatch{AllowRegister: &closed}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if _, err := f.svc.Register(ctx, "c@example.com", "password123", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected registration closed, got %v", err)
	}
}

func TestRegisterWithoutVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	off := false
	if _, err := f.svc.UpdateSettings(ctx, models.SettingsPatch{RequireEmailVerify: &off}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	res, err := f.svc.Register(ctx, "a@example.com", "password123", "")
	if err != nil || res.NeedsVerification {
		t.Fatalf("register: res=%+v err=%v", res, err)
	}
	if _, err = f.svc.Login(ctx, "a@example.com", "password123"); err != nil {
		t.Fatalf("expected immediate login, got %v", err)
	}
	if f.mailer.last() != "" {
		t.Fatalf("expected no verification email")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a@example.com", 5)

	if err := f.svc.ForgotPassword(ctx, "nobody@example.com", "http://panel"); err != nil {
		t.Fatalf("expected unknown email to succeed silently, got %v", err)
	}
	if err := f.svc.ForgotPassword(ctx, "a@example.com", "http://panel"); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	token := tokenFrom(t, f.mailer.last())

	f.now = f.now.Add(2 * time.Hour)
	if err := f.svc.ResetPassword(ctx, token, "newpassword1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
	f.now = f.now.Add(-2 * time.Hour)

	if err := f.svc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@example.com", "newpassword1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "another-password"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user(t, "a@example.com", 5)

	if err := f.svc.ChangePassword(ctx, id, "wrong", "newpassword1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected wrong current password rejected, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, id, "password123", "newpassword1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@example.com", "newpassword1"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestAuthenticateRejectsDisabledUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user(t, "a@example.com", 5)
	if _, err := f.svc.Authenticate(ctx, id); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	off := false
	if err := f.svc.UpdateUser(ctx, id, AdminUserUpdate{IsActive: &off}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected disabled user rejected, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, 999); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected missing user rejected, got %v", err)
	}
}

func TestCreatePortChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com", 2)
	bob := f.user(t, "bob@example.com", 2)

	port, err := f.svc.CreatePort(ctx, alice, PortRequest{Port: 20000})
	if err != nil {
		t.Fatalf("create port: %v", err)
	}
	if port.Name != "port-20000" || port.Protocol != models.ProtocolTCP || port.LocalPort != 20000 || !port.IsActive {
		t.Fatalf("unexpected defaults: %+v", port)
	}

	if _, err = f.svc.CreatePort(ctx, bob, PortRequest{Port: 20000}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected port taken by another user, got %v", err)
	}
	if _, err = f.svc.CreatePort(ctx, alice, PortRequest{Port: 30000}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected out of range port rejected, got %v", err)
	}
	if _, err = f.svc.CreatePort(ctx, alice, PortRequest{Port: 20001, Protocol: "http"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected bad protocol rejected, got %v", err)
	}
	if _, err = f.svc.CreatePort(ctx, alice, PortRequest{Port: 20001, Protocol: "UDP"}); err != nil {
		t.Fatalf("create udp port: %v", err)
	}
	if _, err = f.svc.CreatePort(ctx, alice, PortRequest{Port: 20002}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected port limit reached, got %v", err)
	}

	list, err := f.svc.ListPorts(ctx, alice)
	if err != nil {
		t.Fatalf("list ports: %v", err)
	}
	if len(list.Ports) != 2 || list.Limit != 2 {
		t.Fatalf("unexpected port list: %+v", list)
	}
}

func TestUpdateAndDeletePortOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com", 5)
	bob := f.user(t, "bob@example.com", 5)
	a1, _ := f.svc.CreatePort(ctx, alice, PortRequest{Port: 20000})
	b1, _ := f.svc.CreatePort(ctx, bob, PortRequest{Port: 20001})

	moved := 20001
	if err := f.svc.UpdatePort(ctx, alice, a1.ID, models.PortPatch{Port: &moved}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected collision on update, got %v", err)
	}
	same := 20000
	name := "web"
	if err := f.svc.UpdatePort(ctx, alice, a1.ID, models.PortPatch{Port: &same, Name: &name}); err != nil {
		t.Fatalf("update keeping the same port: %v", err)
	}
	if err := f.svc.UpdatePort(ctx, alice, b1.ID, models.PortPatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected foreign port hidden, got %v", err)
	}
	if err := f.svc.DeletePort(ctx, alice, b1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected foreign delete rejected, got %v", err)
	}
	if err := f.svc.DeletePort(ctx, bob, b1.ID); err != nil {
		t.Fatalf("delete port: %v", err)
	}
	if err := f.svc.UpdatePort(ctx, alice, a1.ID, models.PortPatch{Port: &moved}); err != nil {
		t.Fatalf("expected freed port to be claimable, got %v", err)
	}
}

func TestRandomFreePort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com", 20)
	for p := 20000; p < 20009; p++ {
		if _, err := f.svc.CreatePort(ctx, alice, PortRequest{Port: p}); err != nil {
			t.Fatalf("create port %d: %v", p, err)
		}
	}
	f.svc.intn = func(n int) int { return n - 1 }
	got, err := f.svc.RandomFreePort(ctx)
	if err != nil || got != 20009 {
		t.Fatalf("expected 20009, got %d err=%v", got, err)
	}

	f.svc.intn = func(int) int { return 0 }
	if _, err = f.svc.RandomFreePort(ctx); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected no free port after exhausting attempts, got %v", err)
	}
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := true
	adminID, err := f.facade.Insert(ctx, query.InsertUser{Email: "admin", Password: "x", IsAdmin: admin, IsActive: true})
	if err != nil {
		t.Fatalf("insert admin: %v", err)
	}

	created, err := f.svc.CreateUser(ctx, CreateUserRequest{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !created.IsActive || created.PortLimit != 5 {
		t.Fatalf("unexpected created user: %+v", created)
	}
	f.now = f.now.Add(time.Minute)
	limit := 1
	if _, err = f.svc.CreateUser(ctx, CreateUserRequest{Email: "bob@example.com", Password: "password123", PortLimit: &limit}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err = f.svc.CreateUser(ctx, CreateUserRequest{Email: "bob@example.com", Password: "password123"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected duplicate email rejected, got %v", err)
	}
	if _, err = f.svc.CreatePort(ctx, created.ID, PortRequest{Port: 20003}); err != nil {
		t.Fatalf("create port: %v", err)
	}

	page, err := f.svc.ListUsers(ctx, ListUsersQuery{Search: "EXAMPLE"})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if page.Total != 2 || page.Users[0].Email != "bob@example.com" || page.Users[1].PortCount != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	page, _ = f.svc.ListUsers(ctx, ListUsersQuery{Page: 2, Limit: 2})
	if page.Total != 3 || len(page.Users) != 1 {
		t.Fatalf("unexpected second page: %+v", page)
	}

	off := false
	if err = f.svc.UpdateUser(ctx, adminID, AdminUserUpdate{IsActive: &off}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected admin deactivation rejected, got %v", err)
	}
	if err = f.svc.DeleteUser(ctx, adminID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected admin deletion rejected, got %v", err)
	}
	newLimit := 9
	if err = f.svc.UpdateUser(ctx, created.ID, AdminUserUpdate{PortLimit: &newLimit}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	detail, err := f.svc.GetUser(ctx, created.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if detail.User.PortLimit != 9 || len(detail.Ports) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if err = f.svc.DeleteUser(ctx, created.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err = f.svc.GetUser(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted user gone, got %v", err)
	}
	if n, _ := f.facade.Count(ctx, models.CollectionPorts, query.All{}); n != 0 {
		t.Fatalf("expected ports removed with the user, got %d", n)
	}
}

func TestClientConfigUsesSettingsAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.user(t, "a@example.com", 5)
	if _, err := f.svc.CreatePort(ctx, id, PortRequest{Port: 20000, Name: "ssh", LocalPort: 22}); err != nil {
		t.Fatalf("create port: %v", err)
	}
	port, _ := f.svc.CreatePort(ctx, id, PortRequest{Port: 20001, Name: "off"})
	inactive := false
	if err := f.svc.UpdatePort(ctx, id, port.ID, models.PortPatch{IsActive: &inactive}); err != nil {
		t.Fatalf("disable port: %v", err)
	}

	rendered, err := f.svc.ClientConfig(ctx, id)
	if err != nil {
		t.Fatalf("client config: %v", err)
	}
	if !strings.Contains(rendered, `serverAddr = "frp.local"`) || strings.Contains(rendered, `"off"`) {
		t.Fatalf("unexpected config:\n%s", rendered)
	}

	addr := "203.0.113.9"
	if _, err = f.svc.UpdateSettings(ctx, models.SettingsPatch{ServerAddr: &addr}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	rendered, _ = f.svc.ClientConfig(ctx, id)
	if !strings.Contains(rendered, `serverAddr = "203.0.113.9"`) || !strings.Contains(rendered, "localPort = 22") {
		t.Fatalf("unexpected config:\n%s", rendered)
	}
}

func TestAnnouncements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.CreateAnnouncement(ctx, AnnouncementRequest{Title: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected title required, got %v", err)
	}
	first, _ := f.svc.CreateAnnouncement(ctx, AnnouncementRequest{Title: "first"})
	hidden := false
	second, _ := f.svc.CreateAnnouncement(ctx, AnnouncementRequest{Title: "second", IsActive: &hidden})
	third, _ := f.svc.CreateAnnouncement(ctx, AnnouncementRequest{Title: "third"})

	active, err := f.svc.ListAnnouncements(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 || active[0].ID != third.ID || active[1].ID != first.ID {
		t.Fatalf("unexpected active announcements: %+v", active)
	}
	shown := true
	if err = f.svc.UpdateAnnouncement(ctx, second.ID, models.AnnouncementPatch{IsActive: &shown}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err = f.svc.DeleteAnnouncement(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err = f.svc.DeleteAnnouncement(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second delete to miss, got %v", err)
	}
	all, _ := f.svc.ListAnnouncements(ctx, false)
	if len(all) != 2 {
		t.Fatalf("expected 2 announcements, got %d", len(all))
	}
}

func TestTrafficReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice@example.com", 5)
	bob := f.user(t, "bob@example.com", 5)
	samples := []query.InsertTraffic{
		{UserID: alice, UploadBytes: 10, DownloadBytes: 1, RecordedAt: f.now.Add(-90 * time.Minute).Unix()},
		{UserID: alice, UploadBytes: 20, DownloadBytes: 2, RecordedAt: f.now.Add(-30 * time.Minute).Unix()},
		{UserID: bob, UploadBytes: 100, DownloadBytes: 0, RecordedAt: f.now.Add(-10 * time.Minute).Unix()},
		{UserID: alice, UploadBytes: 1000, DownloadBytes: 0, RecordedAt: f.now.Add(-72 * time.Hour).Unix()},
	}
	for _, s := range samples {
		if _, err := f.facade.Insert(ctx, s); err != nil {
			t.Fatalf("insert traffic: %v", err)
		}
	}

	report, err := f.svc.UserTraffic(ctx, alice, 100)
	if err != nil {
		t.Fatalf("user traffic: %v", err)
	}
	if len(report.Stats) != 2 || report.Stats[0].Hour != "2026-03-01 10:00" || report.Total.Upload != 1030 {
		t.Fatalf("unexpected user report: %+v", report)
	}

	global, err := f.svc.GlobalTraffic(ctx, 0)
	if err != nil {
		t.Fatalf("global traffic: %v", err)
	}
	if global.Total.Upload != 1130 || len(global.ByUser) != 2 || global.ByUser[0].UserID != bob {
		t.Fatalf("unexpected global report: %+v", global)
	}

	stats, err := f.svc.SystemStats(ctx)
	if err != nil {
		t.Fatalf("system stats: %v", err)
	}
	if stats.Users.Total != 2 || stats.Traffic.Download != 3 {
		t.Fatalf("unexpected system stats: %+v", stats)
	}
}

func TestClampHours(t *testing.T) {
	cases := map[int]int{0: 24, -3: 24, 1: 1, 48: 48, 500: 48}
	for in, want := range cases {
		if got := ClampHours(in); got != want {
			t.Fatalf("ClampHours(%d) = %d, want %d", in, got, want)
		}
	}
}
