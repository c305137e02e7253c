package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/security"
	log "github.com/sirupsen/logrus"
)

// EnsureAdmin creates the configured administrator when no admin account exists yet
// and fills in the frps server address when the settings do not carry one.
// It reports whether an admin was created and is safe to call on every start.
func EnsureAdmin(ctx context.Context, facade *query.Facade, hasher security.Hasher, cfg config.Config) (bool, error) {
	if facade == nil {
		return false, fmt.Errorf("bootstrap: nil facade")
	}
	if hasher == nil {
		hasher = security.BcryptHasher{}
	}
	if errAddr := backfillServerAddr(ctx, facade, cfg.FRPS.ServerAddr); errAddr != nil {
		return false, errAddr
	}

	initialized, err := HasAdminInitialized(ctx, facade)
	if err != nil {
		return false, err
	}
	if initialized {
		return false, nil
	}

	username := strings.TrimSpace(cfg.Admin.Username)
	if username == "" || cfg.Admin.Password == "" {
		return false, fmt.Errorf("bootstrap: admin username and password are required")
	}
	existing, taken, errLookup := query.SelectOne[models.User](ctx, facade, query.ByEmail{Email: username})
	if errLookup != nil {
		return false, errLookup
	}
	if taken {
		return false, fmt.Errorf("bootstrap: admin username %q already belongs to non-admin user id=%d, set another ADMIN_USERNAME", username, existing.ID)
	}
	hashedPassword, errHash := hasher.Hash(cfg.Admin.Password)
	if errHash != nil {
		return false, fmt.Errorf("bootstrap: hash password: %w", errHash)
	}

	portLimit := cfg.Admin.PortLimit
	if portLimit <= 0 {
		portLimit = cfg.Ports.Size()
	}
	bandwidthLimit := cfg.Admin.BandwidthLimit
	if bandwidthLimit < 0 {
		bandwidthLimit = 0
	}
	id, errCreate := facade.Insert(ctx, query.InsertUser{
		Email:          username,
		Password:       hashedPassword,
		IsAdmin:        true,
		IsActive:       true,
		PortLimit:      &portLimit,
		BandwidthLimit: &bandwidthLimit,
	})
	if errCreate != nil {
		return false, fmt.Errorf("bootstrap: create admin: %w", errCreate)
	}
	log.Infof("created admin account %s (id=%d)", username, id)
	if cfg.Admin.Password == config.Default().Admin.Password {
		log.Warn("the admin account uses the default password, change it after signing in")
	}
	return true, nil
}

func backfillServerAddr(ctx context.Context, facade *query.Facade, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	current, err := facade.Settings(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(current.ServerAddr) != "" {
		return nil
	}
	if _, err = facade.UpdateSettings(ctx, models.SettingsPatch{ServerAddr: &addr}); err != nil {
		return fmt.Errorf("bootstrap: set server address: %w", err)
	}
	return nil
}
