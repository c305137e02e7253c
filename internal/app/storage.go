package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/db"
	"github.com/router-for-me/FRPPanel/internal/persist"
)

// storageInfo is a loggable description of a snapshot database, without secrets.
type storageInfo struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

func (s storageInfo) String() string {
	if s.Type == db.DialectSQLite {
		return fmt.Sprintf("sqlite path=%s", s.Path)
	}
	return fmt.Sprintf("postgres host=%s port=%d user=%s db=%s sslmode=%s password_set=%t",
		s.Host, s.Port, s.User, s.Name, s.SSLMode, s.PasswordSet)
}

func describeDSN(dsn string) (storageInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return storageInfo{}, fmt.Errorf("empty dsn")
	}

	if db.DialectForDSN(trimmed) == db.DialectSQLite {
		pathPart := trimmed
		if strings.HasPrefix(strings.ToLower(pathPart), "file:") {
			pathPart = pathPart[len("file:"):]
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return storageInfo{Type: db.DialectSQLite, Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil || u.Scheme == "" {
		// Keyword DSNs (host=... user=...) are not URLs.
		return storageInfo{Type: db.DialectPostgres, PasswordSet: strings.Contains(trimmed, "password=")}, nil
	}
	port := 5432
	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return storageInfo{}, fmt.Errorf("parse port: %w", errPort)
		}
		port = parsedPort
	}
	username := ""
	passwordSet := false
	if u.User != nil {
		username = strings.TrimSpace(u.User.Username())
		_, passwordSet = u.User.Password()
	}
	sslMode := strings.TrimSpace(u.Query().Get("sslmode"))
	if sslMode == "" {
		sslMode = "disable"
	}
	return storageInfo{
		Type:        db.DialectPostgres,
		Host:        strings.TrimSpace(u.Hostname()),
		Port:        port,
		User:        username,
		Name:        strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
		SSLMode:     sslMode,
		PasswordSet: passwordSet,
	}, nil
}

// openBackend builds the snapshot backend selected by cfg. The returned closer releases
// any database connection and is never nil.
func openBackend(cfg config.StorageConfig) (persist.Backend, string, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.StorageDatabase:
		info, errDescribe := describeDSN(cfg.DSN)
		if errDescribe != nil {
			return nil, "", noop, errDescribe
		}
		conn, errOpen := db.Open(cfg.DSN)
		if errOpen != nil {
			return nil, "", noop, errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			_ = db.Close(conn)
			return nil, "", noop, errMigrate
		}
		return persist.NewGormBackend(conn, persist.DefaultSnapshotName), info.String(),
			func() error { return db.Close(conn) }, nil
	default:
		backend := persist.NewFileBackend(cfg.Path)
		return backend, "file path=" + backend.Path(), noop, nil
	}
}
