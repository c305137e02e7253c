package app

import (
	"fmt"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/config"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and output format to the standard logger.
func ConfigureLogging(cfg config.LoggingConfig) error {
	if level := strings.TrimSpace(cfg.Level); level != "" {
		parsed, errParse := log.ParseLevel(level)
		if errParse != nil {
			return fmt.Errorf("logging: %w", errParse)
		}
		log.SetLevel(parsed)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}
	return nil
}
