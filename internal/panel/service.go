package panel

import (
	"time"

	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/frpconfig"
	"github.com/router-for-me/FRPPanel/internal/query"
	"github.com/router-for-me/FRPPanel/internal/security"
)

// Options configures a Service.
type Options struct {
	Ports  config.PortRange // External ports users may claim.
	Server frpconfig.Server // frps endpoint written into client configs.
	Hasher security.Hasher  // Defaults to bcrypt.
	Mailer Mailer           // Defaults to LogMailer.
	Now    func() time.Time // Defaults to time.Now.
}

// Service implements the panel's account, port, admin and stats operations on top of the query façade.
type Service struct {
	facade *query.Facade
	ports  config.PortRange
	server frpconfig.Server
	hasher security.Hasher
	mailer Mailer
	now    func() time.Time
	intn   func(n int) int
}

// New constructs a Service.
func New(facade *query.Facade, opts Options) *Service {
	s := &Service{
		facade: facade,
		ports:  opts.Ports,
		server: opts.Server,
		hasher: opts.Hasher,
		mailer: opts.Mailer,
		now:    opts.Now,
		intn:   randIntN,
	}
	if s.hasher == nil {
		s.hasher = security.BcryptHasher{}
	}
	if s.mailer == nil {
		s.mailer = LogMailer{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Facade returns the query façade the service reads and writes through.
func (s *Service) Facade() *query.Facade {
	return s.facade
}

// PortRange returns the configured external port range.
func (s *Service) PortRange() config.PortRange {
	return s.ports
}
