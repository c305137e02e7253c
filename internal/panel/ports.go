package panel

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
)

// randomPortAttempts bounds the search for a free external port.
const randomPortAttempts = 100

func randIntN(n int) int { return rand.Intn(n) }

// PortList is a user's port mappings plus its quota.
type PortList struct {
	Ports []models.Port `json:"ports"`
	Limit int           `json:"limit"`
}

// PortRequest describes a new port mapping.
type PortRequest struct {
	Port      int    `json:"port"`
	Name      string `json:"name"`
	Protocol  string `json:"protocol"`
	LocalIP   string `json:"local_ip"`
	LocalPort int    `json:"local_port"`
}

// ListPorts returns the mappings owned by userID.
func (s *Service) ListPorts(ctx context.Context, userID int64) (PortList, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return PortList{}, err
	}
	if !ok {
		return PortList{}, fail(ErrNotFound, "user not found")
	}
	ports, err := query.SelectMany[models.Port](ctx, s.facade, query.ByUserID{UserID: userID})
	if err != nil {
		return PortList{}, err
	}
	return PortList{Ports: ports, Limit: user.PortLimit}, nil
}

func (s *Service) checkRange(port int) error {
	if !s.ports.Contains(port) {
		return fail(ErrInvalidInput, "port must be within %d-%d", s.ports.Min, s.ports.Max)
	}
	return nil
}

func (s *Service) checkPortFree(ctx context.Context, port int, self int64) error {
	existing, taken, err := query.SelectOne[models.Port](ctx, s.facade, query.ByPortNumber{Port: port})
	if err != nil {
		return err
	}
	if taken && existing.ID != self {
		return fail(ErrConflict, "port %d is already in use", port)
	}
	return nil
}

// CreatePort claims an external port for userID.
// The port must be in range, free, and within the user's quota.
func (s *Service) CreatePort(ctx context.Context, userID int64, req PortRequest) (models.Port, error) {
	user, ok, err := query.SelectOne[models.User](ctx, s.facade, query.ByID{ID: userID})
	if err != nil {
		return models.Port{}, err
	}
	if !ok {
		return models.Port{}, fail(ErrNotFound, "user not found")
	}
	if err = s.checkRange(req.Port); err != nil {
		return models.Port{}, err
	}
	protocol := strings.ToLower(strings.TrimSpace(req.Protocol))
	if protocol == "" {
		protocol = models.ProtocolTCP
	}
	if !models.ValidProtocol(protocol) {
		return models.Port{}, fail(ErrInvalidInput, "protocol must be tcp or udp")
	}
	if req.LocalPort < 0 || req.LocalPort > 65535 {
		return models.Port{}, fail(ErrInvalidInput, "local port must be within 1-65535")
	}
	count, err := s.facade.Count(ctx, models.CollectionPorts, query.ByUserID{UserID: userID})
	if err != nil {
		return models.Port{}, err
	}
	if count >= user.PortLimit {
		return models.Port{}, fail(ErrInvalidInput, "port limit reached (%d)", user.PortLimit)
	}
	if err = s.checkPortFree(ctx, req.Port, 0); err != nil {
		return models.Port{}, err
	}

	id, err := s.facade.Insert(ctx, query.InsertPort{
		UserID:    userID,
		Port:      req.Port,
		Name:      strings.TrimSpace(req.Name),
		Protocol:  protocol,
		LocalIP:   strings.TrimSpace(req.LocalIP),
		LocalPort: req.LocalPort,
	})
	if err != nil {
		return models.Port{}, conflictOr(err, "create port", fmt.Sprintf("port %d is already in use", req.Port))
	}
	created, _, err := query.SelectOne[models.Port](ctx, s.facade, query.ByID{ID: id})
	if err != nil {
		return models.Port{}, err
	}
	return created, nil
}

// UpdatePort patches a mapping owned by userID. A changed external port is re-checked
// against the range and for collisions.
func (s *Service) UpdatePort(ctx context.Context, userID, portID int64, patch models.PortPatch) error {
	current, ok, err := query.SelectOne[models.Port](ctx, s.facade, query.ByIDAndUserID{ID: portID, UserID: userID})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrNotFound, "port not found")
	}
	if patch.Port != nil && *patch.Port != current.Port {
		if err = s.checkRange(*patch.Port); err != nil {
			return err
		}
		if err = s.checkPortFree(ctx, *patch.Port, portID); err != nil {
			return err
		}
	}
	if patch.Protocol != nil {
		protocol := strings.ToLower(strings.TrimSpace(*patch.Protocol))
		if !models.ValidProtocol(protocol) {
			return fail(ErrInvalidInput, "protocol must be tcp or udp")
		}
		patch.Protocol = &protocol
	}
	if patch.LocalPort != nil && (*patch.LocalPort <= 0 || *patch.LocalPort > 65535) {
		return fail(ErrInvalidInput, "local port must be within 1-65535")
	}
	if _, err = s.facade.Exec(ctx, query.UpdatePort{ID: portID, Patch: patch}); err != nil {
		port := current.Port
		if patch.Port != nil {
			port = *patch.Port
		}
		return conflictOr(err, "update port", fmt.Sprintf("port %d is already in use", port))
	}
	return nil
}

// DeletePort removes a mapping owned by userID.
func (s *Service) DeletePort(ctx context.Context, userID, portID int64) error {
	_, ok, err := query.SelectOne[models.Port](ctx, s.facade, query.ByIDAndUserID{ID: portID, UserID: userID})
	if err != nil {
		return err
	}
	if !ok {
		return fail(ErrNotFound, "port not found")
	}
	if _, err = s.facade.Exec(ctx, query.DeleteByID{From: models.CollectionPorts, ID: portID}); err != nil {
		return fmt.Errorf("panel: delete port: %w", err)
	}
	return nil
}

// RandomFreePort picks an unclaimed port from the configured range.
func (s *Service) RandomFreePort(ctx context.Context) (int, error) {
	size := s.ports.Size()
	if size <= 0 {
		return 0, fail(ErrConflict, "no free port available")
	}
	for attempt := 0; attempt < randomPortAttempts; attempt++ {
		candidate := s.ports.Min + s.intn(size)
		_, taken, err := query.SelectOne[models.Port](ctx, s.facade, query.ByPortNumber{Port: candidate})
		if err != nil {
			return 0, err
		}
		if !taken {
			return candidate, nil
		}
	}
	return 0, fail(ErrConflict, "no free port available")
}
