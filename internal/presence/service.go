// Package presence is the status directory orchestrator: it composes the
// directory store, icon resolution, spatial query and fanout hub into the
// get/list/update operations the route layer consumes. It is the only
// component with cross-cutting knowledge of all four collaborators.
package presence

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/burrowhq/presence/internal/geo"
	"github.com/burrowhq/presence/internal/hub"
	"github.com/burrowhq/presence/pkg/directory"
)

// IconResolver resolves a status message to an icon name. Implementations
// must degrade internally; Resolve never fails.
type IconResolver interface {
	Resolve(ctx context.Context, message string) string
}

// SpatialQuerier answers containment queries over the tenant's records.
type SpatialQuerier interface {
	Within(ctx context.Context, boundary *geo.Boundary) ([]*directory.StatusRecord, error)
}

// Service orchestrates status reads and writes for one tenant.
//
// Concurrent updates to the same username are not serialized: two
// near-simultaneous writes may interleave icon-resolution latency and apply
// out of submission order, with Redis's per-key write semantics deciding the
// survivor field by field. This is an accepted race at directory scale.
type Service struct {
	store    *directory.Store
	icons    IconResolver
	spatial  SpatialQuerier
	hub      *hub.Hub
	boundary *geo.Boundary
}

// NewService wires the orchestrator. The boundary is the static geographic
// boundary used by UsersInBoundary, loaded once at startup.
func NewService(store *directory.Store, icons IconResolver, spatial SpatialQuerier, h *hub.Hub, boundary *geo.Boundary) *Service {
	return &Service{
		store:    store,
		icons:    icons,
		spatial:  spatial,
		hub:      h,
		boundary: boundary,
	}
}

// UpdateRequest carries one status write.
type UpdateRequest struct {
	Username string
	Status   directory.Status
	Message  string
	Location *directory.Location
}

// UpdateStatus validates and applies one status write: resolve icon (only
// for a non-empty message), persist, then broadcast a human-readable change
// description. Validation failures reject the write before any side effect.
// The broadcast is only attempted after the persist completes, so a failed
// write never produces a partial broadcast.
//
// A request without a location retains any previously stored location; use
// ClearLocation for an explicit clear.
func (s *Service) UpdateStatus(ctx context.Context, req UpdateRequest) (*directory.StatusRecord, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if err := req.Status.Validate(); err != nil {
		return nil, err
	}

	// Prior record drives the change-description template. Absent is fine:
	// this is the user's first write.
	prior, err := s.store.Get(ctx, req.Username)
	if err != nil && !directory.IsNotFound(err) {
		return nil, fmt.Errorf("failed to read prior record: %w", err)
	}

	icon := directory.DefaultIcon
	if strings.TrimSpace(req.Message) != "" {
		icon = s.icons.Resolve(ctx, req.Message)
	}

	record := &directory.StatusRecord{
		Username: req.Username,
		Status:   req.Status,
		Message:  req.Message,
		Icon:     icon,
		Location: req.Location,
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, err
	}

	if err := s.hub.Publish(ctx, changeDescription(prior, req)); err != nil {
		return nil, err
	}

	log.Printf("[Presence] %s updated: status=%s icon=%s", req.Username, req.Status, icon)
	return record, nil
}

// changeDescription renders the broadcast text for a write. A write that
// changes only the location gets a distinct template from one that changes
// status or message.
func changeDescription(prior *directory.StatusRecord, req UpdateRequest) string {
	locationOnly := prior != nil &&
		req.Location != nil &&
		prior.Status == req.Status &&
		prior.Message == req.Message
	if locationOnly {
		return fmt.Sprintf("%s checked in from a new location", req.Username)
	}
	if strings.TrimSpace(req.Message) != "" {
		return fmt.Sprintf("%s is now %s: %s", req.Username, req.Status, req.Message)
	}
	return fmt.Sprintf("%s is now %s", req.Username, req.Status)
}

// GetStatus returns one user's record. Returns (nil, redis.Nil) via the
// store when the user has never written; check with directory.IsNotFound.
// Never triggers icon resolution.
func (s *Service) GetStatus(ctx context.Context, username string) (*directory.StatusRecord, error) {
	return s.store.Get(ctx, username)
}

// ListUsers returns every record in the tenant, in unspecified order.
// An uninitialized tenant yields an empty list. Never triggers icon
// resolution.
func (s *Service) ListUsers(ctx context.Context) ([]*directory.StatusRecord, error) {
	return s.store.ListAll(ctx)
}

// UsersInBoundary returns the geolocated records inside the configured
// boundary. Records without a location never appear, and a tenant that
// never populated its spatial index yields an empty list.
func (s *Service) UsersInBoundary(ctx context.Context) ([]*directory.StatusRecord, error) {
	return s.spatial.Within(ctx, s.boundary)
}

// Boundary returns the static boundary UsersInBoundary queries against.
func (s *Service) Boundary() *geo.Boundary {
	return s.boundary
}

// ClearLocation explicitly removes a user's stored location and broadcasts
// the change.
func (s *Service) ClearLocation(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if err := s.store.ClearLocation(ctx, username); err != nil {
		return err
	}
	return s.hub.Publish(ctx, fmt.Sprintf("%s cleared their location", username))
}

// ConnectionTest verifies store connectivity and returns the caller's
// current record (nil if they have never written). The reply text is
// always "pong" on success.
func (s *Service) ConnectionTest(ctx context.Context, username string) (string, *directory.StatusRecord, error) {
	if err := s.store.Ping(ctx); err != nil {
		return "", nil, fmt.Errorf("store unreachable: %w", err)
	}
	record, err := s.store.Get(ctx, username)
	if err != nil {
		if directory.IsNotFound(err) {
			return "pong", nil, nil
		}
		return "", nil, err
	}
	return "pong", record, nil
}

// SubscribeBroadcast registers a new observer on the tenant's broadcast
// channel, for consumption by a streaming response layer.
func (s *Service) SubscribeBroadcast(ctx context.Context) (*hub.Observer, error) {
	return s.hub.Subscribe(ctx)
}
