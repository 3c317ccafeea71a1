package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Repository errors.
var (
	ErrNotFound      = errors.New("profile not found")
	ErrDuplicateID   = errors.New("profile already exists")
	ErrInvalidStatus = errors.New("invalid profile status")
	ErrMissingID     = errors.New("profile id is required")
)

// Repository is the record store the directory queries.
type Repository interface {
	// Query returns the profiles matching q in a stable order (creation order).
	Query(ctx context.Context, q Query) ([]*Profile, error)

	// FacetProjection returns the facet arrays of every approved profile.
	FacetProjection(ctx context.Context) ([]FacetProjection, error)

	// Insert stores a new profile. New profiles default to StatusPending.
	Insert(ctx context.Context, p *Profile) error

	// GetByID retrieves a profile by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// UpdateStatus moves a profile through moderation.
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	order    []string
	timeNow  func() time.Time
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
		timeNow:  time.Now,
	}
}

// Query evaluates q against every stored profile, preserving insertion order.
func (r *InMemoryRepository) Query(ctx context.Context, q Query) ([]*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Profile, 0)
	for _, id := range r.order {
		p := r.profiles[id]
		if q.Matches(p) {
			results = append(results, p.Clone())
		}
	}
	return results, nil
}

// FacetProjection returns facet arrays for approved profiles.
func (r *InMemoryRepository) FacetProjection(ctx context.Context) ([]FacetProjection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]FacetProjection, 0, len(r.order))
	for _, id := range r.order {
		p := r.profiles[id]
		if p.Status != StatusApproved {
			continue
		}
		rows = append(rows, FacetProjection{
			Languages:        p.Languages,
			AreasOfExpertise: p.AreasOfExpertise,
			Memberships:      p.Memberships,
		})
	}
	return rows, nil
}

// Insert stores a copy of p.
func (r *InMemoryRepository) Insert(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.ID == "" {
		return ErrMissingID
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[p.ID]; exists {
		return ErrDuplicateID
	}

	now := r.timeNow()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	r.profiles[p.ID] = p.Clone()
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID retrieves a copy of the profile with the given ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

// UpdateStatus sets the moderation status of a profile.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = r.timeNow()
	return nil
}
