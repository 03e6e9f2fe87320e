package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence the resolver needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Customer, error)
	FindByPhone(ctx context.Context, phone string) (Customer, error)
	FindByEmail(ctx context.Context, email string) (Customer, error)
	Insert(ctx context.Context, identity Identity) (Customer, bool, error)
	Enrich(ctx context.Context, id uuid.UUID, e Enrichment) (Customer, error)
}

// insertAttempts bounds the find-then-insert loop when concurrent writers
// keep winning the unique index race.
const insertAttempts = 3

// Resolver finds or creates the customer behind a set of contact details.
type Resolver struct {
	store      Store
	normalizer *phone.Normalizer
}

// NewResolver creates a resolver. A nil normalizer uses the GB default.
func NewResolver(store Store, normalizer *phone.Normalizer) *Resolver {
	if normalizer == nil {
		normalizer = phone.NewNormalizer("")
	}
	return &Resolver{store: store, normalizer: normalizer}
}

// Get loads a customer by id.
func (r *Resolver) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	return r.store.GetByID(ctx, id)
}

// ResolveOrCreate matches by canonical phone first, then by email, and
// creates a PROSPECT customer when neither matches. A matched customer gains
// any identifying details it was missing.
func (r *Resolver) ResolveOrCreate(ctx context.Context, identity Identity) (Customer, error) {
	identity = Identity{
		Phone: r.normalizer.Normalize(identity.Phone),
		Email: sanitize.Email(identity.Email),
		Name:  strings.TrimSpace(identity.Name),
	}

	for attempt := 0; attempt < insertAttempts; attempt++ {
		existing, found, err := r.lookup(ctx, identity)
		if err != nil {
			return Customer{}, err
		}
		if found {
			return r.enrich(ctx, existing, identity)
		}

		created, inserted, err := r.store.Insert(ctx, identity)
		if err != nil {
			return Customer{}, err
		}
		if inserted {
			return created, nil
		}
		// Lost a race on the phone or email unique index: the winner is now
		// visible, so the next lookup picks it up.
	}

	return Customer{}, fmt.Errorf("resolve customer: gave up after %d conflicting inserts", insertAttempts)
}

func (r *Resolver) lookup(ctx context.Context, identity Identity) (Customer, bool, error) {
	if identity.Phone != "" {
		c, err := r.store.FindByPhone(ctx, identity.Phone)
		if err == nil {
			return c, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Customer{}, false, err
		}
	}

	if identity.Email != "" {
		c, err := r.store.FindByEmail(ctx, identity.Email)
		if err == nil {
			return c, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Customer{}, false, err
		}
	}

	return Customer{}, false, nil
}

func (r *Resolver) enrich(ctx context.Context, c Customer, identity Identity) (Customer, error) {
	var patch Enrichment

	if isBlank(c.PrimaryEmail) && identity.Email != "" {
		free, err := unclaimed(c.ID, func() (Customer, error) { return r.store.FindByEmail(ctx, identity.Email) })
		if err != nil {
			return Customer{}, err
		}
		if free {
			patch.Email = &identity.Email
		}
	}

	if isBlank(c.PrimaryPhone) && identity.Phone != "" {
		free, err := unclaimed(c.ID, func() (Customer, error) { return r.store.FindByPhone(ctx, identity.Phone) })
		if err != nil {
			return Customer{}, err
		}
		if free {
			patch.Phone = &identity.Phone
		}
	}

	if isBlank(c.Name) && identity.Name != "" {
		patch.Name = &identity.Name
	}

	if patch.empty() {
		return c, nil
	}
	return r.store.Enrich(ctx, c.ID, patch)
}

// unclaimed reports whether no customer other than owner holds the value
// that find looks up.
func unclaimed(owner uuid.UUID, find func() (Customer, error)) (bool, error) {
	other, err := find()
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return other.ID == owner, nil
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}
