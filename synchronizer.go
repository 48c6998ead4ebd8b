package session

import (
	"context"

	"github.com/goliatone/go-errors"
)

// DefaultCredits is the entitlement granted to newly provisioned profiles.
var DefaultCredits = 3

// Identity is the provider-confirmed identity the Synchronizer reconciles.
type Identity struct {
	UserID string
	Email  string
}

// Synchronizer ensures a profile record exists for a provider identity and
// returns the application-level profile. Reconcile never fails; store errors
// degrade to a profile the caller can still render.
type Synchronizer struct {
	store  ProfileStore
	logger Logger
}

// NewSynchronizer will create a new Synchronizer
func NewSynchronizer(store ProfileStore) *Synchronizer {
	return &Synchronizer{
		store:  store,
		logger: defLogger{},
	}
}

func (s *Synchronizer) WithLogger(l Logger) *Synchronizer {
	if l != nil {
		s.logger = l
	}
	return s
}

// Reconcile looks up the profile row for the identity, provisioning one with
// default entitlements when absent. Lookup or insert failures come back as a
// degraded profile with SyncError set, never as an error.
func (s *Synchronizer) Reconcile(ctx context.Context, identity Identity) *UserProfile {
	record, err := s.store.GetByUserID(ctx, identity.UserID)
	if err == nil && record != nil {
		return record.Profile()
	}

	if err != nil && !errors.IsNotFound(err) {
		s.logger.Error("profile lookup for %s failed: %v", identity.UserID, err)
		return DegradedProfile(identity.UserID, identity.Email)
	}

	created, err := s.store.Insert(ctx, NewProfileRecord(identity))
	if err == nil {
		return created.Profile()
	}

	// A concurrent reconcile may have provisioned the row between our lookup
	// and insert. Re-read once before degrading.
	if record, lookupErr := s.store.GetByUserID(ctx, identity.UserID); lookupErr == nil && record != nil {
		return record.Profile()
	}

	s.logger.Error("profile provisioning for %s failed: %v", identity.UserID, err)
	return DegradedProfile(identity.UserID, identity.Email)
}
