package session

// Plan is the user's entitlement tier.
type Plan = string

const (
	// PlanFree is the default tier for newly provisioned profiles.
	PlanFree Plan = "free"
	// PlanPro is the paid tier.
	PlanPro Plan = "pro"
)

// ProfileStage distinguishes the optimistic shell published on session
// detection from the record reconciled against the profile store, so
// consumers cannot mistake provisional data for resolved data.
type ProfileStage string

const (
	StageProvisional ProfileStage = "provisional"
	StageResolved    ProfileStage = "resolved"
)

// UserProfile is the application-specific record associated with an identity.
// A non-nil profile always carries the UserID of the currently held Session.
type UserProfile struct {
	UserID    string       `json:"user_id,omitempty"`
	Email     string       `json:"email,omitempty"`
	Credits   int          `json:"credits"`
	Plan      Plan         `json:"plan,omitempty"`
	SyncError bool         `json:"sync_error,omitempty"`
	Stage     ProfileStage `json:"stage,omitempty"`
}

// Resolved reports whether the profile has been reconciled against the store.
func (p *UserProfile) Resolved() bool {
	return p != nil && p.Stage == StageResolved
}

// IsPro checks the plan directly. Entitlement decisions must never be
// inferred from the credit balance.
func (p *UserProfile) IsPro() bool {
	return p != nil && p.Plan == PlanPro
}

// Clone returns a copy so published snapshots cannot be mutated by consumers.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	dup := *p
	return &dup
}

// ProvisionalProfile builds the optimistic shell published immediately on
// session detection, before the Synchronizer resolves the real record.
func ProvisionalProfile(s *Session) *UserProfile {
	if s == nil {
		return nil
	}
	return &UserProfile{
		UserID: s.UserID,
		Email:  s.Email,
		Plan:   PlanFree,
		Stage:  StageProvisional,
	}
}

// DegradedProfile is what the Synchronizer falls back to when the store is
// unreachable. The session stays valid; callers may render a non-blocking
// notice off SyncError.
func DegradedProfile(userID, email string) *UserProfile {
	return &UserProfile{
		UserID:    userID,
		Email:     email,
		Plan:      PlanFree,
		SyncError: true,
		Stage:     StageResolved,
	}
}
