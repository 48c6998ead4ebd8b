package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileRecord is the persisted profile row.
type ProfileRecord struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        string     `bun:"user_id,notnull,unique" json:"user_id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Credits       int        `bun:"credits,notnull" json:"credits"`
	Plan          Plan       `bun:"plan,notnull" json:"plan,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsurePlan normalizes records persisted before the plan column existed.
func (r *ProfileRecord) EnsurePlan() {
	if r.Plan == "" {
		r.Plan = PlanFree
	}
}

// Profile maps the persisted row onto the resolved application profile.
func (r *ProfileRecord) Profile() *UserProfile {
	if r == nil {
		return nil
	}
	r.EnsurePlan()
	return &UserProfile{
		UserID:  r.UserID,
		Email:   r.Email,
		Credits: r.Credits,
		Plan:    r.Plan,
		Stage:   StageResolved,
	}
}

// NewProfileRecord builds the row inserted for a first-time identity with the
// default entitlement.
func NewProfileRecord(identity Identity) *ProfileRecord {
	return &ProfileRecord{
		UserID:  identity.UserID,
		Email:   identity.Email,
		Credits: DefaultCredits,
		Plan:    PlanFree,
	}
}
