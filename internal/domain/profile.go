package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the 1:1 extension of a User holding role-specific data.
// A single role-tagged document replaces the trainer/member table split:
// the Role field mirrors the owning user's role, and AssignedTrainerID is
// only ever set on member profiles.
//
// The profile row is created in the same transaction as its user, with all
// physical fields unset. Deleting the user cascades to the profile.
type Profile struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Role   Role               `bson:"role" json:"role"`

	// Member-specific: the trainer this member is assigned to, if any.
	AssignedTrainerID *primitive.ObjectID `bson:"assignedTrainerId,omitempty" json:"assignedTrainerId,omitempty"`

	// Physical attributes, all optional until the user fills in their profile.
	Age           *int     `bson:"age,omitempty" json:"age,omitempty"`
	HeightCm      *float64 `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	WeightKg      *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	BodyFatPct    *float64 `bson:"bodyFatPct,omitempty" json:"bodyFatPct,omitempty"`
	MuscleMassKg  *float64 `bson:"muscleMassKg,omitempty" json:"muscleMassKg,omitempty"`
	ImageKey      string   `bson:"imageKey,omitempty" json:"-"` // S3 object key, internal use
	ProfileFilled bool     `bson:"profileFilled" json:"profileFilled"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsAssigned reports whether a member profile currently has a trainer.
func (p *Profile) IsAssigned() bool {
	return p.AssignedTrainerID != nil && *p.AssignedTrainerID != primitive.NilObjectID
}

// Complete reports whether every physical attribute has been provided.
// The stored ProfileFilled flag is refreshed from this on every update.
func (p *Profile) Complete() bool {
	return p.Age != nil && p.HeightCm != nil && p.WeightKg != nil &&
		p.BodyFatPct != nil && p.MuscleMassKg != nil
}
