package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MET value bounds for catalog entries, and the placeholder assigned when an
// exercise is first auto-created from a logged set.
const (
	MinMETValue     = 1.0
	MaxMETValue     = 20.0
	DefaultMETValue = 3.5
)

// Exercise is a catalog entry used to classify workout sets.
// (Name, BodyPart, Equipment) is the structural key: sets logged against an
// unknown combination auto-create a new entry with the default MET value.
type Exercise struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"exerciseName" json:"exercise_name"`
	BodyPart        string             `bson:"bodyPart" json:"body_part"`
	Equipment       string             `bson:"equipment" json:"equipment"`
	MeasurementUnit string             `bson:"measurementUnit,omitempty" json:"measurement_unit,omitempty"`
	METValue        float64            `bson:"metValue" json:"met_value"`
	Active          bool               `bson:"active" json:"active"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// EstimateCalories applies the MET formula for offline/import calculations:
// calories ~= MET x body weight (kg) x hours. The live logging path never
// uses this; calories there are caller-supplied per set.
func (e *Exercise) EstimateCalories(bodyWeightKg float64, duration time.Duration) int {
	return int(e.METValue * bodyWeightKg * duration.Hours())
}
