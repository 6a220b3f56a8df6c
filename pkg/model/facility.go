package model

import "time"

// CapacityPolicy limits how many bookings may hold overlapping windows
// on the same facility at once.
type CapacityPolicy struct {
	MaxConcurrent int `json:"max_concurrent" bson:"max_concurrent" validate:"required,min=1,max=200"`
}

// DefaultCapacityPolicy is applied to facilities created without an explicit limit.
var DefaultCapacityPolicy = CapacityPolicy{MaxConcurrent: 1}

type Facility struct {
	ID             string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	ClubID         string         `json:"club_id" bson:"club_id" validate:"required,min=1,max=64"`
	Name           string         `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Labels         []string       `json:"labels" bson:"labels" validate:"omitempty,dive,min=1,max=50"`
	ContactPhone   string         `json:"contact_phone" bson:"contact_phone" validate:"omitempty,e164"`
	CapacityPolicy CapacityPolicy `json:"capacity_policy" bson:"capacity_policy"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
}

type FacilityUpdate struct {
	Name          string   `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Labels        []string `json:"labels,omitempty" validate:"omitempty,dive,min=1,max=50"`
	ContactPhone  *string  `json:"contact_phone,omitempty" validate:"omitempty"`
	MaxConcurrent *int     `json:"max_concurrent,omitempty" validate:"omitempty,min=1,max=200"`
}
