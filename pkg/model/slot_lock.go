package model

import "time"

// SlotLock is an advisory lock document serializing check-and-insert for one
// (facility, start time) slot. The _id is derived from the slot coordinates so
// a duplicate key error signals a concurrent booking attempt; a TTL index on
// expires_at reclaims locks abandoned by crashed requests.
type SlotLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
