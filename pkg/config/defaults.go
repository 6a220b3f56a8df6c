package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "courtbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100

	// One booking per overlapping window unless the facility says otherwise.
	DefaultDefaultMaxConcurrent = 1

	// A daily series spanning a leap year; anything longer is rejected
	// before expansion to guard against runaway until dates.
	DefaultMaxSeriesOccurrences = 366

	DefaultSlotLockTTL         = 10 * time.Second
	DefaultSlotConflictRetries = 3
	DefaultSlotConflictBackoff = 50 * time.Millisecond

	DefaultBookingEventsTopic    = "booking-events"
	DefaultBookingEventsDLQTopic = "booking-events-dlq"
	DefaultBookingEventsEnabled  = false
)
