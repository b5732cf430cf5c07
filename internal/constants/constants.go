package constants

import "time"

const (
	// InitialRating is where every new player starts, per game and in
	// cross-game aggregation replays.
	InitialRating = 1200

	// DefaultKFactor applies to newly created games until overridden.
	// Locked per game once its ledger is non-empty.
	DefaultKFactor = 60

	// ScalingFactor is the Elo spread: a player rated this many points
	// above the opponent is expected to win ten times as often.
	ScalingFactor = 400
)

const (
	RegistryTimeout  = 10 * time.Second
	DatabaseTimeout  = 5 * time.Second
	RequestTimeout   = 30 * time.Second
	AggregateTimeout = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)
