package constants

import "time"

const (
	AppName            = "habitsync"
	DefaultKeyringUser = "sync-credential"
	DefaultConfigPath  = "~/.config/habitsync/habitsync.db"
	DefaultServerAddr  = "127.0.0.1:8080"
	Version            = "v0.3.0"

	// DateFormat is the calendar date format used for completions and moods (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat is how timestamps are persisted as text in both stores.
	// Fixed-width fractions keep lexical order equal to time order.
	TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

	// Sync constants
	SyncBatchSize     = 100
	SyncHTTPTimeout   = 30 * time.Second
	SyncLockFileName  = "habitsync-sync.lock"
	SyncEndpoint      = "/api/sync"
	HabitsEndpoint    = "/api/habits"
	InsightsEndpoint  = "/api/insights/summary"
	CheckinsEndpoint  = "/api/checkins"
	MaxBatchOps       = 500
	MaxRequestBodyMiB = 4

	// Outbox retry defaults
	OutboxMaxAttempts     = 10
	OutboxInitialInterval = 30 * time.Second
	OutboxMaxInterval     = time.Hour
	OutboxMultiplier      = 2.0

	// Server defaults
	DefaultRateLimitPerSec = 10
	DefaultRateLimitBurst  = 20
	DefaultLogViewDays     = 14
	DefaultStatsDays       = 7

	// Environment variables
	EnvDatabase = "HABITSYNC_DB"
	EnvServer   = "HABITSYNC_SERVER"
	EnvToken    = "HABITSYNC_TOKEN"
)
