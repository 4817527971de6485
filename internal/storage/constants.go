package db

import (
	"time"

	"github.com/molchalih/inst2txt/internal/core/domain"
)

// Connection retry configuration.
const (
	// ConnectionRetrySleep is the duration to wait between connection retries.
	ConnectionRetrySleep = 2 * time.Second

	maxConnectionRetries = 10
)

// Default pool configuration.
const (
	defaultMaxConns          = int32(25)
	defaultMinConns          = int32(5)
	defaultMaxConnIdleTime   = 30 * time.Minute
	defaultMaxConnLifetime   = time.Hour
	defaultHealthCheckPeriod = time.Minute
)

// Reel embedding status values stored in the reels.status column.
const (
	ReelStatusPending  = domain.ReelStatusPending
	ReelStatusEmbedded = domain.ReelStatusEmbedded
	ReelStatusFailed   = domain.ReelStatusFailed
)

// Analysis epoch status values stored in the analysis_epochs.status column.
const (
	EpochStatusRunning   = domain.EpochStatusRunning
	EpochStatusCompleted = domain.EpochStatusCompleted
	EpochStatusFailed    = domain.EpochStatusFailed
)
