package domain

import "time"

// Creator represents a tracked social-media creator.
type Creator struct {
	ID             int64
	Username       string
	FollowerCount  int64
	FollowingCount int64
	ReelCount      int
	CreatedAt      time.Time
}

// Reel represents a single post belonging to exactly one creator.
// The embedding is produced by the upstream semantic model and is expected to
// be unit-norm; that precondition is documented, not enforced.
type Reel struct {
	ID          string
	CreatorID   int64
	Shortcode   string
	Description string
	Embedding   []float32
	Status      string
	CreatedAt   time.Time
}

// FollowEdge is an ordered (follower, followed) pair from the raw social graph.
type FollowEdge struct {
	FollowerID int64
	FollowedID int64
}

// ClusterAssignment maps a creator to its cluster label and soft-membership
// confidence. Confidence is derived, never independently mutated, and is
// meaningful only when ClusterID is not the noise label.
type ClusterAssignment struct {
	CreatorID  int64
	ClusterID  int
	Confidence float64
}

// CreatorRecord is the per-creator result of one analysis run: cluster label,
// confidence, reduced coordinates and the profile vector they were derived
// from, versioned together under one epoch.
type CreatorRecord struct {
	CreatorID  int64
	ClusterID  int
	Confidence float64
	Coords     []float64
	Profile    []float32
	SampleSize int
}

// HomophilyResult is one hypothesis-test record: test name, statistic
// (observed same-cluster rate for the permutation test, correlation
// coefficient for the rank tests), p-value and sample size. NullMean is the
// mean of the permutation null distribution and is zero for rank tests.
type HomophilyResult struct {
	Hypothesis string
	Statistic  float64
	PValue     float64
	NullMean   float64
	SampleSize int
}

// AnalysisEpoch versions one full pipeline run. All derived creator fields and
// homophily results are recomputed wholesale and stored under one epoch.
type AnalysisEpoch struct {
	ID           string
	Status       string
	Seed         int64
	CreatorCount int
	ClusterCount int
	NoiseCount   int
	EdgeCount    int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NoiseClusterID is the reserved label for creators in low-density regions
// that were not assigned to any cluster.
const NoiseClusterID = -1

// Reel embedding status constants.
const (
	ReelStatusPending  = "pending"
	ReelStatusEmbedded = "embedded"
	ReelStatusFailed   = "failed"
)

// Analysis epoch status constants.
const (
	EpochStatusRunning   = "running"
	EpochStatusCompleted = "completed"
	EpochStatusFailed    = "failed"
)

// Hypothesis name constants.
const (
	HypothesisSameClusterEdges = "h1_same_cluster_edges"
	HypothesisCentroidDistance = "h2_centroid_distance"
	HypothesisBridgeConfidence = "h3_bridge_confidence"
)

// Acquisition thresholds applied when seeding creators. Creators following
// more than MaxFollowingForSeed accounts or with fewer than
// MinFollowersForSeed followers are skipped as low-signal profiles.
const (
	MaxFollowingForSeed = 800
	MinFollowersForSeed = 10000
)
