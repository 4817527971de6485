// Package main provides the dataset seeder.
//
// The seed tool loads a JSON dataset of creators, their reels and following
// lists into Postgres, applying the acquisition thresholds before insert.
// Reels enter in the pending state, ready for the embed mode.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/core/domain"
	db "github.com/molchalih/inst2txt/internal/storage"
)

const errFmt = "%v\n"

var (
	errDSNRequired   = errors.New("POSTGRES_DSN is required (or provide -dsn)")
	errInputRequired = errors.New("input path is required")
)

type seedConfig struct {
	inputPath        string
	dsn              string
	ignoreThresholds bool
}

type seedCreator struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	FollowerCount  int64      `json:"follower_count"`
	FollowingCount int64      `json:"following_count"`
	Following      []int64    `json:"following"`
	Reels          []seedReel `json:"reels"`
}

type seedReel struct {
	Shortcode   string `json:"shortcode"`
	Description string `json:"description"`
}

type seedStats struct {
	creators int
	skipped  int
	reels    int
	edges    int
}

func main() {
	cfg := parseFlags()

	if err := validateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}

	if err := runSeed(cfg); err != nil {
		fmt.Fprintf(os.Stderr, errFmt, err)
		os.Exit(1)
	}
}

func parseFlags() seedConfig {
	cfg := seedConfig{}

	flag.StringVar(&cfg.inputPath, "input", "", "Path to JSON dataset")
	flag.StringVar(&cfg.dsn, "dsn", os.Getenv("POSTGRES_DSN"), "Postgres DSN")
	flag.BoolVar(&cfg.ignoreThresholds, "ignore-thresholds", false, "Seed creators below the acquisition thresholds too")

	flag.Parse()

	return cfg
}

func validateConfig(cfg seedConfig) error {
	if cfg.dsn == "" {
		return errDSNRequired
	}

	if cfg.inputPath == "" {
		return errInputRequired
	}

	return nil
}

func runSeed(cfg seedConfig) error {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	creators, err := loadCreators(cfg.inputPath)
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.dsn, &logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	stats := seedStats{}

	for _, creator := range creators {
		if !cfg.ignoreThresholds && belowThresholds(creator) {
			stats.skipped++
			continue
		}

		if err := seedOne(ctx, database, creator, &stats); err != nil {
			return err
		}
	}

	logger.Info().
		Int("creators", stats.creators).
		Int("skipped", stats.skipped).
		Int("reels", stats.reels).
		Int("edges", stats.edges).
		Str("path", cfg.inputPath).
		Msg("Seed completed")

	return nil
}

func loadCreators(path string) ([]seedCreator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}

	var creators []seedCreator
	if err := json.Unmarshal(data, &creators); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	return creators, nil
}

// belowThresholds reports whether a creator is a low-signal profile: too many
// followed accounts or too few followers.
func belowThresholds(creator seedCreator) bool {
	return creator.FollowingCount > domain.MaxFollowingForSeed ||
		creator.FollowerCount < domain.MinFollowersForSeed
}

func seedOne(ctx context.Context, database *db.DB, creator seedCreator, stats *seedStats) error {
	err := database.UpsertCreator(ctx, domain.Creator{
		ID:             creator.ID,
		Username:       creator.Username,
		FollowerCount:  creator.FollowerCount,
		FollowingCount: creator.FollowingCount,
		ReelCount:      len(creator.Reels),
	})
	if err != nil {
		return fmt.Errorf("failed to seed creator %d: %w", creator.ID, err)
	}

	stats.creators++

	for _, reel := range creator.Reels {
		if _, err := database.InsertReel(ctx, domain.Reel{
			CreatorID:   creator.ID,
			Shortcode:   reel.Shortcode,
			Description: reel.Description,
		}); err != nil {
			return fmt.Errorf("failed to seed reel %s: %w", reel.Shortcode, err)
		}

		stats.reels++
	}

	for _, followed := range creator.Following {
		if err := database.InsertFollowEdge(ctx, domain.FollowEdge{
			FollowerID: creator.ID,
			FollowedID: followed,
		}); err != nil {
			return fmt.Errorf("failed to seed follow edge %d->%d: %w", creator.ID, followed, err)
		}

		stats.edges++
	}

	return nil
}
