package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
)

// FeatureFlags manages feature toggles for optional parts of the service.
// Flags are read once at startup. Wiring-time checks use Enabled; request-time
// checks pass the caller to IsEnabled so a partial rollout buckets by username.
type FeatureFlags struct {
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their username
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	Username string
}

// Predefined feature flag names. The environment key is FEATURE_ followed by
// the upper-cased name with dots replaced by underscores.
const (
	FeatureLeaderboardCache = "leaderboard.cache" // Redis cache for top-rated pages
	FeatureXLSXExport       = "xlsx.export"       // /top-rated/export.xlsx
	FeatureSlackArchive     = "slack.archive"     // worker archive command
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Cache top-rated pages in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureXLSXExport] = &Feature{
		Name:           FeatureXLSXExport,
		Description:    "Allow admins to download the ranking as xlsx",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureSlackArchive] = &Feature{
		Name:           FeatureSlackArchive,
		Description:    "Rename and archive project channels after an event",
		Enabled:        false, // needs a bot token with channels:manage
		RolloutPercent: 0,
	}
}

// loadFromEnvironment applies FEATURE_* overrides. A value is either a
// bool or a rollout percentage.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		val := os.Getenv(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}
		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks whether a feature is on, optionally for a specific user.
// Without a username a partial rollout counts as on.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.Username != "" {
		return isInRollout(ctx.Username, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// Enabled is IsEnabled without a user context, for wiring-time checks.
func (ff *FeatureFlags) Enabled(featureName string) bool {
	return ff.IsEnabled(featureName, nil)
}

// isInRollout buckets a user deterministically.
func isInRollout(username, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(username))
	return int(h.Sum32()%100) < percent
}
