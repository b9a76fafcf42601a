// Package settings maintains access to the chain settings file.
package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Settings represents the chain settings file. The threshold and fork
// height are configuration rather than compile time constants so the
// difficulty and fork point can be tuned per deployment and per test.
type Settings struct {
	ThresholdDivisor uint64 `json:"threshold_divisor"` // Fraction of the hash space accepted as valid work. 100 means 1 in 100 hashes.
	ForkHeight       uint64 `json:"fork_height"`       // Height after which the political rules apply.
	MiningAttempts   uint64 `json:"mining_attempts"`   // Attempt budget for a single seal operation. Zero means unbounded.
	MiningWorkers    int    `json:"mining_workers"`    // Number of concurrent mining goroutines.
}

// Threshold returns the maximum hash value accepted as valid proof
// of work.
func (s Settings) Threshold() uint64 {
	return math.MaxUint64 / s.ThresholdDivisor
}

// =============================================================================

// Default returns the reference settings: roughly 1 in 100 candidate
// digests succeed and the fork happens after height 2.
func Default() Settings {
	return Settings{
		ThresholdDivisor: 100,
		ForkHeight:       2,
		MiningAttempts:   0,
		MiningWorkers:    1,
	}
}

// Load opens and consumes the chain settings file.
func Load() (Settings, error) {
	path := "zblock/settings.json"
	return LoadFromFile(path)
}

// LoadFromFile opens and consumes the settings file at the
// specified path.
func LoadFromFile(path string) (Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var settings Settings
	if err := json.Unmarshal(content, &settings); err != nil {
		return Settings{}, err
	}

	if settings.ThresholdDivisor == 0 {
		return Settings{}, fmt.Errorf("settings file %s: threshold divisor must be greater than zero", path)
	}

	return settings, nil
}
