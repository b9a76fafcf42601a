package settings_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/forkchain/foundation/chain/settings"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_LoadFromFile(t *testing.T) {
	t.Log("Given the need to load the chain settings file.")
	{
		doc := `{"threshold_divisor": 200, "fork_height": 4, "mining_attempts": 5000, "mining_workers": 3}`

		path := filepath.Join(t.TempDir(), "settings.json")
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatalf("\t%s\tShould be able to write the settings file: %v", failed, err)
		}

		stg, err := settings.LoadFromFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the settings file: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the settings file.", success)

		if stg.ForkHeight != 4 || stg.MiningAttempts != 5000 || stg.MiningWorkers != 3 {
			t.Fatalf("\t%s\tShould carry the configured values: got %+v", failed, stg)
		}
		t.Logf("\t%s\tShould carry the configured values.", success)

		if got := stg.Threshold(); got != math.MaxUint64/200 {
			t.Fatalf("\t%s\tShould derive the threshold from the divisor: got %d", failed, got)
		}
		t.Logf("\t%s\tShould derive the threshold from the divisor.", success)
	}
}

func Test_LoadRejectsZeroDivisor(t *testing.T) {
	t.Log("Given the need to reject a settings file with no difficulty.")
	{
		path := filepath.Join(t.TempDir(), "settings.json")
		if err := os.WriteFile(path, []byte(`{"fork_height": 2}`), 0644); err != nil {
			t.Fatalf("\t%s\tShould be able to write the settings file: %v", failed, err)
		}

		if _, err := settings.LoadFromFile(path); err == nil {
			t.Fatalf("\t%s\tShould reject a zero threshold divisor.", failed)
		}
		t.Logf("\t%s\tShould reject a zero threshold divisor.", success)
	}
}
