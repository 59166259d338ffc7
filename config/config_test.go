package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/suwandre/pairdepth/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppPort != "3000" || cfg.Exchange != "dydx" {
		t.Errorf("unexpected port/exchange: %s %s", cfg.AppPort, cfg.Exchange)
	}
	if cfg.Samples != 12 || cfg.RetrySamples != 16 || cfg.Concurrency != 1 || cfg.RetryAttempts != 2 {
		t.Errorf("unexpected sampling defaults: %+v", cfg)
	}
	if cfg.SampleInterval != 400*time.Millisecond {
		t.Errorf("unexpected interval: %v", cfg.SampleInterval)
	}
	if cfg.MinVolumeUSD != 1000 || cfg.HTTPTimeout != 10*time.Second || cfg.RefreshInterval != 0 {
		t.Errorf("unexpected misc defaults: %+v", cfg)
	}
	if len(cfg.Bands) != 12 || !cfg.Bands[11].IsFull() || cfg.Bands[0].Key != models.KeyFromPct(0.08) {
		t.Errorf("unexpected default bands: %v", cfg.Bands)
	}
	if len(cfg.SlippageSizes) != 3 || cfg.SlippageSizes[2] != 1_000_000 {
		t.Errorf("unexpected default sizes: %v", cfg.SlippageSizes)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SAMPLES", "5")
	t.Setenv("SAMPLE_INTERVAL_MS", "100")
	t.Setenv("CONCURRENCY", "4")
	t.Setenv("SLIPPAGE_SIZES", "500, 2500")
	t.Setenv("REFRESH_INTERVAL", "90")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("EXCHANGE", "binance")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Samples != 5 || cfg.Concurrency != 4 || cfg.SampleInterval != 100*time.Millisecond {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.SlippageSizes) != 2 || cfg.SlippageSizes[1] != 2500 {
		t.Errorf("unexpected sizes: %v", cfg.SlippageSizes)
	}
	if cfg.RefreshInterval != 90*time.Second || cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("unexpected durations: %v %v", cfg.RefreshInterval, cfg.HTTPTimeout)
	}
	if cfg.Exchange != "binance" {
		t.Errorf("unexpected exchange: %s", cfg.Exchange)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"SAMPLES":        "0",
		"CONCURRENCY":    "many",
		"SLIPPAGE_SIZES": "100,-5",
		"HTTP_TIMEOUT":   "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", key, value)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "pairdepth.yml")
	content := `bands: ["0.1", "0.5", "2", "full"]
slippage_sizes: [1000, 50000]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Bands) != 4 || cfg.Bands[2].Key != models.KeyFromPct(2) || !cfg.Bands[3].IsFull() {
		t.Errorf("unexpected bands: %v", cfg.Bands)
	}
	if len(cfg.SlippageSizes) != 2 || cfg.SlippageSizes[0] != 1000 {
		t.Errorf("unexpected sizes: %v", cfg.SlippageSizes)
	}
}

func TestValidateBands(t *testing.T) {
	tests := []struct {
		name  string
		bands []models.BandSpec
		ok    bool
	}{
		{"default", DefaultBands(), true},
		{"empty", nil, false},
		{"only full", []models.BandSpec{models.FullBook()}, true},
		{"descending", []models.BandSpec{models.Band(0.2), models.Band(0.1)}, false},
		{"duplicate", []models.BandSpec{models.Band(0.1), models.Band(0.1)}, false},
		{"full not last", []models.BandSpec{models.FullBook(), models.Band(0.1)}, false},
		{"zero pct", []models.BandSpec{models.Band(0)}, false},
		{"same key", []models.BandSpec{models.Band(0.08), models.Band(0.081)}, false},
		{"two full", []models.BandSpec{models.Band(0.1), models.FullBook(), models.FullBook()}, false},
	}
	for _, tt := range tests {
		err := validateBands(tt.bands)
		if (err == nil) != tt.ok {
			t.Errorf("%s: got err=%v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestParseBands(t *testing.T) {
	bands, err := ParseBands([]string{"0.08", "1%", "FULL"})
	if err != nil {
		t.Fatalf("ParseBands: %v", err)
	}
	if bands[0].Key != 8 || bands[1].Key != 100 || !bands[2].IsFull() {
		t.Fatalf("unexpected bands: %v", bands)
	}
	if _, err := ParseBands([]string{"wide"}); err == nil {
		t.Fatal("expected an error for a non-numeric band")
	}
}

func TestParseSizes(t *testing.T) {
	sizes, err := ParseSizes("10000, 250000,,")
	if err != nil {
		t.Fatalf("ParseSizes: %v", err)
	}
	if len(sizes) != 2 || sizes[1] != 250000 {
		t.Fatalf("unexpected sizes: %v", sizes)
	}
	for _, bad := range []string{"", "abc", "0", "NaN"} {
		if _, err := ParseSizes(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestLoadRejectsCollidingBands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "pairdepth.yml")
	if err := os.WriteFile(path, []byte(`bands: ["0.08", "0.081", "full"]`+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected bands sharing a key to be rejected")
	}
}
