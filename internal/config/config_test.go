package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ScoringConfig
		wantErr bool
	}{
		{
			name: "default weights",
			cfg: ScoringConfig{
				Weights:            WeightConfig{Local: 0.40, Authority: 0.20, Performance: 0.40},
				AssumedPerformance: 70,
			},
		},
		{
			name: "weights with traffic enabled",
			cfg: ScoringConfig{
				Weights:            WeightConfig{Local: 0.35, Authority: 0.15, Performance: 0.35, Traffic: 0.15},
				AssumedPerformance: 70,
			},
		},
		{
			name: "weights below one",
			cfg: ScoringConfig{
				Weights:            WeightConfig{Local: 0.40, Authority: 0.20, Performance: 0.20},
				AssumedPerformance: 70,
			},
			wantErr: true,
		},
		{
			name: "weights above one",
			cfg: ScoringConfig{
				Weights:            WeightConfig{Local: 0.50, Authority: 0.30, Performance: 0.40},
				AssumedPerformance: 70,
			},
			wantErr: true,
		},
		{
			name: "assumed performance out of range",
			cfg: ScoringConfig{
				Weights:            WeightConfig{Local: 0.40, Authority: 0.20, Performance: 0.40},
				AssumedPerformance: 130,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Imbue Salon & Spa", cfg.Subject.Name)
	assert.Equal(t, "imbuesalon.com", cfg.Subject.Domain)
	assert.Contains(t, cfg.Subject.Substrings, "imbue")
	assert.Contains(t, cfg.Subject.Substrings, "lmbue")
	assert.Contains(t, cfg.Competitors, "Bond Street Salon")

	assert.Equal(t, 0.40, cfg.Scoring.Weights.Local)
	assert.Equal(t, 0.20, cfg.Scoring.Weights.Authority)
	assert.Equal(t, 0.40, cfg.Scoring.Weights.Performance)
	assert.Equal(t, 0.0, cfg.Scoring.Weights.Traffic)
	assert.Equal(t, 70.0, cfg.Scoring.AssumedPerformance)

	assert.Equal(t, 900, cfg.Cache.TTLSeconds)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, 12, cfg.Metrics.AdapterTimeoutSecs)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
