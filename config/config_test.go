package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/ecs/component"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 1, cfg.Capacity.For(component.CategoryPlayer))
	assert.Equal(t, 1+128+256+2048+256+64, cfg.Capacity.Total())
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacity:\n  enemy_bullet: 16\nstrict: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 16, cfg.Capacity.EnemyBullet)
	assert.Equal(t, 128, cfg.Capacity.Enemy, "unset fields keep defaults")
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("DANMAKU_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"negative width", func(c *Config) { c.Playfield.Width = -1 }},
		{"negative margin", func(c *Config) { c.Playfield.CullMargin = -1 }},
		{"zero capacity", func(c *Config) { c.Capacity.Effect = 0 }},
		{"zero cell", func(c *Config) { c.Collision.CellSize = 0 }},
		{"zero steps", func(c *Config) { c.Script.MaxStepsPerFrame = 0 }},
		{"player outside", func(c *Config) { c.Player.StartX = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
