package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.Spawned("enemy")
	c.Spawned("enemy")
	c.Dropped("enemy_bullet")
	c.Retired("enemy", "killed")
	c.SetActive("enemy", 1)
	c.Tick()
	c.Collision("player_bullet/enemy")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.spawns.WithLabelValues("enemy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("enemy_bullet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retired.WithLabelValues("enemy", "killed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.active.WithLabelValues("enemy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticks))

	n, err := testutil.GatherAndCount(reg, "danmaku_spawns_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Spawned("enemy")
		c.Dropped("enemy")
		c.Retired("enemy", "ttl")
		c.SetActive("enemy", 3)
		c.Tick()
		c.Collision("x")
	})
}
