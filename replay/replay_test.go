package replay

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/danmaku/prefabs"
	"github.com/milk9111/danmaku/sim"
)

func intentAt(tick int) sim.Intent {
	return sim.Intent{
		MoveX: float64(tick%3) - 1,
		MoveY: -0.5,
		Fire:  tick%2 == 0,
		Focus: tick%50 > 40,
	}
}

func record(t *testing.T, ticks int) *Replay {
	t.Helper()
	st, err := prefabs.BuildStage("stage1")
	require.NoError(t, err)
	s, err := sim.New(st, sim.Options{})
	require.NoError(t, err)

	rec := NewRecorder(st.Name, 60)
	for tick := range ticks {
		in := intentAt(tick)
		s.Tick(in)
		rec.Record(in, s.Digest())
	}
	return rec.Replay()
}

func newStageSim(t *testing.T) *sim.Simulation {
	t.Helper()
	st, err := prefabs.BuildStage("stage1")
	require.NoError(t, err)
	s, err := sim.New(st, sim.Options{})
	require.NoError(t, err)
	return s
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder("stage1", 60)
	rec.Record(sim.Intent{Fire: true}, 1)
	rec.Record(sim.Intent{MoveX: 1}, 2)

	rep := rec.Replay()
	assert.Equal(t, 2, rep.Len())
	assert.Equal(t, Version, rep.Header.Version)
	assert.Equal(t, "stage1", rep.Header.Stage)
	_, err := uuid.Parse(rep.Header.ID)
	assert.NoError(t, err)

	rec.Record(sim.Intent{}, 3)
	assert.Equal(t, 2, rep.Len(), "Replay returns a copy")
	assert.Equal(t, 3, rec.Len())
}

func TestEncodeDecode(t *testing.T) {
	rep := record(t, 120)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rep))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rep.Header.ID, got.Header.ID)
	assert.Equal(t, rep.Header.Stage, got.Header.Stage)
	assert.True(t, rep.Header.Created.Equal(got.Header.Created))
	assert.Equal(t, rep.Intents, got.Intents)
	assert.Equal(t, rep.Digests, got.Digests)
}

func TestDecodeRejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := Decode(bytes.NewReader([]byte("not a replay")))
		assert.Error(t, err)
	})
	t.Run("version", func(t *testing.T) {
		rep := &Replay{Header: Header{Version: Version + 1}}
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, rep))
		_, err := Decode(&buf)
		assert.ErrorIs(t, err, ErrVersion)
	})
	t.Run("digest count", func(t *testing.T) {
		rep := &Replay{Header: Header{Version: Version}, Intents: make([]sim.Intent, 2), Digests: []uint64{1}}
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, rep))
		_, err := Decode(&buf)
		assert.Error(t, err)
	})
}

func TestSaveLoad(t *testing.T) {
	rep := record(t, 30)
	path := filepath.Join(t.TempDir(), "run.dmk")
	require.NoError(t, Save(path, rep))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rep.Intents, got.Intents)

	_, err = Load(filepath.Join(t.TempDir(), "missing.dmk"))
	assert.Error(t, err)
}

func TestPlayer(t *testing.T) {
	rep := &Replay{Intents: []sim.Intent{{Fire: true}, {MoveX: 1}}}
	p := NewPlayer(rep)

	in, ok := p.Next()
	require.True(t, ok)
	assert.True(t, in.Fire)
	in, ok = p.Next()
	require.True(t, ok)
	assert.Equal(t, 1.0, in.MoveX)
	assert.True(t, p.Done())
	assert.Equal(t, 2, p.Tick())

	in, ok = p.Next()
	assert.False(t, ok)
	assert.Equal(t, sim.Intent{}, in)

	p.Rewind()
	assert.False(t, p.Done())
}

func TestRunReproducesRecording(t *testing.T) {
	rep := record(t, 400)

	var ticks int
	err := Run(newStageSim(t), rep, func(tick int, digest uint64) {
		assert.Equal(t, rep.Digests[tick], digest)
		ticks++
	})
	require.NoError(t, err)
	assert.Equal(t, 400, ticks)
}

func TestRunDetectsDivergence(t *testing.T) {
	rep := record(t, 50)
	rep.Intents[20].MoveX = -rep.Intents[20].MoveX + 0.25

	err := Run(newStageSim(t), rep, nil)
	require.ErrorIs(t, err, ErrDiverged)
	assert.Contains(t, err.Error(), "tick 20")
}
