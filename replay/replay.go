// Package replay records the per-tick intents of a run and plays them back.
// Since a Simulation is deterministic, the intents and the stage are all it
// takes to reproduce a run; recorded digests let a playback prove it.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/milk9111/danmaku/sim"
)

// Version is the file format version written by Encode.
const Version = 1

var (
	ErrVersion  = errors.New("replay: unsupported version")
	ErrDiverged = errors.New("replay: digest mismatch")
)

type Header struct {
	ID       string    `msgpack:"id"`
	Version  int       `msgpack:"v"`
	Stage    string    `msgpack:"stage"`
	TickRate int       `msgpack:"rate"`
	Created  time.Time `msgpack:"created"`
}

// Replay is one recorded run. Digests, when present, holds the snapshot
// digest after each tick and has the same length as Intents.
type Replay struct {
	Header  Header       `msgpack:"header"`
	Intents []sim.Intent `msgpack:"intents"`
	Digests []uint64     `msgpack:"digests,omitempty"`
}

func (r *Replay) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Intents)
}

// Recorder accumulates a Replay tick by tick.
type Recorder struct {
	rep Replay
}

func NewRecorder(stage string, tickRate int) *Recorder {
	return &Recorder{rep: Replay{Header: Header{
		ID:       uuid.NewString(),
		Version:  Version,
		Stage:    stage,
		TickRate: tickRate,
		Created:  time.Now().UTC(),
	}}}
}

// Record appends the intent applied on one tick and the digest observed
// after it.
func (r *Recorder) Record(in sim.Intent, digest uint64) {
	if r == nil {
		return
	}
	r.rep.Intents = append(r.rep.Intents, in)
	r.rep.Digests = append(r.rep.Digests, digest)
}

func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	return r.rep.Len()
}

// Replay returns a copy of what has been recorded so far.
func (r *Recorder) Replay() *Replay {
	if r == nil {
		return nil
	}
	out := r.rep
	out.Intents = append([]sim.Intent(nil), r.rep.Intents...)
	out.Digests = append([]uint64(nil), r.rep.Digests...)
	return &out
}

// Encode writes r as zstd-compressed msgpack.
func Encode(w io.Writer, r *Replay) error {
	if r == nil {
		return errors.New("replay: nil replay")
	}
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("replay: marshal: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("replay: compressor: %w", err)
	}
	defer enc.Close()

	if _, err := w.Write(enc.EncodeAll(data, nil)); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	return nil
}

func Decode(rd io.Reader) (*Replay, error) {
	payload, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("replay: read: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("replay: decompressor: %w", err)
	}
	defer dec.Close()

	data, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("replay: decompress: %w", err)
	}
	var r Replay
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("replay: unmarshal: %w", err)
	}
	if r.Header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, r.Header.Version)
	}
	if len(r.Digests) != 0 && len(r.Digests) != len(r.Intents) {
		return nil, fmt.Errorf("replay: %d digests for %d intents", len(r.Digests), len(r.Intents))
	}
	return &r, nil
}

func Save(path string, r *Replay) error {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("replay: save %s: %w", path, err)
	}
	return nil
}

func Load(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: load %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
