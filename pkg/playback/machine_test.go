package playback

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geovideo/pkg/errors"
)

type fakeDecoder struct {
	mu      sync.Mutex
	seeks   int
	resumes int
	seekErr error
}

func (d *fakeDecoder) SeekToStart() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks++
	return d.seekErr
}

func (d *fakeDecoder) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumes++
	return nil
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "Playing", StatePlaying.String())
	assert.Equal(t, "EndedHolding", StateEndedHolding.String())
	assert.Equal(t, "Restarting", StateRestarting.String())
	assert.Equal(t, "Unknown", State(42).String())
}

func TestNewMachineDefaults(t *testing.T) {
	m := NewMachine("l")
	assert.Equal(t, StateIdle, m.State())
	assert.True(t, m.Loop())
	assert.False(t, m.AcceptFrame(), "idle rejects frames")
	assert.False(t, m.Active())
}

func TestAttachAndDetach(t *testing.T) {
	m := NewMachine("l")
	var transitions [][2]State
	m.OnStateChanged = func(from, to State) {
		transitions = append(transitions, [2]State{from, to})
	}

	d := &fakeDecoder{}
	m.SetDecoder(d)
	assert.Equal(t, StatePlaying, m.State())
	assert.Same(t, d, m.Decoder())
	assert.True(t, m.AcceptFrame())

	m.SetDecoder(nil)
	assert.Equal(t, StateIdle, m.State())
	assert.Nil(t, m.Decoder())

	assert.Equal(t, [][2]State{
		{StateIdle, StatePlaying},
		{StatePlaying, StateIdle},
	}, transitions)
}

func TestLoopRestart(t *testing.T) {
	m := NewMachine("l")
	d := &fakeDecoder{}
	m.SetDecoder(d)

	m.EndOfStream()
	assert.Equal(t, StateRestarting, m.State())
	assert.Equal(t, 1, d.seeks)
	assert.Equal(t, 1, d.resumes)
	assert.Equal(t, int64(1), m.Restarts())
	assert.True(t, m.Active())

	// A duplicate end signal while restarting is ignored.
	m.EndOfStream()
	assert.Equal(t, 1, d.seeks)

	assert.True(t, m.AcceptFrame())
	assert.Equal(t, StatePlaying, m.State())
}

func TestNoLoopHolds(t *testing.T) {
	m := NewMachine("l")
	m.SetLoop(false)
	d := &fakeDecoder{}
	m.SetDecoder(d)

	m.EndOfStream()
	assert.Equal(t, StateEndedHolding, m.State())
	assert.Zero(t, d.seeks)
	assert.False(t, m.AcceptFrame())
	assert.False(t, m.Active())

	// Re-enabling the loop does not retroactively restart.
	m.SetLoop(true)
	assert.Equal(t, StateEndedHolding, m.State())
	m.EndOfStream()
	assert.Equal(t, StateEndedHolding, m.State())
}

func TestLoopFlagReadAtEndOfStream(t *testing.T) {
	m := NewMachine("l")
	m.SetDecoder(&fakeDecoder{})
	m.SetLoop(false)
	m.SetLoop(true)
	m.EndOfStream()
	assert.Equal(t, StateRestarting, m.State())

	m.AcceptFrame()
	m.SetLoop(false)
	m.EndOfStream()
	assert.Equal(t, StateEndedHolding, m.State())
}

func TestFailedSeekFallsBackToHolding(t *testing.T) {
	rec := errors.SetupRecorder(t.Cleanup)
	m := NewMachine("l")
	d := &fakeDecoder{seekErr: fmt.Errorf("not seekable")}
	m.SetDecoder(d)

	m.EndOfStream()
	assert.Equal(t, StateEndedHolding, m.State())
	assert.Zero(t, d.resumes)
	require.Len(t, rec.Errors(), 1)
	assert.Equal(t, errors.KindPlayback, rec.Errors()[0].Kind)
}

func TestSourceRemovalFromAnyState(t *testing.T) {
	for _, loop := range []bool{true, false} {
		m := NewMachine("l")
		m.SetLoop(loop)
		m.SetDecoder(&fakeDecoder{})
		m.EndOfStream()
		m.SetDecoder(nil)
		assert.Equal(t, StateIdle, m.State(), "loop=%v", loop)
		assert.False(t, m.AcceptFrame())
	}
}

func TestConcurrentSignals(t *testing.T) {
	m := NewMachine("l")
	m.SetDecoder(&fakeDecoder{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.EndOfStream()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.AcceptFrame()
			}
		}()
	}
	wg.Wait()
	s := m.State()
	assert.True(t, s == StatePlaying || s == StateRestarting, "state %v", s)
}
