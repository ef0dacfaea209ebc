package playback

// State is the playback state of a layer's video source.
type State int

const (
	// StateIdle indicates no source is attached. Frames are rejected.
	StateIdle State = iota

	// StatePlaying indicates the source is delivering frames.
	StatePlaying

	// StateEndedHolding indicates the source ended with looping disabled.
	// The last frame stays on screen and further frames are rejected.
	StateEndedHolding

	// StateRestarting indicates the source ended with looping enabled and a
	// seek to the start was requested. The first frame that arrives moves
	// the machine back to StatePlaying.
	StateRestarting
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StateEndedHolding:
		return "EndedHolding"
	case StateRestarting:
		return "Restarting"
	default:
		return "Unknown"
	}
}
