package voice

// State is the session state. Exactly one is active at a time.
type State int

const (
	// Idle means no device is held.
	Idle State = iota
	// Recording means the microphone is capturing.
	Recording
	// AwaitingTranscription means captured audio is being transcribed.
	AwaitingTranscription
	// Speaking means the speaker is playing an utterance.
	Speaking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case AwaitingTranscription:
		return "transcribing"
	case Speaking:
		return "speaking"
	default:
		return "unknown"
	}
}
