package voice

import (
	"fmt"
	"sync"
	"time"
)

// Turn is the timing of one push-to-talk exchange.
type Turn struct {
	Started     time.Time
	Released    time.Time
	Transcribed time.Time
	Submitted   time.Time

	Chunks     int
	AudioBytes int // FLAC upload size
	Failed     bool
}

func since(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return to.Sub(from)
}

// Recording is how long the microphone was live.
func (t Turn) Recording() time.Duration { return since(t.Started, t.Released) }

// Transcription covers encoding and the transcription round trip.
func (t Turn) Transcription() time.Duration { return since(t.Released, t.Transcribed) }

// Latency runs from releasing the mic to submitting the text.
func (t Turn) Latency() time.Duration { return since(t.Released, t.Submitted) }

func (t Turn) String() string {
	ms := func(d time.Duration) string {
		if d == 0 {
			return "-"
		}
		return d.Round(time.Millisecond).String()
	}
	s := fmt.Sprintf("rec %s, stt %s, total %s", ms(t.Recording()), ms(t.Transcription()), ms(t.Latency()))
	if t.Failed {
		s += " (failed)"
	}
	return s
}

const turnHistory = 100

// TurnLog records the current turn and keeps the last finished ones.
type TurnLog struct {
	mu       sync.Mutex
	cur      Turn
	finished []Turn
}

func (l *TurnLog) begin() {
	l.mu.Lock()
	l.cur = Turn{Started: time.Now()}
	l.mu.Unlock()
}

func (l *TurnLog) released(chunks int) {
	l.mu.Lock()
	l.cur.Released = time.Now()
	l.cur.Chunks = chunks
	l.mu.Unlock()
}

// transcribed ends the turn when transcription failed.
func (l *TurnLog) transcribed(audioBytes int, failed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur.Transcribed = time.Now()
	l.cur.AudioBytes = audioBytes
	l.cur.Failed = failed
	if failed {
		l.finish()
	}
}

func (l *TurnLog) submitted() Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cur.Submitted = time.Now()
	l.finish()
	return l.cur
}

// finish must be called with mu held.
func (l *TurnLog) finish() {
	if len(l.finished) == turnHistory {
		l.finished = append(l.finished[:0], l.finished[1:]...)
	}
	l.finished = append(l.finished, l.cur)
}

// Current returns the turn in progress, or the last one.
func (l *TurnLog) Current() Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur
}

// Turns returns how many turns have finished.
func (l *TurnLog) Turns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.finished)
}

// Average returns the mean phase durations of the successful finished
// turns as a synthetic Turn anchored at the zero time.
func (l *TurnLog) Average() Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rec, stt, total time.Duration
	n := 0
	for _, t := range l.finished {
		if t.Failed {
			continue
		}
		rec += t.Recording()
		stt += t.Transcription()
		total += t.Latency()
		n++
	}
	if n == 0 {
		return Turn{}
	}
	d := time.Duration(n)
	start := time.Unix(0, 0)
	released := start.Add(rec / d)
	return Turn{
		Started:     start,
		Released:    released,
		Transcribed: released.Add(stt / d),
		Submitted:   released.Add(total / d),
	}
}
