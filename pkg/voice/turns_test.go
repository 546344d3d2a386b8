package voice

import (
	"strings"
	"testing"
	"time"
)

func TestTurnDurations(t *testing.T) {
	base := time.Now()
	turn := Turn{
		Started:     base,
		Released:    base.Add(2 * time.Second),
		Transcribed: base.Add(2500 * time.Millisecond),
		Submitted:   base.Add(3 * time.Second),
	}
	if turn.Recording() != 2*time.Second || turn.Transcription() != 500*time.Millisecond || turn.Latency() != time.Second {
		t.Errorf("durations = %v %v %v", turn.Recording(), turn.Transcription(), turn.Latency())
	}
	if got := turn.String(); got != "rec 2s, stt 500ms, total 1s" {
		t.Errorf("String() = %q", got)
	}

	unfinished := Turn{Started: base, Failed: true}
	if unfinished.Latency() != 0 {
		t.Error("unfinished turn should have no latency")
	}
	if !strings.HasSuffix(unfinished.String(), "(failed)") {
		t.Errorf("String() = %q", unfinished.String())
	}
}

func TestTurnLog(t *testing.T) {
	var log TurnLog

	log.begin()
	log.released(3)
	log.transcribed(100, true)
	if log.Turns() != 1 || !log.Current().Failed {
		t.Fatalf("failed transcription should finish the turn: %+v", log.Current())
	}

	log.begin()
	log.released(5)
	log.transcribed(200, false)
	if log.Turns() != 1 {
		t.Error("a transcribed turn finishes on submit")
	}
	turn := log.submitted()
	if log.Turns() != 2 || turn.Chunks != 5 || turn.AudioBytes != 200 {
		t.Errorf("turns = %d, last = %+v", log.Turns(), turn)
	}

	avg := log.Average()
	if avg.Latency() != turn.Latency() {
		t.Errorf("average latency %v, want the only successful turn's %v", avg.Latency(), turn.Latency())
	}

	for range turnHistory + 10 {
		log.begin()
		log.submitted()
	}
	if log.Turns() != turnHistory {
		t.Errorf("Turns() = %d, want history capped at %d", log.Turns(), turnHistory)
	}
}
