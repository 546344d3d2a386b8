// Package format turns raw model output into display-ready segments.
//
// The transform is pure and never fails: malformed input degrades to
// plain paragraphs.
package format

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Kind classifies a display segment.
type Kind int

const (
	Paragraph Kind = iota
	Header
	Bullet
)

func (k Kind) String() string {
	switch k {
	case Header:
		return "header"
	case Bullet:
		return "bullet"
	default:
		return "paragraph"
	}
}

// MarshalText lets segments serialize kinds as words.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the words produced by MarshalText. Unknown words
// decode as Paragraph.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "header":
		*k = Header
	case "bullet":
		*k = Bullet
	default:
		*k = Paragraph
	}
	return nil
}

// BulletMarker prefixes every bullet line after normalization.
const BulletMarker = "• "

// Segment is one displayable line.
type Segment struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// String renders the segment as a single line of text.
func (s Segment) String() string {
	switch s.Kind {
	case Header:
		return "### " + s.Text
	case Bullet:
		return BulletMarker + s.Text
	default:
		return s.Text
	}
}

var (
	blankRuns = regexp.MustCompile(`\n{3,}`)
	emphasis  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	heading   = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
)

// Format normalizes raw and classifies each line.
func Format(raw string) []Segment {
	lines := strings.Split(Normalize(raw), "\n")
	segments := make([]Segment, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := heading.FindStringSubmatch(trimmed); m != nil {
			if text := strings.TrimSpace(m[1]); text != "" {
				segments = append(segments, Segment{Kind: Header, Text: text})
				continue
			}
		}

		if strings.HasPrefix(trimmed, BulletMarker) {
			if text := strings.TrimSpace(strings.TrimPrefix(trimmed, BulletMarker)); text != "" {
				segments = append(segments, Segment{Kind: Bullet, Text: text})
				continue
			}
		}

		segments = append(segments, Segment{Kind: Paragraph, Text: trimmed})
	}

	return segments
}

// Normalize applies every text rewrite without classifying lines:
// structured unwrap, blank-line collapse, emphasis stripping and
// bullet-marker normalization.
func Normalize(raw string) string {
	text := unwrap(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = emphasis.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = normalizeBullet(line)
	}
	return strings.Join(lines, "\n")
}

// Render joins segments back into text that formats to the same segments.
func Render(segments []Segment) string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}

// Plain joins segment texts without markers, for speech.
func Plain(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, "\n")
}

// unwrap returns the "response" field of a JSON object, or raw unchanged.
// Nested envelopes are peeled until the text is no longer one.
func unwrap(raw string) string {
	for {
		inner, ok := unwrapOnce(raw)
		if !ok {
			return raw
		}
		raw = inner
	}
}

func unwrapOnce(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw, false
	}
	var envelope struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return raw, false
	}
	if envelope.Response == nil || *envelope.Response == "" {
		return raw, false
	}
	return *envelope.Response, true
}

func normalizeBullet(line string) string {
	body := strings.TrimLeft(line, " \t")
	for _, marker := range []string{"- ", "* "} {
		if strings.HasPrefix(body, marker) {
			return BulletMarker + strings.TrimPrefix(body, marker)
		}
	}
	return line
}
