// Package webvtt parses the WebVTT caption files produced by the
// conferencing provider's transcription pipeline. All functions are pure:
// raw caption text in, plain text or structured segments out.
package webvtt

import (
	"regexp"
	"strings"
)

var (
	// cueTimingRe matches a full cue timing line: "HH:MM:SS.mmm --> HH:MM:SS.mmm".
	cueTimingRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})\.(\d{3})`)

	// timestampPrefixRe matches any line that starts with a timestamp,
	// including partial or malformed timing lines that must never be
	// emitted as transcript content.
	timestampPrefixRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}`)

	// speakerRe extracts a leading "Speaker N:" or "Participant N:" label
	// from a cue's joined text.
	speakerRe = regexp.MustCompile(`(?i)^(speaker\s+\d+|participant\s+\d+):\s*(.+)$`)
)

// Segment is one speaker-attributed utterance with relative time bounds
// in fractional seconds from the start of the recording.
type Segment struct {
	Speaker   string  `json:"speaker,omitempty"`
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// ParseText converts raw WebVTT content to a plain-text transcript.
// The WEBVTT header, blank lines, and cue timing lines are stripped;
// remaining content lines are joined with newlines in original order.
// Empty or header-only input yields "".
func ParseText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "WEBVTT") {
			continue
		}
		if timestampPrefixRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ParseSegments converts raw WebVTT content into ordered segments with
// speaker attribution. Each cue is one timing line followed by one or more
// content lines; multi-line content is joined with a single space. Cues
// with no content contribute nothing, and malformed cue blocks are skipped
// rather than aborting the parse. Output order equals cue order.
func ParseSegments(raw string) []Segment {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var segments []Segment
	lines := strings.Split(raw, "\n")

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		m := cueTimingRe.FindStringSubmatch(line)
		if m == nil {
			i++
			continue
		}

		start := cueSeconds(m[1], m[2], m[3], m[4])
		end := cueSeconds(m[5], m[6], m[7], m[8])

		// Collect content lines until a blank line, the next timing
		// line, or EOF terminates the cue.
		i++
		var content []string
		for i < len(lines) {
			text := strings.TrimSpace(lines[i])
			if text == "" || timestampPrefixRe.MatchString(text) {
				break
			}
			content = append(content, text)
			i++
		}

		if len(content) == 0 {
			continue
		}

		seg := Segment{
			Text:      strings.Join(content, " "),
			StartTime: start,
			EndTime:   end,
		}
		if sm := speakerRe.FindStringSubmatch(seg.Text); sm != nil {
			seg.Speaker = sm[1]
			seg.Text = strings.TrimSpace(sm[2])
		}
		segments = append(segments, seg)
	}

	return segments
}

// cueSeconds converts timestamp components to fractional seconds. The
// inputs already matched \d+ groups, so Atoi cannot fail.
func cueSeconds(h, m, s, ms string) float64 {
	return float64(atoi(h))*3600 + float64(atoi(m))*60 + float64(atoi(s)) + float64(atoi(ms))/1000
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
