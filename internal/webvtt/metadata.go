package webvtt

import "strings"

// Metadata holds values derived from raw caption content. Nil fields mean
// "unknown" — an empty VTT yields no metadata at all, since zero is a
// legitimate duration for a very short cue.
type Metadata struct {
	DurationSeconds  *int
	ParticipantCount *int
}

// ExtractMetadata derives duration and distinct-speaker count from raw
// WebVTT content. Duration spans from the start of the first cue to the
// end of the last cue in file order; cues are assumed monotonically
// non-decreasing (a provider contract this function does not re-verify,
// so out-of-order cues would skew the result).
func ExtractMetadata(raw string) Metadata {
	var md Metadata
	if strings.TrimSpace(raw) == "" {
		return md
	}

	var (
		haveCue    bool
		firstStart float64
		lastEnd    float64
	)
	speakers := make(map[string]struct{})

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		if m := cueTimingRe.FindStringSubmatch(line); m != nil {
			if !haveCue {
				firstStart = cueSeconds(m[1], m[2], m[3], m[4])
				haveCue = true
			}
			lastEnd = cueSeconds(m[5], m[6], m[7], m[8])
			continue
		}

		if sm := speakerRe.FindStringSubmatch(line); sm != nil {
			speakers[normalizeSpeaker(sm[1])] = struct{}{}
		}
	}

	if haveCue {
		d := int(lastEnd - firstStart)
		md.DurationSeconds = &d
	}
	if len(speakers) > 0 {
		n := len(speakers)
		md.ParticipantCount = &n
	}
	return md
}

// normalizeSpeaker case-folds a speaker label and collapses internal
// whitespace so "Speaker 0" and "speaker  0" count as one participant.
func normalizeSpeaker(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
