package webvtt

import "testing"

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata(sampleVTT)

	if md.DurationSeconds == nil {
		t.Fatal("expected duration to be set")
	}
	if *md.DurationSeconds != 15 {
		t.Errorf("expected duration 15, got %d", *md.DurationSeconds)
	}
	if md.ParticipantCount == nil {
		t.Fatal("expected participant count to be set")
	}
	if *md.ParticipantCount != 2 {
		t.Errorf("expected 2 participants, got %d", *md.ParticipantCount)
	}
}

func TestExtractMetadata_DurationSpansFirstToLastCue(t *testing.T) {
	raw := "WEBVTT\n\n00:00:00.000 --> 00:00:10.000\none\n\n00:00:20.000 --> 00:00:30.000\ntwo\n"
	md := ExtractMetadata(raw)
	if md.DurationSeconds == nil || *md.DurationSeconds != 30 {
		t.Errorf("expected duration 30, got %v", md.DurationSeconds)
	}
}

func TestExtractMetadata_Empty(t *testing.T) {
	md := ExtractMetadata("")
	if md.DurationSeconds != nil {
		t.Error("expected no duration for empty input")
	}
	if md.ParticipantCount != nil {
		t.Error("expected no participant count for empty input")
	}
}

func TestExtractMetadata_NoSpeakers(t *testing.T) {
	raw := "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\njust some words\n"
	md := ExtractMetadata(raw)
	if md.DurationSeconds == nil || *md.DurationSeconds != 5 {
		t.Errorf("expected duration 5, got %v", md.DurationSeconds)
	}
	if md.ParticipantCount != nil {
		t.Error("expected no participant count without speaker labels")
	}
}

func TestExtractMetadata_SpeakerNormalization(t *testing.T) {
	raw := "WEBVTT\n\n00:00:00.000 --> 00:00:05.000\nSpeaker 1: hi\n\n" +
		"00:00:05.000 --> 00:00:10.000\nspeaker 1: again\n\n" +
		"00:00:10.000 --> 00:00:15.000\nParticipant 1: different person\n"
	md := ExtractMetadata(raw)
	if md.ParticipantCount == nil {
		t.Fatal("expected participant count")
	}
	// "Speaker 1" case-folds onto "speaker 1"; "Participant 1" is a
	// distinct label even though the number matches.
	if *md.ParticipantCount != 2 {
		t.Errorf("expected 2 participants, got %d", *md.ParticipantCount)
	}
}

func TestExtractMetadata_ZeroDurationCue(t *testing.T) {
	raw := "WEBVTT\n\n00:00:03.000 --> 00:00:03.000\nblip\n"
	md := ExtractMetadata(raw)
	if md.DurationSeconds == nil {
		t.Fatal("zero is a legitimate duration and must be set")
	}
	if *md.DurationSeconds != 0 {
		t.Errorf("expected duration 0, got %d", *md.DurationSeconds)
	}
}
