package stem

import (
	"testing"

	"StemShare/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     model.StemType
		ok       bool
	}{
		{"paren vocals", "Song (Vocals).wav", model.Vocals, true},
		{"underscore drums", "My_Track_Drums.mp3", model.Drums, true},
		{"dash bass", "song-bass.wav", model.Bass, true},
		{"space guitar", "Song Guitar.flac", model.Guitar, true},
		{"gtr alias", "riff_gtr.wav", model.Guitar, true},
		{"keys alias", "Song (Keys).aiff", model.Piano, true},
		{"synth as other", "Song_Synth Pad.wav", model.Other, true},
		{"percussion", "Song - Percussion.ogg", model.Drums, true},
		{"no delimiter", "vocals.wav", 0, false},
		{"embedded word", "Songbass.wav", 0, false},
		{"nothing", "Master.wav", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.filename)
			if ok != tt.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.filename, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestClassifyAmbiguousFollowsFixedOrder(t *testing.T) {
	tests := []struct {
		filename string
		want     model.StemType
	}{
		// vocals 在 drums 之前检查
		{"Song_Drums_Vocals.wav", model.Vocals},
		// bass 在 guitar 之前检查
		{"Song (Guitar) (Bass).wav", model.Bass},
		// "-beat" 属于 drums，先于 other 的 "_synth"
		{"Song_synth-beat.wav", model.Drums},
		// piano 先于 other，"keys" 先于 "keyboard" 对结果无影响
		{"Song_Strings_Keys.wav", model.Piano},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.filename)
		if !ok || got != tt.want {
			t.Errorf("Classify(%q) = %v, %v, want %v", tt.filename, got, ok, tt.want)
		}
	}
}

func TestClassifyEveryKeyword(t *testing.T) {
	for _, s := range model.StemOrder {
		for _, kw := range Keywords(s) {
			for _, d := range []string{"(", "_", "-", " "} {
				name := "Track" + d + kw + ".wav"
				got, ok := Classify(name)
				if !ok {
					t.Errorf("Classify(%q) found nothing, want %v", name, s)
					continue
				}
				// "Track" 本身不含关键词，命中的只能是这个关键词所在的类型，
				// 除非该关键词又以另一个更靠前类型的关键词开头
				if got != s && got > s {
					t.Errorf("Classify(%q) = %v, want %v", name, got, s)
				}
			}
		}
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Song (Vocals).wav", "Song"},
		{"My_Track_Drums.mp3", "My Track"},
		{".wav", UntitledTrack},
		{"", UntitledTrack},
		{"Song (Stems).WAV", "Song"},
		{"Song - Keyboard.flac", "Song"},
		{"Late Night_bass.M4A", "Late Night"},
		{"Demo (Vocals) (Stems).ogg", "Demo"},
		{"Just A Title.aiff", "Just A Title"},
		{"Bass.wav", UntitledTrack},
		{"song.txt", "song.txt"},
		// NFD 输入输出为 NFC
		{"Cafe\u0301_Vox.wav", "Caf\u00e9"},
	}
	for _, tt := range tests {
		if got := ExtractTitle(tt.filename); got != tt.want {
			t.Errorf("ExtractTitle(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        bool
	}{
		{"a.wav", "", true},
		{"a.FLAC", "application/octet-stream", true},
		{"a.bin", "audio/mpeg", true},
		{"a.bin", "AUDIO/WAV", true},
		{"notes.txt", "text/plain", false},
		{"cover.jpg", "image/jpeg", false},
	}
	for _, tt := range tests {
		if got := IsAudioFile(tt.filename, tt.contentType); got != tt.want {
			t.Errorf("IsAudioFile(%q, %q) = %v, want %v", tt.filename, tt.contentType, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	if got := Extension("Song (Vocals).WAV"); got != "WAV" {
		t.Errorf("Extension = %q, want WAV", got)
	}
	if got := Extension("noext"); got != "bin" {
		t.Errorf("Extension = %q, want bin", got)
	}
}
