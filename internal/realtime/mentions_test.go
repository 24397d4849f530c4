package realtime

import (
	"reflect"
	"testing"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "plain text", nil},
		{"single", "hey @alice", []string{"alice"}},
		{"case folded", "ping @Alice and @ALICE", []string{"alice"}},
		{"multiple preserve order", "@bob then @alice then @bob", []string{"bob", "alice"}},
		{"mid word boundary", "mail me at a@b_c stop", []string{"b_c"}},
		{"punctuation trailing", "thanks @carol!", []string{"carol"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractMentions(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractMentions(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "no tags here", nil},
		{"single", "launch day #golang", []string{"golang"}},
		{"dedup case folded", "#Go #go #GO", []string{"go"}},
		{"mixed with mentions", "@alice shipped #release v2 #Release", []string{"release"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractHashtags(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractHashtags(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}
