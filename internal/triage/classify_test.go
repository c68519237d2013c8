package triage

import "testing"

func TestIsQuestionLike(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"What is my password?", true},
		{"restart the printer", false},
		{"", false},
		{"   ", false},
		{"the printer is broken?", true},
		{"how do I map a drive", true},
		{"HOW do I map a drive", true},
		{"what's the wifi password", true},
		{"can't log in", true},
		{"tell me about exchange", true},
		{"define latency", true},
		{"  Explain vpn split tunnel", true},
		{"whoami output looks wrong", false},
		{"island mode enabled", false},
		{"howdy", false},
		{"so do you mean the ost file", true},
		{"I wonder if this is this thing", true},
		{"the meaning of life", true},
		{"tell", false},
		{"telling a story", false},
	}

	for _, tt := range tests {
		if got := IsQuestionLike(tt.text); got != tt.want {
			t.Errorf("IsQuestionLike(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestHasKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"my outlook keeps crashing", true},
		{"WIFI dropped again", true},
		{"migrating to Office 365 next week", true},
		{"the exchange is down", true},
		{"lunch at noon", false},
		{"nice weather", false},
		// substring match, no word boundaries
		{"the host rebooted", true},
	}

	for _, tt := range tests {
		if got := HasKeyword(tt.text); got != tt.want {
			t.Errorf("HasKeyword(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
