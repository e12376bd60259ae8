package topic

import "testing"

func TestIsOnTopic(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		keywords []string
		want     bool
	}{
		{"plain keyword", "Le PSG bat Lille", DefaultKeywords, true},
		{"full club name", "Paris Saint-Germain s'impose face à Lille", DefaultKeywords, true},
		{"diacritics in keyword", "Victoire à Paris", []string{"PARÎS"}, true},
		{"diacritics in title", "Éclatante soirée au Parc des Princes", []string{"eclatante"}, true},
		{"off topic", "L'OM s'incline à Lens", DefaultKeywords, false},
		{"empty title", "   ", DefaultKeywords, false},
		{"no keywords", "PSG", nil, false},
		{"blank keyword ignored", "Lens", []string{"  "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnTopic(tt.title, tt.keywords); got != tt.want {
				t.Fatalf("IsOnTopic(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}
