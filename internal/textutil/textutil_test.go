package textutil

import (
	"reflect"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Éliminé à Munich", "elimine a munich"},
		{"PSG s’impose", "psg s’impose"},
		{"Déjà VU", "deja vu"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Paris Saint-Germain s'impose face à Lille (3-0)")
	want := []string{"paris", "saint", "germain", "s", "impose", "face", "a", "lille", "3", "0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
}

func TestAliasesApply(t *testing.T) {
	aliases := NewAliases(map[string]string{
		"Paris Saint-Germain": "PSG",
		"Paris":               "capitale",
		"psg":                 "psg",
	})
	got := TitleTokens("Paris Saint-Germain domine Paris FC", aliases)
	want := []string{"psg", "domine", "capitale", "fc"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TitleTokens() = %v, want %v", got, want)
	}

	var none *Aliases
	if got := none.Apply("a b"); got != "a b" {
		t.Fatalf("nil aliases should be a no-op, got %q", got)
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("abc", "abc"); got != 100 {
		t.Fatalf("Ratio(identical) = %d", got)
	}
	if got := Ratio("", "abc"); got != 0 {
		t.Fatalf("Ratio(empty) = %d", got)
	}
	if got := Ratio("abcd", "abxx"); got != 50 {
		t.Fatalf("Ratio(half) = %d", got)
	}
}

func TestTitleSimilarityMatchScenario(t *testing.T) {
	aliases := NewAliases(map[string]string{"Paris Saint-Germain": "psg"})
	a := "PSG bat Lille 3-0"
	b := "Paris Saint-Germain s'impose face à Lille (3-0)"

	got := TitleSimilarity(a, b, aliases)
	if got < 80 {
		t.Fatalf("TitleSimilarity() = %d, want >= 80", got)
	}
	if got != TitleSimilarity(b, a, aliases) {
		t.Fatalf("TitleSimilarity is not symmetric")
	}
	if without := TitleSimilarity(a, b, nil); without >= 80 {
		t.Fatalf("expected alias canonicalisation to matter, got %d without aliases", without)
	}
}

func TestTitleSimilarityBounds(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		max  int
		min  int
	}{
		{"identical", "Mbappé signe au Real", "Mbappe signe au Real", 100, 100},
		{"contained", "PSG bat Lille", "PSG bat Lille au Parc des Princes", 100, 100},
		{"contained short title", "Mercato PSG", "Mercato PSG : Dembélé prolonge jusqu'en 2028", 79, 0},
		{"single shared token", "Lille", "PSG bat Lille", 79, 0},
		{"unrelated", "Lens remporte le derby du Nord", "PSG bat Lille 3-0", 79, 0},
		{"empty", "", "PSG bat Lille", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b, nil)
			if got > tt.max || got < tt.min {
				t.Errorf("TitleSimilarity() = %d, want in [%d, %d]", got, tt.min, tt.max)
			}
		})
	}
}

func TestTokenSetRatioNeedsSharedTokens(t *testing.T) {
	short := []string{"mercato", "psg"}
	long := []string{"mercato", "psg", "dembele", "prolonge"}
	if got := TokenSetRatio(short, long); got >= 80 {
		t.Fatalf("two shared tokens should not make a subset match, got %d", got)
	}
	if got := TokenSetRatio(short, []string{"psg", "mercato"}); got != 100 {
		t.Fatalf("same tokens in another order should score 100, got %d", got)
	}
	three := []string{"mercato", "psg", "dembele"}
	if got := TokenSetRatio(three, long); got != 100 {
		t.Fatalf("%d shared tokens should allow a subset match, got %d", MinSharedTokens, got)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"Paris Saint-Germain s'impose face à Lille (3-0)", 0, "paris-saint-germain-s-impose-face-a-lille-3-0"},
		{"  --Hello,   World!--  ", 0, "hello-world"},
		{"!!!", 0, "article"},
		{"abcde fghij", 6, "abcde"},
		{"Été 2024 : le mercato", 0, "ete-2024-le-mercato"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
