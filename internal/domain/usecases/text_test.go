package usecases

import (
	"strings"
	"testing"
)

func TestHasKeyword(t *testing.T) {
	cases := []struct {
		text, kw string
		want     bool
	}{
		{"Users sign in", "user", true},
		{"a mobile application", "app", true},
		{"build pipeline", "ui", false},
		{"UI polish", "ui", true},
		{"my e-commerce shop", "e-commerce", true},
		{"a webapp", "app", false},
		{"", "user", false},
		{"éuser", "user", false},
		{"café user", "user", true},
	}
	for _, c := range cases {
		if got := hasKeyword(c.text, c.kw); got != c.want {
			t.Errorf("hasKeyword(%q, %q) = %v, want %v", c.text, c.kw, got, c.want)
		}
	}
}

func TestHasKeyword_LongText(t *testing.T) {
	text := strings.Repeat("résumé-xuser ", 50000)
	if hasKeyword(text, "user") {
		t.Fatal("embedded keyword matched")
	}
	if !hasKeyword(text+"user", "user") {
		t.Fatal("trailing keyword not matched")
	}
}

func TestLastRune(t *testing.T) {
	cases := map[string]rune{"": ' ', "ab": 'b', "café": 'é', "日本": '本'}
	for in, want := range cases {
		if got := lastRune(in); got != want {
			t.Errorf("lastRune(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFingerprint_Normalizes(t *testing.T) {
	base := Fingerprint("café\nmenu")
	variants := []string{
		"café\nmenu",
		"café\r\nmenu",
		"  café   \nmenu\n\n",
	}
	for _, v := range variants {
		if Fingerprint(v) != base {
			t.Errorf("fingerprint of %q differs", v)
		}
	}
	if Fingerprint("café menu") == base {
		t.Error("different content must differ")
	}
}

func TestKeywordTerms(t *testing.T) {
	got := keywordTerms("The payment and PAYMENT gateway, for an e-commerce app")
	want := []string{"payment", "gateway", "e-commerce", "app"}
	if len(got) != len(want) {
		t.Fatalf("keywordTerms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d = %q, want %q", i, got[i], want[i])
		}
	}
}
