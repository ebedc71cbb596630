package text

import (
	"sync"
	"testing"
)

func TestSquash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "spaced-upper", in: "D A M N!", want: "damn!"},
		{name: "tabs-and-newlines", in: "he\tc\nk", want: "heck"},
		{name: "accents", in: "Dámn", want: "damn"},
		{name: "fullwidth", in: "ＤＡＭＮ", want: "damn"},
		{name: "sharp-s-folds", in: "STRASSE", want: "strasse"},
		{name: "empty", in: "", want: ""},
		{name: "only-spaces", in: " \t\n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Squash(tt.in); got != tt.want {
				t.Fatalf("Squash(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripSpaces(t *testing.T) {
	t.Parallel()

	if got := StripSpaces(" a b\tc d\n"); got != "abcd" {
		t.Fatalf("unexpected stripped value: %q", got)
	}
}

func TestSquashConcurrentReuse(t *testing.T) {
	t.Parallel()

	inputs := map[string]string{
		"D A M N!": "damn!",
		"Dámn":     "damn",
		"ＨＥＣＫ":     "heck",
		"Б Л И Н":  "блин",
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64*len(inputs))
	for i := 0; i < 64; i++ {
		for in, want := range inputs {
			wg.Add(1)
			go func(in, want string) {
				defer wg.Done()
				if got := Squash(in); got != want {
					errs <- in + " -> " + got
				}
			}(in, want)
		}
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatalf("unexpected squash result under reuse: %s", e)
	}
}
