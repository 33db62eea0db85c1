package checkout

import "testing"

func TestCodeScreen(t *testing.T) {
	screen := NewCodeScreen(100)
	screen.Load([]string{"SPRING10", "WELCOME", "VIP2026"})
	screen.Add("FLASH50")

	for _, code := range []string{"SPRING10", "WELCOME", "VIP2026", "FLASH50"} {
		if !screen.MightContain(code) {
			t.Errorf("expected screen to contain %s", code)
		}
	}

	// A bloom filter can report false positives but never false negatives,
	// so only membership is asserted strictly; a miss on a random code is
	// expected with overwhelming probability.
	misses := 0
	for _, code := range []string{"NOPE", "GARBAGE", "X", "TOTALLYUNKNOWN"} {
		if !screen.MightContain(code) {
			misses++
		}
	}
	if misses == 0 {
		t.Error("expected at least one unknown code to be screened out")
	}
}
