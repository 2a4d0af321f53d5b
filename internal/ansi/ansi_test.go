package ansi

import "testing"

func TestWrap(t *testing.T) {
	t.Parallel()

	if got := Wrap("x"); got != "x" {
		t.Errorf("Wrap without codes = %q, want x", got)
	}
	if got := Wrap("x", Red, Bold); got != Red+Bold+"x"+Reset {
		t.Errorf("Wrap = %q", got)
	}
}

func TestEnabled(t *testing.T) {
	if !Enabled("always", nil) {
		t.Error("always should enable color")
	}
	if Enabled("never", nil) {
		t.Error("never should disable color")
	}
	if Enabled("auto", nil) {
		t.Error("auto without a file should disable color")
	}

	t.Setenv("NO_COLOR", "1")
	if Enabled("auto", nil) {
		t.Error("NO_COLOR should disable auto color")
	}
}
