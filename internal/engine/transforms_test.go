package engine

import (
	"strings"
	"testing"
)

func TestSynonymSwapPreservesCase(t *testing.T) {
	out := synonymSwap("Great idea. This is really good.")
	if !strings.Contains(out, "Excellent") {
		t.Errorf("capitalized synonym missing: %q", out)
	}
	if !strings.Contains(out, "genuinely") {
		t.Errorf("lowercase synonym missing: %q", out)
	}
}

func TestSynonymSwapKeepsPunctuation(t *testing.T) {
	out := synonymSwap("That was great!")
	if !strings.Contains(out, "excellent!") {
		t.Errorf("punctuation lost: %q", out)
	}
}

func TestSentenceRotate(t *testing.T) {
	out := sentenceRotate("First point. Second point. Third point.")
	if !strings.HasPrefix(out, "Second point.") {
		t.Errorf("first sentence not moved: %q", out)
	}
	if !strings.HasSuffix(out, "First point.") {
		t.Errorf("first sentence not at end: %q", out)
	}
}

func TestSentenceRotateSingleSentence(t *testing.T) {
	in := "Only one sentence here."
	if out := sentenceRotate(in); out != in {
		t.Errorf("single sentence modified: %q", out)
	}
}

func TestExpandContractions(t *testing.T) {
	out := expandContractions("I'm sure it's fine, don't worry.")
	for _, want := range []string{"I am", "it is", "do not"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestReplaceOpenerKnown(t *testing.T) {
	out := replaceOpener("I think the plan works.")
	if !strings.HasPrefix(out, "My take is ") {
		t.Errorf("opener not replaced: %q", out)
	}
}

func TestReplaceOpenerFallbackPrefix(t *testing.T) {
	out := replaceOpener("The plan works.")
	if !strings.HasPrefix(out, "Put differently: ") {
		t.Errorf("prefix missing: %q", out)
	}
}

func TestTransformsArePure(t *testing.T) {
	in := "I think this is great. Don't you agree?"
	for _, tr := range transforms {
		a := tr.apply(in)
		b := tr.apply(in)
		if a != b {
			t.Errorf("%s is not deterministic", tr.name)
		}
	}
}
