package playground

import "testing"

func TestBufferSetDefaults(t *testing.T) {
	b := NewBufferSet()

	if got := b.Active(); got != LangStructure {
		t.Errorf("fresh buffer set active = %q, want structure", got)
	}
	for _, lang := range []Language{LangStructure, LangPresentation, LangBehavior} {
		if b.Get(lang) == "" {
			t.Errorf("buffer %q has no seed content", lang)
		}
	}
}

func TestBufferSetIndependentWrites(t *testing.T) {
	b := NewBufferSet()
	cssBefore := b.Get(LangPresentation)
	jsBefore := b.Get(LangBehavior)

	if err := b.Set(LangStructure, "<main></main>"); err != nil {
		t.Fatalf("set structure: %v", err)
	}

	if got := b.Get(LangStructure); got != "<main></main>" {
		t.Errorf("structure = %q after write", got)
	}
	if got := b.Get(LangPresentation); got != cssBefore {
		t.Errorf("presentation changed by structure write: %q", got)
	}
	if got := b.Get(LangBehavior); got != jsBefore {
		t.Errorf("behavior changed by structure write: %q", got)
	}
}

func TestBufferSetActiveSwitchKeepsContent(t *testing.T) {
	b := NewBufferSet()
	b.Set(LangStructure, "edited structure")

	if err := b.SetActive(LangBehavior); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if got := b.Active(); got != LangBehavior {
		t.Errorf("active = %q, want behavior", got)
	}
	if got := b.Get(LangStructure); got != "edited structure" {
		t.Errorf("structure lost its content on tab switch: %q", got)
	}
	if got := b.ActiveCode(); got != b.Get(LangBehavior) {
		t.Errorf("ActiveCode = %q, want behavior buffer content", got)
	}
}

func TestBufferSetRejectsInvalidLanguage(t *testing.T) {
	b := NewBufferSet()
	if err := b.Set(Language("python"), "print(1)"); err == nil {
		t.Error("Set accepted an invalid language")
	}
	if err := b.SetActive(Language("ruby")); err == nil {
		t.Error("SetActive accepted an invalid language")
	}
}

func TestParseLanguage(t *testing.T) {
	for _, s := range []string{"structure", "presentation", "behavior"} {
		if _, err := ParseLanguage(s); err != nil {
			t.Errorf("ParseLanguage(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseLanguage("html"); err == nil {
		t.Error("ParseLanguage accepted an unknown language")
	}
}
