package gate

import "testing"

func TestClassifyP0Security(t *testing.T) {
	p := Classify("We detected a security breach in production", nil)
	if p != P0 {
		t.Errorf("expected P0, got %s", p)
	}
}

func TestClassifyP1Decision(t *testing.T) {
	p := Classify("The team decided to use PostgreSQL for the new service", nil)
	if p != P1 {
		t.Errorf("expected P1, got %s", p)
	}
}

func TestClassifyP3Greeting(t *testing.T) {
	p := Classify("thanks!", nil)
	if p != P3 {
		t.Errorf("expected P3, got %s", p)
	}
}

func TestClassifyP3TooShort(t *testing.T) {
	p := Classify("ok", nil)
	if p != P3 {
		t.Errorf("expected P3 for too-short content, got %s", p)
	}
}

func TestClassifyContextSourceShortCircuit(t *testing.T) {
	p := Classify("Something happened during the deploy window", &Context{Source: "security-alerts"})
	if p != P0 {
		t.Errorf("expected P0 from source short-circuit, got %s", p)
	}
}

func TestClassifyContextCategoryShortCircuit(t *testing.T) {
	p := Classify("Long enough content about the plan for next quarter's roadmap", &Context{Category: "strategic"})
	if p != P0 {
		t.Errorf("expected P0 from category short-circuit, got %s", p)
	}
}

func TestShouldStoreDropsP3(t *testing.T) {
	if ShouldStore("thanks", nil) {
		t.Error("expected P3 content to not be stored")
	}
	if !ShouldStore("We detected a security breach", nil) {
		t.Error("expected P0 content to be stored")
	}
}

func TestCategoryFor(t *testing.T) {
	cases := map[Priority]string{
		P0: "strategic",
		P1: "operational",
		P2: "tactical",
		P3: "ephemeral",
	}
	for p, want := range cases {
		if got := CategoryFor(p); got != want {
			t.Errorf("%s: expected %q, got %q", p, want, got)
		}
	}
}
