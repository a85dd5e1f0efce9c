package zerodha

import "testing"

func TestInstrumentMapperRoundTrip(t *testing.T) {
	m := newInstrumentMapper()

	tokens, missing := m.tokensFor([]string{"SBIN", "RELIANCE"})
	if len(missing) != 0 {
		t.Fatalf("Expected no missing symbols, got %v", missing)
	}
	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens, got %d", len(tokens))
	}
	for i, sym := range []string{"SBIN", "RELIANCE"} {
		if got := m.symbolFor(tokens[i]); got != sym {
			t.Errorf("Expected %s for token %d, got %s", sym, tokens[i], got)
		}
	}
}

func TestInstrumentMapperReportsUnknown(t *testing.T) {
	m := newInstrumentMapper()

	tokens, missing := m.tokensFor([]string{"NOTLISTED", "SBIN"})
	if len(tokens) != 1 {
		t.Errorf("Expected 1 resolved token, got %d", len(tokens))
	}
	if len(missing) != 1 || missing[0] != "NOTLISTED" {
		t.Errorf("Expected NOTLISTED reported as missing, got %v", missing)
	}
	if m.symbolFor(1) != "" {
		t.Errorf("Expected empty symbol for unknown token")
	}
}
