package unicode

import "testing"

func TestScanCleanASCII(t *testing.T) {
	result := Scan("totally normal comment text")
	if !result.Clean {
		t.Errorf("expected clean result, got threats: %v", result.Threats)
	}
	if result.Folded != "totally normal comment text" {
		t.Errorf("folded = %q, want unchanged", result.Folded)
	}
}

func TestScanZeroWidthSpaceStripped(t *testing.T) {
	input := "sp​am for sale"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for zero-width space")
	}
	if len(result.Threats) != 1 || result.Threats[0].Category != "zero-width" {
		t.Fatalf("threats = %+v", result.Threats)
	}
	if result.Folded != "spam for sale" {
		t.Errorf("folded = %q, want evasion char stripped so the word reassembles", result.Folded)
	}
}

func TestScanBOMStripped(t *testing.T) {
	input := "﻿buy now"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for BOM")
	}
	if result.Folded != "buy now" {
		t.Errorf("folded = %q, want BOM stripped", result.Folded)
	}
}

func TestScanBidiOverrideStripped(t *testing.T) {
	input := "click ‮here‬ now"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for bidi override")
	}
	found := false
	for _, th := range result.Threats {
		if th.Category == "bidi-override" {
			found = true
		}
	}
	if !found {
		t.Error("expected a bidi-override threat")
	}
}

func TestScanCyrillicHomoglyphFolded(t *testing.T) {
	// "spаm" with Cyrillic а (U+0430) in place of Latin 'a'
	input := "spаm for sale"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for Cyrillic homoglyph")
	}
	if result.Threats[0].Category != "homoglyph-cyrillic" {
		t.Errorf("category = %q, want homoglyph-cyrillic", result.Threats[0].Category)
	}
	if result.Folded != "spam for sale" {
		t.Errorf("folded = %q, want homoglyph rewritten to Latin so the keyword matcher catches it", result.Folded)
	}
}

func TestScanGreekHomoglyphFolded(t *testing.T) {
	// Greek omicron (ο, U+03BF) instead of Latin 'o'
	input := "free prοmo code"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for Greek homoglyph")
	}
	if result.Threats[0].Category != "homoglyph-greek" {
		t.Errorf("category = %q, want homoglyph-greek", result.Threats[0].Category)
	}
	if result.Folded != "free promo code" {
		t.Errorf("folded = %q, want omicron folded to 'o'", result.Folded)
	}
}

func TestScanTagCharactersStripped(t *testing.T) {
	input := "hello\U000E0001world\U000E007F"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for tag characters")
	}
	if result.Folded != "helloworld" {
		t.Errorf("folded = %q, want tag characters stripped", result.Folded)
	}
}

func TestScanControlCharacterStripped(t *testing.T) {
	input := "hi\x00there"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected a threat for control character")
	}
	if result.Threats[0].Category != "control-char" {
		t.Errorf("category = %q, want control-char", result.Threats[0].Category)
	}
}

func TestScanAllowsTabAndNewline(t *testing.T) {
	input := "line one\tindented\nline two"
	result := Scan(input)

	if !result.Clean {
		t.Errorf("tab and newline should be allowed, got threats: %v", result.Threats)
	}
}

func TestScanMultipleThreats(t *testing.T) {
	input := "spаm​ ‮link‬"
	result := Scan(input)

	if result.Clean {
		t.Fatal("expected multiple threats")
	}
	if len(result.Threats) < 3 {
		t.Errorf("threats = %d, want at least 3: %v", len(result.Threats), result.Threats)
	}
}

func TestFoldConvenienceWrapper(t *testing.T) {
	if got := Fold("spаm"); got != "spam" {
		t.Errorf("Fold = %q, want spam", got)
	}
}
