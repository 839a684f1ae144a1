package preset

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestVarNames(t *testing.T) {
	gen := VarNames()
	for i := 0; i < 100; i++ {
		name := gen.Generate()
		if !strings.HasPrefix(name, "var_") {
			t.Fatalf("missing var_ prefix: %q", name)
		}
		tail := strings.TrimPrefix(name, "var_")
		if len(tail) < 4 || len(tail) > 8 {
			t.Fatalf("tail length out of [4,8]: %q", name)
		}
		for _, r := range tail {
			if !strings.ContainsRune(string(latinAlnum), r) {
				t.Fatalf("unexpected rune %q in %q", r, name)
			}
		}
	}
}

func TestLetterPairNames(t *testing.T) {
	gen := LetterPairNames()
	for i := 0; i < 100; i++ {
		name := gen.Generate()
		n := utf8.RuneCountInString(name)
		if n < 5 || n > 8 {
			t.Fatalf("length out of [5,8]: %q", name)
		}
		runes := []rune(name)
		for _, r := range runes[:2] {
			if !strings.ContainsRune(string(latinLetters), r) {
				t.Fatalf("lead rune %q not a letter in %q", r, name)
			}
		}
	}
}

func TestAlphabetNames(t *testing.T) {
	cases := []struct {
		name     string
		gen      NameGenerator
		alphabet []rune
	}{
		{"arabic", ArabicNames(), arabicRunes},
		{"kana", KanaNames(), kanaRunes},
	}
	for _, tc := range cases {
		for i := 0; i < 100; i++ {
			name := tc.gen.Generate()
			n := utf8.RuneCountInString(name)
			if n < 3 || n > 6 {
				t.Fatalf("%s: length out of [3,6]: %q", tc.name, name)
			}
			for _, r := range name {
				if !strings.ContainsRune(string(tc.alphabet), r) {
					t.Fatalf("%s: rune %q outside alphabet in %q", tc.name, r, name)
				}
			}
		}
	}
}

func TestMixedNamesDrawFromBothAlphabets(t *testing.T) {
	gen := MixedNames()
	sawKana, sawArabic := false, false
	for i := 0; i < 500 && !(sawKana && sawArabic); i++ {
		for _, r := range gen.Generate() {
			if strings.ContainsRune(string(kanaRunes), r) {
				sawKana = true
			}
			if strings.ContainsRune(string(arabicRunes), r) {
				sawArabic = true
			}
		}
	}
	if !sawKana || !sawArabic {
		t.Errorf("mixed generator did not use both alphabets (kana=%v arabic=%v)", sawKana, sawArabic)
	}
}

func TestGeneratorsAreReinvokable(t *testing.T) {
	// No shared counter, no state: repeated use from a fresh generator and
	// from the same generator must both keep producing names.
	gen := Resolve("nova").Names
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		seen[gen.Generate()] = true
	}
	// Collisions are tolerated, but a stateless random generator over this
	// alphabet should not collapse to a handful of outputs.
	if len(seen) < 100 {
		t.Errorf("suspiciously few distinct names: %d", len(seen))
	}
}

func TestDescribeIsSerializable(t *testing.T) {
	for _, gen := range []NameGenerator{VarNames(), LetterPairNames(), ArabicNames(), KanaNames(), MixedNames()} {
		d := gen.Describe()
		if d["kind"] == "" {
			t.Errorf("descriptor missing kind: %v", d)
		}
		if d["alphabet"] == "" {
			t.Errorf("descriptor missing alphabet: %v", d)
		}
	}
}
