package preset

import (
	"math/rand/v2"
	"strings"
)

// NameGenerator synthesizes replacement identifier names for the engine.
// Implementations are stateless: every call is independent, collisions are
// tolerated (the engine guarantees distinctness where it needs it), and a
// generator may be invoked an unbounded number of times per job.
type NameGenerator interface {
	// Generate returns one new identifier.
	Generate() string
	// Describe returns a serializable descriptor of the naming policy so
	// an out-of-process engine can reproduce it.
	Describe() map[string]any
}

// Identifier alphabets. Arabic letters and Japanese kana are valid
// JavaScript identifier characters, so names drawn from them need no prefix.
var (
	latinLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	latinAlnum   = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	arabicRunes  = []rune("ابتثجحخدذرزسشصضطظعغفقكلمنهوي")
	kanaRunes    = []rune("あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわをん")
)

type randomName struct {
	kind      string
	prefix    string // fixed literal prefix, e.g. "var_"
	lead      []rune // alphabet for randomized lead runes, nil to skip
	leadCount int
	alphabet  []rune // alphabet for the randomized tail
	minLen    int    // tail length bounds, inclusive
	maxLen    int
}

func (g *randomName) Generate() string {
	var b strings.Builder
	b.WriteString(g.prefix)
	for i := 0; i < g.leadCount; i++ {
		b.WriteRune(g.lead[rand.IntN(len(g.lead))])
	}
	n := g.minLen
	if g.maxLen > g.minLen {
		n += rand.IntN(g.maxLen - g.minLen + 1)
	}
	for i := 0; i < n; i++ {
		b.WriteRune(g.alphabet[rand.IntN(len(g.alphabet))])
	}
	return b.String()
}

func (g *randomName) Describe() map[string]any {
	d := map[string]any{
		"kind":      g.kind,
		"alphabet":  string(g.alphabet),
		"minLength": g.minLen,
		"maxLength": g.maxLen,
	}
	if g.prefix != "" {
		d["prefix"] = g.prefix
	}
	if g.leadCount > 0 {
		d["leadAlphabet"] = string(g.lead)
		d["leadLength"] = g.leadCount
	}
	return d
}

// VarNames generates nova-style identifiers: a literal "var_" prefix
// followed by a random alphanumeric tail.
func VarNames() NameGenerator {
	return &randomName{
		kind:     "var",
		prefix:   "var_",
		alphabet: latinAlnum,
		minLen:   4,
		maxLen:   8,
	}
}

// LetterPairNames generates nebula-style identifiers: two random latin
// letters followed by a random alphanumeric tail.
func LetterPairNames() NameGenerator {
	return &randomName{
		kind:      "letter-pair",
		lead:      latinLetters,
		leadCount: 2,
		alphabet:  latinAlnum,
		minLen:    3,
		maxLen:    6,
	}
}

// ArabicNames draws identifiers from the Arabic alphabet, 3-6 runes.
func ArabicNames() NameGenerator {
	return &randomName{kind: "arabic", alphabet: arabicRunes, minLen: 3, maxLen: 6}
}

// KanaNames draws identifiers from Japanese kana, 3-6 runes.
func KanaNames() NameGenerator {
	return &randomName{kind: "kana", alphabet: kanaRunes, minLen: 3, maxLen: 6}
}

// MixedNames draws identifiers from the union of kana and Arabic letters.
func MixedNames() NameGenerator {
	mixed := make([]rune, 0, len(kanaRunes)+len(arabicRunes))
	mixed = append(mixed, kanaRunes...)
	mixed = append(mixed, arabicRunes...)
	return &randomName{kind: "kana-arabic", alphabet: mixed, minLen: 3, maxLen: 6}
}
