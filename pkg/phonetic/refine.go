package phonetic

import "strings"

// Digraphs rewritten before the vowel collapse. Order matters: "ght" must
// run before any rule that could split it.
var refinements = []struct{ from, to string }{
	{"ght", "t"},
	{"ph", "f"},
	{"qu", "kw"},
}

// refineCode reduces a word to a coarse pronunciation skeleton: common
// digraphs are rewritten to the letters they sound like, every vowel run
// collapses to a single 'a' marker, and doubled letters collapse to one.
// "phone" and "fone" both come out as "fana".
func refineCode(word string) string {
	code := strings.ToLower(word)
	for _, r := range refinements {
		code = strings.ReplaceAll(code, r.from, r.to)
	}

	var b strings.Builder
	b.Grow(len(code))
	var prev rune
	inVowelRun := false
	for _, r := range code {
		if isVowel(r) {
			if !inVowelRun {
				b.WriteRune('a')
				prev = 'a'
				inVowelRun = true
			}
			continue
		}
		inVowelRun = false
		if r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
