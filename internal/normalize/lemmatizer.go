package normalize

import (
	"bufio"
	_ "embed"
	"strings"

	"github.com/kljensen/snowball/english"
)

//go:embed lemmas.txt
var lemmaData string

// irregularForms maps inflections that suffix rules cannot recover.
var irregularForms = map[string]string{
	"am": "be", "is": "be", "are": "be", "was": "be", "were": "be", "been": "be",
	"has": "have", "had": "have",
	"did": "do", "does": "do", "done": "do",
	"went": "go", "gone": "go",
	"froze": "freeze", "frozen": "freeze",
	"kept": "keep", "paid": "pay", "made": "make",
	"got": "get", "gotten": "get",
	"took": "take", "taken": "take",
	"gave": "give", "given": "give",
	"said": "say", "lost": "lose", "sent": "send", "spent": "spend",
	"bought": "buy", "ran": "run", "saw": "see", "seen": "see",
	"found": "find", "felt": "feel", "told": "tell", "thought": "think",
	"left": "leave", "began": "begin", "begun": "begin",
	"broke": "break", "broken": "break", "came": "come",
	"knew": "know", "known": "know", "stuck": "stick",
	"better": "good", "best": "good", "worse": "bad", "worst": "bad",
}

// suffixRule detaches a suffix and appends a replacement, in the style of
// WordNet's morphy: candidates are only accepted if they are known lemmas.
type suffixRule struct {
	suffix      string
	replacement string
}

var suffixRules = []suffixRule{
	{"ies", "y"},
	{"ied", "y"},
	{"ier", "y"},
	{"iest", "y"},
	{"es", ""},
	{"es", "e"},
	{"s", ""},
	{"ing", ""},
	{"ing", "e"},
	{"ed", ""},
	{"ed", "e"},
	{"er", ""},
	{"er", "e"},
	{"est", ""},
	{"est", "e"},
}

type lemmatizer struct {
	lemmas    map[string]struct{}
	irregular map[string]string
	stems     map[string]string
}

func newLemmatizer() *lemmatizer {
	l := &lemmatizer{
		lemmas:    make(map[string]struct{}),
		irregular: make(map[string]string, len(irregularForms)),
		stems:     make(map[string]string),
	}

	scanner := bufio.NewScanner(strings.NewReader(lemmaData))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		l.addLemma(word)
	}

	for form, lemma := range irregularForms {
		l.irregular[form] = lemma
		l.addLemma(lemma)
	}

	return l
}

func (l *lemmatizer) addLemma(word string) {
	if _, ok := l.lemmas[word]; ok {
		return
	}
	l.lemmas[word] = struct{}{}

	stem := english.Stem(word, false)
	if _, taken := l.stems[stem]; !taken {
		l.stems[stem] = word
	}
}

func (l *lemmatizer) isLemma(word string) bool {
	_, ok := l.lemmas[word]
	return ok
}

// Lemma resolves word to its base form. Unknown words come back unchanged,
// which keeps the mapping idempotent.
func (l *lemmatizer) Lemma(word string) string {
	if l.isLemma(word) {
		return word
	}
	if lemma, ok := l.irregular[word]; ok {
		return lemma
	}

	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) || len(word) <= len(rule.suffix)+1 {
			continue
		}
		base := strings.TrimSuffix(word, rule.suffix)
		if candidate := base + rule.replacement; l.isLemma(candidate) {
			return candidate
		}
		if rule.replacement == "" && hasDoubledEnding(base) {
			if candidate := base[:len(base)-1]; l.isLemma(candidate) {
				return candidate
			}
		}
	}

	if lemma, ok := l.stems[english.Stem(word, false)]; ok {
		return lemma
	}

	return word
}

// hasDoubledEnding reports stems like "logg" or "stopp".
func hasDoubledEnding(s string) bool {
	n := len(s)
	return n >= 3 && s[n-1] == s[n-2] && !strings.ContainsRune("aeiou", rune(s[n-1]))
}
