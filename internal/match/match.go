// Package match provides the deterministic text primitives used by the
// heuristic gate, the ATS coverage calculator, and the gap report: a
// tokenizer that survives tech terms like c++, c# and node.js, whole-word
// keyword hits, and target-signal scoring.
package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jobops/jobops-api/internal/models"
)

var tokenRe = regexp.MustCompile(`[a-z0-9][a-z0-9+#.]*`)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "for": {},
	"to": {}, "in": {}, "with": {}, "at": {}, "on": {}, "by": {}, "from": {},
	"as": {}, "is": {}, "are": {}, "be": {}, "we": {}, "you": {}, "our": {},
	"your": {},
}

// Tokenize lowercases s and splits it into tokens, preserving +, # and
// interior dots so compound tech terms stay whole. Stopwords are dropped.
func Tokenize(s string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.TrimRight(tok, ".")
		if tok == "" {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TokenSet returns the unique tokens of s.
func TokenSet(s string) map[string]struct{} {
	toks := Tokenize(s)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// KeywordHit reports whether keyword occurs in text as a whole word,
// case-insensitive. Punctuated keywords (c++, c#, node.js) and multi-word
// phrases match literally with non-token boundaries on both sides.
func KeywordHit(text, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	corpus := normalizeSpace(strings.ToLower(text))
	kw := normalizeSpace(keyword)

	start := 0
	for {
		i := strings.Index(corpus[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		if boundedAt(corpus, i, len(kw)) {
			return true
		}
		start = i + 1
	}
}

// Hits returns the subset of keywords that occur in text, preserving input
// order and deduping case-insensitively.
func Hits(text string, keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	var out []string
	for _, kw := range keywords {
		key := strings.ToLower(strings.TrimSpace(kw))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if KeywordHit(text, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Coverage splits keywords into those found in content and those missing.
func Coverage(content string, keywords []string) (matched, missing []string) {
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		key := strings.ToLower(strings.TrimSpace(kw))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if KeywordHit(content, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}

// CoveragePct is found/total as a percentage; 0 when total is 0.
func CoveragePct(found, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(found) / float64(total) * 100
}

// TargetSignal measures how strongly a job speaks to one target. Role-token
// overlap weighs 3 per token, must-keyword hits 2, nice-keyword hits 1.
// The heuristic gate compares the best signal across targets against
// MIN_TARGET_SIGNAL.
func TargetSignal(roleTitle, jdText string, target models.Target) int {
	signal := 0
	roleTokens := TokenSet(roleTitle)
	counted := make(map[string]struct{})
	for _, tok := range Tokenize(target.PrimaryRole) {
		if _, dup := counted[tok]; dup {
			continue
		}
		counted[tok] = struct{}{}
		if _, ok := roleTokens[tok]; ok {
			signal += 3
		}
	}
	corpus := roleTitle + "\n" + jdText
	signal += 2 * len(Hits(corpus, target.MustKeywords))
	signal += len(Hits(corpus, target.NiceKeywords))
	return signal
}

// BestTargetSignal returns the strongest signal across targets and the
// target that produced it, or nil when targets is empty.
func BestTargetSignal(roleTitle, jdText string, targets []models.Target) (int, *models.Target) {
	best := -1
	var bestTarget *models.Target
	for i := range targets {
		s := TargetSignal(roleTitle, jdText, targets[i])
		if s > best {
			best = s
			bestTarget = &targets[i]
		}
	}
	if best < 0 {
		return 0, nil
	}
	return best, bestTarget
}

// TopTokens returns the n most frequent non-stopword tokens of s, ties
// broken alphabetically. Used by gap reporting.
func TopTokens(s string, n int) []string {
	counts := make(map[string]int)
	for _, tok := range Tokenize(s) {
		counts[tok]++
	}
	toks := make([]string, 0, len(counts))
	for tok := range counts {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool {
		if counts[toks[i]] != counts[toks[j]] {
			return counts[toks[i]] > counts[toks[j]]
		}
		return toks[i] < toks[j]
	})
	if n > 0 && len(toks) > n {
		toks = toks[:n]
	}
	return toks
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// boundedAt reports whether corpus[i:i+n] sits between non-token characters.
func boundedAt(corpus string, i, n int) bool {
	if i > 0 && isTokenByte(corpus[i-1]) {
		return false
	}
	if end := i + n; end < len(corpus) && isTokenByte(corpus[end]) {
		return false
	}
	return true
}

func isTokenByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+' || b == '#'
}
