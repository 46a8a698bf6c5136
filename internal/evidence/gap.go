package evidence

import (
	"fmt"
	"strings"
)

// GapClass says how a frequently-missed requirement relates to the profile.
type GapClass string

const (
	// GapMatched: the requirement text itself appears in the profile; the
	// stored miss is stale or came from a different profile.
	GapMatched GapClass = "matched"
	// GapVocabulary: the profile covers the theme under different wording.
	GapVocabulary GapClass = "vocabulary_gap"
	// GapTrue: nothing in the profile speaks to the requirement.
	GapTrue GapClass = "true_gap"
)

// synonymClusters groups interchangeable resume vocabulary by theme. A
// requirement and a profile phrase landing in the same cluster is treated
// as a wording problem, not a skills problem.
var synonymClusters = [][]string{
	// leadership
	{"leadership", "led", "managed", "mentored", "coached", "people management",
		"stakeholder management", "cross-functional", "team building", "hired"},
	// strategy
	{"strategy", "strategic", "vision", "roadmap", "prioritization", "okrs",
		"market analysis", "positioning", "north star", "business case"},
	// execution
	{"execution", "delivery", "delivered", "shipped", "launched", "go-to-market",
		"gtm", "agile", "scrum", "sprint planning", "on time"},
	// technical
	{"technical", "apis", "api design", "sql", "data analysis", "analytics",
		"experimentation", "a/b testing", "instrumentation", "ml", "machine learning"},
}

// Gap is the classification of one requirement against a profile corpus.
type Gap struct {
	Requirement string   `json:"requirement"`
	Class       GapClass `json:"class"`
	MatchedVia  string   `json:"matched_via,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Classify places requirement into matched / vocabulary_gap / true_gap
// against corpus (the concatenated profile text). Vocabulary gaps carry a
// rewrite suggestion naming the synonym that is already present.
func Classify(requirement, corpus string) Gap {
	g := Gap{Requirement: requirement, Class: GapTrue}

	if _, ok := FindIn(corpus, requirement); ok {
		g.Class = GapMatched
		g.MatchedVia = requirement
		return g
	}

	for _, cluster := range synonymClusters {
		if !clusterHas(cluster, requirement) {
			continue
		}
		for _, syn := range cluster {
			if strings.EqualFold(syn, strings.TrimSpace(requirement)) {
				continue
			}
			if _, ok := FindIn(corpus, syn); ok {
				g.Class = GapVocabulary
				g.MatchedVia = syn
				g.Suggestion = fmt.Sprintf("Reword your %q experience to say %q explicitly.", syn, requirement)
				return g
			}
		}
	}
	return g
}

// clusterHas reports whether the requirement belongs to the cluster, by
// exact (case-insensitive) membership or by containing a member as a word.
func clusterHas(cluster []string, requirement string) bool {
	req := normalizeWS(requirement)
	for _, syn := range cluster {
		if req == syn {
			return true
		}
		if _, ok := FindIn(req, syn); ok {
			return true
		}
	}
	return false
}

// ProfileCorpus renders the searchable text of a profile: summary, bullets,
// and the skills list.
func ProfileCorpus(summary string, bullets, skills []string) string {
	var b strings.Builder
	b.WriteString(summary)
	for _, bl := range bullets {
		b.WriteString("\n")
		b.WriteString(bl)
	}
	for _, sk := range skills {
		b.WriteString("\n")
		b.WriteString(sk)
	}
	return b.String()
}
