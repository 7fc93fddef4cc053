// Package resolve maps free-text competitor display names to canonical
// domains. Review and place data arrives without a stable machine key, so
// resolution is a curated, ordered substring table plus subject detection.
package resolve

import (
	"strings"

	"go.uber.org/zap"
)

// defaultAliasConfidence applies when a table entry doesn't set its own.
// Substring matching is a best-effort heuristic, not an identity proof.
const defaultAliasConfidence = 0.9

// Alias maps a display-name substring to a canonical domain. The table is
// scanned in order and the first match wins, so entries must be ordered by
// specificity: longer, more distinguishing substrings first. A generic
// substring placed early (e.g. "salon") would swallow later entries.
type Alias struct {
	Contains   string  `yaml:"contains"`
	Domain     string  `yaml:"domain"`
	Confidence float64 `yaml:"confidence,omitempty"`
}

// Resolution is the outcome of resolving one display name.
type Resolution struct {
	// Domain is nil when no alias matched.
	Domain *string
	// IsSubject is true when the name carries one of the subject
	// business's distinguishing substrings. Subject identification takes
	// precedence over the alias table.
	IsSubject bool
	// Confidence is 1.0 for subject hits, the alias entry's confidence
	// for table hits, 0 for no match.
	Confidence float64
}

// Resolver resolves display names against the subject identity and the
// alias table.
type Resolver struct {
	subjectSubstrings []string
	subjectDomain     string
	aliases           []Alias
}

// NewResolver creates a resolver. Subject substrings are matched before the
// alias table; subjectDomain is returned for subject hits. The alias table
// ordering is validated on construction: a shorter entry that shadows a
// longer later entry is logged, not fixed, since the table is curated data.
func NewResolver(subjectSubstrings []string, subjectDomain string, aliases []Alias) *Resolver {
	for i := range aliases {
		aliases[i].Contains = strings.ToLower(strings.TrimSpace(aliases[i].Contains))
		if aliases[i].Confidence <= 0 {
			aliases[i].Confidence = defaultAliasConfidence
		}
	}
	warnShadowedAliases(aliases)

	subs := make([]string, 0, len(subjectSubstrings))
	for _, s := range subjectSubstrings {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			subs = append(subs, s)
		}
	}

	return &Resolver{
		subjectSubstrings: subs,
		subjectDomain:     subjectDomain,
		aliases:           aliases,
	}
}

// Resolve maps a display name to a canonical domain.
func (r *Resolver) Resolve(displayName string) Resolution {
	name := strings.ToLower(strings.TrimSpace(displayName))
	if name == "" {
		return Resolution{}
	}

	for _, sub := range r.subjectSubstrings {
		if strings.Contains(name, sub) {
			domain := r.subjectDomain
			return Resolution{Domain: &domain, IsSubject: true, Confidence: 1.0}
		}
	}

	for _, a := range r.aliases {
		if a.Contains != "" && strings.Contains(name, a.Contains) {
			domain := a.Domain
			return Resolution{Domain: &domain, Confidence: a.Confidence}
		}
	}

	zap.L().Debug("resolve: no alias match", zap.String("display_name", displayName))
	return Resolution{}
}

// warnShadowedAliases flags earlier entries whose substring is contained in
// a later entry's substring with a different domain: the later, more
// specific entry can never win.
func warnShadowedAliases(aliases []Alias) {
	for i, earlier := range aliases {
		for _, later := range aliases[i+1:] {
			if earlier.Domain != later.Domain &&
				earlier.Contains != "" &&
				strings.Contains(later.Contains, earlier.Contains) {
				zap.L().Warn("resolve: alias table ordering shadows a more specific entry",
					zap.String("earlier", earlier.Contains),
					zap.String("shadowed", later.Contains),
				)
			}
		}
	}
}
