// Package ruleset holds the keyword tables shared by the context
// mismatch detector, the global router fallback and the media
// detector. Keeping one table avoids the drift that happens when each
// consumer maintains its own copy.
package ruleset

import (
	_ "embed"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/m-mizutani/canopy/pkg/model"
)

//go:embed rules/default.yml
var defaultRules []byte

var (
	ErrLoadRules = goerr.New("failed to load rule set")
)

// SubsystemRule maps one subsystem page to the keywords that refer to it.
type SubsystemRule struct {
	Name     model.Subsystem `yaml:"name"`
	Keywords []string        `yaml:"keywords"`
}

// MediaRule maps one media action to its trigger keywords, the
// subsystems that could receive the capture and the options offered
// on a decision sheet.
type MediaRule struct {
	Action   model.MediaAction `yaml:"action"`
	Keywords []string          `yaml:"keywords"`
	Targets  []model.Subsystem `yaml:"targets"`
	Options  []string          `yaml:"options"`
}

// GeneralRule holds the keyword sets that mark an utterance as
// conversational rather than a command.
type GeneralRule struct {
	Smalltalk []string `yaml:"smalltalk"`
	Help      []string `yaml:"help"`
}

// Ruleset is the full keyword table. Subsystem order matters: the
// first matching entry wins.
type Ruleset struct {
	Subsystems  []SubsystemRule `yaml:"subsystems"`
	General     GeneralRule     `yaml:"general"`
	Ambiguous   []string        `yaml:"ambiguous"`
	Destructive []string        `yaml:"destructive"`
	Media       []MediaRule     `yaml:"media"`
}

// Default returns the built-in rule set.
func Default() *Ruleset {
	rs, err := Load(strings.NewReader(string(defaultRules)))
	if err != nil {
		// The embedded rules are validated by tests, a failure here is
		// a build defect.
		panic(err)
	}
	return rs
}

// Load reads a rule set from YAML and validates it.
func Load(r io.Reader) (*Ruleset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read rule set")
	}

	var rs Ruleset
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return nil, goerr.Wrap(ErrLoadRules, "failed to parse rule set", goerr.V("error", err.Error()))
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks the table references only known subsystems and
// media actions.
func (rs *Ruleset) Validate() error {
	if len(rs.Subsystems) == 0 {
		return goerr.Wrap(ErrLoadRules, "no subsystem rules")
	}
	for _, sub := range rs.Subsystems {
		if err := sub.Name.Validate(); err != nil {
			return goerr.Wrap(err, "bad subsystem rule")
		}
		if len(sub.Keywords) == 0 {
			return goerr.Wrap(ErrLoadRules, "subsystem rule without keywords", goerr.V("subsystem", sub.Name))
		}
	}
	for _, media := range rs.Media {
		if err := media.Action.Validate(); err != nil {
			return goerr.Wrap(err, "bad media rule")
		}
		for _, target := range media.Targets {
			if err := target.Validate(); err != nil {
				return goerr.Wrap(err, "bad media target", goerr.V("action", media.Action))
			}
		}
	}
	return nil
}

// MatchSubsystem returns the first subsystem whose keywords appear in
// the text, in table order.
func (rs *Ruleset) MatchSubsystem(text string) (model.Subsystem, bool) {
	norm := normalize(text)
	for _, sub := range rs.Subsystems {
		for _, kw := range sub.Keywords {
			if containsPhrase(norm, kw) {
				return sub.Name, true
			}
		}
	}
	return "", false
}

// SubsystemHits counts keyword hits per subsystem. The router
// fallback uses the counts to pick the most likely page.
func (rs *Ruleset) SubsystemHits(text string) map[model.Subsystem]int {
	norm := normalize(text)
	hits := map[model.Subsystem]int{}
	for _, sub := range rs.Subsystems {
		for _, kw := range sub.Keywords {
			if containsPhrase(norm, kw) {
				hits[sub.Name]++
			}
		}
	}
	return hits
}

// BestSubsystem returns the subsystem with the most keyword hits.
// Ties resolve to the earlier table entry.
func (rs *Ruleset) BestSubsystem(text string) (model.Subsystem, int) {
	hits := rs.SubsystemHits(text)
	var best model.Subsystem
	bestHits := 0
	for _, sub := range rs.Subsystems {
		if n := hits[sub.Name]; n > bestHits {
			best = sub.Name
			bestHits = n
		}
	}
	return best, bestHits
}

// IsSmalltalk reports whether the text matches a smalltalk keyword.
func (rs *Ruleset) IsSmalltalk(text string) bool {
	return matchAny(normalize(text), rs.General.Smalltalk)
}

// IsHelp reports whether the text asks for help.
func (rs *Ruleset) IsHelp(text string) bool {
	return matchAny(normalize(text), rs.General.Help)
}

// IsGeneral reports whether the text is smalltalk or a help request.
func (rs *Ruleset) IsGeneral(text string) bool {
	return rs.IsSmalltalk(text) || rs.IsHelp(text)
}

// HasAmbiguousReference reports whether the text contains a pronoun
// that needs an on-screen referent.
func (rs *Ruleset) HasAmbiguousReference(text string) bool {
	return matchAny(normalize(text), rs.Ambiguous)
}

// HasDestructive reports whether the text contains a destructive verb.
func (rs *Ruleset) HasDestructive(text string) bool {
	return matchAny(normalize(text), rs.Destructive)
}

// MatchMedia returns the first media action whose keywords appear in
// the text, with its targets and sheet options.
func (rs *Ruleset) MatchMedia(text string) (*model.MediaDetection, bool) {
	norm := normalize(text)
	for _, media := range rs.Media {
		for _, kw := range media.Keywords {
			if containsPhrase(norm, kw) {
				return &model.MediaDetection{
					Action:  media.Action,
					Targets: append([]model.Subsystem{}, media.Targets...),
					Options: append([]string{}, media.Options...),
				}, true
			}
		}
	}
	return nil, false
}

func matchAny(norm string, keywords []string) bool {
	for _, kw := range keywords {
		if containsPhrase(norm, kw) {
			return true
		}
	}
	return false
}

// normalize lowers the text and folds punctuation into spaces so
// keyword phrases match on word boundaries.
func normalize(text string) string {
	lower := strings.ToLower(text)
	var sb strings.Builder
	sb.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func containsPhrase(norm, phrase string) bool {
	p := strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
	if p == "" {
		return false
	}
	return strings.Contains(" "+norm+" ", " "+p+" ")
}
