package classify

import (
	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
)

// MediaDetector finds capture requests inside an utterance together
// with the subsystems that could receive the result.
type MediaDetector struct {
	rules *ruleset.Ruleset
}

// NewMediaDetector builds a media detector on top of a shared rule set.
func NewMediaDetector(rules *ruleset.Ruleset) *MediaDetector {
	return &MediaDetector{rules: rules}
}

// Detect returns the matched media action or nil.
func (d *MediaDetector) Detect(text string) *model.MediaDetection {
	detection, ok := d.rules.MatchMedia(text)
	if !ok {
		return nil
	}
	return detection
}
