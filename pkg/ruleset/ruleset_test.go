package ruleset_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/canopy/pkg/model"
	"github.com/m-mizutani/canopy/pkg/ruleset"
)

func TestDefaultRules(t *testing.T) {
	rs := ruleset.Default()
	gt.NoError(t, rs.Validate())
	gt.Number(t, len(rs.Subsystems)).Greater(9)
	gt.Number(t, len(rs.Media)).Equal(4)
}

func TestMatchSubsystem(t *testing.T) {
	rs := ruleset.Default()

	testCases := map[string]struct {
		text    string
		want    model.Subsystem
		matched bool
	}{
		"tree keyword": {
			text:    "check the oak tree",
			want:    model.SubsystemTrees,
			matched: true,
		},
		"task verb wins over tree noun by table order": {
			text:    "remind me to check the oak tree",
			want:    model.SubsystemTasks,
			matched: true,
		},
		"photo goes to camera": {
			text:    "take a photo",
			want:    model.SubsystemCamera,
			matched: true,
		},
		"punctuation does not block matching": {
			text:    "Open the map, please!",
			want:    model.SubsystemMap,
			matched: true,
		},
		"smalltalk matches nothing": {
			text:    "good morning",
			matched: false,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			got, ok := rs.MatchSubsystem(tc.text)
			gt.Equal(t, ok, tc.matched)
			if tc.matched {
				gt.Equal(t, got, tc.want)
			}
		})
	}
}

func TestMatchIsWordBounded(t *testing.T) {
	rs := ruleset.Default()

	// "italy" contains "it" as a substring but not as a word
	gt.False(t, rs.HasAmbiguousReference("flights to italy"))
	gt.True(t, rs.HasAmbiguousReference("move it to tomorrow"))
}

func TestGeneralAndDestructive(t *testing.T) {
	rs := ruleset.Default()

	gt.True(t, rs.IsSmalltalk("Hello!"))
	gt.True(t, rs.IsHelp("how do I add a tree"))
	gt.False(t, rs.IsGeneral("add a task for tomorrow"))
	gt.True(t, rs.HasDestructive("delete the old report"))
	gt.False(t, rs.HasDestructive("complete the task"))
}

func TestMatchMedia(t *testing.T) {
	rs := ruleset.Default()

	detection, ok := rs.MatchMedia("take a photo of the trunk")
	gt.True(t, ok)
	gt.Equal(t, detection.Action, model.MediaPhotoCapture)
	gt.True(t, detection.MultiTarget())
	gt.A(t, detection.Options).Length(3)
	gt.True(t, strings.Contains(strings.Join(detection.Options, "|"), "Open camera"))

	_, ok = rs.MatchMedia("summarize my week")
	gt.False(t, ok)
}

func TestLoadRejectsBadRules(t *testing.T) {
	bad := `
subsystems:
  - name: spaceships
    keywords: [rocket]
`
	_, err := ruleset.Load(strings.NewReader(bad))
	gt.Error(t, err)
}

func TestBestSubsystem(t *testing.T) {
	rs := ruleset.Default()

	sub, hits := rs.BestSubsystem("prune the oak tree near the gate")
	gt.Equal(t, sub, model.SubsystemTrees)
	gt.Number(t, hits).Greater(1)

	_, hits = rs.BestSubsystem("nothing relevant at all")
	gt.Number(t, hits).Equal(0)
}
