package action

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/m-mizutani/canopy/pkg/model"
)

// Policy evaluates Rego rules that can demand extra confirmations on
// top of the built-in safety rules. A policy can only add
// confirmations, never waive one.
type Policy struct {
	query *rego.PreparedEvalQuery
}

// LoadPolicy loads all Rego files from policyDir and prepares the
// confirm query. An empty directory yields a policy that never fires.
func LoadPolicy(ctx context.Context, policyDir string) (*Policy, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return &Policy{}, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.confirm"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare confirm query")
	}
	return &Policy{query: &prepared}, nil
}

// Require evaluates the policy for one intent. It returns the demand
// or nil when the policy stays silent.
func (p *Policy) Require(ctx context.Context, intent *model.IntelligenceIntent, ui *model.UIContext) (*Confirmation, error) {
	if p == nil || p.query == nil {
		return nil, nil
	}

	input := map[string]any{
		"category":   string(intent.Category),
		"label":      string(intent.Label),
		"confidence": intent.Confidence,
		"mode":       string(ui.Mode),
		"page":       string(ui.CurrentPage),
		"polite":     intent.Polite,
		"text":       intent.Utterance.Text,
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate confirm policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, nil
	}
	require, _ := data["require"].(bool)
	if !require {
		return nil, nil
	}

	reason, _ := data["reason"].(string)
	if reason == "" {
		reason = "confirmation required by policy"
	}
	return &Confirmation{
		Reason:  model.ConfirmPolicy,
		Message: reason,
	}, nil
}
