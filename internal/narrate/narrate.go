package narrate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/covera-health/covera/internal/model"
)

// Narrator rewrites a deterministic answer into friendlier prose. The
// structured answer, its citations, and every classification decision are
// computed before narration and never depend on it.
type Narrator interface {
	Narrate(ctx context.Context, question, answerText string, answerJSON map[string]interface{}) (string, error)
}

// New builds the configured narrator, or nil when narration is disabled.
func New(cfg model.NarrateConfig) (Narrator, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		return newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown narration provider: %s", cfg.Provider)
	}
}

// buildPrompt frames the rewrite task. The model gets the computed answer
// and data and may only rephrase; it is told not to add facts, numbers, or
// facilities beyond them.
func buildPrompt(question, answerText string, answerJSON map[string]interface{}) string {
	data, err := json.MarshalIndent(answerJSON, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf(`Rewrite the answer below in one or two clear sentences for a health planner.

RULES:
1. Use ONLY the facts in the computed answer and data. Do not add facilities, numbers, or qualifiers that are not there.
2. Do not soften or remove caveats about unverified or suspected claims.
3. No preamble; reply with the rewritten answer only.

Question: %s

Computed answer: %s

Computed data:
%s
`, question, answerText, data)
}
