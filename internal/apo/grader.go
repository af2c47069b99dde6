package apo

import (
	"strings"

	"github.com/raglab/arxrag/internal/agent"
)

// Gibberish short-circuit scores: the right behavior on a nonsense query is
// to call no tool and say so.
const (
	gibberishNoToolScore = 0.8
	gibberishToolScore   = 0.2
)

var errorIndicators = []string{"error", "failed", "unable to", "cannot", "empty"}

var citationKeywords = []string{"arxiv", "paper", "source", "reference", "http", "doi"}

var hedgingPhrases = []string{"i don't know", "i cannot", "no information", "unable to find"}

var recencyKeywords = []string{
	"recent", "latest", "new", "newest", "search arxiv", "2024", "2023", "published in",
}

// Grader scores a finished agent run against a task. It is a deterministic
// pure function of the transcript and task metadata; scores are only used
// offline to compare prompt variants.
type Grader struct {
	// Gibberish classifies queries whose correct handling is no tool call.
	Gibberish Classifier
}

// NewGrader returns a Grader with the default gibberish classifier.
func NewGrader() *Grader {
	return &Grader{Gibberish: IsGibberish}
}

// Score grades the run additively and clamps to [0,1].
//
// Tool-usage credit, tool-selection bonuses, and citation-quality credit all
// require productive tool use: at least one invocation whose result is not an
// empty/error sentinel. A transcript whose every tool result is a sentinel
// earns only format and length credit.
func (g *Grader) Score(task Task, res *agent.Result) float64 {
	if res == nil || res.Answer == "" {
		return 0
	}

	sequence := toolSequence(res)

	if g.Gibberish != nil && g.Gibberish(task.Query) {
		if len(sequence) == 0 {
			return gibberishNoToolScore
		}
		return gibberishToolScore
	}

	productive := false
	for _, inv := range res.Invocations {
		if !agent.IsSentinel(inv.Result) {
			productive = true
			break
		}
	}

	var score float64

	// Tool usage.
	if len(sequence) > 0 && productive {
		score += 0.3
		score += selectionBonus(task, sequence[0])
	}

	// Output format compliance.
	upper := strings.ToUpper(res.Answer)
	hasToolLog := strings.Contains(upper, "TOOL_LOG")
	hasAnswer := strings.Contains(upper, "ANSWER:") || len(res.Answer) > 50
	switch {
	case hasToolLog && hasAnswer:
		score += 0.2
	case hasAnswer:
		score += 0.1
	}

	// Response completeness.
	lower := strings.ToLower(res.Answer)
	hasErrors := containsAny(lower, errorIndicators)
	switch {
	case !hasErrors && len(res.Answer) > 100:
		score += 0.3
	case len(res.Answer) > 50:
		score += 0.15
	}

	// Response quality, gated on productive tool use so a run that retrieved
	// nothing cannot earn citation credit for name-dropping sources.
	if productive {
		hasCitations := containsAny(lower, citationKeywords)
		hasContent := !containsAny(lower, hedgingPhrases)
		switch {
		case hasCitations && hasContent:
			score += 0.2
		case hasContent:
			score += 0.1
		}

		if len(task.ExpectedContains) > 0 {
			found := 0
			for _, phrase := range task.ExpectedContains {
				if strings.Contains(lower, strings.ToLower(phrase)) {
					found++
				}
			}
			if found > 0 {
				score += float64(found) / float64(len(task.ExpectedContains)) * 0.1
			}
		}
	}

	return clamp01(score)
}

// selectionBonus rewards calling the right tool first: the cheap vector
// search by default, the live arXiv search when the task or its wording
// demands recency.
func selectionBonus(task Task, firstTool string) float64 {
	var bonus float64

	switch {
	case task.IntelligentChoice == ChoiceArxivFirst && firstTool == agent.ToolArxivSearch:
		bonus += 0.15
	case task.IntelligentChoice == ChoiceRagFirst && firstTool == agent.ToolRagQuery:
		bonus += 0.1
	case task.IntelligentChoice == ChoiceArxivFirst && firstTool == agent.ToolRagQuery:
		bonus -= 0.1
	case task.IntelligentChoice == ChoiceRagFirst && firstTool == agent.ToolArxivSearch:
		bonus -= 0.05
	}

	if containsAny(strings.ToLower(task.Query), recencyKeywords) {
		switch firstTool {
		case agent.ToolArxivSearch:
			bonus += 0.1
		case agent.ToolRagQuery:
			bonus -= 0.05
		}
	}
	return bonus
}

// toolSequence extracts the known tool names in invocation order.
func toolSequence(res *agent.Result) []string {
	var seq []string
	for _, inv := range res.Invocations {
		if inv.Name == agent.ToolRagQuery || inv.Name == agent.ToolArxivSearch {
			seq = append(seq, inv.Name)
		}
	}
	return seq
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
