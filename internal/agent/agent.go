package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raglab/arxrag/internal/llm"
)

// maxRounds bounds the tool-calling loop. A round is one model call plus the
// execution of every tool call it requested.
const maxRounds = 10

// Agent runs the bounded tool-calling conversation loop.
type Agent struct {
	client       llm.Client
	tools        *Toolset
	systemPrompt string
	logger       *slog.Logger
}

// New creates an Agent with the given system prompt.
func New(client llm.Client, tools *Toolset, systemPrompt string) *Agent {
	return &Agent{
		client:       client,
		tools:        tools,
		systemPrompt: systemPrompt,
		logger:       slog.Default(),
	}
}

// ToolInvocation records one executed tool call and its result.
type ToolInvocation struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Result    string `json:"result"`
}

// Result is the outcome of one agent run. Transcript holds the full
// conversation including the system prompt; Invocations lists executed tool
// calls in order.
type Result struct {
	Answer      string
	Transcript  []llm.Message
	Invocations []ToolInvocation
	Rounds      int
}

// ToolsUsed returns the distinct tool names in invocation order.
func (r *Result) ToolsUsed() []string {
	seen := make(map[string]bool)
	var names []string
	for _, inv := range r.Invocations {
		if !seen[inv.Name] {
			seen[inv.Name] = true
			names = append(names, inv.Name)
		}
	}
	return names
}

// Run answers the question using the tool-calling loop. The loop runs at most
// maxRounds model calls; it stops early when a response carries no tool
// calls. If the round budget is exhausted while the last message is still a
// tool result, one final model call without tools forces a natural-language
// answer. A model call failing is the only fatal path; tool failures are fed
// back to the model as sentinel strings.
func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	messages := []llm.Message{
		{Role: "system", Content: a.systemPrompt},
		{Role: "user", Content: question},
	}
	defs := a.tools.Definitions()

	res := &Result{}

	for round := 0; round < maxRounds; round++ {
		res.Rounds = round + 1

		msg, err := a.client.Chat(ctx, messages, defs)
		if err != nil {
			return nil, fmt.Errorf("model call (round %d): %w", round+1, err)
		}
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			break
		}

		for _, call := range msg.ToolCalls {
			result := a.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
			res.Invocations = append(res.Invocations, ToolInvocation{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    result,
			})
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			})
		}
	}

	// Round budget exhausted mid-conversation: ask for a final answer with no
	// tools on offer so the run always ends in natural language.
	if last := messages[len(messages)-1]; last.Role == "tool" {
		a.logger.Warn("round budget exhausted, forcing final answer", "rounds", res.Rounds)
		msg, err := a.client.Chat(ctx, messages, nil)
		if err != nil {
			return nil, fmt.Errorf("final model call: %w", err)
		}
		messages = append(messages, msg)
	}

	res.Transcript = messages
	res.Answer = finalAnswer(messages)
	return res, nil
}

// finalAnswer returns the content of the last assistant message with text.
func finalAnswer(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" && messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}
