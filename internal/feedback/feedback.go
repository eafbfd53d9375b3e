// Package feedback drafts short written feedback for a student's row from
// the recorded run results, using an OpenAI-compatible model. The client
// is optional: the dashboard works without it and the graders can always
// type feedback by hand.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pavelanni/gradeboard/internal/runner"

	openai "github.com/sashabaranov/go-openai"
)

// Draft is the model's suggested feedback for one student.
type Draft struct {
	Feedback string `json:"feedback"`
	Passed   bool   `json:"passed"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a feedback client. baseURL may be empty for the default
// OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// DraftFeedback summarizes a student's results into a short feedback note.
// results maps target name to the recorded run result.
func (c *Client) DraftFeedback(ctx context.Context, student string, results map[string]runner.Result) (*Draft, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildResultsPrompt(student, results)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("feedback API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("feedback model returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("feedback response", "student", student, "raw", raw)

	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("parse feedback response: %w (raw: %s)", err, raw)
	}
	return &draft, nil
}

func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a teaching assistant writing feedback on a programming assignment.\n")
	sb.WriteString("You will be given the automated run results for one student: their own tests ")
	sb.WriteString("against their implementation, and the same tests against reference implementations.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Write 2-4 sentences of feedback addressed to the student.\n")
	sb.WriteString("- Name the failing checks and what they suggest, do not restate passing ones.\n")
	sb.WriteString("- If a run ended with an error rather than test failures, say so plainly.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"feedback": "<feedback text>", "passed": <true if every run passed>}`)
	sb.WriteString("\n")
	return sb.String()
}

// buildResultsPrompt renders the results in target-name order so the same
// inputs always produce the same prompt.
func buildResultsPrompt(student string, results map[string]runner.Result) string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("STUDENT: " + student + "\n\n")
	for _, name := range names {
		sb.WriteString("RUN " + name + ": ")
		switch v := results[name].(type) {
		case runner.Success:
			sb.WriteString(runner.Summarize(v) + "\n")
			for _, check := range v.Checks {
				for _, o := range check.Outcomes {
					if o.Result == runner.OutcomeSuccess {
						continue
					}
					fmt.Fprintf(&sb, "  %s check %q: %s (%s:%d)\n",
						o.Result, check.Name, o.Code, o.Loc.File, o.Loc.Line)
				}
			}
		case runner.Failure:
			fmt.Fprintf(&sb, "error %s at %s:%d\n%s\n",
				v.ErrorName, v.Loc.File, v.Loc.Line, v.Stack)
		}
	}
	return sb.String()
}
