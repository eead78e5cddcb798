package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const MockModel = "mock/course-planner"

// MockClient returns a small, valid course derived from the prompt's last
// lines so the stack can run end to end without a provider key.
type MockClient struct {
	host string
}

func NewMock() *MockClient { return &MockClient{host: "localhost"} }

func (m *MockClient) Host() string { return m.host }

func (m *MockClient) Model() string { return MockModel }

func (m *MockClient) Complete(ctx context.Context, r Request) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	title, lines := mockOutline(r.Prompt)

	type topic struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Depth       int      `json:"depth"`
		ParentID    *string  `json:"parentId"`
		KeyConcepts []string `json:"keyConcepts"`
		Duration    int      `json:"duration"`
		Difficulty  int      `json:"difficulty"`
	}
	var topics []topic
	for i, line := range lines {
		rootID := fmt.Sprintf("%d", i+1)
		topics = append(topics, topic{ID: rootID, Title: line, Depth: 1, KeyConcepts: []string{line}, Duration: 60, Difficulty: 2})
		for j, part := range []string{"Foundations", "Practice"} {
			pid := rootID
			topics = append(topics, topic{
				ID:         fmt.Sprintf("%s.%d", rootID, j+1),
				Title:      fmt.Sprintf("%s: %s", line, part),
				Depth:      2,
				ParentID:   &pid,
				Duration:   30,
				Difficulty: 2 + j,
			})
		}
	}
	body, err := json.MarshalIndent(map[string]any{
		"courseTitle":       title,
		"courseDescription": "Generated offline by the mock provider.",
		"topics":            topics,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	promptTokens := len(strings.Fields(r.Prompt))
	usage, _ := json.Marshal(map[string]int{"prompt_tokens": promptTokens, "completion_tokens": len(body) / 4, "total_tokens": promptTokens + len(body)/4})
	return &Completion{
		ID:      "mock-completion",
		Model:   MockModel,
		Content: "```json\n" + string(body) + "\n```",
		Usage:   usage,
	}, nil
}

// mockOutline takes up to three non-empty lines from the end of the prompt,
// where the source text sits, and uses the first as the course title.
func mockOutline(prompt string) (string, []string) {
	all := strings.Split(prompt, "\n")
	var lines []string
	for i := len(all) - 1; i >= 0 && len(lines) < 3; i-- {
		l := strings.TrimSpace(all[i])
		if l == "" || strings.HasSuffix(l, ":") {
			break
		}
		lines = append([]string{l}, lines...)
	}
	if len(lines) == 0 {
		lines = []string{"Overview"}
	}
	return lines[0], lines
}
