package generator

import (
	"context"
	"sync"
)

// MockLLM answers prompts without calling a model. Respond overrides the
// canned per-task answers; every call is recorded.
type MockLLM struct {
	Respond func(Prompt) (string, error)

	mu    sync.Mutex
	calls []Prompt
}

func (m *MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Respond != nil {
		return m.Respond(prompt)
	}
	return cannedResponse(prompt), nil
}

// Calls returns how many prompts were received, optionally for one task.
func (m *MockLLM) Calls(task ...Task) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(task) == 0 {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Task == task[0] {
			n++
		}
	}
	return n
}

// Prompts returns a copy of the recorded prompts.
func (m *MockLLM) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.calls...)
}

func cannedResponse(p Prompt) string {
	switch p.Task {
	case TaskBounds:
		return `not json`
	case TaskTranscribe:
		return "Transcript unavailable in offline mode."
	case TaskDiagnose:
		return `{"primary_story": "A builder who ships products for small teams",
"actual_signal": "A list of job titles with no point of view",
"core_gap": "The headline names roles instead of the problem solved",
"consequence": "Recruiters skim past and miss the product work entirely",
"one_sentence_verdict": "All credentials, zero reason to keep reading."}`
	case TaskSelect:
		return `{"selected": [1, 2]}`
	case TaskPlaybook:
		return `{"editorial_verdict": "All credentials, zero reason to keep reading.",
"why_it_fails": ["The headline lists titles, not outcomes.", "The About section opens with dates.", "Nothing tells a stranger what problem gets solved."],
"the_fix": "Shift from listing roles to naming the problem you solve.",
"before_after": {"headline": {"before": "Engineer | Manager", "after": "I help small teams ship products that sell"},
"paragraph": {"before": "Experienced professional", "after": "Six years turning messy prototypes into products customers pay for"}},
"reusable_principle": "If someone reads your first line, they should feel the problem you solve."}`
	default:
		return "{}"
	}
}
