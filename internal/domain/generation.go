package domain

import (
	"fmt"
	"strings"
)

// Effort is the reasoning depth requested from the model for a whole batch.
type Effort string

const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// ParseEffort validates a configured effort level.
func ParseEffort(value string) (Effort, error) {
	switch e := Effort(strings.ToLower(strings.TrimSpace(value))); e {
	case EffortMinimal, EffortLow, EffortMedium, EffortHigh:
		return e, nil
	default:
		return "", fmt.Errorf("unknown reasoning effort %q", value)
	}
}

// Task tags a batch call for the text-generation service.
type Task struct {
	Tag     string
	Subtask string
}

func (t Task) String() string {
	return t.Tag + "/" + t.Subtask
}

// GenerationRequest is one prompt of a batch call. Key identifies the request
// so responses can be checked against the request they answer.
type GenerationRequest struct {
	Key          string
	SystemPrompt string
	UserPrompt   string
	Effort       Effort
}

// RawResponse is the unparsed text returned for one request.
type RawResponse struct {
	Key     string
	Content string
}

// BatchResult has exactly one slot per request, in request order. A nil slot
// means the service produced nothing for that request.
type BatchResult []*RawResponse
