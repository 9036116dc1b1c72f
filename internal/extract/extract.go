// Package extract watches a conversation for execution intent and produces
// a typed ExecutionRequest. The primary path is the schema-validated
// start_execution tool call; scanning raw text for an embedded JSON payload
// is a best-effort fallback for models that answer in prose.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/sgranger-dev/boardroom/pkg/models"
)

// StartToolName is the tool the model calls to begin execution.
const StartToolName = "start_execution"

// fencedJSONRe matches a ```json fenced block;  inlineJSONRe matches the
// first top-level-looking object in plain text. Both come second to the
// tool-call channel and are heuristics, not guarantees.
var (
	fencedJSONRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	inlineJSONRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// startPayload is the wire shape of the extraction, shared by both paths.
type startPayload struct {
	Action             string   `json:"action,omitempty"`
	CompanyName        string   `json:"company_name"`
	Industry           string   `json:"industry"`
	TargetAudience     string   `json:"target_audience"`
	ProductDescription string   `json:"product_description"`
	Differentiation    string   `json:"differentiation"`
	BrandTone          string   `json:"brand_tone"`
	Competitors        []string `json:"competitors"`
}

func (p startPayload) request() models.ExecutionRequest {
	return models.ExecutionRequest{
		CompanyName:        p.CompanyName,
		Industry:           p.Industry,
		TargetAudience:     p.TargetAudience,
		ProductDescription: p.ProductDescription,
		Differentiation:    p.Differentiation,
		BrandTone:          p.BrandTone,
		Competitors:        p.Competitors,
	}.WithDefaults()
}

// immediateCommands are terse user messages that mean "execute now with
// whatever has been gathered"; they are always honored without clarification.
var immediateCommands = map[string]bool{
	"go":       true,
	"do it":    true,
	"start":    true,
	"run":      true,
	"run it":   true,
	"go ahead": true,
	"execute":  true,
	"launch":   true,
	"yes go":   true,
}

// Extractor fires at most once per conversation: repeated stream updates of
// the same turn sequence must not spawn duplicate runs.
type Extractor struct {
	mu    sync.Mutex
	fired bool
}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Fired reports whether the latch is set.
func (e *Extractor) Fired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fired
}

// Reset clears the latch, for reuse across distinct conversations.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fired = false
}

// LatestTurn returns the suffix of the conversation starting at the last
// user message: the turn currently being answered. Callers that receive the
// whole conversation on every request scan only this slice, so a tool call
// echoed from an earlier turn in resubmitted history cannot trigger a second
// execution.
func LatestTurn(messages []models.Message) []models.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i:]
		}
	}
	return messages
}

// Extract inspects the conversation and returns an ExecutionRequest when
// execution intent is present, or nil when there is none yet. Once it
// returns a request the latch is set and subsequent calls return nil.
//
// Only the latest turn can fire. Conversations arrive whole on every
// request, so a start_execution tool call echoed from an earlier turn must
// read as history, not as fresh intent.
func (e *Extractor) Extract(messages []models.Message) *models.ExecutionRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fired {
		return nil
	}

	req := scan(messages)
	if req != nil {
		e.fired = true
	}
	return req
}

// scan applies the extraction paths in priority order. The tool-call and
// embedded-JSON paths look only at the latest turn; the terse-command path
// fires on the turn's user message but fills fields from the whole
// conversation before falling back to defaults.
func scan(messages []models.Message) *models.ExecutionRequest {
	turn := LatestTurn(messages)

	// Primary path: the structured tool-call channel. Accept only calls
	// whose company_name is non-empty; providers emit empty invocations
	// mid-stream and those must not trigger a run.
	for i := len(turn) - 1; i >= 0; i-- {
		for _, call := range turn[i].ToolCalls {
			if call.Name != StartToolName {
				continue
			}
			var payload startPayload
			if err := json.Unmarshal(call.Input, &payload); err != nil {
				continue
			}
			if payload.CompanyName == "" {
				continue
			}
			req := payload.request()
			return &req
		}
	}

	// Secondary path: an embedded JSON payload in assistant text.
	for i := len(turn) - 1; i >= 0; i-- {
		if turn[i].Role != "assistant" {
			continue
		}
		if payload, ok := parseEmbedded(turn[i].Content); ok {
			req := payload.request()
			return &req
		}
	}

	// Terse commands: execute immediately with whatever has been gathered
	// so far, defaults filling the rest.
	for i := len(turn) - 1; i >= 0; i-- {
		if turn[i].Role != "user" {
			continue
		}
		if immediateCommands[normalize(turn[i].Content)] {
			req := gathered(messages).request()
			return &req
		}
		break
	}

	return nil
}

// gathered folds every start_execution payload fragment in the conversation
// into one payload, later fragments winning per field. Fragments with an
// empty company_name never fire on their own but still carry details the
// user already supplied.
func gathered(messages []models.Message) startPayload {
	var merged startPayload
	for _, m := range messages {
		for _, call := range m.ToolCalls {
			if call.Name != StartToolName {
				continue
			}
			var payload startPayload
			if err := json.Unmarshal(call.Input, &payload); err != nil {
				continue
			}
			merged = merge(merged, payload)
		}
	}
	return merged
}

func merge(base, next startPayload) startPayload {
	if next.CompanyName != "" {
		base.CompanyName = next.CompanyName
	}
	if next.Industry != "" {
		base.Industry = next.Industry
	}
	if next.TargetAudience != "" {
		base.TargetAudience = next.TargetAudience
	}
	if next.ProductDescription != "" {
		base.ProductDescription = next.ProductDescription
	}
	if next.Differentiation != "" {
		base.Differentiation = next.Differentiation
	}
	if next.BrandTone != "" {
		base.BrandTone = next.BrandTone
	}
	if len(next.Competitors) > 0 {
		base.Competitors = next.Competitors
	}
	return base
}

// parseEmbedded looks for a start_execution JSON object in plain text,
// fenced form first, then inline.
func parseEmbedded(text string) (startPayload, bool) {
	candidates := make([]string, 0, 2)
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := inlineJSONRe.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	for _, candidate := range candidates {
		var payload startPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}
		if payload.Action != StartToolName && payload.Action != "start" {
			continue
		}
		if payload.CompanyName == "" {
			continue
		}
		return payload, true
	}
	return startPayload{}, false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".!")
}
