// File path: internal/agent/orchestrator.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/kb"
	"github.com/nicodishanthj/reqlens/internal/llm"
)

// State tracks orchestration progress across the fallback chain.
type State string

const (
	StatePending   State = "pending"
	StateTrying    State = "trying"
	StateSuccess   State = "success"
	StateExhausted State = "exhausted"
)

const defaultAttemptTimeout = 45 * time.Second

// ProviderSpec is one entry in the fallback chain. Lower Priority is tried
// first; equal priorities keep construction order. A nil Adapter uses the
// orchestrator's default.
type ProviderSpec struct {
	Name     string
	Priority int
	Provider llm.Provider
	Adapter  *Adapter
	Timeout  time.Duration
}

// Attempt records one provider call that did not succeed.
type Attempt struct {
	Provider string `json:"provider"`
	Err      string `json:"error"`
}

// Result carries the winning provider's records plus every failed attempt
// that preceded it, in order.
type Result struct {
	Provider string                 `json:"provider"`
	State    State                  `json:"state"`
	Records  []kb.RequirementRecord `json:"records"`
	Failures []Attempt              `json:"failures,omitempty"`
}

// AllProvidersFailed reports an exhausted chain with the per-provider
// reasons preserved in attempt order.
type AllProvidersFailed struct {
	Attempts []Attempt
}

func (e *AllProvidersFailed) Error() string {
	if len(e.Attempts) == 0 {
		return "no providers configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", attempt.Provider, attempt.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Orchestrator walks an ordered provider chain until one call succeeds.
// Providers are tried strictly sequentially; a per-attempt timeout keeps one
// slow backend from starving the rest of the chain.
type Orchestrator struct {
	specs   []ProviderSpec
	adapter *Adapter
}

func NewOrchestrator(specs []ProviderSpec) *Orchestrator {
	ordered := append([]ProviderSpec(nil), specs...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })
	return &Orchestrator{specs: ordered, adapter: NewAdapter()}
}

// NewOrchestratorFromEnv builds the chain from configured credentials in
// fallback order.
func NewOrchestratorFromEnv(ctx context.Context) *Orchestrator {
	providers := llm.NewProviderChain(ctx)
	specs := make([]ProviderSpec, 0, len(providers))
	for i, provider := range providers {
		specs = append(specs, ProviderSpec{Name: provider.Name(), Priority: i, Provider: provider})
	}
	return NewOrchestrator(specs)
}

// Extract sends the source excerpt through the chain and adapts the first
// successful response into requirement records. A response the adapter cannot
// turn into any record counts as a provider failure. Cancellation of ctx
// stops the chain between attempts.
func (o *Orchestrator) Extract(ctx context.Context, sourceFile, excerpt, intent string) (*Result, error) {
	logger := common.Logger()
	if o == nil || len(o.specs) == 0 {
		return nil, &AllProvidersFailed{}
	}
	if strings.TrimSpace(excerpt) == "" {
		return nil, errors.New("empty excerpt")
	}
	prompt := fmt.Sprintf("Source file: %s\n\n%s", sourceFile, excerpt)
	if strings.TrimSpace(intent) != "" {
		prompt = fmt.Sprintf("Focus: %s\n%s", strings.TrimSpace(intent), prompt)
	}
	messages := []llm.Message{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: prompt},
	}
	var failures []Attempt
	for _, spec := range o.specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = defaultAttemptTimeout
		}
		logger.Info("agent: trying provider", "provider", spec.Name)
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err := spec.Provider.Chat(attemptCtx, messages)
		cancel()
		if err != nil {
			logger.Warn("agent: provider attempt failed", "provider", spec.Name, "error", err)
			failures = append(failures, Attempt{Provider: spec.Name, Err: err.Error()})
			continue
		}
		adapter := spec.Adapter
		if adapter == nil {
			adapter = o.adapter
		}
		records := adapter.Records(sourceFile, spec.Name, output)
		if len(records) == 0 {
			logger.Warn("agent: provider response yielded no records", "provider", spec.Name)
			failures = append(failures, Attempt{Provider: spec.Name, Err: "response contained no parsable requirements"})
			continue
		}
		logger.Info("agent: provider succeeded", "provider", spec.Name, "records", len(records))
		return &Result{
			Provider: spec.Name,
			State:    StateSuccess,
			Records:  records,
			Failures: failures,
		}, nil
	}
	return nil, &AllProvidersFailed{Attempts: failures}
}

const extractionSystemPrompt = `You analyze legacy COBOL source code and extract business requirements.
Respond with one requirement per line in the form:

category | requirement statement

where category is one of: business_rule, validation_logic, data_definition, file_operation.
Write each statement as a complete plain-English sentence. Do not add commentary.`
