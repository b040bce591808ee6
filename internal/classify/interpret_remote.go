package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/terralytics/landcover/internal/llm"
	"github.com/terralytics/landcover/internal/monitoring"
)

// RemoteInterpreter asks a text-generation backend to label clusters
// from their statistics. It is strictly best-effort: any network
// failure, timeout, malformed response or empty result falls back to
// the rule engine with a warning, never an error. A single attempt is
// made per run.
type RemoteInterpreter struct {
	Gen      llm.Generator
	Fallback Interpreter
	Timeout  time.Duration
	Log      monitoring.LogFunc
}

// NewRemoteInterpreter wires a generator with the rule-based fallback
// and the default timeout.
func NewRemoteInterpreter(gen llm.Generator, logf monitoring.LogFunc) *RemoteInterpreter {
	return &RemoteInterpreter{
		Gen:      gen,
		Fallback: RuleEngine{},
		Timeout:  llm.DefaultTimeout,
		Log:      logf,
	}
}

// Interpret runs the remote call, parses the response and validates the
// result; on any failure it degrades to the fallback interpreter.
func (ri *RemoteInterpreter) Interpret(ctx context.Context, stats ClusterStats) (InterpretationResult, error) {
	logf := ri.Log.OrDefault()
	fallback := ri.Fallback
	if fallback == nil {
		fallback = RuleEngine{}
	}

	interp, err := ri.tryRemote(ctx, stats)
	if err != nil {
		logf(fmt.Sprintf("LLM interpretation failed: %v, using rule-based fallback", err), monitoring.SeverityWarning)
		return fallback.Interpret(ctx, stats)
	}
	logf("LLM interpretation successful", monitoring.SeverityInfo)
	return InterpretationResult{Method: MethodLLM, Clusters: interp}, nil
}

func (ri *RemoteInterpreter) tryRemote(ctx context.Context, stats ClusterStats) (Interpretation, error) {
	if ri.Gen == nil {
		return nil, fmt.Errorf("no generator configured")
	}

	summaries := make([]llm.ClusterSummary, 0, len(stats))
	for _, id := range stats.IDs() {
		cs := stats[id]
		summaries = append(summaries, llm.ClusterSummary{
			ID:          id,
			PixelCount:  cs.PixelCount,
			PercentArea: cs.PercentArea,
			Means:       cs.Means,
		})
	}
	classes := Vocabulary()
	vocab := make([]string, 0, len(classes))
	for _, class := range classes {
		vocab = append(vocab, string(class))
	}
	prompt := llm.BuildClassificationPrompt(summaries, vocab)

	timeout := ri.Timeout
	if timeout <= 0 {
		timeout = llm.DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := ri.Gen.Generate(callCtx, prompt)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	parsed, err := llm.ParseInterpretation(text)
	if err != nil {
		return nil, err
	}

	out := make(Interpretation, len(parsed))
	for id, label := range parsed {
		out[id] = ClusterInterpretation{
			Label:      label.Label,
			Confidence: clampUnit(label.Confidence),
			Rationale:  label.Rationale,
		}
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
