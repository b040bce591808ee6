package classify

import (
	"context"
	"fmt"
)

// ClusterInterpretation is the semantic reading of one numeric cluster.
type ClusterInterpretation struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Interpretation maps cluster id to its semantic reading.
type Interpretation map[int]ClusterInterpretation

// Interpretation methods recorded in the report.
const (
	MethodRuleBased = "Rule-based"
	MethodLLM       = "LLM"
)

// InterpretationResult couples the interpretation with the method that
// actually produced it, which may differ from the one requested when the
// remote interpreter fell back.
type InterpretationResult struct {
	Method   string
	Clusters Interpretation
}

// Interpreter maps cluster statistics to semantic labels. The pipeline
// depends only on this capability, never on a concrete provider.
type Interpreter interface {
	Interpret(ctx context.Context, stats ClusterStats) (InterpretationResult, error)
}

// Rule thresholds and confidences for the deterministic interpreter.
// Rules are evaluated in priority order; first match wins.
const (
	waterMNDWIMin       = 0.3
	forestNDVIMin       = 0.6
	grasslandNDVIMin    = 0.3
	builtUpNDBIMin      = 0.2
	bareSoilNDVIMax     = 0.1
	waterConfidence     = 0.8
	forestConfidence    = 0.75
	grasslandConfidence = 0.7
	builtUpConfidence   = 0.75
	bareSoilConfidence  = 0.7
	unknownConfidence   = 0.5
)

// RuleEngine is the always-available deterministic interpreter: a pure
// function of each cluster's mean NDVI, MNDWI and NDBI.
type RuleEngine struct{}

// Interpret classifies every cluster through the ordered threshold
// rules. It never fails.
func (RuleEngine) Interpret(_ context.Context, stats ClusterStats) (InterpretationResult, error) {
	out := make(Interpretation, len(stats))
	for id, cs := range stats {
		out[id] = classifyByRules(cs)
	}
	return InterpretationResult{Method: MethodRuleBased, Clusters: out}, nil
}

// classifyByRules applies the threshold cascade to one cluster's means.
func classifyByRules(cs ClusterStat) ClusterInterpretation {
	mndwi := cs.Mean("MNDWI")
	ndvi := cs.Mean("NDVI")
	ndbi := cs.Mean("NDBI")

	switch {
	case mndwi > waterMNDWIMin:
		return ClusterInterpretation{
			Label:      string(ClassWater),
			Confidence: waterConfidence,
			Rationale:  fmt.Sprintf("MNDWI > 0.3 (%.3f) indicates water", mndwi),
		}
	case ndvi > forestNDVIMin:
		return ClusterInterpretation{
			Label:      string(ClassForest),
			Confidence: forestConfidence,
			Rationale:  fmt.Sprintf("NDVI > 0.6 (%.3f) indicates dense vegetation", ndvi),
		}
	case ndvi >= grasslandNDVIMin && ndvi <= forestNDVIMin:
		return ClusterInterpretation{
			Label:      string(ClassGrassland),
			Confidence: grasslandConfidence,
			Rationale:  fmt.Sprintf("NDVI 0.3-0.6 (%.3f) indicates grassland", ndvi),
		}
	case ndbi > builtUpNDBIMin:
		return ClusterInterpretation{
			Label:      string(ClassBuiltUp),
			Confidence: builtUpConfidence,
			Rationale:  fmt.Sprintf("NDBI > 0.2 (%.3f) indicates built-up areas", ndbi),
		}
	case ndvi < bareSoilNDVIMax && mndwi < 0:
		return ClusterInterpretation{
			Label:      string(ClassBareSoil),
			Confidence: bareSoilConfidence,
			Rationale:  fmt.Sprintf("Low NDVI (%.3f) and negative MNDWI (%.3f)", ndvi, mndwi),
		}
	default:
		return ClusterInterpretation{
			Label:      string(ClassUnknown),
			Confidence: unknownConfidence,
			Rationale:  "Does not match clear land cover patterns",
		}
	}
}
