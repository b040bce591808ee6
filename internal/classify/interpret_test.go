package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func statsWithMeans(ndvi, mndwi, ndbi float64) ClusterStats {
	return ClusterStats{
		0: {PixelCount: 10, PercentArea: 100, Means: map[string]float64{
			"NDVI": ndvi, "MNDWI": mndwi, "NDBI": ndbi,
		}},
	}
}

func TestRuleEngine_Thresholds(t *testing.T) {
	cases := []struct {
		name             string
		ndvi, mndwi, ndbi float64
		wantLabel        string
		wantConfidence   float64
	}{
		{"water", -0.2, 0.5, -0.1, string(ClassWater), 0.8},
		{"forest", 0.75, -0.3, -0.2, string(ClassForest), 0.75},
		{"grassland low edge", 0.3, -0.1, 0, string(ClassGrassland), 0.7},
		{"grassland high edge", 0.6, -0.1, 0, string(ClassGrassland), 0.7},
		{"built-up", 0.15, -0.2, 0.35, string(ClassBuiltUp), 0.75},
		{"bare soil", 0.05, -0.15, 0.1, string(ClassBareSoil), 0.7},
		{"unknown", 0.2, 0.1, 0.1, string(ClassUnknown), 0.5},
	}

	engine := RuleEngine{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Interpret(context.Background(), statsWithMeans(tc.ndvi, tc.mndwi, tc.ndbi))
			if err != nil {
				t.Fatalf("Interpret: %v", err)
			}
			if res.Method != MethodRuleBased {
				t.Errorf("method %q, want %q", res.Method, MethodRuleBased)
			}
			got := res.Clusters[0]
			if got.Label != tc.wantLabel {
				t.Errorf("label %q, want %q", got.Label, tc.wantLabel)
			}
			if got.Confidence != tc.wantConfidence {
				t.Errorf("confidence %f, want %f", got.Confidence, tc.wantConfidence)
			}
			if got.Rationale == "" {
				t.Error("missing rationale")
			}
		})
	}
}

func TestRuleEngine_WaterRuleWinsFirst(t *testing.T) {
	// MNDWI above the water threshold decides even when NDVI also sits
	// in a matching range; rules apply in priority order.
	res, _ := RuleEngine{}.Interpret(context.Background(), statsWithMeans(0.05, 0.35, 0.25))
	got := res.Clusters[0]
	if got.Label != string(ClassWater) {
		t.Fatalf("label %q, want Water", got.Label)
	}
	if want := "MNDWI > 0.3 (0.350) indicates water"; got.Rationale != want {
		t.Errorf("rationale %q, want %q", got.Rationale, want)
	}
}

func TestRuleEngine_MissingMeansDefaultToZero(t *testing.T) {
	// A cluster with no index features falls through to unknown:
	// NDVI 0 is below the bare-soil cutoff but MNDWI 0 is not negative.
	stats := ClusterStats{0: {PixelCount: 5, Means: map[string]float64{}}}
	res, _ := RuleEngine{}.Interpret(context.Background(), stats)
	if got := res.Clusters[0].Label; got != string(ClassUnknown) {
		t.Errorf("label %q, want Unknown", got)
	}
}

type scriptedGenerator struct {
	response string
	err      error
	prompt   string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.response, g.err
}

func TestRemoteInterpreter_Success(t *testing.T) {
	gen := &scriptedGenerator{response: `Here you go:
{"cluster_0": {"label": "Forest", "confidence": 0.9, "rationale": "high NDVI"}}`}

	ri := NewRemoteInterpreter(gen, nil)
	res, err := ri.Interpret(context.Background(), statsWithMeans(0.8, -0.2, -0.3))
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Method != MethodLLM {
		t.Errorf("method %q, want %q", res.Method, MethodLLM)
	}
	if got := res.Clusters[0].Label; got != "Forest" {
		t.Errorf("label %q, want Forest", got)
	}
	if !strings.Contains(gen.prompt, "Mean NDVI: 0.800") {
		t.Error("prompt missing cluster statistics")
	}
	// The prompt offers exactly the legend vocabulary.
	for _, class := range Vocabulary() {
		if !strings.Contains(gen.prompt, string(class)) {
			t.Errorf("prompt missing class %q", class)
		}
	}
}

func TestRemoteInterpreter_FallsBackOnError(t *testing.T) {
	gen := &scriptedGenerator{err: fmt.Errorf("connection refused")}
	ri := NewRemoteInterpreter(gen, nil)

	res, err := ri.Interpret(context.Background(), statsWithMeans(-0.2, 0.5, -0.1))
	if err != nil {
		t.Fatalf("fallback must not error: %v", err)
	}
	if res.Method != MethodRuleBased {
		t.Errorf("method %q, want %q after fallback", res.Method, MethodRuleBased)
	}
	if got := res.Clusters[0].Label; got != string(ClassWater) {
		t.Errorf("fallback label %q, want Water", got)
	}
}

func TestRemoteInterpreter_FallsBackOnGarbage(t *testing.T) {
	for _, response := range []string{"", "no json here", `{"other": 1}`} {
		gen := &scriptedGenerator{response: response}
		ri := NewRemoteInterpreter(gen, nil)

		res, err := ri.Interpret(context.Background(), statsWithMeans(0.8, -0.2, -0.3))
		if err != nil {
			t.Fatalf("response %q: fallback must not error: %v", response, err)
		}
		if res.Method != MethodRuleBased {
			t.Errorf("response %q: method %q, want rule-based fallback", response, res.Method)
		}
	}
}

func TestRemoteInterpreter_ClampsConfidence(t *testing.T) {
	gen := &scriptedGenerator{response: `{"cluster_0": {"label": "Water", "confidence": 1.7, "rationale": "x"}}`}
	ri := NewRemoteInterpreter(gen, nil)

	res, err := ri.Interpret(context.Background(), statsWithMeans(-0.2, 0.5, -0.1))
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got := res.Clusters[0].Confidence; got != 1 {
		t.Errorf("confidence %f, want clamped to 1", got)
	}
}

func TestRemoteInterpreter_NilGeneratorFallsBack(t *testing.T) {
	ri := &RemoteInterpreter{}
	res, err := ri.Interpret(context.Background(), statsWithMeans(0.8, -0.2, -0.3))
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Method != MethodRuleBased {
		t.Errorf("method %q, want rule-based", res.Method)
	}
}
