package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ClusterSummary is the per-cluster statistics slice serialized into the
// interpretation prompt.
type ClusterSummary struct {
	ID          int
	PixelCount  int
	PercentArea float64
	Means       map[string]float64
}

// ClusterLabel is one cluster's semantic reading parsed from a model
// response.
type ClusterLabel struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// BuildClassificationPrompt renders the cluster statistics into the
// interpretation prompt: a natural-language preamble, the per-cluster
// numbers, and a strict JSON response contract restricted to the
// caller's closed label vocabulary.
func BuildClassificationPrompt(clusters []ClusterSummary, vocabulary []string) string {
	sorted := make([]ClusterSummary, len(clusters))
	copy(sorted, clusters)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	for _, c := range sorted {
		fmt.Fprintf(&b, "\nCluster %d:\n", c.ID)
		fmt.Fprintf(&b, "  Pixel count: %d\n", c.PixelCount)
		fmt.Fprintf(&b, "  Percent area: %.2f%%\n", c.PercentArea)
		fmt.Fprintf(&b, "  Mean NDVI: %.3f\n", c.Means["NDVI"])
		fmt.Fprintf(&b, "  Mean NDBI: %.3f\n", c.Means["NDBI"])
		fmt.Fprintf(&b, "  Mean MNDWI: %.3f\n", c.Means["MNDWI"])
		for _, band := range []string{"B2", "B3", "B4", "B8", "B11"} {
			fmt.Fprintf(&b, "  Mean %s: %.1f\n", band, c.Means[band])
		}
	}

	return fmt.Sprintf(`You are a remote-sensing expert. I will provide statistics for K-means clusters generated from a Sentinel-2 image.

Choose a semantic land-cover class for each cluster from:
[%s]

Use NDVI, NDBI, MNDWI and band means to infer class.

%s

Return JSON:
{
  "cluster_0": {"label": "...", "confidence": 0.0-1.0, "rationale": "..."},
  "cluster_1": {"label": "...", "confidence": 0.0-1.0, "rationale": "..."},
  ...
}

Return ONLY valid JSON, no additional text.`, strings.Join(vocabulary, ", "), b.String())
}

// ParseInterpretation extracts the first balanced-brace JSON object from
// the model's free-text response, applies the bounded repair pass when a
// straight parse fails, and returns the cluster_<id> records. Responses
// with no parsable object or no cluster keys are errors; the caller
// falls back to the rule engine.
func ParseInterpretation(text string) (map[int]ClusterLabel, error) {
	obj, ok := extractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("response contains no JSON object")
	}

	var raw map[string]ClusterLabel
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		repaired := RepairJSON(obj)
		if err2 := json.Unmarshal([]byte(repaired), &raw); err2 != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}

	out := make(map[int]ClusterLabel)
	for key, label := range raw {
		id, ok := clusterKeyID(key)
		if !ok {
			continue
		}
		out[id] = label
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("response contains no cluster entries")
	}
	return out, nil
}

// clusterKeyID parses "cluster_<id>" keys.
func clusterKeyID(key string) (int, bool) {
	const prefix = "cluster_"
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(key, prefix))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// extractJSONObject returns the first balanced-brace substring of text.
// Braces inside double-quoted strings are ignored.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
