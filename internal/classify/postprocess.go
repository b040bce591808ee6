package classify

import (
	"fmt"

	"github.com/terralytics/landcover/internal/monitoring"
	"github.com/terralytics/landcover/internal/raster"
)

// PostprocessParams configures the optional spatial cleanup pass.
type PostprocessParams struct {
	// MinAreaPixels removes connected components smaller than this many
	// pixels. Zero disables small-region removal.
	MinAreaPixels int
}

// Postprocess applies the majority filter followed by small-region
// removal and returns a new label grid; the raw grid is left untouched
// so both can be persisted as separate artifacts.
func Postprocess(labels *raster.Int32Grid, params PostprocessParams, logf monitoring.LogFunc) *raster.Int32Grid {
	logf = logf.OrDefault()

	out := MajorityFilter(labels, logf)
	if params.MinAreaPixels > 0 {
		removed := RemoveSmallRegions(out, params.MinAreaPixels, logf)
		logf(fmt.Sprintf("Removed %d small regions", removed), monitoring.SeverityInfo)
	}
	return out
}

// MajorityFilter replaces each pixel's label with the most frequent
// label in its 3x3 window. No-data neighbors are excluded from the vote
// and positions outside the grid count as no-data, so border pixels see
// a smaller window. A window with no labeled pixels stays no-data. Ties
// resolve to the smallest label, which keeps the filter deterministic
// and idempotent on locally uniform grids.
func MajorityFilter(labels *raster.Int32Grid, logf monitoring.LogFunc) *raster.Int32Grid {
	logf.OrDefault()("Applying 3x3 majority filter...", monitoring.SeverityDebug)

	out := raster.NewInt32Grid(labels.Rows, labels.Cols, NoDataValue)
	votes := make(map[int32]int, 9)

	for r := 0; r < labels.Rows; r++ {
		for c := 0; c < labels.Cols; c++ {
			for k := range votes {
				delete(votes, k)
			}
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= labels.Rows || nc < 0 || nc >= labels.Cols {
						continue
					}
					if v := labels.At(nr, nc); v != NoDataValue {
						votes[v]++
					}
				}
			}

			winner := int32(NoDataValue)
			winnerCount := 0
			for label, count := range votes {
				if count > winnerCount || (count == winnerCount && label < winner) {
					winner = label
					winnerCount = count
				}
			}
			out.Set(r, c, winner)
		}
	}
	return out
}

// RemoveSmallRegions computes 8-connected components over the labeled
// mask (ignoring label identity, consistent with the majority filter's
// neighborhood) and reassigns every component smaller than minArea to
// the no-data sentinel, in place. Returns the number of components
// removed.
func RemoveSmallRegions(labels *raster.Int32Grid, minArea int, logf monitoring.LogFunc) int {
	logf.OrDefault()(fmt.Sprintf("Removing regions smaller than %d pixels...", minArea), monitoring.SeverityDebug)

	total := labels.Rows * labels.Cols
	component := make([]int, total) // 0 = unvisited or no-data
	nextID := 0
	var stack []int

	removed := 0
	for start := 0; start < total; start++ {
		if component[start] != 0 || labels.Data[start] == NoDataValue {
			continue
		}
		nextID++
		size := 0
		stack = append(stack[:0], start)
		component[start] = nextID
		members := []int{}

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			members = append(members, idx)

			r, c := idx/labels.Cols, idx%labels.Cols
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					nr, nc := r+dr, c+dc
					if nr < 0 || nr >= labels.Rows || nc < 0 || nc >= labels.Cols {
						continue
					}
					n := nr*labels.Cols + nc
					if component[n] == 0 && labels.Data[n] != NoDataValue {
						component[n] = nextID
						stack = append(stack, n)
					}
				}
			}
		}

		if size < minArea {
			for _, idx := range members {
				labels.Data[idx] = NoDataValue
			}
			removed++
		}
	}
	return removed
}
