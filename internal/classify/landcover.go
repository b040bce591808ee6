package classify

// LandCoverClass is a semantic land-cover label. The rule engine emits
// the core set; the remote interpreter may additionally return the
// extended vocabulary (Cropland, Wetland, Shadow), which shares the same
// color table so legend rendering never diverges from interpretation.
type LandCoverClass string

const (
	ClassWater     LandCoverClass = "Water"
	ClassForest    LandCoverClass = "Forest"
	ClassGrassland LandCoverClass = "Grassland"
	ClassCropland  LandCoverClass = "Cropland"
	ClassBuiltUp   LandCoverClass = "Built-up"
	ClassBareSoil  LandCoverClass = "Bare soil/rock"
	ClassWetland   LandCoverClass = "Wetland"
	ClassShadow    LandCoverClass = "Shadow"
	ClassUnknown   LandCoverClass = "Unknown"
)

// DefaultColor is the neutral gray used for unmapped or unknown classes.
const DefaultColor = "#808080"

// classColors is the single color lookup shared by the rule engine's
// vocabulary and the legend builder.
var classColors = map[LandCoverClass]string{
	ClassWater:     "#0066CC",
	ClassForest:    "#00CC00",
	ClassGrassland: "#90EE90",
	ClassCropland:  "#FFD700",
	ClassBuiltUp:   "#808080",
	ClassBareSoil:  "#D2691E",
	ClassWetland:   "#008B8B",
	ClassShadow:    "#000000",
	ClassUnknown:   "#FF00FF",
}

// Color returns the class's display color as a hex RGB string, or
// DefaultColor for labels outside the vocabulary.
func (c LandCoverClass) Color() string {
	if col, ok := classColors[c]; ok {
		return col
	}
	return DefaultColor
}

// Vocabulary lists every class the interpreters may emit, in legend
// order.
func Vocabulary() []LandCoverClass {
	return []LandCoverClass{
		ClassWater, ClassForest, ClassGrassland, ClassCropland,
		ClassBuiltUp, ClassBareSoil, ClassWetland, ClassShadow,
		ClassUnknown,
	}
}
