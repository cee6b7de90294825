package charts

import "strings"

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartScatter ChartType = "scatter"
)

func ParseChartType(raw string) (ChartType, bool) {
	switch ChartType(strings.ToLower(strings.TrimSpace(raw))) {
	case ChartBar:
		return ChartBar, true
	case ChartLine:
		return ChartLine, true
	case ChartPie:
		return ChartPie, true
	case ChartScatter:
		return ChartScatter, true
	default:
		return "", false
	}
}

// Descriptor is a chart description as emitted by the generative model.
// Values stay untyped until validation: the model may send numbers,
// numeric strings, placeholders like "N/A", or [x, y] pairs.
type Descriptor struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Series      []SeriesPoint `json:"series"`
	Description string        `json:"description,omitempty"`
}

type SeriesPoint struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Point is a validated data point. For non-scatter charts X is the
// position in the series.
type Point struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ValidatedDescriptor can only be produced by Validate.
type ValidatedDescriptor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        ChartType `json:"type"`
	Description string    `json:"description,omitempty"`
	Points      []Point   `json:"points"`

	valid bool
}

func (v ValidatedDescriptor) Valid() bool { return v.valid }

// Title is the display name, falling back to the id.
func (v ValidatedDescriptor) Title() string {
	if s := strings.TrimSpace(v.Name); s != "" {
		return s
	}
	return v.ID
}
