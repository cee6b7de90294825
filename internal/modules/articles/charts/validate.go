package charts

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

type RejectionCode string

const (
	RejectMissingField     RejectionCode = "missing_field"
	RejectUnsupportedType  RejectionCode = "unsupported_type"
	RejectEmptySeries      RejectionCode = "empty_series"
	RejectNegativeValue    RejectionCode = "negative_value"
	RejectZeroTotal        RejectionCode = "zero_total"
	RejectNonNumericValue  RejectionCode = "non_numeric_value"
	RejectPlaceholderLabel RejectionCode = "placeholder_label"
	RejectDuplicateLabel   RejectionCode = "duplicate_label"
	RejectScatterNotPaired RejectionCode = "scatter_not_paired"
	RejectDuplicateID      RejectionCode = "duplicate_id"
)

// Rejection explains why a descriptor was not rendered.
type Rejection struct {
	ID     string        `json:"id"`
	Code   RejectionCode `json:"code"`
	Reason string        `json:"reason"`
}

func (r *Rejection) Error() string {
	if r == nil {
		return "invalid chart descriptor"
	}
	return fmt.Sprintf("invalid chart descriptor %q (%s): %s", r.ID, r.Code, r.Reason)
}

func reject(id string, code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{ID: id, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// maxMagnitude bounds accepted values so that axis spans and pie totals
// stay finite.
const maxMagnitude = 1e300

type parsedValue struct {
	x, y    float64
	numeric bool
	paired  bool
	raw     string
}

// Validate runs the descriptor checks in order and stops at the first
// failure. A rejected descriptor is never partially rendered.
func Validate(d Descriptor) (ValidatedDescriptor, *Rejection) {
	id := strings.TrimSpace(d.ID)

	// 1. required fields
	if id == "" {
		return ValidatedDescriptor{}, reject(id, RejectMissingField, "id is empty")
	}
	if strings.TrimSpace(d.Type) == "" {
		return ValidatedDescriptor{}, reject(id, RejectMissingField, "type is empty")
	}
	if d.Series == nil {
		return ValidatedDescriptor{}, reject(id, RejectMissingField, "series is missing")
	}

	// 2. type
	kind, ok := ParseChartType(d.Type)
	if !ok {
		return ValidatedDescriptor{}, reject(id, RejectUnsupportedType, "type %q is not one of bar, line, pie, scatter", d.Type)
	}

	// 3. series shape
	if len(d.Series) == 0 {
		return ValidatedDescriptor{}, reject(id, RejectEmptySeries, "series has no points")
	}
	values := make([]parsedValue, len(d.Series))
	for i, p := range d.Series {
		values[i] = parseValue(p.Value)
	}
	if kind == ChartPie {
		total := 0.0
		allNumeric := true
		for i, v := range values {
			if !v.numeric || v.paired {
				allNumeric = false
				continue
			}
			if v.y < 0 {
				return ValidatedDescriptor{}, reject(id, RejectNegativeValue, "pie slice %q has negative value %v", d.Series[i].Label, v.y)
			}
			total += v.y
		}
		if allNumeric && total == 0 {
			return ValidatedDescriptor{}, reject(id, RejectZeroTotal, "pie values sum to zero")
		}
		if math.IsInf(total, 0) {
			return ValidatedDescriptor{}, reject(id, RejectNonNumericValue, "pie values overflow when summed")
		}
	}

	// 4. numeric values
	for i, v := range values {
		if !v.numeric {
			return ValidatedDescriptor{}, reject(id, RejectNonNumericValue, "value %q at position %d is not a finite number", v.raw, i+1)
		}
		if v.paired && kind != ChartScatter {
			return ValidatedDescriptor{}, reject(id, RejectNonNumericValue, "value at position %d is a pair, %s charts take scalars", i+1, kind)
		}
		if math.Abs(v.x) > maxMagnitude || math.Abs(v.y) > maxMagnitude {
			return ValidatedDescriptor{}, reject(id, RejectNonNumericValue, "value at position %d exceeds %g in magnitude", i+1, maxMagnitude)
		}
	}

	// 5. labels
	seen := make(map[string]bool, len(d.Series))
	for _, p := range d.Series {
		label := strings.TrimSpace(p.Label)
		if label == "" {
			if kind == ChartScatter {
				continue
			}
			return ValidatedDescriptor{}, reject(id, RejectPlaceholderLabel, "empty label")
		}
		if IsPlaceholderLabel(label) {
			return ValidatedDescriptor{}, reject(id, RejectPlaceholderLabel, "label %q is a generic placeholder", label)
		}
		key := strings.ToLower(label)
		if seen[key] {
			return ValidatedDescriptor{}, reject(id, RejectDuplicateLabel, "label %q appears more than once", label)
		}
		seen[key] = true
	}

	// 6. scatter pairs
	if kind == ChartScatter {
		for i, v := range values {
			if !v.paired {
				return ValidatedDescriptor{}, reject(id, RejectScatterNotPaired, "scatter point %d carries a single value, want [x, y]", i+1)
			}
		}
	}

	points := make([]Point, len(values))
	for i, v := range values {
		pt := Point{Label: strings.TrimSpace(d.Series[i].Label), Y: v.y}
		if kind == ChartScatter {
			pt.X = v.x
		} else {
			pt.X = float64(i)
		}
		points[i] = pt
	}
	return ValidatedDescriptor{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Type:        kind,
		Description: strings.TrimSpace(d.Description),
		Points:      points,
		valid:       true,
	}, nil
}

// ValidateBatch validates every descriptor and additionally rejects ids
// that occur more than once. Results are keyed by trimmed id; the
// returned order follows the input.
func ValidateBatch(ds []Descriptor) (map[string]ValidatedDescriptor, []*Rejection) {
	counts := make(map[string]int, len(ds))
	for _, d := range ds {
		counts[strings.TrimSpace(d.ID)]++
	}
	ok := make(map[string]ValidatedDescriptor, len(ds))
	var rejected []*Rejection
	reported := make(map[string]bool)
	for _, d := range ds {
		id := strings.TrimSpace(d.ID)
		if id != "" && counts[id] > 1 {
			if !reported[id] {
				reported[id] = true
				rejected = append(rejected, reject(id, RejectDuplicateID, "id is used by %d descriptors", counts[id]))
			}
			continue
		}
		vd, rej := Validate(d)
		if rej != nil {
			rejected = append(rejected, rej)
			continue
		}
		ok[id] = vd
	}
	return ok, rejected
}

var numericStringRE = regexp.MustCompile(`^[+-]?[0-9]+,[0-9]+$`)

func parseValue(v any) parsedValue {
	switch t := v.(type) {
	case nil:
		return parsedValue{raw: "null"}
	case []any:
		return parsePair(t)
	case []float64:
		if len(t) != 2 {
			return parsedValue{raw: fmt.Sprint(t)}
		}
		return finitePair(t[0], t[1], fmt.Sprint(t))
	case map[string]any:
		x, okX := scalar(t["x"])
		y, okY := scalar(t["y"])
		if !okX || !okY {
			return parsedValue{raw: fmt.Sprint(t)}
		}
		return finitePair(x, y, fmt.Sprint(t))
	default:
		f, ok := scalar(v)
		raw := fmt.Sprint(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return parsedValue{raw: raw}
		}
		return parsedValue{y: f, numeric: true, raw: raw}
	}
}

func parsePair(items []any) parsedValue {
	raw := fmt.Sprint(items)
	if len(items) != 2 {
		return parsedValue{raw: raw}
	}
	x, okX := scalar(items[0])
	y, okY := scalar(items[1])
	if !okX || !okY {
		return parsedValue{raw: raw}
	}
	return finitePair(x, y, raw)
}

func finitePair(x, y float64, raw string) parsedValue {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return parsedValue{raw: raw}
	}
	return parsedValue{x: x, y: y, numeric: true, paired: true, raw: raw}
}

func scalar(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return parseNumericString(t)
	default:
		return 0, false
	}
}

func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, false
	}
	if numericStringRE.MatchString(s) {
		s = strings.Replace(s, ",", ".", 1)
	}
	// strconv accepts "NaN" and "Inf"; those are not data.
	lower := strings.ToLower(s)
	if strings.Contains(lower, "nan") || strings.Contains(lower, "inf") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
