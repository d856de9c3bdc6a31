package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RegimeField names a continuous per-day regime feature.
type RegimeField int

const (
	FieldBenchPrevRet RegimeField = iota
	FieldBenchPrevVol
	FieldBenchPrevRange
	FieldBenchOvernightRet
	FieldOpenGapZ
	FieldLiqMedian
	numRegimeFields
)

var regimeFieldNames = [numRegimeFields]string{
	"bench_prev_ret",
	"bench_prev_vol",
	"bench_prev_range",
	"bench_overnight_ret",
	"open_gap_z",
	"liq_median",
}

func (f RegimeField) String() string {
	if f < 0 || f >= numRegimeFields {
		return "unknown"
	}
	return regimeFieldNames[f]
}

// MarshalText writes the field name.
func (f RegimeField) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses a field name.
func (f *RegimeField) UnmarshalText(b []byte) error {
	v, err := ParseRegimeField(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// AllRegimeFields lists every known field.
func AllRegimeFields() []RegimeField {
	out := make([]RegimeField, 0, numRegimeFields)
	for f := RegimeField(0); f < numRegimeFields; f++ {
		out = append(out, f)
	}
	return out
}

// ParseRegimeField resolves a field by name.
func ParseRegimeField(s string) (RegimeField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range regimeFieldNames {
		if n == s {
			return RegimeField(i), nil
		}
	}
	return 0, NewConfigError("regime_fields", "unknown regime field %q", s)
}

// ParseRegimeFields parses a non-empty list of field names.
func ParseRegimeFields(in []string) ([]RegimeField, error) {
	if len(in) == 0 {
		return nil, NewConfigError("regime_fields", "at least one regime field is required")
	}
	out := make([]RegimeField, 0, len(in))
	seen := map[RegimeField]bool{}
	for _, s := range in {
		f, err := ParseRegimeField(s)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// RegimeFeatures holds one day's regime feature values. NaN means unavailable.
type RegimeFeatures struct {
	BenchPrevRet      float64
	BenchPrevVol      float64
	BenchPrevRange    float64
	BenchOvernightRet float64
	OpenGapZ          float64
	LiqMedian         float64
}

// MissingFeatures returns a value with every feature unavailable.
func MissingFeatures() RegimeFeatures {
	n := math.NaN()
	return RegimeFeatures{n, n, n, n, n, n}
}

// Value returns the field's value and whether it is finite.
func (r RegimeFeatures) Value(f RegimeField) (float64, bool) {
	var v float64
	switch f {
	case FieldBenchPrevRet:
		v = r.BenchPrevRet
	case FieldBenchPrevVol:
		v = r.BenchPrevVol
	case FieldBenchPrevRange:
		v = r.BenchPrevRange
	case FieldBenchOvernightRet:
		v = r.BenchOvernightRet
	case FieldOpenGapZ:
		v = r.OpenGapZ
	case FieldLiqMedian:
		v = r.LiqMedian
	default:
		return math.NaN(), false
	}
	return v, finite(v)
}

// MarshalJSON writes unavailable features as null.
func (r RegimeFeatures) MarshalJSON() ([]byte, error) {
	m := make(map[string]*float64, numRegimeFields)
	for _, f := range AllRegimeFields() {
		if v, ok := r.Value(f); ok {
			v := v
			m[f.String()] = &v
		} else {
			m[f.String()] = nil
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the MarshalJSON form; absent or null fields become NaN.
func (r *RegimeFeatures) UnmarshalJSON(b []byte) error {
	var m map[string]*float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = MissingFeatures()
	get := func(f RegimeField) float64 {
		if p := m[f.String()]; p != nil {
			return *p
		}
		return math.NaN()
	}
	r.BenchPrevRet = get(FieldBenchPrevRet)
	r.BenchPrevVol = get(FieldBenchPrevVol)
	r.BenchPrevRange = get(FieldBenchPrevRange)
	r.BenchOvernightRet = get(FieldBenchOvernightRet)
	r.OpenGapZ = get(FieldOpenGapZ)
	r.LiqMedian = get(FieldLiqMedian)
	return nil
}

// RegimeKey is an immutable composite of (field, bin) pairs. Two keys built from the
// same pairs are equal regardless of the order the fields were listed in.
type RegimeKey struct {
	present [numRegimeFields]bool
	bins    [numRegimeFields]int
}

// RegimeBin is one component of a RegimeKey.
type RegimeBin struct {
	Field RegimeField `json:"field"`
	Bin   int         `json:"bin"`
}

// NewRegimeKey builds a key from bins. Later duplicates of a field overwrite earlier ones.
func NewRegimeKey(bins ...RegimeBin) RegimeKey {
	var k RegimeKey
	for _, b := range bins {
		if b.Field < 0 || b.Field >= numRegimeFields {
			continue
		}
		k.present[b.Field] = true
		k.bins[b.Field] = b.Bin
	}
	return k
}

// Bin returns the bin for a field.
func (k RegimeKey) Bin(f RegimeField) (int, bool) {
	if f < 0 || f >= numRegimeFields || !k.present[f] {
		return 0, false
	}
	return k.bins[f], true
}

// Bins returns the components in canonical field order.
func (k RegimeKey) Bins() []RegimeBin {
	var out []RegimeBin
	for f := RegimeField(0); f < numRegimeFields; f++ {
		if k.present[f] {
			out = append(out, RegimeBin{Field: f, Bin: k.bins[f]})
		}
	}
	return out
}

// String renders field=bin pairs in canonical order, e.g. "bench_prev_ret=2|open_gap_z=0".
func (k RegimeKey) String() string {
	parts := make([]string, 0, numRegimeFields)
	for _, b := range k.Bins() {
		parts = append(parts, b.Field.String()+"="+strconv.Itoa(b.Bin))
	}
	return strings.Join(parts, "|")
}

// MarshalText lets RegimeKey act as a JSON object key.
func (k RegimeKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the String form.
func (k *RegimeKey) UnmarshalText(b []byte) error {
	v, err := ParseRegimeKey(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseRegimeKey is the inverse of String.
func ParseRegimeKey(s string) (RegimeKey, error) {
	if s == "" {
		return RegimeKey{}, nil
	}
	var bins []RegimeBin
	for _, part := range strings.Split(s, "|") {
		name, val, ok := strings.Cut(part, "=")
		if !ok {
			return RegimeKey{}, NewConfigError("regime_key", "malformed component %q", part)
		}
		f, err := ParseRegimeField(name)
		if err != nil {
			return RegimeKey{}, err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return RegimeKey{}, NewConfigError("regime_key", "bad bin %q", val)
		}
		bins = append(bins, RegimeBin{Field: f, Bin: n})
	}
	return NewRegimeKey(bins...), nil
}
