// Package segment computes superpixel partitions of an image.
//
// Four algorithms are supported, each with its own typed parameter record:
// Felzenszwalb, SLIC, Quickshift and Watershed. Algorithm names and textual
// parameter values are accepted at the boundary so that form-based settings
// panels can drive the provider.
package segment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedAlgorithm is returned for an unknown algorithm name.
	ErrUnsupportedAlgorithm = errors.New("segment: unsupported algorithm")

	// ErrInvalidParameter is returned for a missing, malformed or out-of-range parameter.
	ErrInvalidParameter = errors.New("segment: invalid parameter")
)

// ParamError describes a rejected parameter. It wraps ErrInvalidParameter.
type ParamError struct {
	Algorithm Algorithm
	Name      string
	Value     string
	Reason    string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("segment: %s parameter %s=%q: %s", e.Algorithm, e.Name, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// Algorithm is the closed set of supported segmentation algorithms.
type Algorithm int

const (
	Felzenszwalb Algorithm = iota
	SLIC
	Quickshift
	Watershed
)

var algorithmNames = [...]string{
	Felzenszwalb: "felzenszwalb",
	SLIC:         "slic",
	Quickshift:   "quickshift",
	Watershed:    "watershed",
}

func (a Algorithm) String() string {
	if a < 0 || int(a) >= len(algorithmNames) {
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// Algorithms returns every supported algorithm in display order.
func Algorithms() []Algorithm {
	return []Algorithm{Felzenszwalb, SLIC, Quickshift, Watershed}
}

// ParseAlgorithm resolves an algorithm name, ignoring case and surrounding space.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range algorithmNames {
		if s == n {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
}

// ParamSpec describes one numeric parameter of an algorithm.
type ParamSpec struct {
	Name    string
	Label   string
	Integer bool
	Default float64

	Min          float64
	MinExclusive bool
	Max          float64 // ignored when HasMax is false
	HasMax       bool
}

// Specs returns the parameter descriptions for a.
func (a Algorithm) Specs() []ParamSpec {
	switch a {
	case Felzenszwalb:
		return []ParamSpec{
			{Name: "scale", Label: "Scale", Default: 100, Min: 0, MinExclusive: true},
			{Name: "sigma", Label: "Sigma", Default: 0.5},
			{Name: "min_size", Label: "Min Size", Integer: true, Default: 50},
		}
	case SLIC:
		return []ParamSpec{
			{Name: "n_segments", Label: "Segments", Integer: true, Default: 250, Min: 1},
			{Name: "compactness", Label: "Compactness", Default: 10, Min: 0, MinExclusive: true},
			{Name: "sigma", Label: "Sigma", Default: 1},
		}
	case Quickshift:
		return []ParamSpec{
			{Name: "kernel_size", Label: "Kernel Size", Default: 3, Min: 0, MinExclusive: true},
			{Name: "max_dist", Label: "Max Distance", Default: 6},
			{Name: "ratio", Label: "Ratio", Default: 0.5, Max: 1, HasMax: true},
		}
	case Watershed:
		return []ParamSpec{
			{Name: "markers", Label: "Markers", Integer: true, Default: 250, Min: 1},
			{Name: "compactness", Label: "Compactness", Default: 0.001},
		}
	}
	return nil
}

// Spec looks up one parameter description by name.
func (a Algorithm) Spec(name string) (ParamSpec, bool) {
	for _, s := range a.Specs() {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// check validates v against the parameter's kind and range.
func (s ParamSpec) check(a Algorithm, v float64) error {
	bad := func(reason string) error {
		return &ParamError{Algorithm: a, Name: s.Name, Value: strconv.FormatFloat(v, 'g', -1, 64), Reason: reason}
	}
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return bad("not a finite number")
	case s.Integer && v != math.Trunc(v):
		return bad("must be an integer")
	case s.MinExclusive && v <= s.Min:
		return bad(fmt.Sprintf("must be greater than %g", s.Min))
	case !s.MinExclusive && v < s.Min:
		return bad(fmt.Sprintf("must be at least %g", s.Min))
	case s.HasMax && v > s.Max:
		return bad(fmt.Sprintf("must be at most %g", s.Max))
	}
	return nil
}

// ParseParam converts the text of a settings field into a parameter value.
func ParseParam(a Algorithm, name, text string) (float64, error) {
	spec, ok := a.Spec(name)
	if !ok {
		return 0, &ParamError{Algorithm: a, Name: name, Value: text, Reason: "unknown parameter"}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &ParamError{Algorithm: a, Name: name, Value: text, Reason: "not a number"}
	}
	if err := spec.check(a, v); err != nil {
		pe := err.(*ParamError)
		pe.Value = text
		return 0, pe
	}
	return v, nil
}

// FormatParam renders a value the way a settings field shows it.
func FormatParam(spec ParamSpec, v float64) string {
	if spec.Integer {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Params is a typed parameter record for one algorithm. The set of
// implementations is closed.
type Params interface {
	Algorithm() Algorithm
	Values() map[string]float64
	Validate() error
	isParams()
}

// FelzenszwalbParams configures graph-based segmentation.
type FelzenszwalbParams struct {
	Scale   float64 // larger values give larger segments
	Sigma   float64 // gaussian pre-smoothing
	MinSize int     // segments smaller than this are merged into a neighbour
}

// SLICParams configures simple linear iterative clustering.
type SLICParams struct {
	NSegments   int
	Compactness float64
	Sigma       float64
}

// QuickshiftParams configures quickshift mode seeking.
type QuickshiftParams struct {
	KernelSize float64
	MaxDist    float64
	Ratio      float64 // weight of color against position, 0..1
}

// WatershedParams configures marker-based watershed on the gradient image.
type WatershedParams struct {
	Markers     int
	Compactness float64
}

func (FelzenszwalbParams) Algorithm() Algorithm { return Felzenszwalb }
func (SLICParams) Algorithm() Algorithm         { return SLIC }
func (QuickshiftParams) Algorithm() Algorithm   { return Quickshift }
func (WatershedParams) Algorithm() Algorithm    { return Watershed }

func (FelzenszwalbParams) isParams() {}
func (SLICParams) isParams()         {}
func (QuickshiftParams) isParams()   {}
func (WatershedParams) isParams()    {}

func (p FelzenszwalbParams) Values() map[string]float64 {
	return map[string]float64{"scale": p.Scale, "sigma": p.Sigma, "min_size": float64(p.MinSize)}
}

func (p SLICParams) Values() map[string]float64 {
	return map[string]float64{"n_segments": float64(p.NSegments), "compactness": p.Compactness, "sigma": p.Sigma}
}

func (p QuickshiftParams) Values() map[string]float64 {
	return map[string]float64{"kernel_size": p.KernelSize, "max_dist": p.MaxDist, "ratio": p.Ratio}
}

func (p WatershedParams) Values() map[string]float64 {
	return map[string]float64{"markers": float64(p.Markers), "compactness": p.Compactness}
}

func (p FelzenszwalbParams) Validate() error { return validate(p) }
func (p SLICParams) Validate() error         { return validate(p) }
func (p QuickshiftParams) Validate() error   { return validate(p) }
func (p WatershedParams) Validate() error    { return validate(p) }

func validate(p Params) error {
	a := p.Algorithm()
	values := p.Values()
	for _, spec := range a.Specs() {
		if err := spec.check(a, values[spec.Name]); err != nil {
			return err
		}
	}
	return nil
}

// DefaultParams returns a's parameter record with every value at its default.
func DefaultParams(a Algorithm) Params {
	p, err := BuildParams(a, nil)
	if err != nil {
		panic(err) // defaults are always valid
	}
	return p
}

// BuildParams assembles a typed record from named values. Missing names take
// their defaults; unknown names are rejected.
func BuildParams(a Algorithm, values map[string]float64) (Params, error) {
	specs := a.Specs()
	if specs == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
	v := make(map[string]float64, len(specs))
	for _, s := range specs {
		v[s.Name] = s.Default
	}
	for name, val := range values {
		if _, ok := v[name]; !ok {
			return nil, &ParamError{Algorithm: a, Name: name, Value: strconv.FormatFloat(val, 'g', -1, 64), Reason: "unknown parameter"}
		}
		v[name] = val
	}

	var p Params
	switch a {
	case Felzenszwalb:
		p = FelzenszwalbParams{Scale: v["scale"], Sigma: v["sigma"], MinSize: int(v["min_size"])}
	case SLIC:
		p = SLICParams{NSegments: int(v["n_segments"]), Compactness: v["compactness"], Sigma: v["sigma"]}
	case Quickshift:
		p = QuickshiftParams{KernelSize: v["kernel_size"], MaxDist: v["max_dist"], Ratio: v["ratio"]}
	case Watershed:
		p = WatershedParams{Markers: int(v["markers"]), Compactness: v["compactness"]}
	}

	// integer fields were truncated above; check the caller's raw values
	for _, s := range specs {
		if err := s.check(a, v[s.Name]); err != nil {
			return nil, err
		}
	}
	return p, nil
}
