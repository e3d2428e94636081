// Package options holds the network and parameter settings written into the
// generated document. Settings change only through the .ORDER and .SET
// directives that open a survey file.
package options

import (
	"strings"

	"github.com/FocuswithJustin/surveyxml/core/errors"
)

// Station orders accepted by .ORDER for angle triples.
const (
	AtFromTo = "at-from-to"
	FromAtTo = "from-at-to"
)

// maxDistanceStdevValues is the number of components of distance-stdev
// (a, b, c in a + b*D^c).
const maxDistanceStdevValues = 3

// Options is the settings of one conversion run.
type Options struct {
	AxesXY            string
	Angles            string
	AngleStationOrder string

	SigmaApr string
	ConfPr   string
	TolAbs   string
	SigmaAct string

	DistanceStdev    string
	DirectionStdev   string
	AngleStdev       string
	ZenithAngleStdev string
	AzimuthStdev     string
}

// Default returns the settings used when no directive overrides them.
func Default() Options {
	return Options{
		AxesXY:            "ne",
		Angles:            "left-handed",
		AngleStationOrder: AtFromTo,
		SigmaApr:          "10",
		ConfPr:            "0.95",
		TolAbs:            "1000",
		SigmaAct:          "aposteriori",
		DistanceStdev:     "5",
		DirectionStdev:    "10",
		AngleStdev:        "10",
		ZenithAngleStdev:  "10",
		AzimuthStdev:      "10",
	}
}

// field returns the setting addressed by a .SET attribute name.
func (o *Options) field(attribute string) *string {
	switch attribute {
	case "axes-xy":
		return &o.AxesXY
	case "angles":
		return &o.Angles
	case "sigma-apr":
		return &o.SigmaApr
	case "conf-pr":
		return &o.ConfPr
	case "tol-abs":
		return &o.TolAbs
	case "sigma-act":
		return &o.SigmaAct
	case "distance-stdev":
		return &o.DistanceStdev
	case "direction-stdev":
		return &o.DirectionStdev
	case "angle-stdev":
		return &o.AngleStdev
	case "zenith-angle-stdev":
		return &o.ZenithAngleStdev
	case "azimuth-stdev":
		return &o.AzimuthStdev
	}
	return nil
}

// Attributes lists the attribute names accepted by .SET.
func Attributes() []string {
	return []string{
		"axes-xy", "angles",
		"sigma-apr", "conf-pr", "tol-abs", "sigma-act",
		"distance-stdev", "direction-stdev", "angle-stdev",
		"zenith-angle-stdev", "azimuth-stdev",
	}
}

// Order applies an .ORDER directive. It accepts one value selecting either
// the xy axes orientation or the angle station order.
func (o *Options) Order(fields []string) error {
	if len(fields) != 1 {
		return errors.NewUsage(".ORDER")
	}

	switch val := strings.ToLower(fields[0]); val {
	case "en", "ne":
		o.AxesXY = val
	case AtFromTo, FromAtTo:
		o.AngleStationOrder = val
	default:
		return errors.NewUsage(".ORDER")
	}
	return nil
}

// Set applies a .SET directive: an attribute name followed by its value.
// distance-stdev takes up to three values, every other attribute exactly one.
// On error o is left unchanged.
func (o *Options) Set(fields []string) error {
	if len(fields) < 2 {
		return errors.NewDirective(".SET", "not enough parameters of .SET")
	}

	attribute := strings.ToLower(fields[0])
	value := strings.ToLower(strings.Join(fields[1:], " "))

	limit := 1
	if attribute == "distance-stdev" {
		limit = maxDistanceStdevValues
	}
	if len(fields)-1 > limit {
		return errors.NewDirective(".SET", "too many values for "+attribute+" : "+value)
	}

	target := o.field(attribute)
	if target == nil {
		return errors.NewDirective(".SET", "unknown attribute "+attribute)
	}
	*target = value
	return nil
}
