// Package geometry converts survey notation into the values written to the
// adjustment input: station triples and quadrant bearings.
package geometry

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/surveyxml/core/errors"
	"github.com/FocuswithJustin/surveyxml/core/options"
)

// SplitPair splits a hyphen-joined From-To station pair.
// Missing parts are returned as empty strings.
func SplitPair(pair string) (from, to string) {
	parts := strings.SplitN(pair, "-", 3)
	from = parts[0]
	if len(parts) > 1 {
		to = parts[1]
	}
	return from, to
}

// SplitTriple splits a hyphen-joined station triple into the standpoint and
// its backsight and foresight. The triple is read as At-From-To, or as
// From-At-To when order is options.FromAtTo.
func SplitTriple(triple, order string) (at, from, to string) {
	parts := strings.SplitN(triple, "-", 4)
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	at, from, to = get(0), get(1), get(2)
	if order == options.FromAtTo {
		at, from = from, at
	}
	return at, from, to
}

// dmsGrammar is the participle grammar for the angle body of a bearing:
// up to three hyphen-separated components, any of which may be empty.
// Examples: "45", "45-30", "45-30-15.5", "45--15", "-30"
//
//nolint:govet // participle grammar tags are not standard struct tags
type dmsGrammar struct {
	Degrees *float64 `parser:"@Number?"`
	Minutes *dmsPart `parser:"@@?"`
	Seconds *dmsPart `parser:"@@?"`
}

// dmsPart is a hyphen followed by an optional number.
//
//nolint:govet // participle grammar tags are not standard struct tags
type dmsPart struct {
	Sep   string   `parser:"@\"-\""`
	Value *float64 `parser:"@Number?"`
}

func (p *dmsPart) value() float64 {
	if p == nil || p.Value == nil {
		return 0
	}
	return *p.Value
}

var dmsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]*)?|\.[0-9]+`},
	{Name: "Sep", Pattern: `-`},
})

var dmsParser = participle.MustBuild[dmsGrammar](
	participle.Lexer(dmsLexer),
)

// parseDMS parses "d[-m[-s]]" into degrees, minutes and seconds. Missing
// components are zero.
func parseDMS(s string) (d, m, sec float64, err error) {
	if s == "" {
		return 0, 0, 0, nil
	}
	parsed, err := dmsParser.ParseString("", s)
	if err != nil {
		return 0, 0, 0, err
	}
	if parsed.Degrees != nil {
		d = *parsed.Degrees
	}
	return d, parsed.Minutes.value(), parsed.Seconds.value(), nil
}

// BearingToAzimuth converts a quadrant bearing such as "N45-30-15E" into an
// azimuth in gons. A value that does not start with N or S and end with E or
// W is already an azimuth and is returned unchanged.
//
// The compass rose is divided into the NE, SE, SW and NW segments; within a
// segment the bearing is measured from N or S and is never negative.
func BearingToAzimuth(bearing string) (string, error) {
	if bearing == "" {
		return bearing, errors.NewDomain("bearing cannot be empty", "")
	}

	b, e := bearing[0], bearing[len(bearing)-1]
	if len(bearing) < 2 || (b != 'N' && b != 'S') || (e != 'E' && e != 'W') {
		return bearing, nil
	}

	d, m, s, err := parseDMS(bearing[1 : len(bearing)-1])
	if err != nil {
		return bearing, &errors.DomainError{Message: "invalid bearing", Value: bearing}
	}

	g := 400 * (d/360 + m/21600 + s/1296000)
	switch {
	case b == 'S' && e == 'E':
		g = 200 - g
	case b == 'S' && e == 'W':
		g = 200 + g
	case b == 'N' && e == 'W':
		g = 400 - g
	}

	return strconv.FormatFloat(g, 'g', 16, 64), nil
}
