package text2xml

import (
	"strings"

	"github.com/FocuswithJustin/surveyxml/core/errors"
	"github.com/FocuswithJustin/surveyxml/core/geometry"
	"github.com/FocuswithJustin/surveyxml/core/record"
	"github.com/FocuswithJustin/surveyxml/core/refs"
)

// write dispatches the record to the writer of its kind.
func (c *Converter) write(rec record.Record) {
	f := rec.Fields()

	var err error
	switch rec.Kind() {
	case record.KindPoint:
		c.writePoint(f)
	case record.KindAngle:
		c.writeAngle(f)
	case record.KindDistance:
		c.writeDistance(f)
	case record.KindObsBegin:
		err = c.writeObsBegin(f)
	case record.KindObsEnd:
		err = c.writeObsEnd()
	case record.KindDirection:
		err = c.writeDirection(f)
	case record.KindDirectionDistance:
		err = c.writeDirectionDistance(f)
	case record.KindTraverseBegin:
		err = c.writeTraverseBegin(f)
	case record.KindTraverse:
		err = c.writeTraverse(f)
	case record.KindTraverseEnd:
		err = c.writeTraverseEnd()
	case record.KindAngleDistance:
		err = c.writeAngleDistance(f)
	case record.KindBearing:
		err = c.writeBearing(f)
	case record.KindHeightDifference:
		err = c.writeHeightDifference(f)
	case record.KindElevation:
		err = c.writeElevation(rec, f)
	default:
		err = errors.NewUnknownCommand(rec.Code)
	}

	if err != nil {
		c.fail(rec, err)
	}
}

// xy registers ids as referenced planar points and returns them escaped.
func (c *Converter) xy(ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		c.refs.Reference(refs.XY, id)
		out[i] = attr(id)
	}
	return out
}

// C id [x y [!]]
//
// The point is written from whatever fields are present: coordinates need
// both x and y, the fix flag is read from the fourth field and any further
// fields are ignored. A record without fields writes nothing.
func (c *Converter) writePoint(f []string) {
	if len(f) == 0 {
		return
	}

	c.refs.Known(refs.XY, f[0])

	var b strings.Builder
	b.WriteString(`<point id="` + attr(f[0]) + `" `)
	if len(f) >= 3 {
		b.WriteString(`x="` + attr(f[1]) + `" y="` + attr(f[2]) + `" `)
	}
	if len(f) >= 4 && strings.HasPrefix(f[3], "!") {
		b.WriteString(`fix="xy" />`)
	} else {
		b.WriteString(`adj="xy" />`)
	}
	b.WriteString("\n")
	c.print(b.String())
}

// A at-from-to value
//
// A record with a wrong field count is dropped without an error.
func (c *Converter) writeAngle(f []string) {
	if len(f) != 2 {
		return
	}
	at, from, to := geometry.SplitTriple(f[0], c.opts.AngleStationOrder)
	ids := c.xy(at, from, to)
	c.printf("<angle from=\"%s\" bs=\"%s\" fs=\"%s\" val=\"%s\" />\n",
		ids[0], ids[1], ids[2], attr(f[1]))
}

// D from-to value
//
// A record with a wrong field count is dropped without an error.
func (c *Converter) writeDistance(f []string) {
	if len(f) != 2 {
		return
	}
	ids := c.xy(geometry.SplitPair(f[0]))
	c.printf("<distance from=\"%s\" to=\"%s\" val=\"%s\" />\n", ids[0], ids[1], attr(f[1]))
}

// DB from
func (c *Converter) writeObsBegin(f []string) error {
	if len(f) != 1 {
		return errors.NewUsage("DB")
	}

	c.closeCluster()
	if c.block != record.KindUnknown {
		c.closeBlock()
	}

	c.from = f[0]
	c.block = record.KindObsBegin
	c.printf("\n<obs from=\"%s\">\n", c.xy(c.from)[0])
	return nil
}

// DE
func (c *Converter) writeObsEnd() error {
	if c.block != record.KindObsBegin {
		return errors.NewUsage("DE")
	}
	c.cluster = ""
	c.closeBlock()
	return nil
}

// DN to direction [distance]
func (c *Converter) writeDirection(f []string) error {
	if len(f) != 2 && len(f) != 3 {
		return errors.NewUsage("DN")
	}
	c.printf("<direction to=\"%s\" val=\"%s\" />\n", c.xy(f[0])[0], attr(f[1]))
	return nil
}

// DM to direction [distance]
func (c *Converter) writeDirectionDistance(f []string) error {
	if len(f) != 2 && len(f) != 3 {
		return errors.NewUsage("DM")
	}

	to, dir, dist := f[0], f[1], ""
	if len(f) == 3 {
		dist = f[2]
	}

	id := c.xy(to)[0]
	c.printf("<direction to=\"%s\" val=\"%s\" />\n", id, attr(dir))
	if dir != "" {
		c.printf("<distance to=\"%s\" val=\"%s\" />\n", id, attr(dist))
	}
	return nil
}

// TB first-point ...
//
// The traverse chain is the first field of this and every following T record
// up to and including the next TE.
func (c *Converter) writeTraverseBegin(f []string) error {
	if len(f) < 1 {
		return errors.NewUsage("TB")
	}

	c.closeCluster()
	if c.block != record.KindUnknown {
		c.closeBlock()
	}

	c.traverse = c.traverse[:0]
	for i := c.index; i < len(c.records); i++ {
		rec := c.records[i]
		kind := rec.Kind()
		if !kind.IsTraverse() {
			continue
		}
		var id string
		if fields := rec.Fields(); len(fields) > 0 {
			id = fields[0]
		}
		c.traverse = append(c.traverse, id)
		if kind == record.KindTraverseEnd {
			break
		}
	}

	c.block = record.KindTraverseBegin
	c.print("\n<obs>\n")
	return nil
}

// T point angle distance
//
// The leg uses the three leading points of the traverse chain as backsight,
// standpoint and foresight, then drops the first point.
func (c *Converter) writeTraverse(f []string) error {
	if len(f) != 3 {
		return errors.NewUsage("T")
	}
	if len(c.traverse) < 3 {
		return errors.NewDomain("traverse has too few points", "")
	}

	ids := c.xy(c.traverse[0], c.traverse[1], c.traverse[2])
	bs, at, fs := ids[0], ids[1], ids[2]
	c.printf("<angle bs=\"%s\" from=\"%s\" fs=\"%s\" val=\"%s\" />\n", bs, at, fs, attr(f[1]))
	c.printf("<distance from=\"%s\" to=\"%s\" val=\"%s\" />\n", at, fs, attr(f[2]))

	c.traverse = c.traverse[1:]
	return nil
}

// TE last-point
func (c *Converter) writeTraverseEnd() error {
	if c.block != record.KindTraverseBegin {
		return errors.NewUsage("TE")
	}
	c.cluster = ""
	c.closeBlock()
	return nil
}

// M at-from-to angle distance
func (c *Converter) writeAngleDistance(f []string) error {
	if len(f) != 3 {
		return errors.NewUsage("M")
	}
	at, from, to := geometry.SplitTriple(f[0], c.opts.AngleStationOrder)
	ids := c.xy(at, from, to)
	c.printf("<angle from=\"%s\" bs=\"%s\" fs=\"%s\" val=\"%s\" />\n",
		ids[0], ids[1], ids[2], attr(f[1]))
	c.printf("<distance from=\"%s\" to=\"%s\" val=\"%s\" />\n", ids[0], ids[2], attr(f[2]))
	return nil
}

// B from-to bearing [distance]
//
// Azimuth endpoints are not registered as referenced points.
func (c *Converter) writeBearing(f []string) error {
	if len(f) != 2 && len(f) != 3 {
		return errors.NewUsage("B")
	}
	from, to := geometry.SplitPair(f[0])
	azimuth, err := geometry.BearingToAzimuth(f[1])
	if err != nil {
		return err
	}
	c.printf("<azimuth from=\"%s\" to=\"%s\" val=\"%s\" />\n", attr(from), attr(to), attr(azimuth))
	return nil
}

// L from-to dh distance
func (c *Converter) writeHeightDifference(f []string) error {
	if len(f) != 3 {
		return errors.NewUsage("L")
	}
	from, to := geometry.SplitPair(f[0])
	c.refs.Reference(refs.Z, from)
	c.refs.Reference(refs.Z, to)
	c.printf("<dh from=\"%s\" to=\"%s\" val=\"%s\" dist=\"%s\" />\n",
		attr(from), attr(to), attr(f[1]), attr(f[2]))
	return nil
}

// E id z [!]
//
// A wrong field count is reported, and the point is still written from the
// fields that are present.
func (c *Converter) writeElevation(rec record.Record, f []string) error {
	if len(f) != 3 {
		c.fail(rec, errors.NewUsage("E"))
	}
	if len(f) == 0 {
		return nil
	}

	id := f[0]
	c.refs.Reference(refs.Z, id)

	var b strings.Builder
	b.WriteString(`<point id="` + attr(id) + `" `)
	if len(f) >= 2 {
		b.WriteString(`z="` + attr(f[1]) + `" `)
	}
	if len(f) >= 3 && strings.HasPrefix(f[2], "!") {
		b.WriteString(`fix="z" />`)
		c.refs.Known(refs.Z, id)
	} else {
		b.WriteString(`adj="z" />`)
	}
	b.WriteString("\n")
	c.print(b.String())
	return nil
}
