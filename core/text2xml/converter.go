// Package text2xml converts survey text records into a gama-local XML
// document.
//
// A conversion is a single pass over the materialized record list. Leading
// directive records (.ORDER, .SET) configure the run; every other record is
// mapped to a cluster (the wrapper element it belongs to) and written by the
// writer of its kind. Malformed records never stop the conversion: each
// problem is written into the document as an XML comment and counted, and
// Status reports the count once Exec returns.
package text2xml

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/FocuswithJustin/surveyxml/core/encoding"
	"github.com/FocuswithJustin/surveyxml/core/errors"
	"github.com/FocuswithJustin/surveyxml/core/options"
	"github.com/FocuswithJustin/surveyxml/core/record"
	"github.com/FocuswithJustin/surveyxml/core/refs"
)

// Version is the converter version written into generated documents.
const Version = "0.9.0"

// Namespace is the XML namespace of the gama-local input format.
const Namespace = "http://www.gnu.org/software/gama/gama-local"

// clusters maps each record kind to the wrapper element grouping it.
// An empty name means the record is written outside any wrapper.
// Directive kinds are absent: after the leading directive block they are
// undefined codes.
var clusters = map[record.Kind]string{
	record.KindPoint:             "",
	record.KindAngle:             "obs",
	record.KindDistance:          "obs",
	record.KindObsBegin:          "",
	record.KindObsEnd:            "",
	record.KindDirectionDistance: "",
	record.KindDirection:         "",
	record.KindTraverseBegin:     "",
	record.KindTraverse:          "",
	record.KindTraverseEnd:       "",
	record.KindAngleDistance:     "obs",
	record.KindBearing:           "obs",
	record.KindHeightDifference:  "height-differences",
	record.KindElevation:         "",
}

// Stats summarizes a finished conversion.
type Stats struct {
	Records    int
	Errors     int
	ImplicitXY int
	ImplicitZ  int
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger receiving per-record diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithOptions sets the settings in effect before the directive block.
func WithOptions(opts options.Options) Option {
	return func(c *Converter) {
		c.initial = opts
	}
}

// Converter turns a record list into one gama-local document.
type Converter struct {
	records []record.Record
	initial options.Options
	logger  *slog.Logger

	// per-run state, reset by Exec
	out      *bufio.Writer
	err      error
	opts     options.Options
	refs     refs.Tracker
	index    int
	cluster  string
	block    record.Kind // KindObsBegin or KindTraverseBegin while an <obs> block is open
	traverse []string
	from     string
	status   int
	stats    Stats
}

// New creates a Converter over an already parsed record list.
func New(records []record.Record, opts ...Option) *Converter {
	c := &Converter{
		records: records,
		initial: options.Default(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromReader parses survey text from r and creates a Converter over it.
func NewFromReader(r io.Reader, opts ...Option) (*Converter, error) {
	records, err := record.ParseAll(r)
	if err != nil {
		return nil, err
	}
	return New(records, opts...), nil
}

// Records returns the parsed records.
func (c *Converter) Records() []record.Record {
	return c.records
}

// Status returns the number of errors recorded by the last Exec.
// Zero means a clean conversion.
func (c *Converter) Status() int {
	return c.status
}

// Stats returns the summary of the last Exec.
func (c *Converter) Stats() Stats {
	return c.stats
}

// Options returns the settings in effect after the directive block of the
// last Exec.
func (c *Converter) Options() options.Options {
	return c.opts
}

// Exec writes the document to w. Survey errors are reported through Status;
// the returned error is non-nil only when writing to w fails.
func (c *Converter) Exec(w io.Writer) error {
	c.out = bufio.NewWriter(w)
	c.err = nil
	c.opts = c.initial
	c.refs = refs.Tracker{}
	c.cluster = ""
	c.block = record.KindUnknown
	c.traverse = nil
	c.from = ""
	c.status = 0
	c.stats = Stats{Records: len(c.records)}

	c.print("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")

	start := c.directives()
	c.begin()

	for c.index = start; c.index < len(c.records); c.index++ {
		c.step(c.records[c.index])
	}

	c.end()
	c.stats.Errors = c.status

	if err := c.out.Flush(); err != nil && c.err == nil {
		c.err = errors.NewIO("write", "", err)
	}
	return c.err
}

// directives applies the leading .ORDER/.SET block and returns the index of
// the first non-directive record.
func (c *Converter) directives() int {
	i := 0
	for ; i < len(c.records); i++ {
		rec := c.records[i]
		if !rec.IsDirective() {
			break
		}
		c.note(rec.Note)

		var err error
		switch rec.Kind() {
		case record.KindOrder:
			err = c.opts.Order(rec.Fields())
		case record.KindSet:
			err = c.opts.Set(rec.Fields())
		default:
			err = errors.NewUnknownDirective(rec.Code)
		}
		if err != nil {
			c.fail(rec, err)
		}
	}
	return i
}

func (c *Converter) begin() {
	o := c.opts
	c.printf("<gama-local xmlns=\"%s\">\n", Namespace)
	c.printf("<network axes-xy=\"%s\" angles=\"%s\">\n", attr(o.AxesXY), attr(o.Angles))
	c.printf("<!-- Generated by text2xml %s -->\n\n", Version)

	c.print("<parameters\n")
	c.printf("   sigma-apr=\"%s\"\n", attr(o.SigmaApr))
	c.printf("   conf-pr=\"%s\"\n", attr(o.ConfPr))
	c.printf("   tol-abs=\"%s\"\n", attr(o.TolAbs))
	c.printf("   sigma-act=\"%s\"\n", attr(o.SigmaAct))
	c.print("/>\n\n")

	c.print("<points-observations\n")
	c.printf("   distance-stdev=\"%s\"\n", attr(o.DistanceStdev))
	c.printf("   direction-stdev=\"%s\"\n", attr(o.DirectionStdev))
	c.printf("   angle-stdev=\"%s\"\n", attr(o.AngleStdev))
	c.printf("   zenith-angle-stdev=\"%s\"\n", attr(o.ZenithAngleStdev))
	c.printf("   azimuth-stdev=\"%s\"\n", attr(o.AzimuthStdev))
	c.print(">\n\n")
}

// step moves the cluster state machine to the record's cluster and writes
// the record.
func (c *Converter) step(rec record.Record) {
	cluster, ok := clusters[rec.Kind()]
	if !ok {
		c.fail(rec, errors.NewUndefinedCode(rec.Code))
		return
	}

	if cluster != c.cluster {
		c.closeCluster()
		c.cluster = cluster
		if cluster != "" {
			c.printf("\n<%s>\n", cluster)
		}
	}

	c.note(rec.Note)
	c.write(rec)
}

func (c *Converter) end() {
	c.closeCluster()
	if c.block != record.KindUnknown {
		c.fail(record.Record{Code: c.block.String()},
			errors.NewDomain("unterminated block", c.block.String()))
		c.closeBlock()
	}

	for _, axis := range []refs.Axis{refs.XY, refs.Z} {
		ids := c.refs.Undeclared(axis)
		if len(ids) > 0 {
			c.print("\n")
		}
		for _, id := range ids {
			c.printf("<point id=\"%s\" adj=\"%s\" />\n", attr(id), axis)
		}
		if axis == refs.XY {
			c.stats.ImplicitXY = len(ids)
		} else {
			c.stats.ImplicitZ = len(ids)
		}
	}

	c.print("\n</points-observations>\n")
	c.print("</network>\n")
	c.print("</gama-local>\n")
}

func (c *Converter) closeCluster() {
	if c.cluster != "" {
		c.printf("</%s>\n", c.cluster)
		c.cluster = ""
	}
}

// closeBlock closes an explicit DB or TB <obs> block.
func (c *Converter) closeBlock() {
	c.print("</obs>\n")
	c.block = record.KindUnknown
	c.traverse = nil
	c.from = ""
}

// fail records a survey error as an XML comment and counts it.
func (c *Converter) fail(rec record.Record, err error) {
	c.printf("<!-- error : %s -->\n", encoding.EscapeXMLComment(err.Error()))
	c.status++
	c.logger.Debug("survey_error",
		"line", rec.Line,
		"code", rec.Code,
		"error", err.Error(),
	)
}

func (c *Converter) note(note string) {
	if note != "" {
		c.printf("<!-- %s -->\n", encoding.EscapeXMLComment(note))
	}
}

func (c *Converter) print(s string) {
	if c.err != nil {
		return
	}
	if _, err := c.out.WriteString(s); err != nil {
		c.err = errors.NewIO("write", "", err)
	}
}

func (c *Converter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.err = errors.NewIO("write", "", err)
	}
}

func attr(s string) string {
	return encoding.EscapeXMLAttr(s)
}
