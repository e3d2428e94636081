// Package record tokenizes survey text lines into typed records.
//
// A survey line has the form
//
//	CODE field field ... 'note   # comment
//
// Everything from '#' is dropped, everything after the apostrophe becomes the
// note, the first word (upper-cased) is the record code and the remainder is
// the data, split on whitespace into fields.
package record

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/surveyxml/core/errors"
)

// Record is one logical survey input line.
type Record struct {
	// Code is the upper-cased record code, never empty.
	Code string

	// Data is the trimmed text following the code.
	Data string

	// Note is the inline description following an apostrophe.
	Note string

	// Line is the 1-based source line number, 0 if unknown.
	Line int
}

// Parse turns one raw line into a Record. It reports false when the line
// holds only whitespace or a comment.
func Parse(line string) (Record, bool) {
	if hash := strings.IndexByte(line, '#'); hash >= 0 {
		line = line[:hash]
	}

	var note string
	if apostrophe := strings.IndexByte(line, '\''); apostrophe >= 0 {
		note = strings.TrimRightFunc(line[apostrophe+1:], unicode.IsSpace)
		line = line[:apostrophe]
	}

	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	if line == "" {
		return Record{}, false
	}

	code, data := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		code, data = line[:i], line[i:]
	}

	return Record{
		Code: strings.ToUpper(code),
		Data: strings.TrimSpace(data),
		Note: note,
	}, true
}

// ParseAll reads every line of r and returns the records in input order.
// Carriage returns are stripped so CRLF files parse like LF files. Lines are
// not length limited.
func ParseAll(r io.Reader) ([]Record, error) {
	reader := bufio.NewReader(r)

	var records []Record
	lineNo := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, &errors.ParseError{
				Format:  "survey text",
				Message: "reading line " + strconv.Itoa(lineNo+1),
				Err:     err,
			}
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNo++
		if rec, ok := Parse(strings.TrimRight(line, "\r\n")); ok {
			rec.Line = lineNo
			records = append(records, rec)
		}
		if err == io.EOF {
			break
		}
	}
	return records, nil
}

// Fields splits the record data on whitespace.
func (r Record) Fields() []string {
	return strings.Fields(r.Data)
}

// IsDirective reports whether the record is a configuration directive.
func (r Record) IsDirective() bool {
	return strings.HasPrefix(r.Code, ".")
}

// Kind classifies the record code.
func (r Record) Kind() Kind {
	return ParseKind(r.Code)
}
