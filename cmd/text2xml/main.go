// Command text2xml converts survey observation text into gama-local XML.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/surveyxml/core/cas"
	"github.com/FocuswithJustin/surveyxml/core/sqlite"
	"github.com/FocuswithJustin/surveyxml/core/text2xml"
	"github.com/FocuswithJustin/surveyxml/core/xml"
	"github.com/FocuswithJustin/surveyxml/internal/journal"
	"github.com/FocuswithJustin/surveyxml/internal/logging"
	"github.com/FocuswithJustin/surveyxml/internal/stream"
)

// stdin, stdout and stderr are variables so tests can substitute them.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// CLI defines the command-line interface for text2xml.
var CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	Convert ConvertCmd   `cmd:"" help:"Convert survey text to gama-local XML"`
	Check   CheckCmd     `cmd:"" help:"Check a generated document"`
	Store   StoreGroup   `cmd:"" help:"Document store operations"`
	Journal JournalGroup `cmd:"" help:"Conversion journal operations"`
	Version VersionCmd   `cmd:"" help:"Print version information"`
}

// StoreGroup contains document store operations.
type StoreGroup struct {
	Get StoreGetCmd `cmd:"" help:"Print a stored document by SHA-256 or BLAKE3 hash"`
}

// JournalGroup contains journal operations.
type JournalGroup struct {
	List JournalListCmd `cmd:"" help:"List recorded conversion runs"`
	Show JournalShowCmd `cmd:"" help:"Show one recorded conversion run"`
}

// ConvertCmd converts one survey file.
type ConvertCmd struct {
	Input   string `arg:"" optional:"" default:"-" help:"Survey text file, optionally .gz or .xz (- for stdin)"`
	Output  string `short:"o" default:"-" help:"Output file, optionally .gz or .xz (- for stdout)"`
	Store   string `help:"Keep the document in a content-addressed store at this directory" type:"path"`
	Journal string `help:"Record the run in this SQLite journal" type:"path"`
	Digest  bool   `help:"Print the SHA-256 and BLAKE3 digests of the document to stderr"`

	Decompress string `enum:"none,gzip,xz" default:"none" help:"Compression of stdin input; files use their suffix"`
	Compress   string `enum:"none,gzip,xz" default:"none" help:"Compression of stdout output; files use their suffix"`
}

func (c *ConvertCmd) Run() error {
	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	start := time.Now()

	in, err := openInput(c.Input, c.Decompress)
	if err != nil {
		return err
	}
	conv, err := text2xml.NewFromReader(in, text2xml.WithLogger(logging.LoggerFromContext(ctx)))
	in.Close()
	if err != nil {
		return err
	}
	logging.ConversionStarted(ctx, displayName(c.Input), len(conv.Records()))

	var doc bytes.Buffer
	if err := conv.Exec(&doc); err != nil {
		return err
	}
	if !stream.IsStdio(c.Output) && c.Compress != "" && c.Compress != "none" {
		logging.Warn("compression_ignored", "output", c.Output, "compress", c.Compress)
	}
	if err := writeOutput(c.Output, c.Compress, doc.Bytes()); err != nil {
		logging.ErrorContext(ctx, "write_failed", "output", displayName(c.Output), "error", err)
		return err
	}

	var digest cas.Digest
	switch {
	case c.Store != "":
		store, err := cas.NewStore(c.Store)
		if err != nil {
			return err
		}
		if digest, err = store.Put(doc.Bytes()); err != nil {
			return err
		}
		logging.DocumentStored(ctx, digest.SHA256, digest.BLAKE3, doc.Len())
	case c.Digest || c.Journal != "":
		digest = cas.Sum(doc.Bytes())
		logging.DebugContext(ctx, "document_digest", "sha256", digest.SHA256, "blake3", digest.BLAKE3)
	}
	if c.Digest {
		fmt.Fprintf(stderr, "sha256 %s\nblake3 %s\n", digest.SHA256, digest.BLAKE3)
	}

	status := conv.Status()
	if c.Journal != "" {
		j, err := journal.Open(ctx, c.Journal)
		if err != nil {
			return err
		}
		_, err = j.Record(ctx, journal.Run{
			ID:        logging.GetRunID(ctx),
			StartedAt: start,
			Input:     displayName(c.Input),
			Output:    displayName(c.Output),
			Records:   len(conv.Records()),
			Errors:    status,
			SHA256:    digest.SHA256,
			BLAKE3:    digest.BLAKE3,
		})
		j.Close()
		if err != nil {
			return err
		}
		logging.InfoContext(ctx, "run_recorded", "journal", c.Journal)
	}

	logging.ConversionFinished(ctx, displayName(c.Output), status, time.Since(start))
	if status > 0 {
		return fmt.Errorf("%d errors in %s", status, displayName(c.Input))
	}
	return nil
}

// openInput opens path, or stdin decompressed with the named codec.
func openInput(path, compression string) (io.ReadCloser, error) {
	if !stream.IsStdio(path) {
		return stream.OpenInput(path)
	}
	c, err := stream.ParseCompression(compression)
	if err != nil {
		return nil, err
	}
	return stream.NewReader(stdin, c)
}

// writeOutput writes doc to path, or to stdout compressed with the named codec.
func writeOutput(path, compression string, doc []byte) error {
	var out io.WriteCloser
	var err error
	if stream.IsStdio(path) {
		var c stream.Compression
		if c, err = stream.ParseCompression(compression); err != nil {
			return err
		}
		out, err = stream.NewWriter(stdout, c)
	} else {
		out, err = stream.CreateOutput(path)
	}
	if err != nil {
		return err
	}
	if _, err := out.Write(doc); err != nil {
		out.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return out.Close()
}

func displayName(path string) string {
	if stream.IsStdio(path) {
		return "-"
	}
	return path
}

// observationElements are the elements counted by check.
var observationElements = []string{"direction", "distance", "angle", "azimuth", "dh"}

// CheckCmd validates a generated document and summarizes it.
type CheckCmd struct {
	File   string `arg:"" help:"Document to check, optionally .gz or .xz" type:"existingfile"`
	Pretty bool   `help:"Print the document re-indented before the summary"`
}

func (c *CheckCmd) Run() error {
	in, err := stream.OpenInput(c.File)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	result := xml.Validate(data)
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "%s:%d:%d: %s\n", c.File, e.Line, e.Column, e.Message)
		}
		return fmt.Errorf("%s is not well-formed", c.File)
	}

	if c.Pretty {
		formatted, err := xml.Format(data, xml.FormatOptions{})
		if err != nil {
			return err
		}
		if _, err := stdout.Write(formatted); err != nil {
			return err
		}
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return err
	}

	if root := doc.Root(); root == nil || root.Name() != "gama-local" {
		return fmt.Errorf("%s: root element is not gama-local", c.File)
	}

	points, err := doc.Elements("point")
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: well-formed\n", c.File)

	network, err := doc.XPathFirst("/*[local-name()='gama-local']/*[local-name()='network']")
	if err != nil {
		return err
	}
	if network != nil {
		for _, name := range []string{"axes-xy", "angles"} {
			if v := network.Attr(name); v != "" {
				fmt.Fprintf(stdout, "  %s: %s\n", name, v)
			}
		}
	}

	params, err := doc.XPathFirst("//*[local-name()='parameters']")
	if err != nil {
		return err
	}
	if params != nil {
		attrs := params.Attributes()
		pairs := make([]string, 0, len(attrs))
		for _, name := range slices.Sorted(maps.Keys(attrs)) {
			pairs = append(pairs, name+"="+attrs[name])
		}
		fmt.Fprintf(stdout, "  parameters: %s\n", strings.Join(pairs, " "))
	}

	fmt.Fprintf(stdout, "  points: %d\n", len(points))
	clusters, err := countClusters(doc)
	if err != nil {
		return err
	}
	if clusters > 0 {
		fmt.Fprintf(stdout, "  clusters: %d\n", clusters)
	}
	for _, name := range observationElements {
		nodes, err := doc.Elements(name)
		if err != nil {
			return err
		}
		if len(nodes) > 0 {
			fmt.Fprintf(stdout, "  %s: %d\n", name, len(nodes))
		}
	}
	if n := bytes.Count(data, []byte("<!-- error :")); n > 0 {
		fmt.Fprintf(stdout, "  errors: %d\n", n)
	}
	return nil
}

// countClusters counts the observation wrappers directly below
// points-observations.
func countClusters(doc *xml.Document) (int, error) {
	po, err := doc.XPathFirst("//*[local-name()='points-observations']")
	if err != nil || po == nil {
		return 0, err
	}
	n := 0
	for _, child := range po.Children() {
		switch child.Name() {
		case "obs", "height-differences":
			n++
		}
	}
	return n, nil
}

// StoreGetCmd prints a document from the content-addressed store after
// checking its hash.
type StoreGetCmd struct {
	Store  string `required:"" help:"Document store directory" type:"existingdir"`
	Hash   string `arg:"" help:"SHA-256 or BLAKE3 hash of the document"`
	Output string `short:"o" default:"-" help:"Output file, optionally .gz or .xz (- for stdout)"`
}

func (c *StoreGetCmd) Run() error {
	store, err := cas.NewStore(c.Store)
	if err != nil {
		return err
	}

	hash := strings.ToLower(c.Hash)
	sha := hash
	if !store.Has(sha) {
		if sha, err = store.Lookup(hash); err != nil {
			return err
		}
	}
	if err := store.Verify(sha); err != nil {
		logging.Error("document_corrupt", "store", c.Store, "sha256", sha, "error", err)
		return err
	}
	doc, err := store.Get(sha)
	if err != nil {
		return err
	}
	logging.Info("document_read", "sha256", sha, "size", len(doc))
	return writeOutput(c.Output, "none", doc)
}

// JournalListCmd prints recorded runs.
type JournalListCmd struct {
	DB    string `name:"db" required:"" help:"SQLite journal" type:"existingfile"`
	Limit int    `default:"20" help:"Maximum number of runs (0 for all)"`
	JSON  bool   `help:"Print runs as JSON"`
}

func (c *JournalListCmd) Run() error {
	ctx := context.Background()
	j, err := journal.OpenReadOnly(ctx, c.DB)
	if err != nil {
		return err
	}
	defer j.Close()
	logging.GetLogger().Debug("journal_opened", "db", c.DB, "read_only", true)

	runs, err := j.List(ctx, c.Limit)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(stdout, "%s  %s  %s -> %s  records=%d errors=%d\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Input, run.Output,
			run.Records, run.Errors)
		if run.SHA256 != "" {
			fmt.Fprintf(stdout, "    sha256 %s\n", run.SHA256)
		}
	}
	return nil
}

// JournalShowCmd prints one recorded run.
type JournalShowCmd struct {
	DB   string `name:"db" required:"" help:"SQLite journal" type:"existingfile"`
	ID   string `arg:"" help:"Run ID"`
	JSON bool   `help:"Print the run as JSON"`
}

func (c *JournalShowCmd) Run() error {
	ctx := context.Background()
	j, err := journal.OpenReadOnly(ctx, c.DB)
	if err != nil {
		return err
	}
	defer j.Close()
	logging.GetLogger().Debug("journal_opened", "db", c.DB, "read_only", true)

	run, err := j.Get(ctx, c.ID)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	fmt.Fprintf(stdout, "id:       %s\n", run.ID)
	fmt.Fprintf(stdout, "started:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(stdout, "input:    %s\n", run.Input)
	fmt.Fprintf(stdout, "output:   %s\n", run.Output)
	fmt.Fprintf(stdout, "records:  %d\n", run.Records)
	fmt.Fprintf(stdout, "errors:   %d\n", run.Errors)
	if run.SHA256 != "" {
		fmt.Fprintf(stdout, "sha256:   %s\n", run.SHA256)
		fmt.Fprintf(stdout, "blake3:   %s\n", run.BLAKE3)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct {
	JSON bool `help:"Print version information as JSON"`
}

func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	if c.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Version string      `json:"version"`
			SQLite  sqlite.Info `json:"sqlite"`
		}{text2xml.Version, info})
	}
	fmt.Fprintf(stdout, "text2xml version %s\n", text2xml.Version)
	fmt.Fprintf(stdout, "sqlite driver %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func setupLogging(level, format string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(l, f)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("text2xml"),
		kong.Description("Convert survey observation text into gama-local XML"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(setupLogging(strings.ToLower(CLI.LogLevel), CLI.LogFormat))
	logging.Debug("command", "name", ctx.Command())
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
