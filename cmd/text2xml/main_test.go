package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/surveyxml/core/cas"
	surveyerrors "github.com/FocuswithJustin/surveyxml/core/errors"
	"github.com/FocuswithJustin/surveyxml/core/sqlite"
	"github.com/FocuswithJustin/surveyxml/internal/journal"
	"github.com/FocuswithJustin/surveyxml/internal/logging"
	"github.com/FocuswithJustin/surveyxml/internal/stream"
)

const survey = `.SET sigma-apr 5
C 1 100.0 200.0 !
C 2 150.0 200.0
A 2-1-3 45.0000 ' first angle
D 1-3 70.71
L 1-2 0.5 50
`

func init() {
	logging.InitLoggerTo(io.Discard, logging.LevelError, logging.FormatText)
}

// captureOutput redirects command output to buffers while f runs.
func captureOutput(t *testing.T, f func()) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	origOut, origErr := stdout, stderr
	stdout, stderr = &out, &errOut
	defer func() { stdout, stderr = origOut, origErr }()
	f()
	return out.String(), errOut.String()
}

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := stream.CreateOutput(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close test file: %v", err)
	}
	return path
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	r, err := stream.OpenInput(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return string(data)
}

// TestConvertCmd_Run verifies conversion across compressed and plain files.
func TestConvertCmd_Run(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
	}{
		{"plain", "survey.txt", "survey.xml"},
		{"gzip input", "survey.txt.gz", "survey.xml"},
		{"xz both", "survey.txt.xz", "out/survey.xml.xz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			cmd := &ConvertCmd{
				Input:  createTestFile(t, dir, tt.input, survey),
				Output: filepath.Join(dir, tt.output),
			}
			if err := cmd.Run(); err != nil {
				t.Fatalf("ConvertCmd.Run() error = %v", err)
			}

			doc := readOutput(t, cmd.Output)
			for _, want := range []string{
				`sigma-apr="5"`,
				`<point id="1" x="100.0" y="200.0" fix="xy" />`,
				`<!--  first angle -->`,
				`<point id="3" adj="xy" />`,
				`<point id="1" adj="z" />`,
			} {
				if !strings.Contains(doc, want) {
					t.Errorf("output missing %s", want)
				}
			}
		})
	}
}

// TestConvertCmd_SurveyErrors verifies a non-zero error count fails the command
// but still writes the document.
func TestConvertCmd_SurveyErrors(t *testing.T) {
	dir := t.TempDir()
	cmd := &ConvertCmd{
		Input:  createTestFile(t, dir, "bad.txt", "C 1 2\nE 1\nX 1\n"),
		Output: filepath.Join(dir, "bad.xml"),
	}

	err := cmd.Run()
	if err == nil || !strings.Contains(err.Error(), "2 errors") {
		t.Fatalf("ConvertCmd.Run() error = %v, want 2 errors", err)
	}
	doc := readOutput(t, cmd.Output)
	if !strings.Contains(doc, "<!-- error : undefined code X -->") {
		t.Errorf("document should carry the error comments:\n%s", doc)
	}
}

// TestConvertCmd_StoreJournal verifies the store, journal and digest options.
func TestConvertCmd_StoreJournal(t *testing.T) {
	dir := t.TempDir()
	cmd := &ConvertCmd{
		Input:   createTestFile(t, dir, "survey.txt", survey),
		Output:  filepath.Join(dir, "survey.xml"),
		Store:   filepath.Join(dir, "store"),
		Journal: filepath.Join(dir, "journal.db"),
		Digest:  true,
	}

	var runErr error
	_, errOut := captureOutput(t, func() { runErr = cmd.Run() })
	if runErr != nil {
		t.Fatalf("ConvertCmd.Run() error = %v", runErr)
	}

	doc := readOutput(t, cmd.Output)
	want := cas.Sum([]byte(doc))
	if !strings.Contains(errOut, "sha256 "+want.SHA256) || !strings.Contains(errOut, "blake3 "+want.BLAKE3) {
		t.Errorf("digest output = %q, want %+v", errOut, want)
	}

	for _, hash := range []string{want.SHA256, want.BLAKE3} {
		get := &StoreGetCmd{Store: cmd.Store, Hash: hash, Output: "-"}
		var getErr error
		stored, _ := captureOutput(t, func() { getErr = get.Run() })
		if getErr != nil {
			t.Fatalf("StoreGetCmd.Run(%s) error = %v", hash, getErr)
		}
		if stored != doc {
			t.Errorf("stored document %s differs from output", hash)
		}
	}

	list := &JournalListCmd{DB: cmd.Journal, JSON: true}
	var listErr error
	out, _ := captureOutput(t, func() { listErr = list.Run() })
	if listErr != nil {
		t.Fatalf("JournalListCmd.Run() error = %v", listErr)
	}
	var runs []journal.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("journal JSON: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	if runs[0].SHA256 != want.SHA256 || runs[0].Errors != 0 || runs[0].Records != 6 {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestConvertCmd_MissingInput(t *testing.T) {
	cmd := &ConvertCmd{Input: filepath.Join(t.TempDir(), "missing.txt"), Output: "-"}
	if err := cmd.Run(); err == nil {
		t.Error("ConvertCmd.Run() should fail for a missing input")
	}
}

// TestCheckCmd_Run verifies summaries of generated documents.
func TestCheckCmd_Run(t *testing.T) {
	dir := t.TempDir()
	conv := &ConvertCmd{
		Input:  createTestFile(t, dir, "survey.txt", survey+"X\n"),
		Output: filepath.Join(dir, "survey.xml.gz"),
	}
	_ = conv.Run()

	var err error
	out, _ := captureOutput(t, func() { err = (&CheckCmd{File: conv.Output}).Run() })
	if err != nil {
		t.Fatalf("CheckCmd.Run() error = %v", err)
	}
	for _, want := range []string{
		"well-formed", "axes-xy: ne", "angles: left-handed", "sigma-apr=5", "points: 5", "clusters: 2",
		"angle: 1", "distance: 1", "dh: 1", "errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCmd_Pretty(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "doc.xml",
		`<gama-local><network><points-observations><point id="1" adj="xy"/></points-observations></network></gama-local>`)

	var err error
	out, _ := captureOutput(t, func() { err = (&CheckCmd{File: path, Pretty: true}).Run() })
	if err != nil {
		t.Fatalf("CheckCmd.Run() error = %v", err)
	}
	if !strings.Contains(out, "\n  <network>") {
		t.Errorf("output should be indented:\n%s", out)
	}
	if !strings.Contains(out, "points: 1") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestCheckCmd_Malformed(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "bad.xml", "<gama-local>\n<obs>\n</gama-local>\n")

	var err error
	out, _ := captureOutput(t, func() { err = (&CheckCmd{File: path}).Run() })
	if err == nil {
		t.Fatal("CheckCmd.Run() should fail for a malformed document")
	}
	if !strings.Contains(out, path+":3:") {
		t.Errorf("check output should locate the error on line 3: %q", out)
	}
}

func TestJournalListCmd_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	j.Close()

	out, _ := captureOutput(t, func() { err = (&JournalListCmd{DB: path}).Run() })
	if err != nil {
		t.Fatalf("JournalListCmd.Run() error = %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("output = %q", out)
	}
}

// TestJournalListCmd_NotJournal verifies a database without runs is rejected
// and left untouched.
func TestJournalListCmd_NotJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := (&JournalListCmd{DB: path}).Run(); !errors.Is(err, surveyerrors.ErrNotFound) {
		t.Errorf("JournalListCmd.Run() error = %v, want not found", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Errorf("journal file should stay empty: %v", err)
	}
}

func TestJournalShowCmd_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()
	j, err := journal.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := j.Record(ctx, journal.Run{
		Input: "site4.txt", Output: "site4.xml", Records: 12, Errors: 1,
		SHA256: strings.Repeat("a", 64), BLAKE3: strings.Repeat("b", 64),
	})
	j.Close()
	if err != nil {
		t.Fatal(err)
	}

	out, _ := captureOutput(t, func() { err = (&JournalShowCmd{DB: path, ID: run.ID}).Run() })
	if err != nil {
		t.Fatalf("JournalShowCmd.Run() error = %v", err)
	}
	for _, want := range []string{run.ID, "site4.txt", "records:  12", "errors:   1", "blake3:   bbbb"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	out, _ = captureOutput(t, func() { err = (&JournalShowCmd{DB: path, ID: run.ID, JSON: true}).Run() })
	if err != nil {
		t.Fatalf("JournalShowCmd.Run() JSON error = %v", err)
	}
	var got journal.Run
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("run JSON: %v\n%s", err, out)
	}
	if got.ID != run.ID || got.Records != 12 {
		t.Errorf("run = %+v", got)
	}

	if err := (&JournalShowCmd{DB: path, ID: "no-such-run"}).Run(); !errors.Is(err, surveyerrors.ErrNotFound) {
		t.Errorf("JournalShowCmd.Run() missing error = %v, want not found", err)
	}
}

// TestStoreGetCmd_Errors verifies unknown hashes and tampered documents.
func TestStoreGetCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	store, err := cas.NewStore(filepath.Join(dir, "store"))
	if err != nil {
		t.Fatal(err)
	}
	d, err := store.Put([]byte("<gama-local/>\n"))
	if err != nil {
		t.Fatal(err)
	}

	missing := &StoreGetCmd{Store: store.Root(), Hash: strings.Repeat("c", 64), Output: "-"}
	if err := missing.Run(); !errors.Is(err, surveyerrors.ErrNotFound) {
		t.Errorf("StoreGetCmd.Run() missing error = %v, want not found", err)
	}

	invalid := &StoreGetCmd{Store: store.Root(), Hash: "abc", Output: "-"}
	if err := invalid.Run(); !errors.Is(err, cas.ErrInvalidHash) {
		t.Errorf("StoreGetCmd.Run() invalid error = %v, want ErrInvalidHash", err)
	}

	docPath := filepath.Join(store.Root(), "documents", "sha256", d.SHA256[:2], d.SHA256+".xml")
	if err := os.WriteFile(docPath, []byte("<gama-local>tampered</gama-local>\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var parseErr *surveyerrors.ParseError
	tampered := &StoreGetCmd{Store: store.Root(), Hash: d.BLAKE3, Output: filepath.Join(dir, "out.xml")}
	if err := tampered.Run(); !errors.As(err, &parseErr) {
		t.Errorf("StoreGetCmd.Run() tampered error = %v, want ParseError", err)
	}
	if _, err := os.Stat(tampered.Output); !os.IsNotExist(err) {
		t.Error("a tampered document should not be written")
	}
}

// TestConvertCmd_Stdio verifies compressed stdin and stdout streams.
func TestConvertCmd_Stdio(t *testing.T) {
	var in bytes.Buffer
	w, err := stream.NewWriter(&in, stream.XZ)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, survey); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	origIn := stdin
	stdin = &in
	defer func() { stdin = origIn }()

	cmd := &ConvertCmd{Input: "-", Output: "-", Decompress: "xz", Compress: "gzip"}
	out, _ := captureOutput(t, func() { err = cmd.Run() })
	if err != nil {
		t.Fatalf("ConvertCmd.Run() error = %v", err)
	}

	r, err := stream.NewReader(strings.NewReader(out), stream.Gzip)
	if err != nil {
		t.Fatalf("stdout is not gzip: %v", err)
	}
	doc, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(doc), `<point id="1" x="100.0" y="200.0" fix="xy" />`) {
		t.Errorf("unexpected document:\n%s", doc)
	}
}

func TestCheckCmd_WrongRoot(t *testing.T) {
	path := createTestFile(t, t.TempDir(), "other.xml", "<network><point id=\"1\"/></network>\n")
	if err := (&CheckCmd{File: path}).Run(); err == nil || !strings.Contains(err.Error(), "gama-local") {
		t.Errorf("CheckCmd.Run() error = %v, want root element error", err)
	}
}

func TestVersionCmd_Run(t *testing.T) {
	var err error
	out, _ := captureOutput(t, func() { err = (&VersionCmd{}).Run() })
	if err != nil {
		t.Errorf("VersionCmd.Run() error = %v, want nil", err)
	}
	if !strings.HasPrefix(out, "text2xml version ") {
		t.Errorf("output = %q", out)
	}
	info := sqlite.GetInfo()
	if !strings.Contains(out, "sqlite driver "+info.DriverName+" ("+info.DriverType) {
		t.Errorf("output should name the sqlite driver: %q", out)
	}

	out, _ = captureOutput(t, func() { err = (&VersionCmd{JSON: true}).Run() })
	if err != nil {
		t.Fatalf("VersionCmd.Run() JSON error = %v", err)
	}
	var got struct {
		Version string      `json:"version"`
		SQLite  sqlite.Info `json:"sqlite"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("version JSON: %v\n%s", err, out)
	}
	if got.SQLite != info || got.Version == "" {
		t.Errorf("version = %+v, want sqlite %+v", got, info)
	}
}

func TestSetupLogging(t *testing.T) {
	defer logging.InitLoggerTo(io.Discard, logging.LevelError, logging.FormatText)

	if err := setupLogging("debug", "json"); err != nil {
		t.Errorf("setupLogging(debug, json) error = %v", err)
	}
	if err := setupLogging("loud", "text"); err == nil {
		t.Error("setupLogging should reject an unknown level")
	}
	if err := setupLogging("info", "yaml"); err == nil {
		t.Error("setupLogging should reject an unknown format")
	}
}
