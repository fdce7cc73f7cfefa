package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content_governance_client/generator"
)

type delivery struct {
	data     []byte
	filename string
	mimeType string
}

type memSink struct {
	mu    sync.Mutex
	files []delivery
	err   error
}

func (s *memSink) Deliver(_ context.Context, data []byte, filename, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.files = append(s.files, delivery{data: bytes.Clone(data), filename: filename, mimeType: mimeType})
	return nil
}

func (s *memSink) byName(name string) (delivery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.files {
		if d.filename == name {
			return d, true
		}
	}
	return delivery{}, false
}

// stubRenderer answers from a per-format table; formats listed in gates
// block until their channel is closed.
type stubRenderer struct {
	calls   atomic.Int32
	docs    map[string][]byte
	fails   map[string]error
	gates   map[string]chan struct{}
	started chan string
}

func (r *stubRenderer) RenderDocument(ctx context.Context, format string, _ *generator.GeneratedResult) ([]byte, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- format
	}
	if gate, ok := r.gates[format]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := r.fails[format]; err != nil {
		return nil, err
	}
	return r.docs[format], nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) states(f Format) []JobState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []JobState
	for _, ev := range r.events {
		if ev.Format == f {
			out = append(out, ev.State)
		}
	}
	return out
}

var fixedNow = time.UnixMilli(1700000000000)

func fixedClock() time.Time { return fixedNow }

func sampleResult(t *testing.T) *generator.GeneratedResult {
	t.Helper()
	res, err := generator.ParseResult([]byte(`{"content":"Body text","final_decision":{"final_decision":"Approved","final_score":0.82,"summary":["Clear."]}}`))
	require.NoError(t, err)
	return res
}

func TestExportBeforeResultIsNoop(t *testing.T) {
	sink := &memSink{}
	r := &stubRenderer{}
	rec := &recorder{}
	o, err := New(sink, WithRenderer(r), WithObserver(rec.observe))
	require.NoError(t, err)

	for _, f := range Formats() {
		assert.NoError(t, o.ExportAs(context.Background(), f, nil))
		assert.Equal(t, JobIdle, o.State(f))
	}
	assert.Zero(t, r.calls.Load())
	assert.Empty(t, sink.files)
	assert.Empty(t, rec.events)
}

func TestExportPDFSuccess(t *testing.T) {
	sink := &memSink{}
	pdf := []byte("%PDF-1.7 body")
	rec := &recorder{}
	o, err := New(sink,
		WithRenderer(&stubRenderer{docs: map[string][]byte{"pdf": pdf}}),
		WithClock(fixedClock),
		WithObserver(rec.observe),
	)
	require.NoError(t, err)

	require.NoError(t, o.ExportAs(context.Background(), FormatPDF, sampleResult(t)))

	d, ok := sink.byName("content_report_1700000000000.pdf")
	require.True(t, ok)
	assert.Equal(t, pdf, d.data)
	assert.Equal(t, "application/pdf", d.mimeType)
	assert.Equal(t, JobIdle, o.State(FormatPDF))

	want := []Event{
		{Format: FormatPDF, State: JobRunning},
		{Format: FormatPDF, State: JobCompleted, Filename: "content_report_1700000000000.pdf", Size: len(pdf)},
		{Format: FormatPDF, State: JobIdle},
	}
	if diff := cmp.Diff(want, rec.events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestExportFailureIsScopedToFormat(t *testing.T) {
	sink := &memSink{}
	rec := &recorder{}
	renderErr := &generator.TransportError{Op: "export pdf", StatusCode: 500}
	o, err := New(sink,
		WithRenderer(&stubRenderer{
			docs:  map[string][]byte{"word": []byte("PK docx")},
			fails: map[string]error{"pdf": renderErr},
		}),
		WithClock(fixedClock),
		WithObserver(rec.observe),
	)
	require.NoError(t, err)

	err = o.ExportAll(context.Background(), []Format{FormatPDF, FormatWord}, sampleResult(t))
	require.Error(t, err)

	var failure *ExportFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, FormatPDF, failure.Format)
	assert.ErrorIs(t, err, renderErr)
	assert.Equal(t, "Failed to export PDF. Please try again.", failure.Notice())

	d, ok := sink.byName("content_report_1700000000000.docx")
	require.True(t, ok, "word export completes despite the pdf failure")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", d.mimeType)

	if diff := cmp.Diff([]JobState{JobRunning, JobFailed, JobIdle}, rec.states(FormatPDF)); diff != "" {
		t.Errorf("pdf states (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]JobState{JobRunning, JobCompleted, JobIdle}, rec.states(FormatWord)); diff != "" {
		t.Errorf("word states (-want +got):\n%s", diff)
	}
	assert.Equal(t, JobIdle, o.State(FormatPDF))
	assert.Equal(t, JobIdle, o.State(FormatWord))
}

func TestDuplicateExportWhileRunningIsIgnored(t *testing.T) {
	gate := make(chan struct{})
	r := &stubRenderer{
		docs:    map[string][]byte{"pdf": []byte("pdf"), "word": []byte("docx")},
		gates:   map[string]chan struct{}{"pdf": gate},
		started: make(chan string, 4),
	}
	sink := &memSink{}
	o, err := New(sink, WithRenderer(r), WithClock(fixedClock))
	require.NoError(t, err)
	res := sampleResult(t)

	done := make(chan error, 1)
	go func() { done <- o.ExportAs(context.Background(), FormatPDF, res) }()

	select {
	case f := <-r.started:
		require.Equal(t, "pdf", f)
	case <-time.After(2 * time.Second):
		t.Fatal("pdf render did not start")
	}
	assert.Equal(t, JobRunning, o.State(FormatPDF))

	// second click on the running format
	assert.NoError(t, o.ExportAs(context.Background(), FormatPDF, res))
	assert.EqualValues(t, 1, r.calls.Load())

	// other formats are not blocked
	require.NoError(t, o.ExportAs(context.Background(), FormatWord, res))
	assert.Equal(t, JobIdle, o.State(FormatWord))
	assert.Equal(t, JobRunning, o.State(FormatPDF))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, JobIdle, o.State(FormatPDF))
	assert.EqualValues(t, 2, r.calls.Load())
	assert.Len(t, sink.files, 2)
}

func TestExportJSONIsLocal(t *testing.T) {
	payload := `{"content":"Body","final_decision":{"final_decision":"Approved","final_score":0.82,"agent_id":"consensus"},"metadata":{"model":"m"}}`
	res, err := generator.ParseResult([]byte(payload))
	require.NoError(t, err)

	r := &stubRenderer{}
	sink := &memSink{}
	o, err := New(sink, WithRenderer(r), WithClock(fixedClock))
	require.NoError(t, err)

	require.NoError(t, o.ExportAs(context.Background(), FormatJSON, res))
	assert.Zero(t, r.calls.Load())

	d, ok := sink.byName("content_analysis_1700000000000.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", d.mimeType)

	var want bytes.Buffer
	require.NoError(t, json.Indent(&want, []byte(payload), "", "  "))
	assert.Equal(t, want.String(), string(d.data))
}

func TestExportJSONKeepsFullPayload(t *testing.T) {
	sink := &memSink{}
	o, err := New(sink, WithClock(fixedClock))
	require.NoError(t, err)
	res := sampleResult(t)

	require.NoError(t, o.ExportAs(context.Background(), FormatJSON, res))
	d, ok := sink.byName("content_analysis_1700000000000.json")
	require.True(t, ok)
	assert.JSONEq(t, string(res.Raw()), string(d.data))
	assert.False(t, bytes.HasSuffix(d.data, []byte("\n")))
	assert.Contains(t, string(d.data), "\n  \"content\": \"Body text\"")
}

func TestExportLocalReports(t *testing.T) {
	sink := &memSink{}
	o, err := New(sink, WithClock(fixedClock))
	require.NoError(t, err)

	require.NoError(t, o.ExportAll(context.Background(), []Format{FormatMarkdown, FormatHTML, FormatMarkdown}, sampleResult(t)))
	require.Len(t, sink.files, 2)

	md, ok := sink.byName("content_report_1700000000000.md")
	require.True(t, ok)
	assert.Contains(t, string(md.data), "Body text")
	assert.Equal(t, "text/markdown; charset=utf-8", md.mimeType)

	html, ok := sink.byName("content_report_1700000000000.html")
	require.True(t, ok)
	assert.Contains(t, string(html.data), "<!DOCTYPE html>")
}

func TestExportRemoteWithoutRenderer(t *testing.T) {
	o, err := New(&memSink{})
	require.NoError(t, err)

	err = o.ExportAs(context.Background(), FormatWord, sampleResult(t))
	assert.ErrorIs(t, err, errNoRenderer)
	assert.Equal(t, JobIdle, o.State(FormatWord))
}

func TestExportEmptyDocumentFails(t *testing.T) {
	o, err := New(&memSink{}, WithRenderer(&stubRenderer{docs: map[string][]byte{"pdf": {}}}))
	require.NoError(t, err)

	var failure *ExportFailure
	assert.ErrorAs(t, o.ExportAs(context.Background(), FormatPDF, sampleResult(t)), &failure)
}

func TestExportSinkFailure(t *testing.T) {
	sinkErr := errors.New("disk full")
	o, err := New(&memSink{err: sinkErr}, WithClock(fixedClock))
	require.NoError(t, err)

	err = o.ExportAs(context.Background(), FormatMarkdown, sampleResult(t))
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), "Markdown export failed")
}

func TestExportUnknownFormat(t *testing.T) {
	o, err := New(&memSink{})
	require.NoError(t, err)
	assert.Error(t, o.ExportAs(context.Background(), Format("xlsx"), sampleResult(t)))
}

func TestNewRequiresSink(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestJobStateString(t *testing.T) {
	assert.Equal(t, "idle", JobIdle.String())
	assert.Equal(t, "running", JobRunning.String())
	assert.Equal(t, "completed", JobCompleted.String())
	assert.Equal(t, "failed", JobFailed.String())
}
