// Package export turns a generated result into downloadable artifacts.
//
// Every format runs as its own job. Jobs of different formats may run at
// the same time and never affect each other; a second request for a format
// that is already running is ignored.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"
	"golang.org/x/sync/errgroup"

	"content_governance_client/generator"
	"content_governance_client/report"
)

// JobState is the lifecycle position of one format's export job.
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
	JobCompleted
	JobFailed
)

func (s JobState) String() string {
	switch s {
	case JobIdle:
		return "idle"
	case JobRunning:
		return "running"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Renderer produces server-rendered documents (pdf, word).
type Renderer interface {
	RenderDocument(ctx context.Context, format string, result *generator.GeneratedResult) ([]byte, error)
}

// Event reports a job transition. Filename and Size are set on
// JobCompleted; Err is an *ExportFailure on JobFailed.
type Event struct {
	Format   Format
	State    JobState
	Filename string
	Size     int
	Err      error
}

// ExportFailure is the error of one format's job.
type ExportFailure struct {
	Format Format
	Err    error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("%s export failed: %v", e.Format.Label(), e.Err)
}

func (e *ExportFailure) Unwrap() error {
	return e.Err
}

// Notice is the message shown to the user.
func (e *ExportFailure) Notice() string {
	return fmt.Sprintf("Failed to export %s. Please try again.", e.Format.Label())
}

var errNoRenderer = errors.New("no document renderer configured")

// jsonOptions: two-space indent, key order preserved, arrays never folded
// onto one line.
var jsonOptions = &pretty.Options{Width: 0, Prefix: "", Indent: "  ", SortKeys: false}

type job struct {
	mu    sync.Mutex
	state JobState
}

func (j *job) tryStart() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == JobRunning {
		return false
	}
	j.state = JobRunning
	return true
}

func (j *job) set(s JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *job) get() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRenderer sets the service used for pdf and word.
func WithRenderer(r Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithClock overrides the time used in filenames.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithObserver registers fn to receive every job transition.
func WithObserver(fn func(Event)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithLogger sets the logger; info lines are only written when verbose is set.
func WithLogger(logger *log.Logger, verbose bool) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
		o.verbose = verbose
	}
}

// Orchestrator runs export jobs and hands their artifacts to a FileSink.
// It never keeps a reference to a delivered artifact.
type Orchestrator struct {
	sink     FileSink
	renderer Renderer
	now      func() time.Time
	observer func(Event)
	logger   *log.Logger
	verbose  bool

	// fixed at construction; each job guards its own state.
	jobs map[Format]*job
}

// New creates an Orchestrator delivering to sink.
func New(sink FileSink, opts ...Option) (*Orchestrator, error) {
	if sink == nil {
		return nil, errors.New("file sink is required")
	}
	o := &Orchestrator{
		sink:   sink,
		now:    time.Now,
		logger: log.Default(),
		jobs:   make(map[Format]*job, len(formats)),
	}
	for f := range formats {
		o.jobs[f] = &job{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) infof(format string, args ...interface{}) {
	if !o.verbose {
		return
	}
	o.logger.Printf("[INFO] [export] "+format, args...)
}

// State reports the current state of f's job.
func (o *Orchestrator) State(f Format) JobState {
	j, ok := o.jobs[f]
	if !ok {
		return JobIdle
	}
	return j.get()
}

// ExportAs builds the artifact for f from res and delivers it. It is a no-op
// when res is nil or f's job is already running. On failure the job passes
// through JobFailed and the returned error is an *ExportFailure; either way
// the job ends in JobIdle so the export can be retried.
func (o *Orchestrator) ExportAs(ctx context.Context, f Format, res *generator.GeneratedResult) error {
	j, ok := o.jobs[f]
	if !ok {
		return fmt.Errorf("unknown export format %q", f)
	}
	if res == nil {
		o.infof("skip %s: no result yet", f)
		return nil
	}
	if !j.tryStart() {
		o.infof("skip %s: export already running", f)
		return nil
	}
	o.emit(Event{Format: f, State: JobRunning})

	filename, size, err := o.run(ctx, f, res)
	if err != nil {
		failure := &ExportFailure{Format: f, Err: err}
		o.transition(j, Event{Format: f, State: JobFailed, Err: failure})
		o.transition(j, Event{Format: f, State: JobIdle})
		o.infof("%s", failure)
		return failure
	}

	o.transition(j, Event{Format: f, State: JobCompleted, Filename: filename, Size: size})
	o.transition(j, Event{Format: f, State: JobIdle})
	o.infof("delivered %s (%s)", filename, humanize.Bytes(uint64(size)))
	return nil
}

// ExportAll runs ExportAs for every format concurrently. A failing format
// does not stop the others; all failures are returned joined.
func (o *Orchestrator) ExportAll(ctx context.Context, fs []Format, res *generator.GeneratedResult) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
		seen = make(map[Format]bool, len(fs))
	)
	for _, f := range fs {
		if seen[f] {
			continue
		}
		seen[f] = true
		f := f
		g.Go(func() error {
			if err := o.ExportAs(ctx, f, res); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (o *Orchestrator) run(ctx context.Context, f Format, res *generator.GeneratedResult) (string, int, error) {
	data, err := o.build(ctx, f, res)
	if err != nil {
		return "", 0, err
	}
	filename := f.Filename(o.now())
	if err := o.sink.Deliver(ctx, data, filename, f.MimeType()); err != nil {
		return "", 0, fmt.Errorf("deliver %s: %w", filename, err)
	}
	return filename, len(data), nil
}

func (o *Orchestrator) build(ctx context.Context, f Format, res *generator.GeneratedResult) ([]byte, error) {
	if formats[f].remote {
		if o.renderer == nil {
			return nil, errNoRenderer
		}
		data, err := o.renderer.RenderDocument(ctx, string(f), res)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, errors.New("service returned an empty document")
		}
		return data, nil
	}

	switch f {
	case FormatJSON:
		raw := res.Raw()
		if len(raw) == 0 {
			return nil, errors.New("result has no payload")
		}
		return bytes.TrimSuffix(pretty.PrettyOptions(raw, jsonOptions), []byte("\n")), nil
	case FormatMarkdown:
		return []byte(report.Markdown(res)), nil
	case FormatHTML:
		return report.HTML(res)
	}
	return nil, fmt.Errorf("no builder for format %q", f)
}

func (o *Orchestrator) transition(j *job, ev Event) {
	j.set(ev.State)
	o.emit(ev)
}

func (o *Orchestrator) emit(ev Event) {
	if o.observer != nil {
		o.observer(ev)
	}
}
