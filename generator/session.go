package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSuperseded is returned to a Submit caller whose response arrived after
// the session was reset or closed. The response is discarded.
var ErrSuperseded = errors.New("submission superseded")

// Turn 记录一次已完成的提交。
type Turn struct {
	SubmissionID string
	Request      GenerationRequest
	Phase        Phase
	Message      string
	CreatedAt    time.Time
	Elapsed      time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger; info lines are only written when verbose is set.
func WithLogger(logger *log.Logger, verbose bool) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
		s.verbose = verbose
	}
}

// WithObserver registers fn to receive every applied state transition.
// fn runs outside the session lock and may call the session's observers.
func WithObserver(fn func(State)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// Session owns the lifecycle of generation requests against one Service.
// At most one submission is in flight at a time.
type Session struct {
	ID string

	svc      Service
	logger   *log.Logger
	verbose  bool
	observer func(State)

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	closed  bool
	history []Turn
}

// NewSession 创建 session，尚未提交任何请求。
func NewSession(svc Service, opts ...Option) (*Session, error) {
	if svc == nil {
		return nil, errors.New("generation service is required")
	}
	s := &Session{
		ID:     uuid.NewString(),
		svc:    svc,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) infof(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.logger.Printf("[INFO] [session] "+format, args...)
}

// Submit validates req and sends it to the service, blocking until the
// response arrives or ctx ends. It never retries.
func (s *Session) Submit(ctx context.Context, req GenerationRequest) (*GeneratedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	next, err := s.state.Begin()
	if err != nil {
		s.mu.Unlock()
		s.infof("rejected submit topic=%q: %v", req.Topic, err)
		return nil, err
	}
	s.state = next
	seq := next.Seq
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()
	s.notify(next)

	submissionID := uuid.NewString()
	s.infof("submitting id=%s seq=%d topic=%q audience=%s tone=%s length=%s",
		submissionID, seq, req.Topic, req.TargetAudience, req.StyleGuide.Tone, req.StyleGuide.Length)
	start := time.Now()

	res, err := s.svc.Generate(WithSubmissionID(callCtx, submissionID), req)
	if err == nil && res == nil {
		err = fmt.Errorf("%w: service returned no result", ErrMalformedResponse)
	}

	s.mu.Lock()
	var applied bool
	if err != nil {
		next, applied = s.state.Reject(seq, err)
	} else {
		next, applied = s.state.Resolve(seq, res)
	}
	if applied {
		s.state = next
		s.cancel = nil
		s.history = append(s.history, Turn{
			SubmissionID: submissionID,
			Request:      req,
			Phase:        next.Phase,
			Message:      next.ErrorMessage(),
			CreatedAt:    start,
			Elapsed:      time.Since(start),
		})
	}
	s.mu.Unlock()

	if !applied {
		s.infof("discarding stale response id=%s seq=%d", submissionID, seq)
		return nil, ErrSuperseded
	}
	s.notify(next)
	if err != nil {
		s.infof("submission id=%s failed after %s: %v", submissionID, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}
	s.infof("submission id=%s succeeded after %s", submissionID, time.Since(start).Round(time.Millisecond))
	return res, nil
}

// Reset drops any pending submission and returns the session to Idle.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = s.state.Supersede()
	next := s.state
	s.mu.Unlock()
	s.notify(next)
}

// Close tears the session down. A pending submission is cancelled and its
// response, if it still arrives, is discarded.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = s.state.Supersede()
	s.mu.Unlock()
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Phase() Phase {
	return s.Snapshot().Phase
}

func (s *Session) Result() *GeneratedResult {
	return s.Snapshot().Result
}

func (s *Session) Err() error {
	return s.Snapshot().Err
}

// ErrorMessage is the user-facing text for the last failure, or "".
func (s *Session) ErrorMessage() string {
	return s.Snapshot().ErrorMessage()
}

// History returns the completed submissions, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) notify(st State) {
	if s.observer != nil {
		s.observer(st)
	}
}

type submissionIDKey struct{}

// WithSubmissionID tags ctx with the id of the submission it serves.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, id)
}

// SubmissionID returns the id set by WithSubmissionID, or "".
func SubmissionID(ctx context.Context) string {
	id, _ := ctx.Value(submissionIDKey{}).(string)
	return id
}
