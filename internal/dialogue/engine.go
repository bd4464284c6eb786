// Package dialogue is the per-session intake conversation engine. Each turn
// loads the session, dispatches on its stage, persists the transcript, the
// application record and the session, then returns the next prompt.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/extract"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/intake"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/kb"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/records"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/session"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/transcript"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/validate"
	"github.com/danielpatrickdp/intake-orchestrator/go-controller/internal/verify"
)

var (
	// ErrIllegalTransition means a handler tried to leave the stage graph.
	ErrIllegalTransition = errors.New("illegal stage transition")
	// ErrMissingSession is returned for a turn without a session id.
	ErrMissingSession = errors.New("session id is required")
)

// #region types
// TurnRequest is one inbound caller turn.
type TurnRequest struct {
	SessionID    string `json:"session_id"`
	CallerNumber string `json:"caller_number,omitempty"`
	Utterance    string `json:"last_user_utterance"`
}

// Response is the engine's answer to one turn.
type Response struct {
	Updates          intake.Snapshot `json:"updates"`
	NextPrompt       string          `json:"next_prompt"`
	Completed        bool            `json:"completed"`
	Handoff          bool            `json:"handoff"`
	Citations        []int           `json:"citations"`
	Confidence       float64         `json:"confidence"`
	ListenTimeoutSec int             `json:"listen_timeout_sec"`
	Stage            session.Stage   `json:"stage"`
}

// RecordStore is the durable application store the engine writes through.
type RecordStore interface {
	Upsert(ctx context.Context, st *session.State) (string, error)
	LatestByCaller(ctx context.Context, number string) (*records.Application, error)
	GetBySession(ctx context.Context, sessionID string) (*records.Application, error)
	Delete(ctx context.Context, sessionID string) error
}

// Deps are the engine's collaborators. Sessions, Transcript and Records are
// required; the rest fall back to deterministic or no-op implementations.
type Deps struct {
	Sessions   session.Store
	Transcript transcript.Log
	Records    RecordStore
	Extractor  extract.Extractor
	Addresses  verify.AddressVerifier
	Attorneys  verify.AttorneyVerifier
	KB         kb.Searcher
	Prompts    map[string]string
	Logger     *zap.Logger
	Now        func() time.Time
}
// #endregion types

// #region engine
type handler func(ctx context.Context, t *turn) error

// Engine runs intake conversations. It performs no locking: callers must
// serialize turns per session.
type Engine struct {
	sessions   session.Store
	transcript transcript.Log
	records    RecordStore
	extractor  extract.Extractor
	addresses  verify.AddressVerifier
	attorneys  verify.AttorneyVerifier
	kb         kb.Searcher
	prompts    Prompts
	policy     Policy
	log        *zap.Logger
	now        func() time.Time
	handlers   map[session.Stage]handler
}

// New wires an engine.
func New(deps Deps, policy Policy) (*Engine, error) {
	if deps.Sessions == nil || deps.Transcript == nil || deps.Records == nil {
		return nil, errors.New("dialogue: session store, transcript log and record store are required")
	}
	e := &Engine{
		sessions:   deps.Sessions,
		transcript: deps.Transcript,
		records:    deps.Records,
		addresses:  deps.Addresses,
		attorneys:  deps.Attorneys,
		kb:         deps.KB,
		prompts:    DefaultPrompts().With(deps.Prompts),
		policy:     policy,
		log:        deps.Logger,
		now:        deps.Now,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.Named("engine")
	if e.now == nil {
		e.now = time.Now
	}
	inner := deps.Extractor
	if inner == nil {
		inner = extract.Rules{Now: e.now}
	}
	e.extractor = extract.NewGuard(inner, policy.ExtractTimeout, e.log)
	if e.addresses == nil {
		e.addresses = verify.Noop{}
	}
	if e.attorneys == nil {
		e.attorneys = verify.Noop{}
	}
	if e.kb == nil {
		e.kb = noKB{}
	}
	e.handlers = map[session.Stage]handler{
		session.Entry:         e.handleEntry,
		session.ResumeChoice:  e.handleResumeChoice,
		session.Greeting:      e.handleGreeting,
		session.Flow:          e.handleFlow,
		session.Summary:       e.handleSummary,
		session.CorrectSelect: e.handleCorrectSelect,
		session.QnAOffer:      e.handleQnAOffer,
		session.QnAAsk:        e.handleQnAAsk,
		session.Done:          e.handleDone,
	}
	return e, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

type noKB struct{}

func (noKB) Search(context.Context, string, int) ([]kb.Snippet, error) { return nil, nil }
// #endregion engine

// #region turn
// turn accumulates the outcome of one Handle call.
type turn struct {
	st        *session.State
	utterance string
	from      session.Stage
	out       []string
	long      bool
	handoff   bool
	captured  bool
	conf      float64
	citations []int
}

func (t *turn) say(s string) {
	if s = strings.TrimSpace(s); s != "" {
		t.out = append(t.out, s)
	}
}

func (t *turn) capture(conf float64) {
	if !t.captured || conf > t.conf {
		t.conf = conf
	}
	t.captured = true
}
// #endregion turn

// #region handle
// Handle applies one caller turn. Only persistence failures and illegal
// transitions are returned as errors; collaborator failures degrade to
// "no data".
func (e *Engine) Handle(ctx context.Context, req TurnRequest) (Response, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		return Response{}, ErrMissingSession
	}
	caller := callerNumber(req.CallerNumber)

	st, err := e.sessions.Get(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound):
		st = session.New(id, caller, e.policy.QnABudget, e.policy.DefaultListenSec, e.now().UTC())
	case err != nil:
		return Response{}, fmt.Errorf("load session %s: %w", id, err)
	}
	st.Normalize()
	if st.CallerNumber == "" {
		st.CallerNumber = caller
	}

	t := &turn{st: st, utterance: strings.TrimSpace(req.Utterance), from: st.Stage}
	if err := e.dispatch(ctx, t); err != nil {
		return Response{}, err
	}

	resp := e.respond(t)
	if err := e.persist(ctx, t, resp); err != nil {
		return Response{}, err
	}
	e.log.Info("turn",
		zap.String("session", id),
		zap.String("from", string(t.from)),
		zap.String("to", string(st.Stage)),
		zap.Bool("completed", resp.Completed),
		zap.Bool("handoff", resp.Handoff),
	)
	return resp, nil
}

var handoffStages = map[session.Stage]bool{
	session.Flow:          true,
	session.Summary:       true,
	session.CorrectSelect: true,
}

var handoffPhrases = []string{
	"agent", "human", "representative", "real person", "live person",
	"operator", "talk to someone", "speak to someone", "customer service",
}

func (e *Engine) dispatch(ctx context.Context, t *turn) error {
	if handoffStages[t.st.Stage] && validate.HasAny(t.utterance, handoffPhrases) {
		t.st.Handoff = true
		t.handoff = true
		t.say(e.prompts.Render(PromptHandoff))
		return nil
	}
	h, ok := e.handlers[t.st.Stage]
	if !ok {
		return fmt.Errorf("%w: unknown stage %q", ErrIllegalTransition, t.st.Stage)
	}
	return h(ctx, t)
}

// transition moves the session along an edge of the stage graph.
func (e *Engine) transition(t *turn, to session.Stage) error {
	if !session.CanTransition(t.st.Stage, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, t.st.Stage, to)
	}
	t.st.Stage = to
	return nil
}

func (e *Engine) respond(t *turn) Response {
	st := t.st
	listen := e.policy.DefaultListenSec
	if t.long {
		listen = e.policy.LongListenSec
	}
	st.ListenTimeoutSec = listen
	st.UpdatedAt = e.now().UTC()

	conf := e.policy.DefaultConfidence
	if t.captured {
		conf = t.conf
	}
	cites := t.citations
	if cites == nil {
		cites = []int{}
	}
	return Response{
		Updates:          st.Snapshot(),
		NextPrompt:       capRunes(strings.Join(t.out, " "), e.policy.MaxPromptChars),
		Completed:        st.Completed,
		Handoff:          t.handoff,
		Citations:        cites,
		Confidence:       conf,
		ListenTimeoutSec: listen,
		Stage:            st.Stage,
	}
}

// persist appends the transcript, upserts the record and saves the session.
// Transcript failures are logged; the other two are fatal to the turn. No
// record is written while a resume offer is pending, so an empty duplicate
// never shadows the application being offered.
func (e *Engine) persist(ctx context.Context, t *turn, resp Response) error {
	var turns []transcript.Turn
	if t.utterance != "" {
		turns = append(turns, transcript.Turn{
			SessionID: t.st.SessionID,
			Role:      transcript.Caller,
			Text:      t.utterance,
			Stage:     string(t.from),
		})
	}
	turns = append(turns, transcript.Turn{
		SessionID: t.st.SessionID,
		Role:      transcript.Assistant,
		Text:      resp.NextPrompt,
		Stage:     string(resp.Stage),
		Meta: &transcript.Meta{
			Completed: resp.Completed,
			Handoff:   resp.Handoff,
			Citations: t.citations,
		},
	})
	if err := e.transcript.Append(ctx, turns...); err != nil {
		e.log.Warn("transcript append failed", zap.String("session", t.st.SessionID), zap.Error(err))
	}

	if t.st.Stage != session.ResumeChoice {
		if _, err := e.records.Upsert(ctx, t.st); err != nil {
			return fmt.Errorf("upsert record %s: %w", t.st.RecordKey, err)
		}
	}
	if err := e.sessions.Put(ctx, t.st); err != nil {
		return fmt.Errorf("save session %s: %w", t.st.SessionID, err)
	}
	return nil
}
// #endregion handle

// #region reset
// Reset discards a session, its transcript and the record stored under its id.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrMissingSession
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := e.transcript.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clear transcript: %w", err)
	}
	if err := e.records.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	e.log.Info("session reset", zap.String("session", sessionID))
	return nil
}
// #endregion reset

func callerNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	if n, ok := validate.NormalizeNumber(raw); ok {
		return n
	}
	return raw
}

func capRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// boundedCall runs fn under a timeout derived from ctx.
func boundedCall(ctx context.Context, d time.Duration, fn func(context.Context)) {
	if d <= 0 {
		fn(ctx)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	fn(cctx)
}
