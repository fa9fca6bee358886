// Package dispatch answers a query against a dataset: cache first, then the
// agent, with every agent or parse fault turned into a fallback answer.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dataagent/internal/agent"
	"dataagent/internal/cache"
	"dataagent/internal/dataset"
	"dataagent/internal/envelope"
	"dataagent/internal/models"
	"dataagent/internal/providers"
	"dataagent/internal/util"
)

type Kind string

const (
	Success      Kind = "success"
	AgentFailure Kind = "agent_failure"
	ParseFailure Kind = "parse_failure"
	NoData       Kind = "no_data"
)

// Outcome is what a query produced. Envelope is always displayable.
type Outcome struct {
	Kind        Kind              `json:"kind"`
	Envelope    envelope.Envelope `json:"envelope"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Cached      bool              `json:"cached"`
	Reason      string            `json:"reason,omitempty"`
	Raw         string            `json:"raw,omitempty"`
}

// AuditSink records agent invocations.
type AuditSink interface {
	RecordAgentCall(ctx context.Context, call models.AgentCall) error
}

type nopAudit struct{}

func (nopAudit) RecordAgentCall(context.Context, models.AgentCall) error { return nil }

type Dispatcher struct {
	agent      agent.Agent
	cache      cache.Cache
	audit      AuditSink
	log        *zap.Logger
	sampleRows int
	timeout    time.Duration
	now        func() time.Time
}

type Option func(*Dispatcher)

func WithAudit(a AuditSink) Option {
	return func(d *Dispatcher) {
		if a != nil {
			d.audit = a
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

func WithSampleRows(n int) Option {
	return func(d *Dispatcher) { d.sampleRows = n }
}

// WithTimeout bounds each agent invocation. Zero means no extra deadline.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

func New(a agent.Agent, c cache.Cache, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		agent:      a,
		cache:      c,
		audit:      nopAudit{},
		log:        zap.NewNop(),
		sampleRows: cache.SampleRows,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Cache() cache.Cache { return d.cache }

func (d *Dispatcher) Fingerprint(ds *dataset.Dataset, query string) string {
	return cache.FingerprintN(ds, query, d.sampleRows)
}

// Lookup returns the cached result for (ds, query) without invoking the agent.
func (d *Dispatcher) Lookup(ds *dataset.Dataset, query string) (cache.Entry, bool) {
	if ds.Empty() {
		return cache.Entry{}, false
	}
	return d.cache.Get(d.Fingerprint(ds, query))
}

// Answer returns util.ErrEmptyQuery for a blank query. Agent and parse faults
// are reported through the Outcome, never as an error.
func (d *Dispatcher) Answer(ctx context.Context, ds *dataset.Dataset, query string, mem *agent.Memory) (Outcome, error) {
	if strings.TrimSpace(query) == "" {
		return Outcome{}, util.ErrEmptyQuery
	}
	if ds.Empty() {
		return Outcome{Kind: NoData, Envelope: envelope.NoData()}, nil
	}

	fp := d.Fingerprint(ds, query)
	if e, ok := d.cache.Get(fp); ok {
		d.log.Debug("cache hit", zap.String("fingerprint", fp))
		return Outcome{Kind: Success, Envelope: e.Envelope, Fingerprint: fp, Cached: true}, nil
	}

	var history []agent.Turn
	if mem != nil {
		history = mem.Turns()
	}
	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := d.now()
	out, err := d.agent.Run(runCtx, ds, query, history)
	call := models.AgentCall{
		CallID:      uuid.NewString(),
		SessionID:   SessionID(ctx),
		Fingerprint: fp,
		Query:       query,
		Provider:    out.Provider,
		Model:       out.Model,
		Steps:       out.Steps,
		LatencyMS:   d.now().Sub(start).Milliseconds(),
		CreatedAt:   start.UTC(),
	}

	if err != nil {
		call.Status = models.CallStatusAgentFailure
		call.ErrorType = string(providers.ClassifyError(err))
		if errors.Is(err, util.ErrIterationLimit) {
			call.ErrorType = "iteration_limit"
		}
		d.record(ctx, call)
		d.log.Warn("agent failed", zap.String("fingerprint", fp), zap.String("error_type", call.ErrorType), zap.Error(err))
		return Outcome{Kind: AgentFailure, Envelope: envelope.Fallback(), Fingerprint: fp, Reason: err.Error(), Raw: out.Raw}, nil
	}

	env, err := envelope.Parse(out.Raw)
	var encoded string
	if err == nil {
		encoded, err = env.JSON()
	}
	if err != nil {
		call.Status = models.CallStatusParseFailure
		call.ErrorType = "parse"
		d.record(ctx, call)
		d.log.Warn("agent output not parseable", zap.String("fingerprint", fp), zap.Error(err))
		return Outcome{Kind: ParseFailure, Envelope: envelope.Fallback(), Fingerprint: fp, Reason: err.Error(), Raw: out.Raw}, nil
	}

	call.Status = models.CallStatusSuccess
	d.record(ctx, call)
	d.cache.Put(cache.Entry{Fingerprint: fp, Question: query, Envelope: env})
	if mem != nil {
		mem.Add(agent.Turn{Question: query, Answer: encoded})
	}
	return Outcome{Kind: Success, Envelope: env, Fingerprint: fp, Raw: out.Raw}, nil
}

// record never fails the request; a lost audit row is only logged.
func (d *Dispatcher) record(ctx context.Context, call models.AgentCall) {
	if err := d.audit.RecordAgentCall(context.WithoutCancel(ctx), call); err != nil {
		d.log.Warn("audit agent call", zap.String("call_id", call.CallID), zap.Error(err))
	}
}

type sessionKey struct{}

// WithSessionID tags ctx so audit records carry the session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
