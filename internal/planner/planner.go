package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/covera-health/covera/internal/analyze"
	"github.com/covera-health/covera/internal/interpret"
	"github.com/covera-health/covera/internal/model"
	"github.com/covera-health/covera/internal/snapshot"
	"github.com/covera-health/covera/internal/trace"
)

// maxCitations bounds the citation list on aggregate answers so a broad
// question cannot return the whole dataset as provenance.
const maxCitations = 25

// Narrator optionally rewrites the deterministic answer text. Narration
// never changes answer_json or citations; a narration failure falls back
// to the deterministic text.
type Narrator interface {
	Narrate(ctx context.Context, question, answerText string, answerJSON map[string]interface{}) (string, error)
}

// Planner answers questions against the current snapshot. Every answer is
// assembled from claims in the snapshot, carries citations back to source
// rows, and records a replayable trace.
type Planner struct {
	cfg      *model.Config
	store    *snapshot.Store
	interp   *interpret.Interpreter
	analyzer *analyze.Analyzer
	recorder *trace.Recorder
	narrator Narrator
	logger   *slog.Logger
}

// New wires a planner. narrator may be nil.
func New(cfg *model.Config, store *snapshot.Store, recorder *trace.Recorder, narrator Narrator, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		cfg:      cfg,
		store:    store,
		interp:   interpret.NewInterpreter(),
		analyzer: analyze.NewAnalyzer(cfg.Analyze, cfg.Verify),
		recorder: recorder,
		narrator: narrator,
		logger:   logger,
	}
}

type outcome struct {
	text      string
	data      map[string]interface{}
	citations []model.Citation
	err       error
}

// Ask interprets and answers one question. Structured filters scope the
// question before text parsing. The configured query timeout applies even
// when the caller's context has no deadline.
func (p *Planner) Ask(ctx context.Context, question string, filters interpret.Filters) (*model.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Query.Timeout)
	defer cancel()

	// 1. Pin the snapshot for the whole question.
	snap := p.store.Current()
	tb := p.recorder.Begin(question)
	tb.Step("snapshot", question, fmt.Sprintf("version=%d facilities=%d", snap.Version, len(snap.Facilities)))

	// 2. Interpret against the closed intent set.
	query, err := p.interp.Interpret(question, filters, snap)
	if err != nil {
		tb.Step("interpret", question, err.Error())
		tb.Close()
		p.logger.Info("question refused", "trace_id", tb.ID(), "kind", model.KindOf(err))
		return nil, err
	}
	tb.Step("interpret", question, stepJSON(query))

	// 3. Dispatch. The handler runs aside so a slow analysis cannot outlive
	// the deadline.
	ch := make(chan outcome, 1)
	go func() { ch <- p.dispatch(ctx, snap, query) }()

	var out outcome
	select {
	case <-ctx.Done():
		tb.Discard()
		return nil, model.NewError(model.KindTimeout, "question timed out after %s", p.cfg.Query.Timeout)
	case out = <-ch:
	}
	if out.err != nil {
		if model.KindOf(out.err) == model.KindTimeout {
			tb.Discard()
			return nil, out.err
		}
		tb.Step("dispatch", string(query.Intent), out.err.Error())
		tb.Close()
		return nil, out.err
	}
	tb.Step("dispatch", string(query.Intent), stepJSON(out.data))

	// 4. Optional narration on top of the deterministic text.
	text := out.text
	if p.narrator != nil {
		if narrated, nerr := p.narrator.Narrate(ctx, question, out.text, out.data); nerr == nil && narrated != "" {
			text = narrated
			tb.Step("narrate", out.text, narrated)
		} else if nerr != nil {
			tb.Step("narrate", out.text, "fallback: "+nerr.Error())
		}
	}

	if len(out.citations) > maxCitations {
		out.citations = out.citations[:maxCitations]
	}
	tb.Step("assemble", string(query.Intent), fmt.Sprintf("citations=%d", len(out.citations)))
	tb.Close()

	return &model.Answer{
		Text:      text,
		JSON:      out.data,
		Citations: out.citations,
		TraceID:   tb.ID(),
	}, nil
}

func (p *Planner) dispatch(ctx context.Context, snap *snapshot.Snapshot, q *interpret.Query) outcome {
	if err := ctx.Err(); err != nil {
		return outcome{err: model.NewError(model.KindTimeout, "canceled before dispatch")}
	}
	switch q.Intent {
	case interpret.IntentCountByCapability, interpret.IntentCountByRegion:
		return p.countByCapability(snap, q)
	case interpret.IntentFacilityLookup:
		return p.facilityLookup(snap, q)
	case interpret.IntentRadiusSearch:
		return p.radiusSearch(snap, q)
	case interpret.IntentDesertDetection:
		return p.desertDetection(snap, q)
	case interpret.IntentPlausibility:
		return p.plausibility(snap)
	case interpret.IntentCorrelation:
		return p.correlation(snap)
	case interpret.IntentConcentration:
		return p.concentration(snap, q)
	case interpret.IntentWorkforce:
		return p.workforce(snap, q)
	case interpret.IntentRegionRanking:
		return p.regionRanking(snap, q)
	}
	return outcome{err: model.NewError(model.KindUnsupported, "no handler for intent %s", q.Intent)}
}

// stepJSON renders a step payload for the trace. Trace steps are summaries,
// not transcripts; the recorder truncates long ones.
func stepJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
