package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Attribute keys set on registry spans.
const (
	AttrLot       = attribute.Key("lto.lot")
	AttrLotType   = attribute.Key("lto.lot_type")
	AttrParish    = attribute.Key("lto.parish")
	AttrPage      = attribute.Key("lto.page")
	AttrRows      = attribute.Key("lto.rows")
	AttrAdvanced  = attribute.Key("lto.advanced")
	AttrNoResults = attribute.Key("lto.no_results")
)

// TracedSource wraps a plan.Source so each search is one span and every
// page turn a child span of it.
type TracedSource struct {
	next   plan.Source
	tracer trace.Tracer
}

// WrapSource instruments next with tracer.
func WrapSource(next plan.Source, tracer trace.Tracer) *TracedSource {
	return &TracedSource{next: next, tracer: tracer}
}

// Open implements plan.Source. The search span stays open until the
// session is closed.
func (s *TracedSource) Open(ctx context.Context, q plan.Query) (plan.Session, error) {
	ctx, span := s.tracer.Start(ctx, "plan.search", trace.WithAttributes(
		AttrLot.String(q.LotNumber()),
		AttrLotType.String(q.LotType().Name),
		AttrParish.String(q.Parish().Name),
	))
	sess, err := s.next.Open(ctx, q)
	if err != nil {
		if errors.Is(err, plan.ErrNoResults) {
			span.SetAttributes(AttrNoResults.Bool(true))
		} else {
			recordError(span, err)
		}
		span.End()
		return nil, err
	}
	return &tracedSession{next: sess, tracer: s.tracer, span: span}, nil
}

type tracedSession struct {
	next   plan.Session
	tracer trace.Tracer
	span   trace.Span
	page   int
}

func (s *tracedSession) Summary(ctx context.Context) (string, error) {
	summary, err := s.next.Summary(ctx)
	if errors.Is(err, plan.ErrNoResults) {
		s.span.SetAttributes(AttrNoResults.Bool(true))
	}
	return summary, err
}

func (s *tracedSession) Rows(ctx context.Context) ([]plan.RawRow, error) {
	rows, err := s.next.Rows(ctx)
	if err != nil {
		recordError(s.span, err)
		return nil, err
	}
	s.page++
	s.span.AddEvent("page read", trace.WithAttributes(AttrPage.Int(s.page), AttrRows.Int(len(rows))))
	return rows, nil
}

func (s *tracedSession) Advance(ctx context.Context, nextPage int) (bool, error) {
	ctx = trace.ContextWithSpan(ctx, s.span)
	_, span := s.tracer.Start(ctx, "plan.advance", trace.WithAttributes(AttrPage.Int(nextPage)))
	defer span.End()

	ok, err := s.next.Advance(ctx, nextPage)
	if err != nil {
		recordError(span, err)
		return false, err
	}
	span.SetAttributes(AttrAdvanced.Bool(ok))
	return ok, nil
}

func (s *tracedSession) Close() error {
	err := s.next.Close()
	if err != nil {
		recordError(s.span, err)
	}
	s.span.End()
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
