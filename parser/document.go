package parser

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"pdfraw/ir/raw"
	"pdfraw/limits"
	"pdfraw/observability"
	"pdfraw/scanner"
	"pdfraw/version"
	"pdfraw/xref"
)

// Config carries the knobs for a document parse. Zero values mean defaults:
// default limits, no logging, no tracing.
type Config struct {
	Limits limits.Limits
	Logger observability.Logger
	Tracer observability.Tracer
}

// DocumentParser runs the full pass over one file buffer: version guard,
// trailer and xref discovery, then materialization of every in-use object.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	cfg.Limits = cfg.Limits.OrDefault()
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	return &DocumentParser{cfg: cfg}
}

// Parse parses the whole buffer into a Document. Any malformed construct
// fails the entire parse; no partial document is returned.
func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	ctx, span := p.cfg.Tracer.StartSpan(ctx, "parser.Parse")
	defer span.Finish()

	log := p.cfg.Logger.With(observability.String("parse_id", uuid.NewString()))
	startedAt := time.Now()

	doc, err := p.parse(ctx, data, log)
	if err != nil {
		span.SetError(err)
		log.Error("parse failed", observability.Error("error", err))
		return nil, err
	}
	span.SetTag(observability.MetricObjectCount, len(doc.Objects))
	log.Info("parse complete",
		observability.String("version", doc.Version.String()),
		observability.Int(observability.MetricObjectCount, len(doc.Objects)),
		observability.Int64(observability.MetricParseTime, time.Since(startedAt).Milliseconds()),
	)
	return doc, nil
}

func (p *DocumentParser) parse(ctx context.Context, data []byte, log observability.Logger) (*raw.Document, error) {
	ver, err := version.Detect(data)
	if err != nil {
		return nil, err
	}
	if err := version.Guard(ver); err != nil {
		return nil, err
	}
	log.Debug("header detected", observability.String("version", ver.String()))

	sc := scanner.New(data, scanner.Config{Limits: p.cfg.Limits})
	builder := NewBuilder(sc, nil, p.cfg.Limits)
	res, err := xref.NewResolver(xref.Config{Limits: p.cfg.Limits}).Resolve(sc, builder)
	if err != nil {
		return nil, err
	}
	log.Debug("xref resolved",
		observability.Int(observability.MetricXRefEntries, res.Table.Len()),
		observability.Int("startxref", res.StartXref),
	)

	loader := newObjectLoader(sc, res.Table, p.cfg.Limits)
	objects := make(map[int]raw.Object, res.Table.Len())
	for _, num := range res.Table.Objects() {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "parse canceled", goerr.V("object", num))
		}
		obj, err := loader.Resolve(num)
		if err != nil {
			return nil, err
		}
		objects[num] = obj
	}

	return &raw.Document{Objects: objects, Trailer: res.Trailer, Version: ver}, nil
}
