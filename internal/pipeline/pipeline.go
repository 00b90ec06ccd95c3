// Package pipeline orchestrates the translation of Java mod sources into
// Bedrock scripts: parse to the intermediate representation, transpile by
// rule, hand leftovers to the model, integrate, validate against traces,
// and refine until accepted or out of budget. Failures convert to terminal
// results with notes; nothing escapes to the caller as a panic.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"modport/internal/extractor"
	"modport/internal/generator"
	"modport/internal/inference"
	"modport/internal/ir"
	"modport/internal/jsast"
	"modport/internal/mappings"
	"modport/internal/trace"
	"modport/internal/transpiler"
	"modport/internal/validator"
)

// State names the stations of the per-file state machine. Accepted,
// Finalized and Failed are terminal: accepted means validation or the
// confidence threshold cleared the result, finalized means the run
// completed without that evidence, failed means it broke.
type State string

const (
	StateParsed          State = "parsed"
	StateTranspiled      State = "transpiled"
	StateModelTranslated State = "model_translated"
	StateIntegrated      State = "integrated"
	StateValidated       State = "validated"
	StateAccepted        State = "accepted"
	StateRefining        State = "refining"
	StateFinalized       State = "finalized"
	StateFailed          State = "failed"
)

// minImprovement is the score gain a refinement iteration must deliver for
// the loop to continue.
const minImprovement = 0.05

// TraceProvider captures paired execution traces for a translated file.
// The instrumentation harness implements it; when absent, validation and
// refinement are skipped and results finalize on confidence alone.
type TraceProvider interface {
	Traces(ctx context.Context, sourceFile string, files []generator.GeneratedFile) (source, target *trace.ExecutionTrace, err error)
}

// Options configures a Pipeline.
type Options struct {
	Mappings            *mappings.Table
	Client              inference.Client
	TraceProvider       TraceProvider
	Format              jsast.FormatOptions
	EntryFile           string
	Loader              ir.Loader
	TargetVersion       string
	ConfidenceThreshold float64
	MaxIterations       int
	Timeout             time.Duration
	Workers             int
	SegmentWorkers      int
	Retry               inference.RetryConfig
	InlineModel         bool
	Logger              *slog.Logger
}

// RefinementIteration records one pass of the refinement loop.
type RefinementIteration struct {
	Index      int      `json:"index"`
	Hints      []string `json:"hints"`
	Score      float64  `json:"score"`
	ScoreDelta float64  `json:"score_delta"`
	Aligned    bool     `json:"aligned"`
}

// FileResult is the terminal outcome for one source file.
type FileResult struct {
	SourceFile string                    `json:"source_file"`
	State      State                     `json:"state"`
	Accepted   bool                      `json:"accepted"`
	Confidence float64                   `json:"confidence"`
	Files      []generator.GeneratedFile `json:"files,omitempty"`
	Notes      []generator.Note          `json:"notes,omitempty"`
	Validation *validator.Report         `json:"validation,omitempty"`
	Iterations []RefinementIteration     `json:"iterations,omitempty"`
	Err        error                     `json:"-"`
}

// BatchResult aggregates per-file outcomes of one run.
type BatchResult struct {
	Results  []FileResult  `json:"results"`
	Duration time.Duration `json:"duration"`
}

// Pipeline drives translations. Safe for concurrent use; per-file state
// lives on the stack of each call.
type Pipeline struct {
	transpiler *transpiler.Transpiler
	translator *inference.Translator
	provider   TraceProvider
	opts       Options
	logger     *slog.Logger
}

// New wires a pipeline. The inference client is mandatory; everything else
// has a default.
func New(opts Options) (*Pipeline, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("an inference client is required")
	}
	if opts.Format == (jsast.FormatOptions{}) {
		opts.Format = jsast.DefaultFormatOptions()
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 0.8
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		transpiler: transpiler.New(opts.Mappings),
		translator: inference.NewTranslator(opts.Client, inference.Options{
			Retry:   opts.Retry,
			Workers: opts.SegmentWorkers,
			Logger:  logger,
		}),
		provider: opts.TraceProvider,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Translate runs every file through its own isolated pipeline. One file's
// failure never touches its siblings; results keep input order.
func (p *Pipeline) Translate(ctx context.Context, paths []string) *BatchResult {
	start := time.Now()
	results := make([]FileResult, len(paths))

	workers := p.opts.Workers
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = *p.TranslateFile(ctx, paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return &BatchResult{Results: results, Duration: time.Since(start)}
}

// TranslateFile reads one Java source file and translates it.
func (p *Pipeline) TranslateFile(ctx context.Context, path string) *FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		result := &FileResult{SourceFile: path, State: StateFailed}
		return p.fail(result, "structural", fmt.Errorf("failed to read source file: %w", err))
	}
	return p.TranslateSource(ctx, path, data)
}

// TranslateSource translates one in-memory Java source. The whole run is
// bounded by the configured timeout; on expiry, whatever stage output
// already exists comes back in a failed result instead of hanging.
func (p *Pipeline) TranslateSource(ctx context.Context, name string, source []byte) (result *FileResult) {
	result = &FileResult{SourceFile: name, State: StateFailed}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("translation panicked", "file", name, "panic", r)
			err := fmt.Errorf("internal error: %v", r)
			result.State = StateFailed
			result.Err = err
			result.Notes = append(result.Notes, generator.Note{
				Severity: generator.SeverityError,
				Code:     "internal",
				Message:  err.Error(),
			})
		}
	}()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	loader := p.opts.Loader
	if loader == "" {
		detected, ok := extractor.DetectLoader(source)
		if !ok {
			return p.fail(result, "structural", fmt.Errorf("no mod loader detected in %s", name))
		}
		loader = detected
	}

	ext, err := extractor.New(loader)
	if err != nil {
		return p.fail(result, "structural", err)
	}

	tree, err := extractor.ParseJava(ctx, source)
	if err != nil {
		return p.fail(result, "structural", fmt.Errorf("failed to parse %s: %w", name, err))
	}

	irCtx := ext.BuildContext(tree.RootNode(), source, name, ir.Metadata{TargetVersion: p.opts.TargetVersion})
	if err := irCtx.Validate(); err != nil {
		return p.fail(result, "structural", fmt.Errorf("inconsistent representation for %s: %w", name, err))
	}
	result.State = StateParsed

	rule := p.transpiler.Transpile(irCtx)
	result.State = StateTranspiled

	segments := toSegments(rule.Unmappable)
	model := p.translator.Translate(ctx, segments)
	result.State = StateModelTranslated

	output := generator.Integrate(rule, model, p.generatorOptions())
	result.State = StateIntegrated
	result.Files = output.Files
	result.Notes = output.Notes
	result.Confidence = output.Confidence

	if ctx.Err() != nil {
		result.Notes = append(result.Notes, generator.Note{
			Severity: generator.SeverityError,
			Code:     "timeout",
			Message:  "translation timed out; returning partial output",
		})
		result.Err = ctx.Err()
		result.State = StateFailed
		return result
	}

	if p.provider == nil {
		p.logger.Info("translated without validation", "file", name, "confidence", result.Confidence)
		result.State = StateFinalized
		return result
	}

	validation, err := p.validate(ctx, name, output)
	if err != nil {
		result.Notes = append(result.Notes, generator.Note{
			Severity: generator.SeverityWarning,
			Code:     "trace",
			Message:  fmt.Sprintf("trace capture failed: %v; skipping validation", err),
		})
		result.State = StateFinalized
		return result
	}
	result.State = StateValidated
	result.Validation = validation
	result.Notes = append(result.Notes, validationNote(validation))

	if validation.Aligned || result.Confidence >= p.opts.ConfidenceThreshold {
		result.Accepted = true
		result.State = StateAccepted
		return result
	}

	p.refine(ctx, result, rule, segments, model.Translations)
	return result
}

func (p *Pipeline) fail(result *FileResult, code string, err error) *FileResult {
	p.logger.Error("translation failed", "file", result.SourceFile, "error", err)
	result.State = StateFailed
	result.Err = err
	result.Notes = append(result.Notes, generator.Note{
		Severity: generator.SeverityError,
		Code:     code,
		Message:  err.Error(),
	})
	return result
}

func (p *Pipeline) validate(ctx context.Context, name string, output *generator.Output) (*validator.Report, error) {
	sourceTrace, targetTrace, err := p.provider.Traces(ctx, name, output.Files)
	if err != nil {
		return nil, err
	}
	return validator.Compare(sourceTrace, targetTrace), nil
}

func (p *Pipeline) generatorOptions() generator.Options {
	return generator.Options{
		Format:      p.opts.Format,
		EntryFile:   p.opts.EntryFile,
		InlineModel: p.opts.InlineModel,
	}
}

func validationNote(report *validator.Report) generator.Note {
	severity := generator.SeverityInfo
	if !report.Aligned {
		severity = generator.SeverityWarning
	}
	return generator.Note{
		Severity: severity,
		Code:     "validation",
		Message:  fmt.Sprintf("alignment score %.2f with %d divergences", report.Score, len(report.Divergences)),
	}
}

func toSegments(unmappable []transpiler.UnmappableSegment) []inference.Segment {
	if len(unmappable) == 0 {
		return nil
	}
	segments := make([]inference.Segment, len(unmappable))
	for i, u := range unmappable {
		segments[i] = inference.Segment{
			ID:     u.NodeID,
			Kind:   string(u.Kind),
			Name:   u.Name,
			Source: u.Source,
			Reason: u.Reason,
		}
	}
	return segments
}
