package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modport/internal/generator"
	"modport/internal/inference"
	"modport/internal/ir"
	"modport/internal/trace"
	"modport/internal/validator"
)

const rubySource = `import net.minecraftforge.fml.common.Mod;

@Mod("rubymod")
public class RubyMod {
    public static final int RUBY_POWER = 7;

    static {
        System.out.println("boot");
    }
}
`

type scriptedClient struct {
	calls atomic.Int32
	fn    func(prompt string) (string, error)
}

func (c *scriptedClient) Complete(_ context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	if c.fn != nil {
		return c.fn(prompt)
	}
	return `{"code": "console.log(\"static init\");", "confidence": 0.9}`, nil
}

type tracePair struct {
	source *trace.ExecutionTrace
	target *trace.ExecutionTrace
	err    error
}

// scriptedProvider plays back trace pairs in order, repeating the last one
// once the script runs out.
type scriptedProvider struct {
	calls atomic.Int32
	pairs []tracePair
}

func (p *scriptedProvider) Traces(_ context.Context, _ string, _ []generator.GeneratedFile) (*trace.ExecutionTrace, *trace.ExecutionTrace, error) {
	n := int(p.calls.Add(1)) - 1
	if n >= len(p.pairs) {
		n = len(p.pairs) - 1
	}
	pair := p.pairs[n]
	return pair.source, pair.target, pair.err
}

func strptr(s string) *string { return &s }

func capturedTrace(lang, file, fn, ret string) *trace.ExecutionTrace {
	return &trace.ExecutionTrace{
		Language: lang,
		Snapshots: []trace.Snapshot{
			{Timestamp: 1, FunctionName: fn, LineNumber: 3, ReturnValue: strptr(ret)},
		},
		Metadata: trace.Metadata{SourceFile: file, SnapshotCount: 1},
	}
}

func alignedPair() tracePair {
	return tracePair{
		source: capturedTrace(trace.LanguageJava, "RubyMod.java", "boot", "7"),
		target: capturedTrace(trace.LanguageJavaScript, "main.js", "boot", "7.0"),
	}
}

func divergingPair() tracePair {
	return tracePair{
		source: capturedTrace(trace.LanguageJava, "RubyMod.java", "boot", "7"),
		target: capturedTrace(trace.LanguageJavaScript, "main.js", "boot", "9"),
	}
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Client == nil {
		opts.Client = &scriptedClient{}
	}
	opts.Retry = inference.RetryConfig{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffMultiplier: 1.0, MaxBackoff: time.Millisecond}
	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference client")
}

func TestTranslateSourceAcceptedWhenAligned(t *testing.T) {
	provider := &scriptedProvider{pairs: []tracePair{alignedPair()}}
	p := newTestPipeline(t, Options{TraceProvider: provider})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.Equal(t, StateAccepted, res.State)
	assert.True(t, res.Accepted)
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Aligned)
	assert.Empty(t, res.Iterations)
	assert.Equal(t, int32(1), provider.calls.Load())

	require.Len(t, res.Files, 2)
	entry := res.Files[0]
	assert.Equal(t, "main.js", entry.Path)
	assert.Contains(t, entry.Content, `const MOD_ID = "rubymod";`)
	assert.Contains(t, entry.Content, "const RUBY_POWER = 7;")
	assert.Contains(t, entry.Content, `import "./manual_segments.js";`)
	assert.Contains(t, res.Files[1].Content, `console.log("static init");`)

	var codes []string
	for _, n := range res.Notes {
		codes = append(codes, n.Code)
	}
	assert.Contains(t, codes, "coverage")
	assert.Contains(t, codes, "validation")
}

func TestTranslateSourceWithoutProvider(t *testing.T) {
	p := newTestPipeline(t, Options{})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.Equal(t, StateFinalized, res.State)
	assert.False(t, res.Accepted, "without traces there is no equivalence evidence")
	assert.Nil(t, res.Validation)
	assert.NotEmpty(t, res.Files)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestTranslateSourceStructuralFailures(t *testing.T) {
	t.Run("no loader detected", func(t *testing.T) {
		p := newTestPipeline(t, Options{})
		res := p.TranslateSource(context.Background(), "Plain.java", []byte("public class Plain {}"))

		require.Error(t, res.Err)
		assert.Equal(t, StateFailed, res.State)
		assert.Empty(t, res.Files)
		require.NotEmpty(t, res.Notes)
		assert.Equal(t, "structural", res.Notes[0].Code)
		assert.Equal(t, generator.SeverityError, res.Notes[0].Severity)
	})

	t.Run("loader override skips detection", func(t *testing.T) {
		p := newTestPipeline(t, Options{Loader: ir.LoaderForge})
		res := p.TranslateSource(context.Background(), "Plain.java", []byte("public class Plain {}"))

		require.NoError(t, res.Err)
		assert.Equal(t, StateFinalized, res.State)
	})
}

func TestTranslateSourceProviderErrorSkipsValidation(t *testing.T) {
	provider := &scriptedProvider{pairs: []tracePair{{err: errors.New("harness offline")}}}
	p := newTestPipeline(t, Options{TraceProvider: provider})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.Equal(t, StateFinalized, res.State)
	assert.False(t, res.Accepted)
	assert.Nil(t, res.Validation)
	assert.NotEmpty(t, res.Files)

	var traceNote *generator.Note
	for i := range res.Notes {
		if res.Notes[i].Code == "trace" {
			traceNote = &res.Notes[i]
		}
	}
	require.NotNil(t, traceNote)
	assert.Equal(t, generator.SeverityWarning, traceNote.Severity)
	assert.Contains(t, traceNote.Message, "harness offline")
	assert.Contains(t, traceNote.Message, "skipping validation")
}

func TestTranslateSourceRefinementConverges(t *testing.T) {
	provider := &scriptedProvider{pairs: []tracePair{divergingPair(), alignedPair()}}
	client := &scriptedClient{}
	p := newTestPipeline(t, Options{TraceProvider: provider, Client: client})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.Equal(t, StateAccepted, res.State)
	assert.True(t, res.Accepted)
	require.NotNil(t, res.Validation)
	assert.True(t, res.Validation.Aligned)

	require.Len(t, res.Iterations, 1)
	iter := res.Iterations[0]
	assert.Equal(t, 1, iter.Index)
	assert.True(t, iter.Aligned)
	assert.InDelta(t, 0.05, iter.ScoreDelta, 1e-9)
	require.NotEmpty(t, iter.Hints)
	var mentionsReturn bool
	for _, h := range iter.Hints {
		if strings.Contains(h, "return value") {
			mentionsReturn = true
		}
	}
	assert.True(t, mentionsReturn, "hints should carry the divergence descriptions")

	assert.Equal(t, int32(2), provider.calls.Load())
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestTranslateSourceRefinementStalls(t *testing.T) {
	provider := &scriptedProvider{pairs: []tracePair{divergingPair()}}
	p := newTestPipeline(t, Options{TraceProvider: provider})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.Equal(t, StateFinalized, res.State)
	assert.False(t, res.Accepted)

	require.Len(t, res.Iterations, 1, "a zero-improvement iteration stops the loop")
	assert.InDelta(t, 0.0, res.Iterations[0].ScoreDelta, 1e-9)
	assert.Equal(t, int32(2), provider.calls.Load())

	require.NotNil(t, res.Validation)
	assert.False(t, res.Validation.Aligned)

	last := res.Notes[len(res.Notes)-1]
	assert.Equal(t, "refinement", last.Code)
	assert.Equal(t, generator.SeverityWarning, last.Severity)
	assert.Contains(t, last.Message, "best score")
	assert.Contains(t, last.Message, "outstanding")
}

func TestTranslateSourceConfidenceThresholdAccepts(t *testing.T) {
	provider := &scriptedProvider{pairs: []tracePair{divergingPair()}}
	p := newTestPipeline(t, Options{TraceProvider: provider, ConfidenceThreshold: 0.1})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.NoError(t, res.Err)
	assert.True(t, res.Accepted)
	assert.Equal(t, StateAccepted, res.State)
	assert.Empty(t, res.Iterations, "threshold acceptance happens before refinement")
	require.NotNil(t, res.Validation)
	assert.False(t, res.Validation.Aligned)
}

func TestTranslateSourceCancelledMidTranslationKeepsPartialOutput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &scriptedClient{fn: func(string) (string, error) {
		cancel()
		return `{"code": "console.log(\"static init\");", "confidence": 0.9}`, nil
	}}
	provider := &scriptedProvider{pairs: []tracePair{alignedPair()}}
	p := newTestPipeline(t, Options{Client: client, TraceProvider: provider})

	res := p.TranslateSource(ctx, "RubyMod.java", []byte(rubySource))

	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	assert.NotEmpty(t, res.Files, "whatever was integrated before the deadline survives")
	assert.Equal(t, int32(0), provider.calls.Load(), "no validation after expiry")

	last := res.Notes[len(res.Notes)-1]
	assert.Equal(t, "timeout", last.Code)
	assert.Contains(t, last.Message, "partial output")
}

func TestTranslateSourceRecoversFromPanic(t *testing.T) {
	p := newTestPipeline(t, Options{TraceProvider: panickyProvider{}})

	res := p.TranslateSource(context.Background(), "RubyMod.java", []byte(rubySource))

	require.Error(t, res.Err)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Err.Error(), "internal error")

	last := res.Notes[len(res.Notes)-1]
	assert.Equal(t, "internal", last.Code)
	assert.Equal(t, generator.SeverityError, last.Severity)
}

type panickyProvider struct{}

func (panickyProvider) Traces(context.Context, string, []generator.GeneratedFile) (*trace.ExecutionTrace, *trace.ExecutionTrace, error) {
	panic("harness exploded")
}

func TestTranslateFileMissing(t *testing.T) {
	p := newTestPipeline(t, Options{})

	res := p.TranslateFile(context.Background(), filepath.Join(t.TempDir(), "Ghost.java"))

	require.Error(t, res.Err)
	assert.Equal(t, StateFailed, res.State)
	require.NotEmpty(t, res.Notes)
	assert.Equal(t, "structural", res.Notes[0].Code)
}

func TestTranslateBatch(t *testing.T) {
	dir := t.TempDir()
	good1 := filepath.Join(dir, "RubyMod.java")
	good2 := filepath.Join(dir, "OtherMod.java")
	require.NoError(t, os.WriteFile(good1, []byte(rubySource), 0o644))
	require.NoError(t, os.WriteFile(good2, []byte(rubySource), 0o644))
	missing := filepath.Join(dir, "Ghost.java")

	p := newTestPipeline(t, Options{Workers: 2})
	batch := p.Translate(context.Background(), []string{good1, missing, good2})

	require.Len(t, batch.Results, 3)
	assert.Equal(t, good1, batch.Results[0].SourceFile)
	assert.Equal(t, missing, batch.Results[1].SourceFile)
	assert.Equal(t, good2, batch.Results[2].SourceFile)

	assert.Equal(t, StateFinalized, batch.Results[0].State)
	assert.Equal(t, StateFailed, batch.Results[1].State)
	assert.Equal(t, StateFinalized, batch.Results[2].State,
		"one bad file must not sink its siblings")
	assert.Greater(t, batch.Duration, time.Duration(0))
}

func TestImplicatedSegments(t *testing.T) {
	segments := []inference.Segment{
		{ID: "s1", Name: "computeDamage"},
		{ID: "s2", Name: "renderOverlay"},
		{ID: "s3", Name: ""},
	}

	t.Run("named in a divergence", func(t *testing.T) {
		report := &validator.Report{Divergences: []validator.DivergencePoint{
			{Description: "return value of computeDamage diverged"},
		}}
		got := implicatedSegments(segments, report)
		require.Len(t, got, 1)
		assert.Equal(t, "s1", got[0].ID)
	})

	t.Run("nobody named means everybody retries", func(t *testing.T) {
		report := &validator.Report{Divergences: []validator.DivergencePoint{
			{Description: "snapshot counts diverge: source 10, target 2"},
		}}
		got := implicatedSegments(segments, report)
		assert.Len(t, got, 3)
	})
}

func TestMergeTranslations(t *testing.T) {
	current := []inference.Translation{
		{SegmentID: "a", Code: "old a"},
		{SegmentID: "b", Code: "old b"},
	}
	updated := []inference.Translation{
		{SegmentID: "b", Code: "new b"},
		{SegmentID: "c", Code: "new c"},
	}

	merged := mergeTranslations(current, updated)

	require.Len(t, merged, 3)
	assert.Equal(t, "old a", merged[0].Code)
	assert.Equal(t, "new b", merged[1].Code)
	assert.Equal(t, "new c", merged[2].Code)
}

func TestHintsFromValidation(t *testing.T) {
	report := &validator.Report{
		Divergences: []validator.DivergencePoint{
			{Description: "variable x in function f diverged"},
		},
		Recommendations: []string{"check variable initialization"},
	}

	hints := hintsFromValidation(report)
	require.Len(t, hints, 2)
	assert.Equal(t, "variable x in function f diverged", hints[0])
	assert.Equal(t, "check variable initialization", hints[1])
}

func TestFileMetricFromResult(t *testing.T) {
	res := FileResult{
		SourceFile: "RubyMod.java",
		State:      StateAccepted,
		Accepted:   true,
		Confidence: 0.9,
		Files:      []generator.GeneratedFile{{Path: "main.js"}, {Path: "manual_segments.js"}},
		Notes: []generator.Note{
			{Severity: generator.SeverityInfo, Code: "coverage"},
			{Severity: generator.SeverityWarning, Code: "manual_review"},
			{Severity: generator.SeverityWarning, Code: "model"},
			{Severity: generator.SeverityError, Code: "timeout"},
		},
		Validation: &validator.Report{Score: 0.95, Divergences: []validator.DivergencePoint{{Kind: validator.DivergenceReturnValue}}},
		Iterations: []RefinementIteration{{Index: 1}},
	}

	m := FileMetricFromResult(res)

	assert.Equal(t, "RubyMod.java", m.SourceFile)
	assert.Equal(t, "accepted", m.State)
	assert.True(t, m.Accepted)
	assert.True(t, m.Validated)
	assert.Equal(t, 0.95, m.AlignmentScore)
	assert.Equal(t, 1, m.Divergences)
	assert.Equal(t, 1, m.Iterations)
	assert.Equal(t, 2, m.GeneratedFiles)
	assert.Equal(t, 2, m.Warnings)
	assert.Equal(t, 1, m.Errors)
}

func TestRunReport(t *testing.T) {
	report := NewRunReport("translate", "out")

	h := report.BeginStage("crawl")
	report.EndStage(h, "", map[string]float64{"files": 3}, []string{"  note  ", ""}, nil)

	h = report.BeginStage("translate")
	report.EndStage(h, "ok", nil, nil, errors.New("boom"))

	report.AddSignal("low_confidence", "translate", "warning", "confidence below threshold", 0.4)
	report.AddSignal("failed_file", "translate", "critical", "Ghost.java failed", 0)
	report.AddSignal("", "translate", "info", "dropped for empty code", 0)

	report.AddFileMetric(FileMetric{SourceFile: "RubyMod.java", State: "finalized", Accepted: true, Validated: true, Confidence: 0.9, AlignmentScore: 1.0})
	report.AddFileMetric(FileMetric{SourceFile: "Ghost.java", State: "failed"})
	report.AddFileMetric(FileMetric{SourceFile: " "})

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, report.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": "v1"`)

	require.Len(t, report.Stages, 2)
	assert.Equal(t, "ok", report.Stages[0].Status)
	assert.Equal(t, map[string]float64{"files": 3}, report.Stages[0].Counters)
	assert.Equal(t, []string{"note"}, report.Stages[0].Notes)
	assert.Equal(t, "error", report.Stages[1].Status)
	assert.Equal(t, "boom", report.Stages[1].Error)

	require.Len(t, report.Signals, 2, "blank signal codes are dropped")
	assert.Equal(t, "critical", report.Signals[0].Severity, "critical sorts first")

	assert.Equal(t, 2, report.Summary.FileCount)
	assert.Equal(t, 1, report.Summary.AcceptedFiles)
	assert.Equal(t, 1, report.Summary.FailedFiles)
	assert.Equal(t, 1, report.Summary.FailedStages)
	assert.InDelta(t, 0.45, report.Summary.AvgConfidence, 1e-9)
	assert.InDelta(t, 1.0, report.Summary.AvgAlignment, 1e-9)
	assert.Equal(t, 1, report.Summary.SignalsBySeverity["critical"])
	assert.Equal(t, 1, report.Summary.SignalsBySeverity["warning"])
}
