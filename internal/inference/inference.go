// Package inference is the model-assisted translation stage. Segments the
// rule-based transpiler could not handle go to a model provider; responses
// come back as JavaScript with a confidence score. Failures degrade to
// manual-review stubs, so the stage never fails a batch.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Confidence constants for the acceptance gate and the parsing ladder.
const (
	acceptThreshold     = 0.3
	fencedConfidence    = 0.5
	heuristicConfidence = 0.35
	stubConfidence      = 0.1
)

// Client is the capability a model provider supplies: one prompt in, one
// raw completion out. Implementations classify their errors as transient
// or fatal so the retry loop knows what to do.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Segment is one untranslatable region handed to the model.
type Segment struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"`
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Reason string   `json:"reason"`
	Hints  []string `json:"hints,omitempty"`
}

// Translation is the outcome for one segment.
type Translation struct {
	SegmentID  string   `json:"segment_id"`
	Code       string   `json:"code"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Stub       bool     `json:"stub,omitempty"`
}

// Result combines a whole batch. Translations align index for index with
// the input segments.
type Result struct {
	Translations []Translation
	Code         string
	Confidence   float64
	Reasoning    []string
	Warnings     []string
}

// Options tunes a Translator. Zero values fall back to defaults.
type Options struct {
	Retry   RetryConfig
	Workers int
	Logger  *slog.Logger
}

// Translator drives segment translation through an injected client.
type Translator struct {
	client  Client
	retry   RetryConfig
	workers int
	logger  *slog.Logger
	prompts *PromptBuilder
}

// NewTranslator wires a translator to a provider client.
func NewTranslator(client Client, opts Options) *Translator {
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		client:  client,
		retry:   retry,
		workers: workers,
		logger:  logger,
		prompts: &PromptBuilder{},
	}
}

// Translate runs every segment through the model concurrently and combines
// the answers. An empty batch returns confidence 1.0 without touching the
// client. Segment failures become stubs; the batch itself always succeeds.
func (t *Translator) Translate(ctx context.Context, segments []Segment) *Result {
	if len(segments) == 0 {
		return &Result{Confidence: 1.0}
	}

	translations := make([]Translation, len(segments))
	jobs := make(chan int)

	workers := t.workers
	if workers > len(segments) {
		workers = len(segments)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				translations[i] = t.translateSegment(ctx, segments[i])
			}
		}()
	}
	for i := range segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Combine(translations)
}

// translateSegment asks the model for one segment, retrying transient
// failures and low-confidence answers with exponential backoff. When the
// attempts run out the segment gets its fallback stub.
func (t *Translator) translateSegment(ctx context.Context, seg Segment) Translation {
	prompt := t.prompts.BuildSegmentPrompt(seg)

	var lastErr error
	for attempt := 1; attempt <= t.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		raw, err := t.client.Complete(ctx, prompt)
		if err == nil {
			tr := parseResponse(raw)
			if tr.Confidence > acceptThreshold {
				tr.SegmentID = seg.ID
				return tr
			}
			lastErr = fmt.Errorf("response confidence %.2f not above %.2f", tr.Confidence, acceptThreshold)
		} else {
			lastErr = err
			if IsFatal(err) {
				break
			}
		}

		if attempt < t.retry.MaxAttempts {
			select {
			case <-ctx.Done():
			case <-time.After(backoffDuration(t.retry, attempt)):
			}
		}
	}

	t.logger.Warn("segment translation exhausted, emitting stub",
		"segment", seg.ID,
		"reason", seg.Reason,
		"error", lastErr)
	return stubTranslation(seg, lastErr)
}

// stubTranslation is the fallback for a segment no attempt could translate.
// The original source and reason ride along in comments so review has the
// full picture.
func stubTranslation(seg Segment, cause error) Translation {
	label := seg.Name
	if label == "" {
		label = seg.ID
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// %s could not be translated automatically\n", label)
	if seg.Reason != "" {
		fmt.Fprintf(&sb, "// reason: %s\n", seg.Reason)
	}
	if cause != nil {
		fmt.Fprintf(&sb, "// last error: %v\n", cause)
	}
	if seg.Source != "" {
		sb.WriteString("/* original source:\n")
		sb.WriteString(seg.Source)
		if !strings.HasSuffix(seg.Source, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("*/\n")
	}
	fmt.Fprintf(&sb, "function %s() {\n  console.warn(%q);\n}\n", stubName(seg), label+": manual review required")

	return Translation{
		SegmentID:  seg.ID,
		Code:       sb.String(),
		Confidence: stubConfidence,
		Stub:       true,
		Warnings:   []string{fmt.Sprintf("segment %s stubbed: %s", seg.ID, seg.Reason)},
	}
}

func stubName(seg Segment) string {
	name := seg.Name
	if name == "" {
		name = seg.ID
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	out := sb.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "_" + out
	}
	return "unsupported_" + out
}

// Combine merges per-segment translations: code concatenates in segment
// order, confidence averages, reasoning and warnings accumulate. The
// refinement loop reuses it after re-translating a subset of segments.
func Combine(translations []Translation) *Result {
	res := &Result{Translations: translations}
	if len(translations) == 0 {
		res.Confidence = 1.0
		return res
	}

	var sum float64
	var blocks []string
	for _, tr := range translations {
		sum += tr.Confidence
		if tr.Code != "" {
			blocks = append(blocks, strings.TrimRight(tr.Code, "\n"))
		}
		if tr.Reasoning != "" {
			res.Reasoning = append(res.Reasoning, tr.Reasoning)
		}
		res.Warnings = append(res.Warnings, tr.Warnings...)
	}
	res.Code = strings.Join(blocks, "\n\n")
	if res.Code != "" {
		res.Code += "\n"
	}
	res.Confidence = sum / float64(len(translations))
	return res
}
