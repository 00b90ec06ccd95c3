package pipeline

import (
	"context"
	"fmt"
	"strings"

	"modport/internal/generator"
	"modport/internal/inference"
	"modport/internal/transpiler"
	"modport/internal/validator"
)

// refinementCandidate is one iteration's output, kept so the best scoring
// attempt survives even when later iterations regress.
type refinementCandidate struct {
	score      float64
	confidence float64
	files      []generator.GeneratedFile
	notes      []generator.Note
	validation *validator.Report
}

// refine re-translates the segments implicated by validation divergences,
// feeding divergence descriptions back as hints, until the traces align,
// confidence clears the threshold, or improvement stalls. The best scoring
// iteration wins when the loop gives up.
func (p *Pipeline) refine(ctx context.Context, result *FileResult, rule *transpiler.Result, segments []inference.Segment, translations []inference.Translation) {
	result.State = StateRefining

	best := refinementCandidate{
		score:      result.Validation.Score,
		confidence: result.Confidence,
		files:      result.Files,
		notes:      result.Notes,
		validation: result.Validation,
	}
	prevScore := result.Validation.Score
	validation := result.Validation

	current := make([]inference.Translation, len(translations))
	copy(current, translations)

	var extraNotes []generator.Note

	for iter := 1; iter <= p.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			extraNotes = append(extraNotes, generator.Note{
				Severity: generator.SeverityWarning,
				Code:     "refinement",
				Message:  fmt.Sprintf("refinement interrupted: %v", err),
			})
			break
		}

		subset := implicatedSegments(segments, validation)
		if len(subset) == 0 {
			break
		}
		hints := hintsFromValidation(validation)

		p.logger.Info("refining translation",
			"file", result.SourceFile,
			"iteration", iter,
			"segments", len(subset),
			"score", prevScore)

		retranslated := p.translator.Translate(ctx, withHints(subset, hints))
		current = mergeTranslations(current, retranslated.Translations)
		model := inference.Combine(current)

		output := generator.Integrate(rule, model, p.generatorOptions())

		report, err := p.validate(ctx, result.SourceFile, output)
		if err != nil {
			extraNotes = append(extraNotes, generator.Note{
				Severity: generator.SeverityWarning,
				Code:     "trace",
				Message:  fmt.Sprintf("trace capture failed during refinement: %v", err),
			})
			break
		}

		result.Iterations = append(result.Iterations, RefinementIteration{
			Index:      iter,
			Hints:      hints,
			Score:      report.Score,
			ScoreDelta: report.Score - prevScore,
			Aligned:    report.Aligned,
		})

		notes := append(output.Notes, validationNote(report))

		if report.Score > best.score {
			best = refinementCandidate{
				score:      report.Score,
				confidence: output.Confidence,
				files:      output.Files,
				notes:      notes,
				validation: report,
			}
		}

		if report.Aligned || output.Confidence >= p.opts.ConfidenceThreshold {
			result.Files = output.Files
			result.Notes = append(notes, extraNotes...)
			result.Confidence = output.Confidence
			result.Validation = report
			result.Accepted = true
			result.State = StateAccepted
			return
		}

		stalled := report.Score-prevScore < minImprovement
		prevScore = report.Score
		validation = report
		if stalled {
			break
		}
	}

	result.Files = best.files
	result.Confidence = best.confidence
	result.Validation = best.validation
	result.Notes = append(best.notes, extraNotes...)
	result.Notes = append(result.Notes, nonConvergenceNote(best.validation))
	result.State = StateFinalized
}

func nonConvergenceNote(report *validator.Report) generator.Note {
	msg := fmt.Sprintf("refinement stopped without alignment; best score %.2f", report.Score)
	if len(report.Recommendations) > 0 {
		msg += "; outstanding: " + strings.Join(report.Recommendations, "; ")
	}
	return generator.Note{
		Severity: generator.SeverityWarning,
		Code:     "refinement",
		Message:  msg,
	}
}

// hintsFromValidation turns a validation report into model feedback.
func hintsFromValidation(report *validator.Report) []string {
	hints := make([]string, 0, len(report.Divergences)+len(report.Recommendations))
	for _, d := range report.Divergences {
		hints = append(hints, d.Description)
	}
	hints = append(hints, report.Recommendations...)
	return hints
}

// implicatedSegments keeps the segments whose name appears in a divergence
// description. When no divergence names a segment, every segment is fair
// game for another attempt.
func implicatedSegments(segments []inference.Segment, report *validator.Report) []inference.Segment {
	var implicated []inference.Segment
	for _, seg := range segments {
		if seg.Name == "" {
			continue
		}
		for _, d := range report.Divergences {
			if strings.Contains(d.Description, seg.Name) {
				implicated = append(implicated, seg)
				break
			}
		}
	}
	if len(implicated) == 0 {
		return segments
	}
	return implicated
}

func withHints(segments []inference.Segment, hints []string) []inference.Segment {
	hinted := make([]inference.Segment, len(segments))
	for i, seg := range segments {
		seg.Hints = hints
		hinted[i] = seg
	}
	return hinted
}

// mergeTranslations replaces entries in current with their re-translated
// counterparts, matching on segment id.
func mergeTranslations(current, updated []inference.Translation) []inference.Translation {
	index := make(map[string]int, len(current))
	for i, tr := range current {
		index[tr.SegmentID] = i
	}
	for _, tr := range updated {
		if i, ok := index[tr.SegmentID]; ok {
			current[i] = tr
			continue
		}
		current = append(current, tr)
	}
	return current
}
