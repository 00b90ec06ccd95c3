// Package generator merges the rule-based and model-assisted translation
// outputs into the final JavaScript files. Model code lands in its own
// module imported by the entry file, or inline when configured.
package generator

import (
	"fmt"
	"strings"

	"modport/internal/inference"
	"modport/internal/jsast"
	"modport/internal/transpiler"
)

// Severity grades a conversion note.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Note is one conversion remark accumulated across the pipeline. Notes
// collect instead of raising; only error-severity notes mark a failed file.
type Note struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
	Details  string   `json:"details,omitempty"`
}

// GeneratedFile is one output file by relative path.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Output is the integrated result for one source file.
type Output struct {
	Files      []GeneratedFile `json:"files"`
	Notes      []Note          `json:"notes"`
	Confidence float64         `json:"confidence"`
}

// Options controls integration and rendering.
type Options struct {
	Format      jsast.FormatOptions
	EntryFile   string
	ModelFile   string
	InlineModel bool
}

// Integrate merges the transpiled program with the model translations and
// renders everything to text.
func Integrate(rule *transpiler.Result, model *inference.Result, opts Options) *Output {
	if opts.EntryFile == "" {
		opts.EntryFile = "main.js"
	}
	if opts.ModelFile == "" {
		opts.ModelFile = "manual_segments.js"
	}

	var stmts []jsast.Node
	if rule != nil && rule.Program != nil {
		stmts = append(stmts, rule.Program.Statements...)
	}

	modelCode := ""
	if model != nil {
		modelCode = strings.TrimSpace(model.Code)
	}

	out := &Output{
		Notes:      collectNotes(rule, model),
		Confidence: integratedConfidence(rule, model),
	}

	if modelCode != "" && !opts.InlineModel {
		stmts = insertAfterImports(stmts, &jsast.Import{From: "./" + opts.ModelFile})
		out.Files = append(out.Files, GeneratedFile{
			Path:    opts.ModelFile,
			Content: modelModuleContent(modelCode, opts),
		})
	}

	content := jsast.Render(&jsast.Program{Statements: stmts}, opts.Format)
	if modelCode != "" && opts.InlineModel {
		var sb strings.Builder
		sb.WriteString(strings.TrimRight(content, "\n"))
		sb.WriteString("\n\n")
		if opts.Format.Comments {
			sb.WriteString("// model-assisted translations\n")
		}
		sb.WriteString(modelCode)
		sb.WriteString("\n")
		content = sb.String()
	}

	out.Files = append([]GeneratedFile{{Path: opts.EntryFile, Content: content}}, out.Files...)
	return out
}

func modelModuleContent(modelCode string, opts Options) string {
	var sb strings.Builder
	if opts.Format.Comments {
		sb.WriteString("// Model-assisted translations for segments without mapping rules.\n")
		sb.WriteString("// Review before shipping; confidence is recorded in the conversion notes.\n\n")
	}
	sb.WriteString(modelCode)
	sb.WriteString("\n")
	return sb.String()
}

// insertAfterImports places a statement after the leading comment and
// import block so module imports stay grouped.
func insertAfterImports(stmts []jsast.Node, stmt jsast.Node) []jsast.Node {
	idx := 0
	for i, s := range stmts {
		switch s.(type) {
		case *jsast.Comment, *jsast.Import:
			idx = i + 1
		default:
			return spliceAt(stmts, idx, stmt)
		}
	}
	return spliceAt(stmts, idx, stmt)
}

func spliceAt(stmts []jsast.Node, idx int, stmt jsast.Node) []jsast.Node {
	out := make([]jsast.Node, 0, len(stmts)+1)
	out = append(out, stmts[:idx]...)
	out = append(out, stmt)
	out = append(out, stmts[idx:]...)
	return out
}

func collectNotes(rule *transpiler.Result, model *inference.Result) []Note {
	var notes []Note
	if rule != nil {
		for _, w := range rule.Warnings {
			notes = append(notes, Note{Severity: SeverityWarning, Code: "transpile", Message: w})
		}
		notes = append(notes, Note{
			Severity: SeverityInfo,
			Code:     "coverage",
			Message:  fmt.Sprintf("%d of %d nodes translated by mapping rules", rule.Mapped, rule.Total),
		})
	}
	if model != nil {
		for _, w := range model.Warnings {
			notes = append(notes, Note{Severity: SeverityWarning, Code: "model", Message: w})
		}
		for _, tr := range model.Translations {
			if tr.Stub {
				notes = append(notes, Note{
					Severity: SeverityWarning,
					Code:     "manual_review",
					Message:  fmt.Sprintf("segment %s requires manual review", tr.SegmentID),
				})
			}
		}
	}
	return notes
}

// integratedConfidence is the node-weighted mean of the two stages: the
// rule-based score weighted by nodes it mapped, the model score weighted
// by segments it translated.
func integratedConfidence(rule *transpiler.Result, model *inference.Result) float64 {
	ruleNodes, modelNodes := 0, 0
	var ruleConf, modelConf float64
	if rule != nil {
		ruleNodes, ruleConf = rule.Mapped, rule.Confidence
	}
	if model != nil {
		modelNodes, modelConf = len(model.Translations), model.Confidence
	}

	total := ruleNodes + modelNodes
	if total == 0 {
		return 0
	}
	return (ruleConf*float64(ruleNodes) + modelConf*float64(modelNodes)) / float64(total)
}
