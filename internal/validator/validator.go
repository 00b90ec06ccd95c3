// Package validator scores behavioral alignment between the execution
// trace of a Java mod and the trace of its generated JavaScript.
// Comparison is a pure function over two immutable traces; capturing the
// traces is the instrumentation harness's job.
package validator

import (
	"fmt"

	"modport/internal/trace"
)

// DivergenceKind classifies a behavioral difference.
type DivergenceKind string

const (
	DivergenceVariableValue DivergenceKind = "variable_value"
	DivergenceControlFlow   DivergenceKind = "control_flow"
	DivergenceReturnValue   DivergenceKind = "return_value"
	DivergenceMissingState  DivergenceKind = "missing_state"
)

// Severity grades how much a divergence matters.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Comparison thresholds and penalties.
const (
	fuzzyAcceptThreshold   = 0.6
	missingFunctionPenalty = 0.2
	divergencePenalty      = 0.05
	numericEpsilon         = 1e-6
	snapshotCountRelDiff   = 0.5
	callDepthMaxDiff       = 2
)

// DivergencePoint is one detected difference, with the snapshots that
// exposed it when a side has one.
type DivergencePoint struct {
	Kind        DivergenceKind  `json:"kind"`
	Description string          `json:"description"`
	Severity    Severity        `json:"severity"`
	Source      *trace.Snapshot `json:"source_snapshot,omitempty"`
	Target      *trace.Snapshot `json:"target_snapshot,omitempty"`
}

// Report is the outcome of comparing two traces.
type Report struct {
	Aligned         bool              `json:"aligned"`
	Score           float64           `json:"score"`
	Divergences     []DivergencePoint `json:"divergences,omitempty"`
	FunctionMapping map[string]string `json:"function_mapping,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

type comparison struct {
	source      *trace.ExecutionTrace
	target      *trace.ExecutionTrace
	mapping     map[string]string
	divergences []DivergencePoint
}

// Compare validates the target trace against the source trace. The score
// starts at 1.0, loses 0.2 per source function with no target counterpart,
// loses 0.05 per divergence point, and never goes below zero. Aligned
// means zero divergences.
func Compare(source, target *trace.ExecutionTrace) *Report {
	if emptyTrace(source) || emptyTrace(target) {
		return emptyTraceReport(source, target)
	}

	c := &comparison{
		source:  source,
		target:  target,
		mapping: make(map[string]string),
	}
	unmapped := c.mapFunctions()
	c.compareVariables()
	c.compareReturns()
	c.compareControlFlow()

	score := 1.0 - missingFunctionPenalty*float64(unmapped) - divergencePenalty*float64(len(c.divergences))
	if score < 0 {
		score = 0
	}

	return &Report{
		Aligned:         len(c.divergences) == 0,
		Score:           score,
		Divergences:     c.divergences,
		FunctionMapping: c.mapping,
		Recommendations: recommendations(c.divergences),
	}
}

func emptyTrace(t *trace.ExecutionTrace) bool {
	return t == nil || len(t.Snapshots) == 0
}

func emptyTraceReport(source, target *trace.ExecutionTrace) *Report {
	var desc string
	switch {
	case emptyTrace(source) && emptyTrace(target):
		desc = "neither trace contains snapshots"
	case emptyTrace(source):
		desc = "the source trace contains no snapshots"
	default:
		desc = "the target trace contains no snapshots"
	}

	divergences := []DivergencePoint{{
		Kind:        DivergenceMissingState,
		Description: desc,
		Severity:    SeverityHigh,
	}}
	return &Report{
		Aligned:         false,
		Score:           0,
		Divergences:     divergences,
		Recommendations: recommendations(divergences),
	}
}

// mapFunctions pairs source function names with target function names,
// trying exact match, then case-style normalization, then the best fuzzy
// candidate above the similarity threshold. Returns how many source
// functions found no counterpart.
func (c *comparison) mapFunctions() int {
	targetNames := c.target.FunctionNames()
	exact := make(map[string]bool, len(targetNames))
	normalized := make(map[string]string, len(targetNames))
	for _, name := range targetNames {
		exact[name] = true
		key := normalizeName(name)
		if _, ok := normalized[key]; !ok {
			normalized[key] = name
		}
	}

	unmapped := 0
	for _, name := range c.source.FunctionNames() {
		switch {
		case exact[name]:
			c.mapping[name] = name
		case normalized[normalizeName(name)] != "":
			c.mapping[name] = normalized[normalizeName(name)]
		default:
			if match, ok := bestFuzzyMatch(name, targetNames); ok {
				c.mapping[name] = match
				continue
			}
			unmapped++
			c.add(DivergencePoint{
				Kind:        DivergenceMissingState,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("function %s from the source trace has no counterpart in the target trace", name),
				Source:      entryRef(c.source, name),
			})
		}
	}
	return unmapped
}

// compareVariables diffs the entry-snapshot variables of every mapped
// function pair. Names match exactly first, then by case normalization;
// anything one-sided or value-divergent is recorded.
func (c *comparison) compareVariables() {
	for _, srcFn := range c.source.FunctionNames() {
		tgtFn, ok := c.mapping[srcFn]
		if !ok {
			continue
		}
		srcSnap, sok := c.source.EntrySnapshot(srcFn)
		tgtSnap, tok := c.target.EntrySnapshot(tgtFn)
		if !sok || !tok {
			continue
		}

		normalizedTargets := make(map[string]string, len(tgtSnap.Variables))
		for _, name := range sortedKeys(tgtSnap.Variables) {
			key := normalizeName(name)
			if _, exists := normalizedTargets[key]; !exists {
				normalizedTargets[key] = name
			}
		}

		matched := make(map[string]bool, len(tgtSnap.Variables))
		for _, name := range sortedKeys(srcSnap.Variables) {
			tgtName := name
			if _, ok := tgtSnap.Variables[name]; !ok {
				tgtName = normalizedTargets[normalizeName(name)]
			}
			if tgtName == "" {
				c.add(DivergencePoint{
					Kind:        DivergenceVariableValue,
					Severity:    SeverityMedium,
					Description: fmt.Sprintf("variable %s in function %s only exists in the source trace", name, srcFn),
					Source:      &srcSnap,
					Target:      &tgtSnap,
				})
				continue
			}
			matched[tgtName] = true
			if !valuesEquivalent(srcSnap.Variables[name], tgtSnap.Variables[tgtName]) {
				c.add(DivergencePoint{
					Kind:     DivergenceVariableValue,
					Severity: SeverityMedium,
					Description: fmt.Sprintf("variable %s in function %s diverged: source %q, target %q",
						name, srcFn, srcSnap.Variables[name], tgtSnap.Variables[tgtName]),
					Source: &srcSnap,
					Target: &tgtSnap,
				})
			}
		}

		for _, name := range sortedKeys(tgtSnap.Variables) {
			if matched[name] {
				continue
			}
			c.add(DivergencePoint{
				Kind:        DivergenceVariableValue,
				Severity:    SeverityMedium,
				Description: fmt.Sprintf("variable %s in function %s only exists in the target trace", name, tgtFn),
				Source:      &srcSnap,
				Target:      &tgtSnap,
			})
		}
	}
}

// compareReturns diffs the last observed return value of every mapped
// function pair. A one-sided return is as suspicious as a mismatch.
func (c *comparison) compareReturns() {
	for _, srcFn := range c.source.FunctionNames() {
		tgtFn, ok := c.mapping[srcFn]
		if !ok {
			continue
		}
		srcVal, sok := c.source.LastReturn(srcFn)
		tgtVal, tok := c.target.LastReturn(tgtFn)

		switch {
		case !sok && !tok:
		case sok != tok:
			c.add(DivergencePoint{
				Kind:        DivergenceReturnValue,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("function %s recorded a return value in only one trace", srcFn),
				Source:      entryRef(c.source, srcFn),
				Target:      entryRef(c.target, tgtFn),
			})
		case !valuesEquivalent(srcVal, tgtVal):
			c.add(DivergencePoint{
				Kind:        DivergenceReturnValue,
				Severity:    SeverityHigh,
				Description: fmt.Sprintf("return value of %s diverged: source %q, target %q", srcFn, srcVal, tgtVal),
				Source:      entryRef(c.source, srcFn),
				Target:      entryRef(c.target, tgtFn),
			})
		}
	}
}

// compareControlFlow uses snapshot counts and call-stack depth as coarse
// flow proxies.
func (c *comparison) compareControlFlow() {
	srcCount, tgtCount := len(c.source.Snapshots), len(c.target.Snapshots)
	if relativeDiff(srcCount, tgtCount) > snapshotCountRelDiff {
		c.add(DivergencePoint{
			Kind:        DivergenceControlFlow,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("snapshot counts diverge: source %d, target %d", srcCount, tgtCount),
		})
	}

	srcDepth, tgtDepth := c.source.MaxCallDepth(), c.target.MaxCallDepth()
	if absInt(srcDepth-tgtDepth) > callDepthMaxDiff {
		c.add(DivergencePoint{
			Kind:        DivergenceControlFlow,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("call stack depths diverge: source %d, target %d", srcDepth, tgtDepth),
		})
	}
}

func (c *comparison) add(d DivergencePoint) {
	c.divergences = append(c.divergences, d)
}

func entryRef(t *trace.ExecutionTrace, functionName string) *trace.Snapshot {
	if snap, ok := t.EntrySnapshot(functionName); ok {
		return &snap
	}
	return nil
}

var kindAdvice = map[DivergenceKind]string{
	DivergenceMissingState:  "ensure every source function has a translated counterpart",
	DivergenceReturnValue:   "ensure translated functions return the same values as the originals",
	DivergenceVariableValue: "check variable initialization and assignment order in translated functions",
	DivergenceControlFlow:   "review loops and conditionals for equivalent control flow",
}

var kindPriority = []DivergenceKind{
	DivergenceMissingState,
	DivergenceReturnValue,
	DivergenceVariableValue,
	DivergenceControlFlow,
}

// recommendations orders advice by how often each divergence kind occurred
// and closes with generic guidance.
func recommendations(divergences []DivergencePoint) []string {
	if len(divergences) == 0 {
		return nil
	}

	counts := make(map[DivergenceKind]int)
	for _, d := range divergences {
		counts[d.Kind]++
	}

	kinds := make([]DivergenceKind, 0, len(counts))
	for _, kind := range kindPriority {
		if counts[kind] > 0 {
			kinds = append(kinds, kind)
		}
	}
	for i := 0; i < len(kinds); i++ {
		for j := i + 1; j < len(kinds); j++ {
			if counts[kinds[j]] > counts[kinds[i]] {
				kinds[i], kinds[j] = kinds[j], kinds[i]
			}
		}
	}

	out := make([]string, 0, len(kinds)+1)
	for _, kind := range kinds {
		out = append(out, kindAdvice[kind])
	}
	out = append(out, "re-run the instrumented captures after fixes and validate again")
	return out
}
