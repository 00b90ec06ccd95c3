// Package transpiler is the rule-based translation stage: it turns an IR
// context into a JavaScript syntax tree using the API mapping table. The
// pass is pure and deterministic; the same context and table always produce
// the same program, unmappable segments and confidence.
package transpiler

import (
	"fmt"
	"strings"

	"modport/internal/ir"
	"modport/internal/jsast"
	"modport/internal/mappings"
)

// DefaultEventPath is where a handler lands when its source event resolves
// to nothing. worldInitialize fires once at world start, so a misplaced
// handler is visible without being disruptive.
const DefaultEventPath = "world.afterEvents.worldInitialize"

// Structure thresholds past which a node is flagged as complex.
const (
	complexChildCount     = 24
	complexStatementCount = 15
)

// UnmappableSegment describes one node the rules could not translate. The
// segments of a pass feed the model-assisted stage.
type UnmappableSegment struct {
	NodeID   string             `json:"node_id"`
	Kind     ir.NodeKind        `json:"kind"`
	Name     string             `json:"name"`
	Source   string             `json:"source,omitempty"`
	Reason   string             `json:"reason"`
	Location *ir.SourceLocation `json:"location,omitempty"`
}

// Result is the outcome of one rule-based pass over a context. Every input
// node is accounted for: it either contributed program fragments (counted
// in Mapped) or appears in Unmappable.
type Result struct {
	Program    *jsast.Program
	Unmappable []UnmappableSegment
	Warnings   []string
	Confidence float64
	Mapped     int
	Total      int
}

// Transpiler applies a mapping table to IR contexts. Safe for concurrent
// use: it owns a private clone of the table it was built with and keeps no
// per-call state.
type Transpiler struct {
	table *mappings.Table
}

// New returns a transpiler over the given table. A nil table means the
// seeded default table.
func New(table *mappings.Table) *Transpiler {
	if table == nil {
		table = mappings.DefaultTable()
	}
	return &Transpiler{table: table.Clone()}
}

// Transpile translates every node of the context. Nodes without a rule
// become unmappable segments instead of being dropped; malformed nodes
// never panic. An empty or nil context yields an empty program with
// confidence 0.
func (t *Transpiler) Transpile(ctx *ir.Context) *Result {
	res := &Result{Program: &jsast.Program{}}
	if ctx == nil || len(ctx.Nodes) == 0 {
		return res
	}

	r := newRun(t.table, ctx.Metadata.ModID)

	var body []jsast.Node
	for _, node := range ctx.Nodes {
		frags, unmap := r.transpileNode(node)
		if unmap != nil {
			res.Unmappable = append(res.Unmappable, *unmap)
			continue
		}
		res.Mapped++
		body = append(body, frags...)
	}
	res.Total = len(ctx.Nodes)

	res.Program.Statements = append(res.Program.Statements, r.header(ctx.Metadata)...)
	if imp := r.importDecl(); imp != nil {
		res.Program.Statements = append(res.Program.Statements, imp)
	}
	res.Program.Statements = append(res.Program.Statements, body...)

	if r.verbatim > 0 {
		r.warnf("%d statements had no rule and were kept verbatim", r.verbatim)
	}
	res.Warnings = r.warnings
	res.Confidence = confidence(res.Total, res.Mapped, r.complexNodes, r.verbatim)
	return res
}

// confidence scores a pass: the mapped fraction of nodes, reduced by
// structural complexity and by statements kept verbatim. No nodes means no
// evidence of anything working, so the score is 0.
func confidence(total, mapped, complexNodes, verbatim int) float64 {
	if total == 0 {
		return 0
	}
	score := float64(mapped) / float64(total)
	score -= 0.05 * float64(complexNodes)
	score -= 0.02 * float64(verbatim)
	if score < 0 {
		return 0
	}
	return score
}

// run carries the mutable state of a single Transpile call, keeping the
// Transpiler itself stateless.
type run struct {
	table         *mappings.Table
	modID         string
	imports       map[string]bool
	declared      map[string]int
	warnings      []string
	complexNodes  int
	verbatim      int
	declaredModID bool
}

func newRun(table *mappings.Table, modID string) *run {
	if modID == "" {
		modID = "unknown_mod"
	}
	return &run{
		table:    table,
		modID:    modID,
		imports:  make(map[string]bool),
		declared: make(map[string]int),
	}
}

func (r *run) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *run) qualified(localID string) string {
	return r.modID + ":" + localID
}

func (r *run) need(name string) {
	r.imports[name] = true
}

// markRoot records the module binding an emitted path depends on.
func (r *run) markRoot(path string) {
	switch strings.SplitN(path, ".", 2)[0] {
	case "world":
		r.need("world")
	case "system":
		r.need("system")
	}
}

// uniqueName reserves a top-level binding name, numbering repeats so two
// nodes with the same name stay distinct declarations.
func (r *run) uniqueName(name string) string {
	r.declared[name]++
	if count := r.declared[name]; count > 1 {
		return fmt.Sprintf("%s%d", name, count)
	}
	return name
}

func (r *run) checkChildren(n *ir.Node) {
	if len(n.Children) > complexChildCount {
		r.complexNodes++
		r.warnf("complex node structure at %s: %d children", n.ID, len(n.Children))
	}
}

func (r *run) checkBody(n *ir.Node, body []ir.Statement) {
	if len(body) > complexStatementCount {
		r.complexNodes++
		r.warnf("complex node structure at %s: %d statements", n.ID, len(body))
	}
}

func (r *run) header(meta ir.Metadata) []jsast.Node {
	title := meta.ModID
	if meta.DisplayName != "" {
		title = meta.DisplayName
	}
	text := fmt.Sprintf("%s, translated from the %s loader API", title, meta.Loader)
	if meta.TargetVersion != "" {
		text += fmt.Sprintf(" (target %s)", meta.TargetVersion)
	}
	return []jsast.Node{&jsast.Comment{Text: text}}
}

// importOrder fixes the emission order of @minecraft/server bindings.
var importOrder = []string{"world", "system", "BlockPermutation", "ItemStack"}

func (r *run) importDecl() jsast.Node {
	var names []string
	for _, name := range importOrder {
		if r.imports[name] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &jsast.Import{Names: names, From: "@minecraft/server"}
}

func (r *run) unmappable(n *ir.Node, reason, source string) *UnmappableSegment {
	return &UnmappableSegment{
		NodeID:   n.ID,
		Kind:     n.Kind,
		Name:     n.Name,
		Source:   source,
		Reason:   reason,
		Location: n.Location,
	}
}
