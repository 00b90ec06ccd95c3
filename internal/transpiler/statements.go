package transpiler

import (
	"regexp"
	"strings"

	"modport/internal/ir"
	"modport/internal/jsast"
	"modport/internal/mappings"
)

// statements converts a simplified body. Statements with no applicable rule
// stay in the output as comments so nothing is silently dropped; each one
// counts against confidence.
func (r *run) statements(body []ir.Statement) []jsast.Node {
	var out []jsast.Node
	for _, stmt := range body {
		out = append(out, r.statement(stmt)...)
	}
	return out
}

func (r *run) statement(stmt ir.Statement) []jsast.Node {
	switch stmt.Kind {
	case ir.StatementLog:
		return []jsast.Node{&jsast.ExprStmt{Expr: r.logCall(stmt)}}
	case ir.StatementCall:
		if call := r.mappedCall(stmt); call != nil {
			return []jsast.Node{&jsast.ExprStmt{Expr: call}}
		}
		r.verbatim++
		return []jsast.Node{&jsast.Comment{Text: "untranslated call: " + stmt.Text}}
	case ir.StatementAssign:
		return []jsast.Node{&jsast.VarDecl{
			DeclKind: "let",
			Name:     safeName(stmt.Target),
			Value:    r.expression(stmt.Value),
		}}
	case ir.StatementReturn:
		if stmt.Value == "" {
			return []jsast.Node{&jsast.Return{}}
		}
		return []jsast.Node{&jsast.Return{Value: r.expression(stmt.Value)}}
	default:
		r.verbatim++
		return []jsast.Node{&jsast.Comment{Text: "untranslated: " + stmt.Text}}
	}
}

// logCall renders source logging through its mapped console call. Unmapped
// logger methods keep their level by suffix and default to console.log.
func (r *run) logCall(stmt ir.Statement) jsast.Node {
	target := "console.log"
	if m, ok := r.table.Resolve(stmt.Callee); ok && m.TargetEquivalent != "" && m.Kind != mappings.ConversionImpossible {
		target = m.TargetEquivalent
	} else {
		switch {
		case strings.HasSuffix(stmt.Callee, ".warn"):
			target = "console.warn"
		case strings.HasSuffix(stmt.Callee, ".error"):
			target = "console.error"
		case strings.HasSuffix(stmt.Callee, ".info"):
			target = "console.info"
		}
	}
	return &jsast.Call{Callee: jsast.Dotted(target), Args: r.expressions(stmt.Args)}
}

// mappedCall translates a call statement when its callee has a usable table
// entry, nil otherwise.
func (r *run) mappedCall(stmt ir.Statement) jsast.Node {
	m, ok := r.table.Resolve(stmt.Callee)
	if !ok || m.TargetEquivalent == "" || m.Kind == mappings.ConversionImpossible {
		return nil
	}
	r.markRoot(m.TargetEquivalent)
	return &jsast.Call{Callee: jsast.Dotted(m.TargetEquivalent), Args: r.expressions(stmt.Args)}
}

func (r *run) expressions(args []string) []jsast.Node {
	out := make([]jsast.Node, 0, len(args))
	for _, arg := range args {
		out = append(out, r.expression(arg))
	}
	return out
}

// expression converts a source expression to the closest literal form.
// Anything beyond literals and dotted names survives verbatim so review and
// refinement can see the original text.
func (r *run) expression(expr string) jsast.Node {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "" || expr == "null":
		return jsast.Null()
	case expr == "true" || expr == "false":
		return jsast.Bool(expr == "true")
	case strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) && len(expr) >= 2:
		return jsast.String(expr[1 : len(expr)-1])
	case numberRe.MatchString(expr):
		return jsast.Number(strings.TrimRight(expr, "fFdDlL"))
	case dottedNameRe.MatchString(expr):
		return jsast.Dotted(expr)
	default:
		return &jsast.Literal{Kind: jsast.LitRaw, Value: expr}
	}
}

var (
	numberRe     = regexp.MustCompile(`^-?\d+(\.\d+)?[fFdDlL]?$`)
	dottedNameRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)
	invalidIdent = regexp.MustCompile(`[^A-Za-z0-9_$]`)
)

// safeName coerces a source name into a valid identifier.
func safeName(name string) string {
	name = invalidIdent.ReplaceAllString(name, "_")
	if name == "" {
		return "unnamed"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// methodRefName extracts the function name from a Java method reference
// such as RefMod::onTick.
func methodRefName(ref string) string {
	if i := strings.LastIndex(ref, "::"); i >= 0 {
		return safeName(ref[i+2:])
	}
	return safeName(ref)
}
