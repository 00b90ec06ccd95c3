package transpiler

import (
	"fmt"

	"modport/internal/jsast"
	"modport/internal/mappings"
)

// resolveEvent finds the target event path for a source event type: exact
// table hit first, then the table's substring fallback, then the default
// path. The boolean reports whether a real mapping was found.
func (r *run) resolveEvent(eventType string) (string, bool) {
	if m, ok := r.table.Resolve(eventType); ok && m.TargetEquivalent != "" && m.Kind != mappings.ConversionImpossible {
		return m.TargetEquivalent, true
	}
	return DefaultEventPath, false
}

// subscribe builds the subscription fragment for a callback. Tick mappings
// land on system.runInterval(callback, 1) instead of an event path; an
// unresolved event degrades to the default path with a marker comment.
func (r *run) subscribe(eventType string, callback jsast.Node) []jsast.Node {
	path, resolved := r.resolveEvent(eventType)

	var frags []jsast.Node
	if !resolved {
		r.warnf("no mapping for event %s; subscribed to the default event", eventType)
		frags = append(frags, &jsast.Comment{
			Text: fmt.Sprintf("no mapping for %s; review the chosen event", eventType),
		})
	}
	r.markRoot(path)

	if path == "system.runInterval" {
		// The interval callback takes no event argument.
		if arrow, ok := callback.(*jsast.Arrow); ok {
			arrow.Params = nil
		}
		frags = append(frags, &jsast.ExprStmt{Expr: &jsast.Call{
			Callee: jsast.Dotted(path),
			Args:   []jsast.Node{callback, jsast.Number("1")},
		}})
		return frags
	}

	frags = append(frags, &jsast.ExprStmt{Expr: &jsast.Call{
		Callee: &jsast.Member{Object: jsast.Dotted(path), Property: "subscribe"},
		Args:   []jsast.Node{callback},
	}})
	return frags
}
