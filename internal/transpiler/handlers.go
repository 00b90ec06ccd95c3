package transpiler

import (
	"fmt"

	"modport/internal/ir"
	"modport/internal/jsast"
	"modport/internal/mappings"
)

// transpileNode dispatches one node to its kind handler. Exactly one of the
// return values is set: fragments for a translated node, a segment for an
// untranslatable one. Unrecognized payloads fall through to a reasoned
// segment rather than an error.
func (r *run) transpileNode(n *ir.Node) ([]jsast.Node, *UnmappableSegment) {
	if n == nil {
		return nil, &UnmappableSegment{Kind: ir.KindUnknown, Reason: "nil node"}
	}
	r.checkChildren(n)

	switch p := n.Payload.(type) {
	case *ir.ModDeclarationPayload:
		return r.modDeclaration(p), nil
	case *ir.EntryPointPayload:
		return r.entryPoint(p), nil
	case *ir.BlockRegistrationPayload:
		return r.blockRegistration(n, p), nil
	case *ir.ItemRegistrationPayload:
		return r.itemRegistration(n, p), nil
	case *ir.EntityRegistrationPayload:
		return r.entityRegistration(n, p), nil
	case *ir.EventHandlerPayload:
		return r.eventHandler(n, p), nil
	case *ir.EventListenerPayload:
		return r.eventListener(n, p), nil
	case *ir.FunctionPayload:
		return r.function(n, p), nil
	case *ir.MethodPayload:
		return r.method(n, p), nil
	case *ir.FieldPayload:
		return r.field(n, p)
	case *ir.PropertyPayload:
		return r.property(p), nil
	case *ir.RecipePayload:
		return nil, r.unmappable(n, fmt.Sprintf("recipe %q is data driven on the target; needs a behavior pack recipe JSON", p.RecipeType), "")
	case *ir.LootTablePayload:
		return nil, r.unmappable(n, fmt.Sprintf("loot table %q is data driven on the target; needs a behavior pack loot JSON", p.TableID), "")
	case *ir.AssetPayload:
		return r.asset(p), nil
	case *ir.ContainerPayload:
		return nil, r.unmappable(n, fmt.Sprintf("container %q needs scripted UI with no direct equivalent", p.ContainerType), "")
	case *ir.ReferencePayload:
		return r.reference(p), nil
	case *ir.UnknownPayload:
		reason := p.Reason
		if reason == "" {
			reason = "unrecognized source construct"
		}
		return nil, r.unmappable(n, reason, p.Source)
	default:
		return nil, r.unmappable(n, fmt.Sprintf("no rule for node kind %q", n.Kind), "")
	}
}

func (r *run) modDeclaration(p *ir.ModDeclarationPayload) []jsast.Node {
	if r.declaredModID {
		return []jsast.Node{&jsast.Comment{
			Text: fmt.Sprintf("additional mod declaration %s (%s)", p.ModID, p.ClassName),
		}}
	}
	r.declaredModID = true
	r.declared["MOD_ID"]++
	return []jsast.Node{
		&jsast.VarDecl{DeclKind: "const", Name: "MOD_ID", Value: jsast.String(p.ModID)},
	}
}

func (r *run) entryPoint(p *ir.EntryPointPayload) []jsast.Node {
	return []jsast.Node{&jsast.Comment{
		Text: fmt.Sprintf("entry point %s.%s (%s phase) runs when this script loads", p.ClassName, p.MethodName, p.Phase),
	}}
}

func (r *run) blockRegistration(n *ir.Node, p *ir.BlockRegistrationPayload) []jsast.Node {
	id := r.qualified(p.LocalID)
	r.need("BlockPermutation")
	r.warnf("block %s needs a matching behavior pack definition", id)
	return []jsast.Node{
		&jsast.VarDecl{
			DeclKind: "const",
			Name:     r.uniqueName(bindingName(n.Name, p.LocalID)),
			Value: &jsast.Call{
				Callee: jsast.Dotted("BlockPermutation.resolve"),
				Args:   []jsast.Node{jsast.String(id)},
			},
		},
	}
}

func (r *run) itemRegistration(n *ir.Node, p *ir.ItemRegistrationPayload) []jsast.Node {
	id := r.qualified(p.LocalID)
	r.need("ItemStack")
	r.warnf("item %s needs a matching behavior pack definition", id)
	return []jsast.Node{
		&jsast.VarDecl{
			DeclKind: "const",
			Name:     r.uniqueName(bindingName(n.Name, p.LocalID)),
			Value: &jsast.New{
				Callee: &jsast.Ident{Name: "ItemStack"},
				Args:   []jsast.Node{jsast.String(id), jsast.Number("1")},
			},
		},
	}
}

// entityRegistration declares the qualified entity identifier. Spawning
// goes through dimension.spawnEntity with this id at the call sites.
func (r *run) entityRegistration(n *ir.Node, p *ir.EntityRegistrationPayload) []jsast.Node {
	id := r.qualified(p.LocalID)
	r.warnf("entity %s needs a matching behavior pack definition", id)
	name := r.uniqueName(bindingName(n.Name, p.LocalID))
	return []jsast.Node{
		&jsast.Comment{Text: fmt.Sprintf("spawn with dimension.spawnEntity(%s, location)", name)},
		&jsast.VarDecl{
			DeclKind: "const",
			Name:     name,
			Value:    jsast.String(id),
		},
	}
}

func (r *run) eventHandler(n *ir.Node, p *ir.EventHandlerPayload) []jsast.Node {
	r.checkBody(n, p.Body)
	param := p.ParamName
	if param == "" {
		param = "event"
	}
	callback := &jsast.Arrow{Params: []string{param}, Body: r.statements(p.Body)}
	return r.subscribe(p.EventType, callback)
}

func (r *run) eventListener(n *ir.Node, p *ir.EventListenerPayload) []jsast.Node {
	if p.Callback != "" {
		return r.subscribe(p.EventType, &jsast.Ident{Name: methodRefName(p.Callback)})
	}
	r.checkBody(n, p.Body)
	callback := &jsast.Arrow{Params: []string{"event"}, Body: r.statements(p.Body)}
	return r.subscribe(p.EventType, callback)
}

// function declares and immediately invokes: initializer bodies ran at mod
// setup on the source side, so they run at script load on the target.
func (r *run) function(n *ir.Node, p *ir.FunctionPayload) []jsast.Node {
	r.checkBody(n, p.Body)
	name := r.uniqueName(safeName(n.Name))
	return []jsast.Node{
		&jsast.FuncDecl{Name: name, Params: paramNames(p.Params), Body: r.statements(p.Body)},
		&jsast.ExprStmt{Expr: &jsast.Call{Callee: &jsast.Ident{Name: name}}},
	}
}

func (r *run) method(n *ir.Node, p *ir.MethodPayload) []jsast.Node {
	r.checkBody(n, p.Body)
	name := r.uniqueName(safeName(n.Name))
	return []jsast.Node{
		&jsast.FuncDecl{Name: name, Params: paramNames(p.Params), Body: r.statements(p.Body)},
	}
}

func (r *run) field(n *ir.Node, p *ir.FieldPayload) ([]jsast.Node, *UnmappableSegment) {
	if (n.Name == "MOD_ID" || n.Name == "MODID") && r.declaredModID {
		return []jsast.Node{&jsast.Comment{Text: "MOD_ID is declared above"}}, nil
	}

	declKind := "let"
	if p.Final {
		declKind = "const"
	}
	value := literalFor(p.InitialValue, p.ValueKind)
	if value == nil {
		if p.InitialValue == "" {
			return []jsast.Node{&jsast.VarDecl{DeclKind: "let", Name: r.uniqueName(safeName(n.Name))}}, nil
		}
		return nil, r.unmappable(n, fmt.Sprintf("field initializer %q has no literal form", p.InitialValue), p.InitialValue)
	}
	return []jsast.Node{
		&jsast.VarDecl{DeclKind: declKind, Name: r.uniqueName(safeName(n.Name)), Value: value},
	}, nil
}

func (r *run) property(p *ir.PropertyPayload) []jsast.Node {
	value := literalFor(p.Value, p.ValueKind)
	if value == nil {
		if p.Value == "" {
			value = jsast.Null()
		} else {
			value = &jsast.Literal{Kind: jsast.LitRaw, Value: p.Value}
			r.warnf("config %s keeps its source expression", p.Key)
		}
	}
	return []jsast.Node{
		&jsast.Comment{Text: fmt.Sprintf("config default %q", p.Key)},
		&jsast.VarDecl{DeclKind: "const", Name: r.uniqueName(safeName(p.Key)), Value: value},
	}
}

func (r *run) asset(p *ir.AssetPayload) []jsast.Node {
	r.warnf("asset %s must be copied into the resource pack", p.Path)
	return []jsast.Node{&jsast.Comment{
		Text: fmt.Sprintf("asset %s (%s) ships in the resource pack", p.Path, p.AssetType),
	}}
}

func (r *run) reference(p *ir.ReferencePayload) []jsast.Node {
	if m, ok := r.table.Resolve(p.Target); ok && m.TargetEquivalent != "" && m.Kind != mappings.ConversionImpossible {
		return []jsast.Node{&jsast.Comment{
			Text: fmt.Sprintf("%s maps to %s", p.Target, m.TargetEquivalent),
		}}
	}
	return []jsast.Node{&jsast.Comment{
		Text: fmt.Sprintf("references %s (%s)", p.Target, p.RefType),
	}}
}

// literalFor converts a classified initializer to its literal node, or nil
// when the value is not a literal.
func literalFor(value string, kind ir.ValueKind) jsast.Node {
	switch kind {
	case ir.ValueString:
		return jsast.String(value)
	case ir.ValueNumber:
		return jsast.Number(value)
	case ir.ValueBool:
		return jsast.Bool(value == "true")
	case ir.ValueNull:
		return jsast.Null()
	default:
		return nil
	}
}

func bindingName(name, localID string) string {
	if name != "" {
		return safeName(name)
	}
	return safeName(localID)
}

func paramNames(params []ir.Param) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, safeName(p.Name))
	}
	return out
}
