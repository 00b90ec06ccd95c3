package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"modport/internal/ir"
)

// ParseJava parses Java source text into a syntax tree. Extraction only
// walks the tree; building it is delegated here to the tree-sitter grammar.
func ParseJava(ctx context.Context, source []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse java source: %w", err)
	}
	return tree, nil
}

func text(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

func location(n *sitter.Node, file string) *ir.SourceLocation {
	if n == nil {
		return nil
	}
	return &ir.SourceLocation{
		File:        file,
		StartLine:   int(n.StartPoint().Row) + 1,
		EndLine:     int(n.EndPoint().Row) + 1,
		StartColumn: int(n.StartPoint().Column) + 1,
		EndColumn:   int(n.EndPoint().Column) + 1,
	}
}

func startLine(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	return int(n.StartPoint().Row) + 1
}

// nodeID builds a deterministic node identifier, kind:file:name:line.
func nodeID(kind ir.NodeKind, file, name string, line int) string {
	return fmt.Sprintf("%s:%s:%s:%d", kind, file, name, line)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func firstOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for _, child := range namedChildren(n) {
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// firstDescendantOfType searches the subtree depth-first for a node type.
func firstDescendantOfType(n *sitter.Node, nodeType string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == nodeType {
		return n
	}
	for _, child := range namedChildren(n) {
		if found := firstDescendantOfType(child, nodeType); found != nil {
			return found
		}
	}
	return nil
}

// collectClasses returns every class declaration in the subtree, nested ones
// included, in document order.
func collectClasses(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	if n.Type() == "class_declaration" {
		out = append(out, n)
	}
	for _, child := range namedChildren(n) {
		out = append(out, collectClasses(child)...)
	}
	return out
}

// annotationsOf returns the annotation nodes attached to a declaration
// through its modifiers child.
func annotationsOf(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, child := range namedChildren(n) {
		if child.Type() != "modifiers" {
			continue
		}
		for _, mod := range namedChildren(child) {
			if mod.Type() == "marker_annotation" || mod.Type() == "annotation" {
				out = append(out, mod)
			}
		}
	}
	return out
}

func annotationName(n *sitter.Node, source []byte) string {
	return text(n.ChildByFieldName("name"), source)
}

// annotationValue returns the first usable string argument of an annotation:
// either a lone string literal or the value of a modid/value pair.
func annotationValue(n *sitter.Node, source []byte) string {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for _, arg := range namedChildren(args) {
		switch arg.Type() {
		case "string_literal":
			return unquote(text(arg, source))
		case "element_value_pair":
			key := text(arg.ChildByFieldName("key"), source)
			if key == "value" || key == "modid" {
				return unquote(text(arg.ChildByFieldName("value"), source))
			}
		}
	}
	return ""
}

func modifiersText(n *sitter.Node, source []byte) string {
	if mods := firstOfType(n, "modifiers"); mods != nil {
		return text(mods, source)
	}
	return ""
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// calleePath returns the dotted callee of a method invocation, for example
// "System.out.println" or "BLOCKS.register".
func calleePath(inv *sitter.Node, source []byte) string {
	name := text(inv.ChildByFieldName("name"), source)
	object := text(inv.ChildByFieldName("object"), source)
	if object == "" {
		return name
	}
	return object + "." + name
}

func invocationArgs(inv *sitter.Node, source []byte) []string {
	argsNode := inv.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	var args []string
	for _, arg := range namedChildren(argsNode) {
		args = append(args, strings.TrimSpace(text(arg, source)))
	}
	return args
}

func methodParams(method *sitter.Node, source []byte) []ir.Param {
	params := method.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []ir.Param
	for _, child := range namedChildren(params) {
		if child.Type() != "formal_parameter" && child.Type() != "spread_parameter" {
			continue
		}
		out = append(out, ir.Param{
			Name: text(child.ChildByFieldName("name"), source),
			Type: text(child.ChildByFieldName("type"), source),
		})
	}
	return out
}

// simplifyBody reduces a block to the statement forms the transpiler knows.
// Unrecognized statements are kept verbatim as raw text.
func simplifyBody(block *sitter.Node, source []byte) []ir.Statement {
	if block == nil {
		return nil
	}
	var stmts []ir.Statement
	for _, child := range namedChildren(block) {
		if child.Type() == "line_comment" || child.Type() == "block_comment" {
			continue
		}
		stmts = append(stmts, simplifyStatement(child, source))
	}
	return stmts
}

func simplifyStatement(n *sitter.Node, source []byte) ir.Statement {
	raw := strings.TrimSpace(text(n, source))
	switch n.Type() {
	case "method_invocation":
		// Expression-bodied lambdas hand their expression in directly.
		return callStatement(n, source, raw)
	case "expression_statement":
		if inv := firstOfType(n, "method_invocation"); inv != nil {
			return callStatement(inv, source, raw)
		}
		if assign := firstOfType(n, "assignment_expression"); assign != nil {
			return ir.Statement{
				Kind:   ir.StatementAssign,
				Target: text(assign.ChildByFieldName("left"), source),
				Value:  text(assign.ChildByFieldName("right"), source),
				Text:   raw,
			}
		}
		return ir.Statement{Kind: ir.StatementRaw, Text: raw}
	case "return_statement":
		var value string
		if n.NamedChildCount() > 0 {
			value = text(n.NamedChild(0), source)
		}
		return ir.Statement{Kind: ir.StatementReturn, Value: value, Text: raw}
	case "local_variable_declaration":
		if decl := firstOfType(n, "variable_declarator"); decl != nil {
			return ir.Statement{
				Kind:   ir.StatementAssign,
				Target: text(decl.ChildByFieldName("name"), source),
				Value:  text(decl.ChildByFieldName("value"), source),
				Text:   raw,
			}
		}
		return ir.Statement{Kind: ir.StatementRaw, Text: raw}
	default:
		return ir.Statement{Kind: ir.StatementRaw, Text: raw}
	}
}

func callStatement(inv *sitter.Node, source []byte, raw string) ir.Statement {
	callee := calleePath(inv, source)
	stmt := ir.Statement{
		Kind:   ir.StatementCall,
		Callee: callee,
		Args:   invocationArgs(inv, source),
		Text:   raw,
	}
	if isLogCall(callee) {
		stmt.Kind = ir.StatementLog
	}
	return stmt
}

func isLogCall(callee string) bool {
	if callee == "System.out.println" || callee == "System.err.println" {
		return true
	}
	return strings.HasPrefix(callee, "LOGGER.") ||
		strings.HasPrefix(callee, "logger.") ||
		strings.HasPrefix(callee, "log.")
}

// typeRefName digs the plain type name out of a superclass or interface
// clause node.
func typeRefName(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
		return text(n, source)
	}
	for _, child := range namedChildren(n) {
		if name := typeRefName(child, source); name != "" {
			return name
		}
	}
	return ""
}

// collectTypeRefs gathers every type name in the subtree, used on extends
// and implements clauses.
func collectTypeRefs(n *sitter.Node, source []byte) []string {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type":
		return []string{text(n, source)}
	}
	var out []string
	for _, child := range namedChildren(n) {
		out = append(out, collectTypeRefs(child, source)...)
	}
	return out
}

// modIDConstant returns the value of a MOD_ID or MODID string constant
// declared on the class, if any.
func modIDConstant(class *sitter.Node, source []byte) string {
	body := class.ChildByFieldName("body")
	for _, member := range namedChildren(body) {
		if member.Type() != "field_declaration" {
			continue
		}
		for _, decl := range namedChildren(member) {
			if decl.Type() != "variable_declarator" {
				continue
			}
			name := text(decl.ChildByFieldName("name"), source)
			if name != "MOD_ID" && name != "MODID" {
				continue
			}
			if value := decl.ChildByFieldName("value"); value != nil && value.Type() == "string_literal" {
				return unquote(text(value, source))
			}
		}
	}
	return ""
}

// plainMethod extracts an ordinary method into a method node.
func plainMethod(method *sitter.Node, source []byte, file string, modNode *ir.Node, className string) Extraction {
	var acc Extraction
	name := text(method.ChildByFieldName("name"), source)
	mods := modifiersText(method, source)
	node := &ir.Node{
		ID:       nodeID(ir.KindMethod, file, name, startLine(method)),
		Kind:     ir.KindMethod,
		Name:     name,
		Location: location(method, file),
		Payload: &ir.MethodPayload{
			ClassName:  className,
			Params:     methodParams(method, source),
			ReturnType: text(method.ChildByFieldName("type"), source),
			Static:     strings.Contains(mods, "static"),
			Body:       simplifyBody(method.ChildByFieldName("body"), source),
			Source:     text(method, source),
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

// unknownMember wraps an unrecognized class member in an unknown node so it
// reaches model-assisted translation instead of being dropped.
func unknownMember(member *sitter.Node, source []byte, file string) Extraction {
	var acc Extraction
	acc.Nodes = append(acc.Nodes, &ir.Node{
		ID:       nodeID(ir.KindUnknown, file, member.Type(), startLine(member)),
		Kind:     ir.KindUnknown,
		Name:     member.Type(),
		Location: location(member, file),
		Payload: &ir.UnknownPayload{
			Reason: fmt.Sprintf("unrecognized class member %s", member.Type()),
			Source: text(member, source),
		},
	})
	return acc
}

var javaNumberRe = regexp.MustCompile(`^-?\d+(\.\d+)?[fFdDlL]?$`)

// classifyValue tags an initializer expression so the transpiler can render
// it as the right literal form. String values come back unquoted and numeric
// values lose their Java type suffix.
func classifyValue(v string) (string, ir.ValueKind) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return v, ir.ValueExpression
	case v == "true" || v == "false":
		return v, ir.ValueBool
	case v == "null":
		return "null", ir.ValueNull
	case strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2:
		return unquote(v), ir.ValueString
	case javaNumberRe.MatchString(v):
		return strings.TrimRight(v, "fFdDlL"), ir.ValueNumber
	default:
		return v, ir.ValueExpression
	}
}
