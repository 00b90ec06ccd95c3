// Package jsast models the subset of JavaScript syntax the translation
// pipeline emits. The rule-based transpiler produces these nodes and the
// generator renders them to text; the vocabulary is intentionally small.
package jsast

// Node is any JavaScript AST node the renderer can print.
type Node interface {
	node()
}

// Program is an ordered list of top-level statements forming one script file.
type Program struct {
	Statements []Node
}

// Import is an ES module import declaration.
type Import struct {
	Names   []string // named imports, rendered inside braces
	Default string   // default import binding, if any
	From    string   // module specifier
}

// VarDecl declares a single binding. DeclKind is const, let or var.
type VarDecl struct {
	DeclKind string
	Name     string
	Value    Node // nil renders a bare declaration
	Export   bool
}

// FuncDecl is a named function declaration.
type FuncDecl struct {
	Name   string
	Params []string
	Body   []Node
	Export bool
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	Expr Node
}

// Return is a return statement; Value may be nil.
type Return struct {
	Value Node
}

// Comment is a standalone comment. Block comments may span lines.
type Comment struct {
	Text  string
	Block bool
}

// Raw is pre-rendered code passed through verbatim, one trailing newline
// guaranteed. Model-assisted output enters the tree through this node.
type Raw struct {
	Code string
}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
}

// Member is a property access, Object.Property.
type Member struct {
	Object   Node
	Property string
}

// Call is a function or method invocation.
type Call struct {
	Callee Node
	Args   []Node
}

// New is a constructor invocation.
type New struct {
	Callee Node
	Args   []Node
}

// Arrow is an arrow function expression. When Expr is non-nil the function
// renders in single-expression form, otherwise Body renders as a block.
type Arrow struct {
	Params []string
	Body   []Node
	Expr   Node
}

// LiteralKind tags how a literal value renders.
type LiteralKind string

const (
	LitString LiteralKind = "string"
	LitNumber LiteralKind = "number"
	LitBool   LiteralKind = "boolean"
	LitNull   LiteralKind = "null"
	LitRaw    LiteralKind = "raw"
)

// Literal is a scalar literal. Value holds the textual form; string literals
// are quoted by the renderer.
type Literal struct {
	Kind  LiteralKind
	Value string
}

// ObjectField is one key/value pair of an object literal.
type ObjectField struct {
	Key   string
	Value Node
}

// Object is an object literal.
type Object struct {
	Fields []ObjectField
}

// Array is an array literal.
type Array struct {
	Elements []Node
}

func (*Program) node()  {}
func (*Import) node()   {}
func (*VarDecl) node()  {}
func (*FuncDecl) node() {}
func (*ExprStmt) node() {}
func (*Return) node()   {}
func (*Comment) node()  {}
func (*Raw) node()      {}
func (*Ident) node()    {}
func (*Member) node()   {}
func (*Call) node()     {}
func (*New) node()      {}
func (*Arrow) node()    {}
func (*Literal) node()  {}
func (*Object) node()   {}
func (*Array) node()    {}

// String returns a literal node for a quoted string value.
func String(value string) *Literal { return &Literal{Kind: LitString, Value: value} }

// Number returns a literal node for a numeric value.
func Number(value string) *Literal { return &Literal{Kind: LitNumber, Value: value} }

// Bool returns a literal node for true or false.
func Bool(value bool) *Literal {
	if value {
		return &Literal{Kind: LitBool, Value: "true"}
	}
	return &Literal{Kind: LitBool, Value: "false"}
}

// Null returns the null literal.
func Null() *Literal { return &Literal{Kind: LitNull, Value: "null"} }

// Dotted builds a nested member expression from a dotted path such as
// "world.afterEvents.chatSend".
func Dotted(path string) Node {
	parts := splitDots(path)
	if len(parts) == 0 {
		return &Ident{Name: path}
	}
	var expr Node = &Ident{Name: parts[0]}
	for _, part := range parts[1:] {
		expr = &Member{Object: expr, Property: part}
	}
	return expr
}

func splitDots(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		parts = append(parts, path[start:])
	}
	return parts
}
