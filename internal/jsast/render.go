package jsast

import (
	"fmt"
	"strings"
)

// FormatOptions controls how rendered code looks. Zero values are not
// useful on their own; start from DefaultFormatOptions.
type FormatOptions struct {
	IndentWidth int    `json:"indent_width" yaml:"indent_width"`
	Semicolons  bool   `json:"semicolons" yaml:"semicolons"`
	QuoteStyle  string `json:"quote_style" yaml:"quote_style"` // double or single
	Comments    bool   `json:"comments" yaml:"comments"`
	Minify      bool   `json:"minify" yaml:"minify"`
}

// DefaultFormatOptions returns the formatting used when none is configured.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		IndentWidth: 2,
		Semicolons:  true,
		QuoteStyle:  "double",
		Comments:    true,
	}
}

// Render prints a program to JavaScript source text. Rendering is total:
// a node type without a printer renders as an explicit unsupported-node
// marker instead of failing, so partial results survive.
func Render(program *Program, opts FormatOptions) string {
	r := &renderer{opts: opts}
	if program == nil {
		return ""
	}
	var sb strings.Builder
	for _, stmt := range program.Statements {
		sb.WriteString(r.stmt(stmt, 0))
	}
	return sb.String()
}

type renderer struct {
	opts FormatOptions
}

func (r *renderer) indent(depth int) string {
	if r.opts.Minify {
		return ""
	}
	width := r.opts.IndentWidth
	if width <= 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width)
}

func (r *renderer) nl() string {
	if r.opts.Minify {
		return " "
	}
	return "\n"
}

func (r *renderer) term() string {
	if r.opts.Semicolons {
		return ";"
	}
	return ""
}

func (r *renderer) quote(value string) string {
	q := `"`
	if r.opts.QuoteStyle == "single" {
		q = "'"
	}
	replacer := strings.NewReplacer(
		`\`, `\\`,
		q, `\`+q,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return q + replacer.Replace(value) + q
}

// stmt renders one statement, including indentation and trailing newline.
func (r *renderer) stmt(n Node, depth int) string {
	switch s := n.(type) {
	case *Import:
		return r.indent(depth) + r.importDecl(s) + r.term() + r.nl()
	case *VarDecl:
		line := r.indent(depth)
		if s.Export {
			line += "export "
		}
		kind := s.DeclKind
		if kind == "" {
			kind = "const"
		}
		line += kind + " " + s.Name
		if s.Value != nil {
			line += " = " + r.expr(s.Value, depth)
		}
		return line + r.term() + r.nl()
	case *FuncDecl:
		var sb strings.Builder
		sb.WriteString(r.indent(depth))
		if s.Export {
			sb.WriteString("export ")
		}
		sb.WriteString("function " + s.Name + "(" + strings.Join(s.Params, ", ") + ") {")
		sb.WriteString(r.nl())
		for _, inner := range s.Body {
			sb.WriteString(r.stmt(inner, depth+1))
		}
		sb.WriteString(r.indent(depth) + "}")
		sb.WriteString(r.nl())
		return sb.String()
	case *ExprStmt:
		return r.indent(depth) + r.expr(s.Expr, depth) + r.term() + r.nl()
	case *Return:
		if s.Value == nil {
			return r.indent(depth) + "return" + r.term() + r.nl()
		}
		return r.indent(depth) + "return " + r.expr(s.Value, depth) + r.term() + r.nl()
	case *Comment:
		if r.opts.Minify || !r.opts.Comments {
			return ""
		}
		if s.Block {
			var sb strings.Builder
			sb.WriteString(r.indent(depth) + "/*\n")
			for _, line := range strings.Split(s.Text, "\n") {
				sb.WriteString(r.indent(depth) + " * " + line + "\n")
			}
			sb.WriteString(r.indent(depth) + " */\n")
			return sb.String()
		}
		var sb strings.Builder
		for _, line := range strings.Split(s.Text, "\n") {
			sb.WriteString(r.indent(depth) + "// " + line + "\n")
		}
		return sb.String()
	case *Raw:
		code := strings.TrimRight(s.Code, "\n")
		if code == "" {
			return ""
		}
		return code + "\n"
	case *Program:
		var sb strings.Builder
		for _, inner := range s.Statements {
			sb.WriteString(r.stmt(inner, depth))
		}
		return sb.String()
	default:
		return r.indent(depth) + r.unsupported(n) + r.nl()
	}
}

// expr renders one expression. depth is the statement depth used when an
// expression carries a block body.
func (r *renderer) expr(n Node, depth int) string {
	switch e := n.(type) {
	case *Ident:
		return e.Name
	case *Member:
		return r.expr(e.Object, depth) + "." + e.Property
	case *Call:
		return r.expr(e.Callee, depth) + "(" + r.args(e.Args, depth) + ")"
	case *New:
		return "new " + r.expr(e.Callee, depth) + "(" + r.args(e.Args, depth) + ")"
	case *Arrow:
		head := "(" + strings.Join(e.Params, ", ") + ") =>"
		if e.Expr != nil {
			return head + " " + r.expr(e.Expr, depth)
		}
		var sb strings.Builder
		sb.WriteString(head + " {")
		sb.WriteString(r.nl())
		for _, inner := range e.Body {
			sb.WriteString(r.stmt(inner, depth+1))
		}
		sb.WriteString(r.indent(depth) + "}")
		return sb.String()
	case *Literal:
		if e.Kind == LitString {
			return r.quote(e.Value)
		}
		return e.Value
	case *Object:
		if len(e.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Key+": "+r.expr(f.Value, depth))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *Array:
		parts := make([]string, 0, len(e.Elements))
		for _, el := range e.Elements {
			parts = append(parts, r.expr(el, depth))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return r.unsupported(n)
	}
}

func (r *renderer) args(nodes []Node, depth int) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, r.expr(n, depth))
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) importDecl(imp *Import) string {
	from := " from " + r.quote(imp.From)
	switch {
	case imp.Default != "" && len(imp.Names) > 0:
		return "import " + imp.Default + ", { " + strings.Join(imp.Names, ", ") + " }" + from
	case imp.Default != "":
		return "import " + imp.Default + from
	case len(imp.Names) > 0:
		return "import { " + strings.Join(imp.Names, ", ") + " }" + from
	default:
		return "import " + r.quote(imp.From)
	}
}

func (r *renderer) unsupported(n Node) string {
	if n == nil {
		return "/* unsupported node type: nil */"
	}
	return fmt.Sprintf("/* unsupported node type: %T */", n)
}
