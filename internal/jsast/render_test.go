package jsast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type bogusNode struct{}

func (*bogusNode) node() {}

func TestRenderProgram(t *testing.T) {
	program := &Program{Statements: []Node{
		&Import{Names: []string{"world", "system"}, From: "@minecraft/server"},
		&VarDecl{DeclKind: "const", Name: "value", Value: Number("42")},
		&FuncDecl{
			Name:   "onPlayerJoin",
			Params: []string{"event"},
			Body: []Node{
				&ExprStmt{Expr: &Call{
					Callee: Dotted("console.log"),
					Args:   []Node{String("player joined")},
				}},
				&Return{Value: &Ident{Name: "value"}},
			},
		},
	}}

	out := Render(program, DefaultFormatOptions())

	assert.Contains(t, out, `import { world, system } from "@minecraft/server";`)
	assert.Contains(t, out, "const value = 42;")
	assert.Contains(t, out, "function onPlayerJoin(event) {")
	assert.Contains(t, out, `  console.log("player joined");`)
	assert.Contains(t, out, "  return value;")
}

func TestRenderSubscribeCall(t *testing.T) {
	program := &Program{Statements: []Node{
		&ExprStmt{Expr: &Call{
			Callee: &Member{Object: Dotted("world.afterEvents.playerSpawn"), Property: "subscribe"},
			Args: []Node{&Arrow{
				Params: []string{"event"},
				Body: []Node{
					&ExprStmt{Expr: &Call{Callee: Dotted("console.log"), Args: []Node{String("spawned")}}},
				},
			}},
		}},
	}}

	out := Render(program, DefaultFormatOptions())
	assert.Contains(t, out, "world.afterEvents.playerSpawn.subscribe((event) => {")
	assert.Contains(t, out, `  console.log("spawned");`)
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, "\n"), "});"))
}

func TestRenderIsTotal(t *testing.T) {
	program := &Program{Statements: []Node{
		&VarDecl{Name: "ok", Value: Bool(true)},
		&bogusNode{},
		&ExprStmt{Expr: &bogusNode{}},
	}}

	out := Render(program, DefaultFormatOptions())
	assert.Contains(t, out, "const ok = true;")
	assert.Contains(t, out, "/* unsupported node type: *jsast.bogusNode */")
}

func TestRenderFormatOptions(t *testing.T) {
	program := &Program{Statements: []Node{
		&VarDecl{DeclKind: "let", Name: "name", Value: String("ruby")},
	}}

	t.Run("single quotes without semicolons", func(t *testing.T) {
		opts := DefaultFormatOptions()
		opts.QuoteStyle = "single"
		opts.Semicolons = false
		out := Render(program, opts)
		assert.Equal(t, "let name = 'ruby'\n", out)
	})

	t.Run("wider indent", func(t *testing.T) {
		opts := DefaultFormatOptions()
		opts.IndentWidth = 4
		out := Render(&Program{Statements: []Node{
			&FuncDecl{Name: "f", Body: []Node{&Return{}}},
		}}, opts)
		assert.Contains(t, out, "    return;")
	})
}

func TestRenderMinifyDropsCommentsAndNewlines(t *testing.T) {
	program := &Program{Statements: []Node{
		&Comment{Text: "generated"},
		&VarDecl{Name: "a", Value: Number("1")},
		&VarDecl{Name: "b", Value: Number("2")},
	}}

	opts := DefaultFormatOptions()
	opts.Minify = true
	out := Render(program, opts)

	assert.NotContains(t, out, "generated")
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "const a = 1;")
	assert.Contains(t, out, "const b = 2;")
}

func TestRenderComments(t *testing.T) {
	program := &Program{Statements: []Node{
		&Comment{Text: "line one\nline two", Block: true},
		&Comment{Text: "single"},
	}}

	out := Render(program, DefaultFormatOptions())
	assert.Contains(t, out, " * line one")
	assert.Contains(t, out, " * line two")
	assert.Contains(t, out, "// single")

	opts := DefaultFormatOptions()
	opts.Comments = false
	assert.Equal(t, "", Render(program, opts))
}

func TestRenderRawPassthrough(t *testing.T) {
	program := &Program{Statements: []Node{
		&Raw{Code: "export function helper() {\n  return 1;\n}\n"},
	}}

	out := Render(program, DefaultFormatOptions())
	assert.Equal(t, "export function helper() {\n  return 1;\n}\n", out)
}

func TestRenderObjectAndArray(t *testing.T) {
	program := &Program{Statements: []Node{
		&VarDecl{Name: "recipe", Value: &Object{Fields: []ObjectField{
			{Key: "output", Value: String("rubymod:ruby_block")},
			{Key: "count", Value: Number("1")},
			{Key: "ingredients", Value: &Array{Elements: []Node{String("rubymod:ruby")}}},
		}}},
	}}

	out := Render(program, DefaultFormatOptions())
	assert.Contains(t, out, `const recipe = { output: "rubymod:ruby_block", count: 1, ingredients: ["rubymod:ruby"] };`)
}

func TestRenderImportForms(t *testing.T) {
	opts := DefaultFormatOptions()

	cases := []struct {
		name string
		imp  *Import
		want string
	}{
		{"named", &Import{Names: []string{"world"}, From: "@minecraft/server"}, `import { world } from "@minecraft/server";`},
		{"default", &Import{Default: "helpers", From: "./helpers.js"}, `import helpers from "./helpers.js";`},
		{"mixed", &Import{Default: "mod", Names: []string{"init"}, From: "./mod.js"}, `import mod, { init } from "./mod.js";`},
		{"bare", &Import{From: "./side-effect.js"}, `import "./side-effect.js";`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Render(&Program{Statements: []Node{tc.imp}}, opts)
			assert.Equal(t, tc.want+"\n", out)
		})
	}
}
