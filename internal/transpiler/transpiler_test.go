package transpiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modport/internal/ir"
	"modport/internal/jsast"
)

func testContext(nodes ...*ir.Node) *ir.Context {
	ctx := ir.NewContext(ir.Metadata{ModID: "rubymod", Loader: ir.LoaderForge})
	for _, n := range nodes {
		ctx.AddNode(n)
	}
	return ctx
}

func render(t *testing.T, res *Result) string {
	t.Helper()
	require.NotNil(t, res.Program)
	return jsast.Render(res.Program, jsast.DefaultFormatOptions())
}

func TestTranspileEmptyContext(t *testing.T) {
	tr := New(nil)

	for name, ctx := range map[string]*ir.Context{
		"nil context":   nil,
		"empty context": ir.NewContext(ir.Metadata{}),
	} {
		t.Run(name, func(t *testing.T) {
			res := tr.Transpile(ctx)
			assert.Zero(t, res.Confidence)
			assert.Zero(t, res.Total)
			assert.Empty(t, res.Program.Statements)
			assert.Empty(t, res.Unmappable)
		})
	}
}

func TestEveryKindIsHandled(t *testing.T) {
	tr := New(nil)

	for _, kind := range ir.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			payload, err := ir.NewPayload(kind)
			require.NoError(t, err)

			ctx := testContext(&ir.Node{
				ID:      fmt.Sprintf("n:%s", kind),
				Kind:    kind,
				Name:    "subject",
				Payload: payload,
			})
			res := tr.Transpile(ctx)

			assert.Equal(t, 1, res.Mapped+len(res.Unmappable),
				"node must be mapped or unmappable, never both or neither")
			for _, seg := range res.Unmappable {
				assert.NotEmpty(t, seg.Reason)
				assert.Equal(t, kind, seg.Kind)
			}
		})
	}
}

func TestFieldBecomesConstDeclaration(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "f1",
		Kind: ir.KindField,
		Name: "value",
		Payload: &ir.FieldPayload{
			FieldType:    "int",
			InitialValue: "42",
			ValueKind:    ir.ValueNumber,
			Final:        true,
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, "const value = 42;")
	assert.Equal(t, 1, res.Mapped)
	assert.Empty(t, res.Unmappable)
}

func TestEventHandlerSubscribes(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "h1",
		Kind: ir.KindEventHandler,
		Name: "onPlayerLoggedIn",
		Payload: &ir.EventHandlerPayload{
			MethodName: "onPlayerLoggedIn",
			EventType:  "PlayerLoggedInEvent",
			ParamName:  "event",
			Body: []ir.Statement{
				{Kind: ir.StatementLog, Callee: "System.out.println", Args: []string{`"welcome"`}},
			},
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, `import { world } from "@minecraft/server";`)
	assert.Contains(t, out, "world.afterEvents.playerSpawn.subscribe((event) => {")
	assert.Contains(t, out, `console.log("welcome");`)
	assert.Empty(t, res.Unmappable)
}

func TestEventSubstringFallback(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "h1",
		Kind: ir.KindEventHandler,
		Name: "onJoin",
		Payload: &ir.EventHandlerPayload{
			EventType: "PlayerEvent.PlayerLoggedInEvent",
			ParamName: "event",
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, "world.afterEvents.playerSpawn.subscribe")
	assert.Empty(t, res.Warnings)
}

func TestUnresolvedEventUsesDefaultPath(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "h1",
		Kind: ir.KindEventHandler,
		Name: "onWeird",
		Payload: &ir.EventHandlerPayload{
			EventType: "WeirdCustomEvent",
			ParamName: "event",
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, DefaultEventPath+".subscribe")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no mapping for event WeirdCustomEvent")
	assert.Contains(t, out, "// no mapping for WeirdCustomEvent")
}

func TestTickListenerBecomesRunInterval(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "l1",
		Kind: ir.KindEventListener,
		Name: "ServerTickEvents.END_SERVER_TICK",
		Payload: &ir.EventListenerPayload{
			EventType: "ServerTickEvents.END_SERVER_TICK",
			Body: []ir.Statement{
				{Kind: ir.StatementLog, Callee: "System.out.println", Args: []string{`"tick"`}},
			},
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, `import { system } from "@minecraft/server";`)
	assert.Contains(t, out, "system.runInterval(() => {")
	assert.Contains(t, out, "}, 1);")
}

func TestRegistrationSynthesizesQualifiedID(t *testing.T) {
	ctx := testContext(
		&ir.Node{
			ID:   "b1",
			Kind: ir.KindBlockRegistration,
			Name: "RUBY_BLOCK",
			Payload: &ir.BlockRegistrationPayload{
				LocalID:    "ruby_block",
				BlockClass: "Block",
				Registry:   "BLOCKS",
			},
		},
		&ir.Node{
			ID:   "i1",
			Kind: ir.KindItemRegistration,
			Name: "RUBY",
			Payload: &ir.ItemRegistrationPayload{
				LocalID:   "ruby",
				ItemClass: "Item",
				Registry:  "ITEMS",
			},
		},
	)

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, `const RUBY_BLOCK = BlockPermutation.resolve("rubymod:ruby_block");`)
	assert.Contains(t, out, `const RUBY = new ItemStack("rubymod:ruby", 1);`)
	assert.Contains(t, out, `import { BlockPermutation, ItemStack } from "@minecraft/server";`)

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "behavior pack")
}

func TestUnknownNodeBecomesUnmappable(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "u1",
		Kind: ir.KindUnknown,
		Name: "mixin",
		Payload: &ir.UnknownPayload{
			Reason: "mixin classes rewrite bytecode",
			Source: "@Mixin(ServerPlayer.class) public class PlayerMixin {}",
		},
	})

	res := New(nil).Transpile(ctx)

	require.Len(t, res.Unmappable, 1)
	seg := res.Unmappable[0]
	assert.Equal(t, "u1", seg.NodeID)
	assert.Equal(t, ir.KindUnknown, seg.Kind)
	assert.Equal(t, "mixin classes rewrite bytecode", seg.Reason)
	assert.Contains(t, seg.Source, "@Mixin")
	assert.Zero(t, res.Mapped)
}

func TestVerbatimStatementsReduceConfidence(t *testing.T) {
	mapped := testContext(&ir.Node{
		ID:   "h1",
		Kind: ir.KindEventHandler,
		Name: "onJoin",
		Payload: &ir.EventHandlerPayload{
			EventType: "PlayerLoggedInEvent",
			Body: []ir.Statement{
				{Kind: ir.StatementCall, Callee: "player.openPortal", Args: nil, Text: "player.openPortal()"},
			},
		},
	})

	res := New(nil).Transpile(mapped)
	out := render(t, res)

	assert.Contains(t, out, "// untranslated call: player.openPortal()")
	assert.Less(t, res.Confidence, 1.0)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "kept verbatim")
}

func TestFunctionDeclaresAndRuns(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "fn1",
		Kind: ir.KindFunction,
		Name: "init",
		Payload: &ir.FunctionPayload{
			Body: []ir.Statement{
				{Kind: ir.StatementLog, Callee: "System.out.println", Args: []string{`"ready"`}},
			},
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, "function init() {")
	assert.Contains(t, out, "init();")
}

func TestMethodDeclaresWithoutInvoking(t *testing.T) {
	ctx := testContext(&ir.Node{
		ID:   "m1",
		Kind: ir.KindMethod,
		Name: "power",
		Payload: &ir.MethodPayload{
			ClassName:  "RubyMod",
			ReturnType: "int",
			Static:     true,
			Body: []ir.Statement{
				{Kind: ir.StatementReturn, Value: "42"},
			},
		},
	})

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, "function power() {")
	assert.Contains(t, out, "return 42;")
	assert.NotContains(t, out, "power();")
}

func TestModDeclarationEmitsModID(t *testing.T) {
	ctx := testContext(
		&ir.Node{
			ID:   "mod1",
			Kind: ir.KindModDeclaration,
			Name: "rubymod",
			Payload: &ir.ModDeclarationPayload{
				ModID:     "rubymod",
				ClassName: "RubyMod",
				Loader:    ir.LoaderForge,
			},
		},
		&ir.Node{
			ID:      "f1",
			Kind:    ir.KindField,
			Name:    "MOD_ID",
			Payload: &ir.FieldPayload{InitialValue: "rubymod", ValueKind: ir.ValueString, Final: true},
		},
	)

	res := New(nil).Transpile(ctx)
	out := render(t, res)

	assert.Contains(t, out, `const MOD_ID = "rubymod";`)
	assert.Contains(t, out, "// MOD_ID is declared above")
	assert.Equal(t, 2, res.Mapped)
}

func TestTranspileIsDeterministic(t *testing.T) {
	build := func() *ir.Context {
		return testContext(
			&ir.Node{ID: "mod1", Kind: ir.KindModDeclaration, Name: "rubymod", Payload: &ir.ModDeclarationPayload{ModID: "rubymod"}},
			&ir.Node{ID: "b1", Kind: ir.KindBlockRegistration, Name: "RUBY_BLOCK", Payload: &ir.BlockRegistrationPayload{LocalID: "ruby_block"}},
			&ir.Node{ID: "h1", Kind: ir.KindEventHandler, Name: "onJoin", Payload: &ir.EventHandlerPayload{EventType: "PlayerLoggedInEvent"}},
			&ir.Node{ID: "u1", Kind: ir.KindUnknown, Name: "odd", Payload: &ir.UnknownPayload{Reason: "odd construct"}},
		)
	}

	first := New(nil).Transpile(build())
	second := New(nil).Transpile(build())

	assert.Equal(t,
		jsast.Render(first.Program, jsast.DefaultFormatOptions()),
		jsast.Render(second.Program, jsast.DefaultFormatOptions()),
	)
	assert.Equal(t, first.Warnings, second.Warnings)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Unmappable, second.Unmappable)
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		name     string
		total    int
		mapped   int
		complex  int
		verbatim int
		want     float64
	}{
		{"no nodes", 0, 0, 0, 0, 0},
		{"all mapped", 4, 4, 0, 0, 1.0},
		{"half mapped", 4, 2, 0, 0, 0.5},
		{"complex penalty", 4, 4, 1, 0, 0.95},
		{"verbatim penalty", 4, 4, 0, 2, 0.96},
		{"clamped at zero", 2, 1, 8, 20, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, confidence(tc.total, tc.mapped, tc.complex, tc.verbatim), 1e-9)
		})
	}
}
