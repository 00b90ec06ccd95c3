package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modport/internal/ir"
)

const fabricSource = `package com.example.tutorial;

import net.fabricmc.api.ModInitializer;
import net.minecraft.registry.Registries;
import net.minecraft.registry.Registry;

public class TutorialMod implements ModInitializer {
    public static final String MOD_ID = "tutorial";

    public static final Block RUBY_BLOCK = Registry.register(Registries.BLOCK, Identifier.of(MOD_ID, "ruby_block"), new Block(AbstractBlock.Settings.create()));

    @Override
    public void onInitialize() {
        Registry.register(Registries.ITEM, Identifier.of(MOD_ID, "ruby"), new Item(new Item.Settings()));
        ServerPlayConnectionEvents.JOIN.register((handler, sender, server) -> {
            System.out.println("joined");
        });
        System.out.println("initialized");
    }
}
`

func parseFabric(t *testing.T, source string) *ir.Context {
	t.Helper()

	tree, err := ParseJava(context.Background(), []byte(source))
	require.NoError(t, err)

	ext, err := New(ir.LoaderFabric)
	require.NoError(t, err)

	ctx := ext.BuildContext(tree.RootNode(), []byte(source), "TutorialMod.java", ir.Metadata{})
	require.NoError(t, ctx.Validate())
	return ctx
}

func TestFabricExtract(t *testing.T) {
	ctx := parseFabric(t, fabricSource)

	t.Run("metadata", func(t *testing.T) {
		assert.Equal(t, "tutorial", ctx.Metadata.ModID)
		assert.Equal(t, ir.LoaderFabric, ctx.Metadata.Loader)
	})

	t.Run("mod declaration", func(t *testing.T) {
		mods := ctx.NodesOfKind(ir.KindModDeclaration)
		require.Len(t, mods, 1)

		payload, ok := mods[0].Payload.(*ir.ModDeclarationPayload)
		require.True(t, ok)
		assert.Equal(t, "tutorial", payload.ModID)
		assert.Equal(t, "TutorialMod", payload.ClassName)
		assert.Equal(t, ir.LoaderFabric, payload.Loader)
	})

	t.Run("entry point", func(t *testing.T) {
		entries := ctx.NodesOfKind(ir.KindEntryPoint)
		require.Len(t, entries, 1)

		payload, ok := entries[0].Payload.(*ir.EntryPointPayload)
		require.True(t, ok)
		assert.Equal(t, "onInitialize", payload.MethodName)
		assert.Equal(t, "common", payload.Phase)
	})

	t.Run("block registration from field", func(t *testing.T) {
		blocks := ctx.NodesOfKind(ir.KindBlockRegistration)
		require.Len(t, blocks, 1)
		assert.Equal(t, "RUBY_BLOCK", blocks[0].Name)

		payload, ok := blocks[0].Payload.(*ir.BlockRegistrationPayload)
		require.True(t, ok)
		assert.Equal(t, "ruby_block", payload.LocalID)
		assert.Equal(t, "Block", payload.BlockClass)
		assert.Equal(t, "Registries.BLOCK", payload.Registry)
	})

	t.Run("item registration from initializer statement", func(t *testing.T) {
		items := ctx.NodesOfKind(ir.KindItemRegistration)
		require.Len(t, items, 1)
		assert.Equal(t, "ruby", items[0].Name)

		payload, ok := items[0].Payload.(*ir.ItemRegistrationPayload)
		require.True(t, ok)
		assert.Equal(t, "ruby", payload.LocalID)
		assert.Equal(t, "Item", payload.ItemClass)
	})

	t.Run("event listener", func(t *testing.T) {
		listeners := ctx.NodesOfKind(ir.KindEventListener)
		require.Len(t, listeners, 1)

		payload, ok := listeners[0].Payload.(*ir.EventListenerPayload)
		require.True(t, ok)
		assert.Equal(t, "ServerPlayConnectionEvents.JOIN", payload.EventType)
		require.Len(t, payload.Body, 1)
		assert.Equal(t, ir.StatementLog, payload.Body[0].Kind)

		var listens int
		for _, rel := range ctx.Relationships {
			if rel.Kind == ir.RelListens {
				listens++
			}
		}
		assert.Equal(t, 1, listens)
	})

	t.Run("leftover statements become the init function", func(t *testing.T) {
		funcs := ctx.NodesOfKind(ir.KindFunction)
		require.Len(t, funcs, 1)
		assert.Equal(t, "onInitialize", funcs[0].Name)

		payload, ok := funcs[0].Payload.(*ir.FunctionPayload)
		require.True(t, ok)
		require.Len(t, payload.Body, 1)
		assert.Equal(t, ir.StatementLog, payload.Body[0].Kind)
	})

	t.Run("implements reference", func(t *testing.T) {
		refs := ctx.NodesOfKind(ir.KindReference)
		require.Len(t, refs, 1)
		assert.Equal(t, "ModInitializer", refs[0].Name)
	})
}

func TestFabricClientEntryPoint(t *testing.T) {
	source := `public class TutorialClient implements ClientModInitializer {
    @Override
    public void onInitializeClient() {
        HudRenderCallback.EVENT.register((context, tickDelta) -> drawOverlay(context));
    }
}
`
	ctx := parseFabric(t, source)

	entries := ctx.NodesOfKind(ir.KindEntryPoint)
	require.Len(t, entries, 1)

	payload, ok := entries[0].Payload.(*ir.EntryPointPayload)
	require.True(t, ok)
	assert.Equal(t, "onInitializeClient", payload.MethodName)
	assert.Equal(t, "client", payload.Phase)

	listeners := ctx.NodesOfKind(ir.KindEventListener)
	require.Len(t, listeners, 1)

	listener, ok := listeners[0].Payload.(*ir.EventListenerPayload)
	require.True(t, ok)
	assert.Equal(t, "HudRenderCallback.EVENT", listener.EventType)
	require.Len(t, listener.Body, 1)
	assert.Equal(t, ir.StatementCall, listener.Body[0].Kind)
}

func TestFabricMethodReferenceListener(t *testing.T) {
	source := `public class RefMod implements ModInitializer {
    public static final String MOD_ID = "refmod";

    @Override
    public void onInitialize() {
        ServerTickEvents.END_SERVER_TICK.register(RefMod::onTick);
    }
}
`
	ctx := parseFabric(t, source)

	listeners := ctx.NodesOfKind(ir.KindEventListener)
	require.Len(t, listeners, 1)

	payload, ok := listeners[0].Payload.(*ir.EventListenerPayload)
	require.True(t, ok)
	assert.Equal(t, "ServerTickEvents.END_SERVER_TICK", payload.EventType)
	assert.Equal(t, "RefMod::onTick", payload.Callback)
	assert.Empty(t, payload.Body)
}

func TestFabricUnsupportedRegistry(t *testing.T) {
	source := `public class SoundMod implements ModInitializer {
    public static final String MOD_ID = "soundmod";

    public static final SoundEvent CHIME = Registry.register(Registries.SOUND_EVENT, Identifier.of(MOD_ID, "chime"), SoundEvent.of(id));

    @Override
    public void onInitialize() {
    }
}
`
	ctx := parseFabric(t, source)

	unknowns := ctx.NodesOfKind(ir.KindUnknown)
	require.Len(t, unknowns, 1)

	payload, ok := unknowns[0].Payload.(*ir.UnknownPayload)
	require.True(t, ok)
	assert.Contains(t, payload.Reason, "Registries.SOUND_EVENT")
}

func TestFabricModIDFallsBackToClassName(t *testing.T) {
	source := `public class BareMod implements ModInitializer {
    @Override
    public void onInitialize() {
    }
}
`
	ctx := parseFabric(t, source)

	mods := ctx.NodesOfKind(ir.KindModDeclaration)
	require.Len(t, mods, 1)
	assert.Equal(t, "baremod", mods[0].Name)
}
