package mappings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExactMatchWins(t *testing.T) {
	table := NewTable()
	table.Add(Mapping{SourceSignature: "Logged", TargetEquivalent: "fallback.path", Kind: ConversionWrapper})
	table.Add(Mapping{SourceSignature: "PlayerLoggedInEvent", TargetEquivalent: "world.afterEvents.playerSpawn", Kind: ConversionWrapper})

	m, ok := table.Resolve("PlayerLoggedInEvent")
	require.True(t, ok)
	assert.Equal(t, "world.afterEvents.playerSpawn", m.TargetEquivalent)
}

func TestResolveSubstringFallback(t *testing.T) {
	t.Run("longest key wins", func(t *testing.T) {
		table := NewTable()
		table.Add(Mapping{SourceSignature: "Tick", TargetEquivalent: "short", Kind: ConversionDirect})
		table.Add(Mapping{SourceSignature: "ServerTick", TargetEquivalent: "long", Kind: ConversionDirect})

		m, ok := table.Resolve("net.minecraftforge.event.TickEvent.ServerTickEvent")
		require.True(t, ok)
		assert.Equal(t, "long", m.TargetEquivalent)
	})

	t.Run("equal length ties break lexicographically", func(t *testing.T) {
		table := NewTable()
		// Insertion order must not matter, so insert the winner second.
		table.Add(Mapping{SourceSignature: "beta", TargetEquivalent: "b", Kind: ConversionDirect})
		table.Add(Mapping{SourceSignature: "alfa", TargetEquivalent: "a", Kind: ConversionDirect})

		m, ok := table.Resolve("prefix.beta.alfa.suffix")
		require.True(t, ok)
		assert.Equal(t, "a", m.TargetEquivalent)
	})

	t.Run("no candidate", func(t *testing.T) {
		table := NewTable()
		table.Add(Mapping{SourceSignature: "Known", TargetEquivalent: "x", Kind: ConversionDirect})

		_, ok := table.Resolve("SomethingElseEntirely")
		assert.False(t, ok)
	})
}

func TestAddUpsertKeepsOrder(t *testing.T) {
	table := NewTable()
	table.Add(Mapping{SourceSignature: "a", TargetEquivalent: "1", Kind: ConversionDirect})
	table.Add(Mapping{SourceSignature: "b", TargetEquivalent: "2", Kind: ConversionDirect})
	table.Add(Mapping{SourceSignature: "a", TargetEquivalent: "replaced", Kind: ConversionWrapper})

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].SourceSignature)
	assert.Equal(t, "replaced", entries[0].TargetEquivalent)
	assert.Equal(t, "b", entries[1].SourceSignature)
}

func TestCloneIsIndependent(t *testing.T) {
	original := NewTable()
	original.Add(Mapping{
		SourceSignature:  "playSound",
		TargetEquivalent: "world.playSound",
		Kind:             ConversionWrapper,
		Example:          &Example{Source: "level.playSound(...)", Target: "world.playSound(...)"},
	})

	clone := original.Clone()
	clone.Add(Mapping{SourceSignature: "extra", TargetEquivalent: "x", Kind: ConversionDirect})

	m, ok := clone.Lookup("playSound")
	require.True(t, ok)
	m.Example.Target = "mutated"

	assert.Equal(t, 1, original.Len())
	assert.Equal(t, 2, clone.Len())

	kept, _ := original.Lookup("playSound")
	assert.Equal(t, "world.playSound(...)", kept.Example.Target)
}

func TestDefaultTableSeeds(t *testing.T) {
	table := DefaultTable()
	assert.Greater(t, table.Len(), 25)

	m, ok := table.Resolve("net.minecraftforge.event.entity.player.PlayerEvent.PlayerLoggedInEvent")
	require.True(t, ok)
	assert.Equal(t, "world.afterEvents.playerSpawn", m.TargetEquivalent)

	m, ok = table.Resolve("System.out.println")
	require.True(t, ok)
	assert.Equal(t, "console.log", m.TargetEquivalent)
	assert.Equal(t, ConversionDirect, m.Kind)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := NewTable()
	table.Add(Mapping{
		SourceSignature:  "ServerChatEvent",
		TargetEquivalent: "world.beforeEvents.chatSend",
		Kind:             ConversionDirect,
		Notes:            "chat text is read-only after send",
	})
	table.Add(Mapping{
		SourceSignature:  "CreativeModeTab",
		TargetEquivalent: "",
		Kind:             ConversionImpossible,
	})

	for _, name := range []string{"table.json", "table.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveFile(path, table))

			loaded, err := LoadFile(path)
			require.NoError(t, err)
			require.Equal(t, table.Len(), loaded.Len())

			m, ok := loaded.Lookup("ServerChatEvent")
			require.True(t, ok)
			assert.Equal(t, "world.beforeEvents.chatSend", m.TargetEquivalent)
			assert.Equal(t, "chat text is read-only after send", m.Notes)
		})
	}
}

func TestLoadFileRejectsBadKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	payload := `[{"source_signature": "X", "target_equivalent": "y", "conversion_kind": "sideways"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateEntriesRequiresSignature(t *testing.T) {
	err := ValidateEntries([]Mapping{{TargetEquivalent: "y", Kind: ConversionDirect}})
	assert.Error(t, err)
}
