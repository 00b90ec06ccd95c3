package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modport/internal/trace"
)

func ret(s string) *string { return &s }

func javaTrace(snapshots ...trace.Snapshot) *trace.ExecutionTrace {
	return &trace.ExecutionTrace{
		Language:  trace.LanguageJava,
		Snapshots: snapshots,
		Metadata:  trace.Metadata{SourceFile: "RubyMod.java", SnapshotCount: len(snapshots)},
	}
}

func jsTrace(snapshots ...trace.Snapshot) *trace.ExecutionTrace {
	return &trace.ExecutionTrace{
		Language:  trace.LanguageJavaScript,
		Snapshots: snapshots,
		Metadata:  trace.Metadata{SourceFile: "main.js", SnapshotCount: len(snapshots)},
	}
}

func TestCompareAlignedTraces(t *testing.T) {
	source := javaTrace(
		trace.Snapshot{Timestamp: 1, FunctionName: "onInit", LineNumber: 10,
			Variables: map[string]string{"count": "42", "name": "ruby"},
			CallStack: []string{"main", "onInit"}},
		trace.Snapshot{Timestamp: 2, FunctionName: "computeDamage", LineNumber: 20,
			Variables: map[string]string{"base": "5"}, ReturnValue: ret("10"),
			CallStack: []string{"main", "onInit", "computeDamage"}},
	)
	target := jsTrace(
		trace.Snapshot{Timestamp: 5, FunctionName: "onInit", LineNumber: 3,
			Variables: map[string]string{"count": "42.0", "name": "ruby"},
			CallStack: []string{"main", "onInit"}},
		trace.Snapshot{Timestamp: 6, FunctionName: "computeDamage", LineNumber: 8,
			Variables: map[string]string{"base": "5.000"}, ReturnValue: ret("10.0"),
			CallStack: []string{"main", "onInit", "computeDamage"}},
	)

	report := Compare(source, target)

	assert.True(t, report.Aligned)
	assert.Equal(t, 1.0, report.Score)
	assert.Empty(t, report.Divergences)
	assert.Empty(t, report.Recommendations)
	assert.Equal(t, map[string]string{"onInit": "onInit", "computeDamage": "computeDamage"}, report.FunctionMapping)
}

func TestCompareMissingFunction(t *testing.T) {
	source := javaTrace(
		trace.Snapshot{Timestamp: 1, FunctionName: "onInit", LineNumber: 10},
		trace.Snapshot{Timestamp: 2, FunctionName: "exampleMethod", LineNumber: 20},
	)
	target := jsTrace(
		trace.Snapshot{Timestamp: 5, FunctionName: "onInit", LineNumber: 3},
	)

	report := Compare(source, target)

	assert.False(t, report.Aligned)
	require.Len(t, report.Divergences, 1)
	d := report.Divergences[0]
	assert.Equal(t, DivergenceMissingState, d.Kind)
	assert.Equal(t, SeverityHigh, d.Severity)
	assert.Contains(t, d.Description, "exampleMethod")
	require.NotNil(t, d.Source)
	assert.Nil(t, d.Target)

	assert.LessOrEqual(t, report.Score, 0.8, "a missing function must cost at least the fixed penalty")
	assert.InDelta(t, 0.75, report.Score, 1e-9)
	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "ensure every source function has a translated counterpart", report.Recommendations[0])
	assert.Contains(t, report.Recommendations[len(report.Recommendations)-1], "re-run")
}

func TestCompareEmptyTraces(t *testing.T) {
	populated := javaTrace(trace.Snapshot{Timestamp: 1, FunctionName: "onInit", LineNumber: 1})

	tests := []struct {
		name     string
		source   *trace.ExecutionTrace
		target   *trace.ExecutionTrace
		wantDesc string
	}{
		{"nil source", nil, populated, "source trace contains no snapshots"},
		{"empty source", javaTrace(), populated, "source trace contains no snapshots"},
		{"empty target", populated, jsTrace(), "target trace contains no snapshots"},
		{"both empty", javaTrace(), jsTrace(), "neither trace contains snapshots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := Compare(tt.source, tt.target)

			assert.False(t, report.Aligned)
			assert.Equal(t, 0.0, report.Score)
			require.Len(t, report.Divergences, 1)
			assert.Equal(t, DivergenceMissingState, report.Divergences[0].Kind)
			assert.Equal(t, SeverityHigh, report.Divergences[0].Severity)
			assert.Contains(t, report.Divergences[0].Description, tt.wantDesc)
		})
	}
}

func TestFunctionNameMapping(t *testing.T) {
	t.Run("case styles map without penalty", func(t *testing.T) {
		source := javaTrace(trace.Snapshot{Timestamp: 1, FunctionName: "compute_damage", LineNumber: 1})
		target := jsTrace(trace.Snapshot{Timestamp: 2, FunctionName: "computeDamage", LineNumber: 1})

		report := Compare(source, target)

		assert.True(t, report.Aligned)
		assert.Equal(t, "computeDamage", report.FunctionMapping["compute_damage"])
	})

	t.Run("near names map fuzzily", func(t *testing.T) {
		source := javaTrace(trace.Snapshot{Timestamp: 1, FunctionName: "onPlayerJoined", LineNumber: 1})
		target := jsTrace(trace.Snapshot{Timestamp: 2, FunctionName: "onPlayerJoin", LineNumber: 1})

		report := Compare(source, target)

		assert.True(t, report.Aligned)
		assert.Equal(t, "onPlayerJoin", report.FunctionMapping["onPlayerJoined"])
	})
}

func TestVariableComparison(t *testing.T) {
	pair := func(srcVars, tgtVars map[string]string) *Report {
		source := javaTrace(trace.Snapshot{Timestamp: 1, FunctionName: "onInit", LineNumber: 1, Variables: srcVars})
		target := jsTrace(trace.Snapshot{Timestamp: 2, FunctionName: "onInit", LineNumber: 1, Variables: tgtVars})
		return Compare(source, target)
	}

	t.Run("numeric values compare within epsilon", func(t *testing.T) {
		report := pair(map[string]string{"x": "0.3"}, map[string]string{"x": "0.30000000001"})
		assert.True(t, report.Aligned)
	})

	t.Run("value mismatch is a medium divergence", func(t *testing.T) {
		report := pair(map[string]string{"x": "1"}, map[string]string{"x": "2"})

		require.Len(t, report.Divergences, 1)
		d := report.Divergences[0]
		assert.Equal(t, DivergenceVariableValue, d.Kind)
		assert.Equal(t, SeverityMedium, d.Severity)
		assert.Contains(t, d.Description, `variable x in function onInit diverged`)
	})

	t.Run("source-only variable is reported", func(t *testing.T) {
		report := pair(map[string]string{"x": "1", "extra": "2"}, map[string]string{"x": "1"})

		require.Len(t, report.Divergences, 1)
		assert.Contains(t, report.Divergences[0].Description, "only exists in the source trace")
	})

	t.Run("target-only variable is reported", func(t *testing.T) {
		report := pair(map[string]string{"x": "1"}, map[string]string{"x": "1", "bonus": "3"})

		require.Len(t, report.Divergences, 1)
		assert.Contains(t, report.Divergences[0].Description, "only exists in the target trace")
	})

	t.Run("case-style variable names still match", func(t *testing.T) {
		report := pair(map[string]string{"player_name": "steve"}, map[string]string{"playerName": "steve"})
		assert.True(t, report.Aligned)
	})
}

func TestReturnValueComparison(t *testing.T) {
	pair := func(srcRet, tgtRet *string) *Report {
		source := javaTrace(trace.Snapshot{Timestamp: 1, FunctionName: "f", LineNumber: 1, ReturnValue: srcRet})
		target := jsTrace(trace.Snapshot{Timestamp: 2, FunctionName: "f", LineNumber: 1, ReturnValue: tgtRet})
		return Compare(source, target)
	}

	t.Run("equivalent numeric returns align", func(t *testing.T) {
		assert.True(t, pair(ret("10"), ret("10.0")).Aligned)
	})

	t.Run("mismatch is a high divergence", func(t *testing.T) {
		report := pair(ret("10"), ret("12"))

		require.Len(t, report.Divergences, 1)
		assert.Equal(t, DivergenceReturnValue, report.Divergences[0].Kind)
		assert.Equal(t, SeverityHigh, report.Divergences[0].Severity)
	})

	t.Run("one-sided return is a high divergence", func(t *testing.T) {
		report := pair(ret("10"), nil)

		require.Len(t, report.Divergences, 1)
		assert.Equal(t, DivergenceReturnValue, report.Divergences[0].Kind)
		assert.Contains(t, report.Divergences[0].Description, "only one trace")
	})
}

func TestControlFlowComparison(t *testing.T) {
	t.Run("diverging snapshot counts", func(t *testing.T) {
		var srcSnaps []trace.Snapshot
		for i := 0; i < 10; i++ {
			srcSnaps = append(srcSnaps, trace.Snapshot{Timestamp: float64(i), FunctionName: "loop", LineNumber: 1})
		}
		source := javaTrace(srcSnaps...)
		target := jsTrace(
			trace.Snapshot{Timestamp: 1, FunctionName: "loop", LineNumber: 1},
			trace.Snapshot{Timestamp: 2, FunctionName: "loop", LineNumber: 1},
		)

		report := Compare(source, target)

		require.Len(t, report.Divergences, 1)
		assert.Equal(t, DivergenceControlFlow, report.Divergences[0].Kind)
		assert.Equal(t, SeverityMedium, report.Divergences[0].Severity)
		assert.InDelta(t, 0.95, report.Score, 1e-9)
	})

	t.Run("diverging call depths", func(t *testing.T) {
		source := javaTrace(
			trace.Snapshot{Timestamp: 1, FunctionName: "f", LineNumber: 1, CallStack: []string{"a", "b", "c", "d"}},
			trace.Snapshot{Timestamp: 2, FunctionName: "f", LineNumber: 2},
		)
		target := jsTrace(
			trace.Snapshot{Timestamp: 1, FunctionName: "f", LineNumber: 1, CallStack: []string{"a"}},
			trace.Snapshot{Timestamp: 2, FunctionName: "f", LineNumber: 2},
		)

		report := Compare(source, target)

		require.Len(t, report.Divergences, 1)
		assert.Equal(t, DivergenceControlFlow, report.Divergences[0].Kind)
		assert.Equal(t, SeverityLow, report.Divergences[0].Severity)
	})
}

func TestValuesEquivalent(t *testing.T) {
	tests := []struct {
		source string
		target string
		want   bool
	}{
		{"42", "42.000", true},
		{"0.3", "0.3000001", true},
		{"1", "2", false},
		{"true", "True", true},
		{"true", "false", false},
		{"1", "true", false},
		{"null", "undefined", true},
		{"nil", "None", true},
		{"hello", "hello", true},
		{"hello", "world", false},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.source+" vs "+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, valuesEquivalent(tt.source, tt.target))
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("onTick", "on_tick"))
	assert.Equal(t, 1.0, nameSimilarity("computeDamage", "COMPUTE_DAMAGE"))
	assert.Greater(t, nameSimilarity("onPlayerJoined", "onPlayerJoin"), fuzzyAcceptThreshold)
	assert.Less(t, nameSimilarity("render", "database"), fuzzyAcceptThreshold)
}

func TestRecommendationsOrdering(t *testing.T) {
	divergences := []DivergencePoint{
		{Kind: DivergenceVariableValue},
		{Kind: DivergenceVariableValue},
		{Kind: DivergenceMissingState},
	}

	recs := recommendations(divergences)

	require.Len(t, recs, 3)
	assert.Equal(t, "check variable initialization and assignment order in translated functions", recs[0])
	assert.Equal(t, "ensure every source function has a translated counterpart", recs[1])
	assert.Contains(t, recs[2], "re-run")
}
