package inference

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs translation prompts for segments that rules
// could not map.
type PromptBuilder struct{}

const responseInstruction = "\n**RESPONSE FORMAT**: Respond with strict JSON only, no prose outside it:\n" +
	`{"code": "<JavaScript for @minecraft/server>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>", "warnings": ["<caveat>", ...]}` + "\n"

var categoryGuidance = map[string]string{
	"api": "Focus: API surface mapping. Prefer world.afterEvents/beforeEvents subscriptions, " +
		"system.run/runInterval scheduling, and BlockPermutation/ItemStack construction. " +
		"Registrations have no runtime equivalent; emit the closest scripted behavior and say so in a warning.\n",
	"logic": "Focus: behavioral logic. Preserve control flow, arithmetic, and state exactly. " +
		"Translate Java collections to plain arrays, objects, or Map. Keep variable names recognizable.\n",
	"rendering": "Focus: client rendering. Bedrock scripts cannot draw HUDs or screens directly; " +
		"approximate with onScreenDisplay titles, action bars, or player.sendMessage, and warn about the gap.\n",
	"dimension": "Focus: world and dimension access. Use world.getDimension, dimension.getBlock, " +
		"dimension.spawnEntity, and structure APIs. World generation hooks do not exist; warn when behavior depends on them.\n",
	"general": "Focus: closest practical equivalent in @minecraft/server. When no direct API exists, " +
		"emit working fallback code and record the compromise in a warning.\n",
}

// BuildSegmentPrompt renders the full prompt for one segment, with guidance
// chosen by the segment's failure category.
func (pb *PromptBuilder) BuildSegmentPrompt(seg Segment) string {
	var sb strings.Builder
	sb.WriteString("Role: Minecraft Scripting Engineer. Task: Translate one Java mod fragment to Bedrock JavaScript (@minecraft/server).\n")
	sb.WriteString("\n")
	sb.WriteString(categoryGuidance[promptCategory(seg)])

	sb.WriteString("\n### FRAGMENT\n")
	fmt.Fprintf(&sb, "Kind: %s\n", seg.Kind)
	if seg.Name != "" {
		fmt.Fprintf(&sb, "Name: %s\n", seg.Name)
	}
	fmt.Fprintf(&sb, "Why rules could not translate it: %s\n", seg.Reason)

	if len(seg.Hints) > 0 {
		sb.WriteString("\n### FEEDBACK FROM A PREVIOUS VALIDATION PASS\n")
		for _, hint := range seg.Hints {
			fmt.Fprintf(&sb, "- %s\n", hint)
		}
		sb.WriteString("Address every point above in the new translation.\n")
	}

	if seg.Source != "" {
		sb.WriteString("\n### JAVA SOURCE\n```java\n")
		sb.WriteString(seg.Source)
		if !strings.HasSuffix(seg.Source, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("```\n")
	}

	sb.WriteString(responseInstruction)
	return sb.String()
}

// promptCategory buckets a segment by the vocabulary of its failure reason
// so the prompt can carry targeted guidance. More specific buckets are
// checked before broader ones.
func promptCategory(seg Segment) string {
	text := strings.ToLower(seg.Reason + " " + seg.Kind + " " + seg.Name)
	switch {
	case containsAny(text, "render", "overlay", "hud", "screen", "gui", "tooltip", "creative tab"):
		return "rendering"
	case containsAny(text, "dimension", "worldgen", "world gen", "biome", "chunk", "structure"):
		return "dimension"
	case containsAny(text, "registry", "registration", "event", "network", "packet", "api", "capability"):
		return "api"
	case containsAny(text, "logic", "algorithm", "loop", "recursion", "state", "inventory", "container"):
		return "logic"
	default:
		return "general"
	}
}

func containsAny(text string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
