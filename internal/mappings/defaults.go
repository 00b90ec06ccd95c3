package mappings

// DefaultTable returns the seed table covering the common Forge and Fabric
// surface. Callers extend a Clone of it at runtime; the seed itself is never
// mutated by the pipeline.
func DefaultTable() *Table {
	t := NewTable()
	t.AddAll(defaultMappings)
	return t
}

var defaultMappings = []Mapping{
	// Player lifecycle events.
	{
		SourceSignature:  "PlayerLoggedInEvent",
		TargetEquivalent: "world.afterEvents.playerSpawn",
		Kind:             ConversionWrapper,
		Notes:            "playerSpawn fires on join with initialSpawn=true; filter inside the handler",
		Example: &Example{
			Source: "@SubscribeEvent public void onJoin(PlayerLoggedInEvent event)",
			Target: "world.afterEvents.playerSpawn.subscribe((event) => { ... })",
		},
	},
	{
		SourceSignature:  "PlayerLoggedOutEvent",
		TargetEquivalent: "world.afterEvents.playerLeave",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "ServerPlayConnectionEvents.JOIN",
		TargetEquivalent: "world.afterEvents.playerSpawn",
		Kind:             ConversionWrapper,
		Notes:            "Fabric connection join maps to playerSpawn with initialSpawn=true",
	},
	{
		SourceSignature:  "ServerPlayConnectionEvents.DISCONNECT",
		TargetEquivalent: "world.afterEvents.playerLeave",
		Kind:             ConversionDirect,
	},

	// Server lifecycle.
	{
		SourceSignature:  "ServerStartingEvent",
		TargetEquivalent: "world.afterEvents.worldInitialize",
		Kind:             ConversionWrapper,
		Notes:            "no dedicated server-start hook in scripts; worldInitialize is the closest",
	},
	{
		SourceSignature:  "ServerLifecycleEvents.SERVER_STARTED",
		TargetEquivalent: "world.afterEvents.worldInitialize",
		Kind:             ConversionWrapper,
	},

	// Ticking.
	{
		SourceSignature:  "TickEvent.ServerTickEvent",
		TargetEquivalent: "system.runInterval",
		Kind:             ConversionComplex,
		Notes:            "per-tick events become a runInterval(callback, 1) loop",
	},
	{
		SourceSignature:  "ServerTickEvents.END_SERVER_TICK",
		TargetEquivalent: "system.runInterval",
		Kind:             ConversionComplex,
		Notes:            "per-tick events become a runInterval(callback, 1) loop",
	},

	// Block interaction events.
	{
		SourceSignature:  "PlayerInteractEvent.RightClickBlock",
		TargetEquivalent: "world.afterEvents.playerInteractWithBlock",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "BlockEvent.BreakEvent",
		TargetEquivalent: "world.afterEvents.playerBreakBlock",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "PlayerBlockBreakEvents.AFTER",
		TargetEquivalent: "world.afterEvents.playerBreakBlock",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "AttackBlockCallback",
		TargetEquivalent: "world.beforeEvents.playerBreakBlock",
		Kind:             ConversionWrapper,
		Notes:            "callback result semantics differ; cancellation uses event.cancel",
	},
	{
		SourceSignature:  "UseItemCallback",
		TargetEquivalent: "world.afterEvents.itemUse",
		Kind:             ConversionWrapper,
	},

	// Entity events.
	{
		SourceSignature:  "LivingDeathEvent",
		TargetEquivalent: "world.afterEvents.entityDie",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "EntitySpawnEvent",
		TargetEquivalent: "world.afterEvents.entitySpawn",
		Kind:             ConversionDirect,
	},

	// Chat.
	{
		SourceSignature:  "ServerChatEvent",
		TargetEquivalent: "world.beforeEvents.chatSend",
		Kind:             ConversionDirect,
	},

	// Registration. Bedrock registers content through addon JSON, so scripts
	// only resolve registered identifiers.
	{
		SourceSignature:  "DeferredRegister.register",
		TargetEquivalent: "BlockPermutation.resolve",
		Kind:             ConversionComplex,
		Notes:            "definition moves to behavior-pack JSON; the script resolves the identifier",
	},
	{
		SourceSignature:  "Registry.register",
		TargetEquivalent: "BlockPermutation.resolve",
		Kind:             ConversionComplex,
		Notes:            "definition moves to behavior-pack JSON; the script resolves the identifier",
	},

	// Common API calls.
	{
		SourceSignature:  "System.out.println",
		TargetEquivalent: "console.log",
		Kind:             ConversionDirect,
		Example: &Example{
			Source: `System.out.println("hello");`,
			Target: `console.log("hello");`,
		},
	},
	{
		SourceSignature:  "Logger.info",
		TargetEquivalent: "console.info",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "Logger.warn",
		TargetEquivalent: "console.warn",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "Logger.error",
		TargetEquivalent: "console.error",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "sendSystemMessage",
		TargetEquivalent: "sendMessage",
		Kind:             ConversionDirect,
		Notes:            "Bedrock messages are plain strings or rawtext objects",
	},
	{
		SourceSignature:  "Component.literal",
		TargetEquivalent: "",
		Kind:             ConversionDirect,
		Notes:            "chat components collapse to plain strings",
	},
	{
		SourceSignature:  "Level.getBlockState",
		TargetEquivalent: "dimension.getBlock",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "Level.setBlock",
		TargetEquivalent: "dimension.getBlock(location).setPermutation",
		Kind:             ConversionComplex,
	},
	{
		SourceSignature:  "Level.addFreshEntity",
		TargetEquivalent: "dimension.spawnEntity",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "Entity.teleportTo",
		TargetEquivalent: "teleport",
		Kind:             ConversionDirect,
	},
	{
		SourceSignature:  "MobEffectInstance",
		TargetEquivalent: "addEffect",
		Kind:             ConversionComplex,
		Notes:            "effect ids and amplifier scale differ between editions",
	},
	{
		SourceSignature:  "playSound",
		TargetEquivalent: "world.playSound",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "Scoreboard",
		TargetEquivalent: "world.scoreboard",
		Kind:             ConversionWrapper,
	},
	{
		SourceSignature:  "CreativeModeTab",
		TargetEquivalent: "",
		Kind:             ConversionImpossible,
		Notes:            "creative menu grouping is data-driven on Bedrock; no script equivalent",
	},
	{
		SourceSignature:  "ItemTooltipEvent",
		TargetEquivalent: "",
		Kind:             ConversionImpossible,
		Notes:            "tooltips are not scriptable on Bedrock",
	},
}
