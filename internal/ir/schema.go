package ir

// NodeKind identifies the structural role of an IR node. The set is closed:
// extractors map anything they do not recognize to KindUnknown with a reason
// instead of inventing new kinds.
type NodeKind string

const (
	KindModDeclaration     NodeKind = "mod_declaration"
	KindEntryPoint         NodeKind = "entry_point"
	KindBlockRegistration  NodeKind = "block_registration"
	KindItemRegistration   NodeKind = "item_registration"
	KindEntityRegistration NodeKind = "entity_registration"
	KindEventHandler       NodeKind = "event_handler"
	KindEventListener      NodeKind = "event_listener"
	KindFunction           NodeKind = "function"
	KindMethod             NodeKind = "method"
	KindField              NodeKind = "field"
	KindProperty           NodeKind = "property"
	KindRecipe             NodeKind = "recipe"
	KindLootTable          NodeKind = "loot_table"
	KindAsset              NodeKind = "asset"
	KindContainer          NodeKind = "container"
	KindReference          NodeKind = "reference"
	KindUnknown            NodeKind = "unknown"
)

// Kinds enumerates every defined node kind.
var Kinds = []NodeKind{
	KindModDeclaration,
	KindEntryPoint,
	KindBlockRegistration,
	KindItemRegistration,
	KindEntityRegistration,
	KindEventHandler,
	KindEventListener,
	KindFunction,
	KindMethod,
	KindField,
	KindProperty,
	KindRecipe,
	KindLootTable,
	KindAsset,
	KindContainer,
	KindReference,
	KindUnknown,
}

// RelationshipKind classifies a directed edge between two IR nodes.
type RelationshipKind string

const (
	RelContains   RelationshipKind = "contains"
	RelReferences RelationshipKind = "references"
	RelExtends    RelationshipKind = "extends"
	RelImplements RelationshipKind = "implements"
	RelRegisters  RelationshipKind = "registers"
	RelListens    RelationshipKind = "listens"
	RelHandles    RelationshipKind = "handles"
	RelUses       RelationshipKind = "uses"
	RelCreates    RelationshipKind = "creates"
	RelModifies   RelationshipKind = "modifies"
)

// Loader names a supported Java mod-loader API.
type Loader string

const (
	LoaderForge  Loader = "forge"
	LoaderFabric Loader = "fabric"
)

// ValueKind tags how a textual value should be rendered in the target
// language (a bare number versus a quoted string and so on).
type ValueKind string

const (
	ValueNumber     ValueKind = "number"
	ValueString     ValueKind = "string"
	ValueBool       ValueKind = "boolean"
	ValueNull       ValueKind = "null"
	ValueExpression ValueKind = "expression"
)

// SourceLocation records where a node claim originated in source code.
type SourceLocation struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartColumn int    `json:"start_column,omitempty"`
	EndColumn   int    `json:"end_column,omitempty"`
}

// StatementKind classifies the minimal statement forms extracted from method
// bodies. Anything outside the set is kept verbatim as StatementRaw.
type StatementKind string

const (
	StatementCall   StatementKind = "call"
	StatementLog    StatementKind = "log"
	StatementReturn StatementKind = "return"
	StatementAssign StatementKind = "assign"
	StatementRaw    StatementKind = "raw"
)

// Statement is one simplified statement from a method or handler body.
type Statement struct {
	Kind   StatementKind `json:"kind"`
	Callee string        `json:"callee,omitempty"`
	Args   []string      `json:"args,omitempty"`
	Target string        `json:"target,omitempty"`
	Value  string        `json:"value,omitempty"`
	Text   string        `json:"text"`
}

// Param is a formal parameter of a method or function node.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Relationship is a directed, kind-tagged edge between two nodes of the same
// context. Both endpoints must resolve within the owning context.
type Relationship struct {
	ID         string            `json:"id"`
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Kind       RelationshipKind  `json:"kind"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Metadata is the mod-level identity record. Extraction returns a partial
// record; callers merge it over defaults before building the context.
type Metadata struct {
	ModID         string   `json:"mod_id"`
	DisplayName   string   `json:"display_name,omitempty"`
	Version       string   `json:"version,omitempty"`
	Loader        Loader   `json:"loader,omitempty"`
	TargetVersion string   `json:"target_version,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	License       string   `json:"license,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// Merge overlays the non-empty fields of partial onto m and returns the
// result. m itself is not modified.
func (m Metadata) Merge(partial Metadata) Metadata {
	out := m
	if partial.ModID != "" {
		out.ModID = partial.ModID
	}
	if partial.DisplayName != "" {
		out.DisplayName = partial.DisplayName
	}
	if partial.Version != "" {
		out.Version = partial.Version
	}
	if partial.Loader != "" {
		out.Loader = partial.Loader
	}
	if partial.TargetVersion != "" {
		out.TargetVersion = partial.TargetVersion
	}
	if len(partial.Authors) > 0 {
		out.Authors = partial.Authors
	}
	if partial.License != "" {
		out.License = partial.License
	}
	if partial.Description != "" {
		out.Description = partial.Description
	}
	return out
}
