package ir

import "fmt"

// Payload carries the kind-specific data of a node. One concrete type exists
// per NodeKind so transpiler handlers type-switch over known shapes instead
// of probing an open property map.
type Payload interface {
	PayloadKind() NodeKind
}

// ModDeclarationPayload describes the mod identity declaration, the root of
// every extracted context.
type ModDeclarationPayload struct {
	ModID     string `json:"mod_id"`
	ClassName string `json:"class_name,omitempty"`
	Loader    Loader `json:"loader,omitempty"`
}

func (p *ModDeclarationPayload) PayloadKind() NodeKind { return KindModDeclaration }

// EntryPointPayload marks a loader entry point (a mod constructor or an
// initializer implementation).
type EntryPointPayload struct {
	ClassName  string `json:"class_name"`
	MethodName string `json:"method_name,omitempty"`
	Phase      string `json:"phase,omitempty"` // common, client or server
}

func (p *EntryPointPayload) PayloadKind() NodeKind { return KindEntryPoint }

// BlockRegistrationPayload describes one registered block.
type BlockRegistrationPayload struct {
	LocalID    string `json:"local_id"`
	BlockClass string `json:"block_class,omitempty"`
	Registry   string `json:"registry,omitempty"`
}

func (p *BlockRegistrationPayload) PayloadKind() NodeKind { return KindBlockRegistration }

// ItemRegistrationPayload describes one registered item.
type ItemRegistrationPayload struct {
	LocalID   string `json:"local_id"`
	ItemClass string `json:"item_class,omitempty"`
	Registry  string `json:"registry,omitempty"`
}

func (p *ItemRegistrationPayload) PayloadKind() NodeKind { return KindItemRegistration }

// EntityRegistrationPayload describes one registered entity type.
type EntityRegistrationPayload struct {
	LocalID     string `json:"local_id"`
	EntityClass string `json:"entity_class,omitempty"`
	Category    string `json:"category,omitempty"`
	Registry    string `json:"registry,omitempty"`
}

func (p *EntityRegistrationPayload) PayloadKind() NodeKind { return KindEntityRegistration }

// EventHandlerPayload describes an annotated event-handler method.
type EventHandlerPayload struct {
	MethodName string      `json:"method_name"`
	EventType  string      `json:"event_type"`
	ParamName  string      `json:"param_name,omitempty"`
	Body       []Statement `json:"body,omitempty"`
	Source     string      `json:"source,omitempty"`
}

func (p *EventHandlerPayload) PayloadKind() NodeKind { return KindEventHandler }

// EventListenerPayload describes a callback-style event subscription.
type EventListenerPayload struct {
	EventType string      `json:"event_type"`
	Callback  string      `json:"callback,omitempty"`
	Body      []Statement `json:"body,omitempty"`
	Source    string      `json:"source,omitempty"`
}

func (p *EventListenerPayload) PayloadKind() NodeKind { return KindEventListener }

// FunctionPayload describes a free or static function.
type FunctionPayload struct {
	Params     []Param     `json:"params,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	Body       []Statement `json:"body,omitempty"`
	Source     string      `json:"source,omitempty"`
}

func (p *FunctionPayload) PayloadKind() NodeKind { return KindFunction }

// MethodPayload describes an instance or static method of a class.
type MethodPayload struct {
	ClassName  string      `json:"class_name,omitempty"`
	Params     []Param     `json:"params,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	Static     bool        `json:"static,omitempty"`
	Body       []Statement `json:"body,omitempty"`
	Source     string      `json:"source,omitempty"`
}

func (p *MethodPayload) PayloadKind() NodeKind { return KindMethod }

// FieldPayload describes a class field, optionally with its initializer.
type FieldPayload struct {
	FieldType    string    `json:"field_type,omitempty"`
	InitialValue string    `json:"initial_value,omitempty"`
	ValueKind    ValueKind `json:"value_kind,omitempty"`
	Static       bool      `json:"static,omitempty"`
	Final        bool      `json:"final,omitempty"`
}

func (p *FieldPayload) PayloadKind() NodeKind { return KindField }

// PropertyPayload describes a configuration property.
type PropertyPayload struct {
	Key       string    `json:"key"`
	Value     string    `json:"value,omitempty"`
	ValueKind ValueKind `json:"value_kind,omitempty"`
	Comment   string    `json:"comment,omitempty"`
}

func (p *PropertyPayload) PayloadKind() NodeKind { return KindProperty }

// RecipePayload describes a crafting or smelting recipe definition.
type RecipePayload struct {
	RecipeType  string   `json:"recipe_type,omitempty"`
	Output      string   `json:"output,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

func (p *RecipePayload) PayloadKind() NodeKind { return KindRecipe }

// LootTablePayload describes a loot table definition.
type LootTablePayload struct {
	TableID string   `json:"table_id,omitempty"`
	Pools   []string `json:"pools,omitempty"`
}

func (p *LootTablePayload) PayloadKind() NodeKind { return KindLootTable }

// AssetPayload points at a texture, model or sound resource.
type AssetPayload struct {
	AssetType string `json:"asset_type,omitempty"` // texture, model or sound
	Path      string `json:"path,omitempty"`
}

func (p *AssetPayload) PayloadKind() NodeKind { return KindAsset }

// ContainerPayload describes a container or menu definition.
type ContainerPayload struct {
	ContainerType string `json:"container_type,omitempty"`
	Slots         int    `json:"slots,omitempty"`
}

func (p *ContainerPayload) PayloadKind() NodeKind { return KindContainer }

// ReferencePayload records a resolved or unresolved reference to another
// declaration.
type ReferencePayload struct {
	Target  string `json:"target"`
	RefType string `json:"ref_type,omitempty"` // type, method or field
}

func (p *ReferencePayload) PayloadKind() NodeKind { return KindReference }

// UnknownPayload marks source the extractor could not classify. Reason is
// mandatory and human readable.
type UnknownPayload struct {
	Reason string `json:"reason"`
	Source string `json:"source,omitempty"`
}

func (p *UnknownPayload) PayloadKind() NodeKind { return KindUnknown }

// NewPayload returns an empty payload value for the given kind, used when
// decoding nodes from JSON.
func NewPayload(kind NodeKind) (Payload, error) {
	switch kind {
	case KindModDeclaration:
		return &ModDeclarationPayload{}, nil
	case KindEntryPoint:
		return &EntryPointPayload{}, nil
	case KindBlockRegistration:
		return &BlockRegistrationPayload{}, nil
	case KindItemRegistration:
		return &ItemRegistrationPayload{}, nil
	case KindEntityRegistration:
		return &EntityRegistrationPayload{}, nil
	case KindEventHandler:
		return &EventHandlerPayload{}, nil
	case KindEventListener:
		return &EventListenerPayload{}, nil
	case KindFunction:
		return &FunctionPayload{}, nil
	case KindMethod:
		return &MethodPayload{}, nil
	case KindField:
		return &FieldPayload{}, nil
	case KindProperty:
		return &PropertyPayload{}, nil
	case KindRecipe:
		return &RecipePayload{}, nil
	case KindLootTable:
		return &LootTablePayload{}, nil
	case KindAsset:
		return &AssetPayload{}, nil
	case KindContainer:
		return &ContainerPayload{}, nil
	case KindReference:
		return &ReferencePayload{}, nil
	case KindUnknown:
		return &UnknownPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
}
