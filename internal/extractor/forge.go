package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"modport/internal/ir"
)

// ForgeExtractor recognizes Forge mod structure: @Mod entry classes,
// @SubscribeEvent handler methods and DeferredRegister registrations.
type ForgeExtractor struct{}

func (f *ForgeExtractor) Loader() ir.Loader { return ir.LoaderForge }

func (f *ForgeExtractor) ExtractMetadata(root *sitter.Node, source []byte) ir.Metadata {
	meta := ir.Metadata{Loader: ir.LoaderForge}
	for _, class := range collectClasses(root) {
		for _, ann := range annotationsOf(class) {
			if annotationName(ann, source) == "Mod" {
				if v := annotationValue(ann, source); v != "" {
					meta.ModID = v
				}
			}
		}
		if meta.ModID == "" {
			meta.ModID = modIDConstant(class, source)
		}
	}
	return meta
}

func (f *ForgeExtractor) Extract(root *sitter.Node, source []byte, file string) Extraction {
	var acc Extraction
	for _, class := range collectClasses(root) {
		acc = acc.merge(f.extractClass(class, source, file))
	}
	return acc
}

func (f *ForgeExtractor) extractClass(class *sitter.Node, source []byte, file string) Extraction {
	var acc Extraction
	className := text(class.ChildByFieldName("name"), source)

	var modNode *ir.Node
	for _, ann := range annotationsOf(class) {
		if annotationName(ann, source) != "Mod" {
			continue
		}
		modID := annotationValue(ann, source)
		if modID == "" {
			modID = strings.ToLower(className)
		}
		modNode = &ir.Node{
			ID:       nodeID(ir.KindModDeclaration, file, modID, startLine(class)),
			Kind:     ir.KindModDeclaration,
			Name:     modID,
			Location: location(class, file),
			Payload: &ir.ModDeclarationPayload{
				ModID:     modID,
				ClassName: className,
				Loader:    ir.LoaderForge,
			},
		}
		acc.Nodes = append(acc.Nodes, modNode)
	}

	if modNode != nil {
		entry := &ir.Node{
			ID:       nodeID(ir.KindEntryPoint, file, className, startLine(class)),
			Kind:     ir.KindEntryPoint,
			Name:     className,
			Location: location(class, file),
			Payload: &ir.EntryPointPayload{
				ClassName:  className,
				MethodName: className,
				Phase:      "common",
			},
		}
		acc.Nodes = append(acc.Nodes, entry)
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, entry.ID))
		modNode.Children = append(modNode.Children, entry.ID)

		acc = acc.merge(classHierarchyRefs(class, source, file, modNode))
	}

	body := class.ChildByFieldName("body")
	if body == nil {
		return acc
	}

	registries := forgeRegistries(body, source)

	for _, member := range namedChildren(body) {
		switch member.Type() {
		case "field_declaration":
			acc = acc.merge(f.extractField(member, source, file, modNode, registries, className))
		case "method_declaration":
			acc = acc.merge(f.extractMethod(member, source, file, modNode, className))
		case "constructor_declaration":
			acc = acc.merge(f.extractConstructor(member, source, file, modNode, registries))
		case "class_declaration":
			// Nested classes are walked separately by collectClasses.
		case "line_comment", "block_comment":
		default:
			acc = acc.merge(unknownMember(member, source, file))
		}
	}
	return acc
}

// forgeRegistries indexes DeferredRegister fields by name so register calls
// on them can be classified.
func forgeRegistries(body *sitter.Node, source []byte) map[string]ir.NodeKind {
	registries := make(map[string]ir.NodeKind)
	for _, member := range namedChildren(body) {
		if member.Type() != "field_declaration" {
			continue
		}
		for _, decl := range namedChildren(member) {
			if decl.Type() != "variable_declarator" {
				continue
			}
			value := decl.ChildByFieldName("value")
			if value == nil || value.Type() != "method_invocation" {
				continue
			}
			if calleePath(value, source) != "DeferredRegister.create" {
				continue
			}
			args := invocationArgs(value, source)
			if len(args) == 0 {
				continue
			}
			if kind, ok := registryKind(args[0]); ok {
				registries[text(decl.ChildByFieldName("name"), source)] = kind
			}
		}
	}
	return registries
}

// registryKind classifies a registry argument by its constant suffix, shared
// by the Forge and Fabric recognizers.
func registryKind(registryArg string) (ir.NodeKind, bool) {
	switch {
	case strings.HasSuffix(registryArg, ".BLOCKS"), strings.HasSuffix(registryArg, ".BLOCK"):
		return ir.KindBlockRegistration, true
	case strings.HasSuffix(registryArg, ".ITEMS"), strings.HasSuffix(registryArg, ".ITEM"):
		return ir.KindItemRegistration, true
	case strings.HasSuffix(registryArg, ".ENTITY_TYPES"), strings.HasSuffix(registryArg, ".ENTITY_TYPE"), strings.HasSuffix(registryArg, ".ENTITIES"):
		return ir.KindEntityRegistration, true
	default:
		return ir.KindUnknown, false
	}
}

func (f *ForgeExtractor) extractField(field *sitter.Node, source []byte, file string, modNode *ir.Node, registries map[string]ir.NodeKind, className string) Extraction {
	var acc Extraction
	fieldType := text(field.ChildByFieldName("type"), source)
	mods := modifiersText(field, source)

	// Registry plumbing carries no content of its own.
	if strings.HasPrefix(fieldType, "DeferredRegister") {
		return acc
	}

	for _, decl := range namedChildren(field) {
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := text(decl.ChildByFieldName("name"), source)
		value := decl.ChildByFieldName("value")

		if value != nil && value.Type() == "method_invocation" {
			callee := calleePath(value, source)
			if strings.HasSuffix(callee, ".register") {
				registry := strings.TrimSuffix(callee, ".register")
				if kind, ok := registries[registry]; ok {
					acc = acc.merge(forgeRegistration(kind, decl, value, source, file, modNode, name, registry))
					continue
				}
				if strings.HasPrefix(fieldType, "RegistryObject") {
					acc = acc.merge(unsupportedRegistry(decl, source, file, name, registry))
					continue
				}
			}
		}

		if strings.HasPrefix(fieldType, "ForgeConfigSpec") {
			acc = acc.merge(configProperty(decl, value, source, file, modNode, name))
			continue
		}

		acc = acc.merge(plainField(field, decl, source, file, modNode, name, fieldType, mods))
	}
	return acc
}

func forgeRegistration(kind ir.NodeKind, decl, value *sitter.Node, source []byte, file string, modNode *ir.Node, fieldName, registry string) Extraction {
	var acc Extraction
	args := invocationArgs(value, source)
	localID := ""
	if len(args) > 0 {
		localID = unquote(args[0])
	}
	if localID == "" || strings.ContainsAny(localID, "(). ") {
		localID = strings.ToLower(fieldName)
	}

	class := ""
	if created := firstDescendantOfType(value.ChildByFieldName("arguments"), "object_creation_expression"); created != nil {
		class = text(created.ChildByFieldName("type"), source)
	}

	var payload ir.Payload
	switch kind {
	case ir.KindItemRegistration:
		payload = &ir.ItemRegistrationPayload{LocalID: localID, ItemClass: class, Registry: registry}
	case ir.KindEntityRegistration:
		payload = &ir.EntityRegistrationPayload{LocalID: localID, EntityClass: class, Registry: registry}
	default:
		payload = &ir.BlockRegistrationPayload{LocalID: localID, BlockClass: class, Registry: registry}
	}

	node := &ir.Node{
		ID:       nodeID(kind, file, localID, startLine(decl)),
		Kind:     kind,
		Name:     fieldName,
		Location: location(decl, file),
		Payload:  payload,
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelRegisters, modNode.ID, node.ID))
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func unsupportedRegistry(decl *sitter.Node, source []byte, file, fieldName, registry string) Extraction {
	var acc Extraction
	acc.Nodes = append(acc.Nodes, &ir.Node{
		ID:       nodeID(ir.KindUnknown, file, fieldName, startLine(decl)),
		Kind:     ir.KindUnknown,
		Name:     fieldName,
		Location: location(decl, file),
		Payload: &ir.UnknownPayload{
			Reason: "unsupported registry " + registry,
			Source: text(decl, source),
		},
	})
	return acc
}

// configProperty reads a ForgeConfigSpec builder field. The define call
// carries the config key and its default value.
func configProperty(decl, value *sitter.Node, source []byte, file string, modNode *ir.Node, name string) Extraction {
	var acc Extraction

	key := name
	propValue, valueKind := strings.TrimSpace(text(value, source)), ir.ValueExpression
	if value != nil && value.Type() == "method_invocation" {
		if args := invocationArgs(value, source); len(args) > 0 && strings.HasPrefix(args[0], `"`) {
			key = unquote(args[0])
			if len(args) > 1 {
				propValue, valueKind = classifyValue(args[1])
			}
		}
	}

	node := &ir.Node{
		ID:       nodeID(ir.KindProperty, file, name, startLine(decl)),
		Kind:     ir.KindProperty,
		Name:     name,
		Location: location(decl, file),
		Payload: &ir.PropertyPayload{
			Key:       key,
			Value:     propValue,
			ValueKind: valueKind,
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func plainField(field, decl *sitter.Node, source []byte, file string, modNode *ir.Node, name, fieldType, mods string) Extraction {
	var acc Extraction
	value, valueKind := classifyValue(text(decl.ChildByFieldName("value"), source))
	node := &ir.Node{
		ID:       nodeID(ir.KindField, file, name, startLine(field)),
		Kind:     ir.KindField,
		Name:     name,
		Location: location(field, file),
		Payload: &ir.FieldPayload{
			FieldType:    fieldType,
			InitialValue: value,
			ValueKind:    valueKind,
			Static:       strings.Contains(mods, "static"),
			Final:        strings.Contains(mods, "final"),
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func (f *ForgeExtractor) extractMethod(method *sitter.Node, source []byte, file string, modNode *ir.Node, className string) Extraction {
	var acc Extraction
	name := text(method.ChildByFieldName("name"), source)
	params := methodParams(method, source)
	body := simplifyBody(method.ChildByFieldName("body"), source)

	for _, ann := range annotationsOf(method) {
		if annotationName(ann, source) != "SubscribeEvent" {
			continue
		}
		eventType := ""
		paramName := ""
		if len(params) > 0 {
			eventType = params[0].Type
			paramName = params[0].Name
		}
		node := &ir.Node{
			ID:       nodeID(ir.KindEventHandler, file, name, startLine(method)),
			Kind:     ir.KindEventHandler,
			Name:     name,
			Location: location(method, file),
			Payload: &ir.EventHandlerPayload{
				MethodName: name,
				EventType:  eventType,
				ParamName:  paramName,
				Body:       body,
				Source:     text(method, source),
			},
		}
		acc.Nodes = append(acc.Nodes, node)
		if modNode != nil {
			acc.Relationships = append(acc.Relationships, relationship(ir.RelHandles, modNode.ID, node.ID))
			acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
			modNode.Children = append(modNode.Children, node.ID)
		}
		return acc
	}

	return acc.merge(plainMethod(method, source, file, modNode, className))
}

// extractConstructor keeps only the statements of a mod constructor that are
// not loader plumbing. Event-bus attachment has no target equivalent; the
// registrations it wires are captured from the registry fields themselves.
func (f *ForgeExtractor) extractConstructor(ctor *sitter.Node, source []byte, file string, modNode *ir.Node, registries map[string]ir.NodeKind) Extraction {
	var acc Extraction
	body := simplifyBody(ctor.ChildByFieldName("body"), source)

	var leftovers []ir.Statement
	for _, stmt := range body {
		if isForgePlumbing(stmt, registries) {
			continue
		}
		leftovers = append(leftovers, stmt)
	}
	if len(leftovers) == 0 {
		return acc
	}

	node := &ir.Node{
		ID:       nodeID(ir.KindFunction, file, "init", startLine(ctor)),
		Kind:     ir.KindFunction,
		Name:     "init",
		Location: location(ctor, file),
		Payload: &ir.FunctionPayload{
			Body:   leftovers,
			Source: text(ctor, source),
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func isForgePlumbing(stmt ir.Statement, registries map[string]ir.NodeKind) bool {
	if stmt.Kind == ir.StatementAssign {
		return strings.Contains(stmt.Value, "ModLoadingContext") ||
			strings.Contains(stmt.Value, "getModEventBus")
	}
	if stmt.Kind != ir.StatementCall {
		return false
	}
	if strings.HasSuffix(stmt.Callee, ".register") {
		registry := strings.TrimSuffix(stmt.Callee, ".register")
		if _, ok := registries[registry]; ok && len(stmt.Args) == 1 && !strings.HasPrefix(stmt.Args[0], `"`) {
			return true
		}
		if strings.Contains(stmt.Callee, "EVENT_BUS") {
			return true
		}
	}
	return strings.Contains(stmt.Callee, "ModLoadingContext") ||
		strings.Contains(stmt.Callee, "FMLJavaModLoadingContext")
}

// classHierarchyRefs emits reference nodes for the superclass and interfaces
// of the mod class.
func classHierarchyRefs(class *sitter.Node, source []byte, file string, modNode *ir.Node) Extraction {
	var acc Extraction
	addRef := func(target string, kind ir.RelationshipKind) {
		if target == "" {
			return
		}
		ref := &ir.Node{
			ID:       nodeID(ir.KindReference, file, target, startLine(class)),
			Kind:     ir.KindReference,
			Name:     target,
			Location: location(class, file),
			Payload:  &ir.ReferencePayload{Target: target, RefType: "type"},
		}
		acc.Nodes = append(acc.Nodes, ref)
		acc.Relationships = append(acc.Relationships, relationship(kind, modNode.ID, ref.ID))
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, ref.ID))
		modNode.Children = append(modNode.Children, ref.ID)
	}

	if superclass := class.ChildByFieldName("superclass"); superclass != nil {
		addRef(typeRefName(superclass, source), ir.RelExtends)
	}
	for _, name := range collectTypeRefs(class.ChildByFieldName("interfaces"), source) {
		addRef(name, ir.RelImplements)
	}
	return acc
}
