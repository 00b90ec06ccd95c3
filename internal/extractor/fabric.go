package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"modport/internal/ir"
)

// FabricExtractor recognizes Fabric mod structure: initializer
// implementations, Registry.register calls and callback-style event
// subscriptions.
type FabricExtractor struct{}

func (f *FabricExtractor) Loader() ir.Loader { return ir.LoaderFabric }

var fabricEntryPoints = []struct {
	Iface  string
	Method string
	Phase  string
}{
	{"ModInitializer", "onInitialize", "common"},
	{"ClientModInitializer", "onInitializeClient", "client"},
	{"DedicatedServerModInitializer", "onInitializeServer", "server"},
}

func (f *FabricExtractor) ExtractMetadata(root *sitter.Node, source []byte) ir.Metadata {
	meta := ir.Metadata{Loader: ir.LoaderFabric}
	for _, class := range collectClasses(root) {
		if id := modIDConstant(class, source); id != "" {
			meta.ModID = id
			break
		}
	}
	return meta
}

func (f *FabricExtractor) Extract(root *sitter.Node, source []byte, file string) Extraction {
	var acc Extraction
	for _, class := range collectClasses(root) {
		acc = acc.merge(f.extractClass(class, source, file))
	}
	return acc
}

func (f *FabricExtractor) extractClass(class *sitter.Node, source []byte, file string) Extraction {
	var acc Extraction
	className := text(class.ChildByFieldName("name"), source)
	implemented := collectTypeRefs(class.ChildByFieldName("interfaces"), source)

	var modNode *ir.Node
	for _, entry := range fabricEntryPoints {
		if !implementsInterface(implemented, entry.Iface) {
			continue
		}
		if modNode == nil {
			modID := modIDConstant(class, source)
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
					Loader:    ir.LoaderFabric,
				},
			}
			acc.Nodes = append(acc.Nodes, modNode)
		}
		entryNode := &ir.Node{
			ID:       nodeID(ir.KindEntryPoint, file, entry.Method, startLine(class)),
			Kind:     ir.KindEntryPoint,
			Name:     entry.Method,
			Location: location(class, file),
			Payload: &ir.EntryPointPayload{
				ClassName:  className,
				MethodName: entry.Method,
				Phase:      entry.Phase,
			},
		}
		acc.Nodes = append(acc.Nodes, entryNode)
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, entryNode.ID))
		modNode.Children = append(modNode.Children, entryNode.ID)
	}

	if modNode != nil {
		acc = acc.merge(classHierarchyRefs(class, source, file, modNode))
	}

	body := class.ChildByFieldName("body")
	if body == nil {
		return acc
	}

	for _, member := range namedChildren(body) {
		switch member.Type() {
		case "field_declaration":
			acc = acc.merge(f.extractField(member, source, file, modNode))
		case "method_declaration":
			name := text(member.ChildByFieldName("name"), source)
			if modNode != nil && isFabricInitMethod(name) {
				acc = acc.merge(f.extractInitializer(member, source, file, modNode, name))
			} else {
				acc = acc.merge(plainMethod(member, source, file, modNode, className))
			}
		case "constructor_declaration":
			acc = acc.merge(f.extractConstructor(member, source, file, modNode))
		case "class_declaration":
			// Nested classes are walked separately by collectClasses.
		case "line_comment", "block_comment":
		default:
			acc = acc.merge(unknownMember(member, source, file))
		}
	}
	return acc
}

func implementsInterface(implemented []string, iface string) bool {
	for _, name := range implemented {
		if name == iface || strings.HasSuffix(name, "."+iface) {
			return true
		}
	}
	return false
}

func isFabricInitMethod(name string) bool {
	for _, entry := range fabricEntryPoints {
		if entry.Method == name {
			return true
		}
	}
	return false
}

func (f *FabricExtractor) extractField(field *sitter.Node, source []byte, file string, modNode *ir.Node) Extraction {
	var acc Extraction
	fieldType := text(field.ChildByFieldName("type"), source)
	mods := modifiersText(field, source)

	for _, decl := range namedChildren(field) {
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := text(decl.ChildByFieldName("name"), source)
		value := decl.ChildByFieldName("value")

		if value != nil && value.Type() == "method_invocation" && calleePath(value, source) == "Registry.register" {
			acc = acc.merge(f.registration(value, source, file, modNode, name))
			continue
		}

		acc = acc.merge(plainField(field, decl, source, file, modNode, name, fieldType, mods))
	}
	return acc
}

// registration turns a Registry.register invocation into a registration
// node. The name argument is the field name when the call initializes a
// field, empty for statement-level calls.
func (f *FabricExtractor) registration(inv *sitter.Node, source []byte, file string, modNode *ir.Node, fieldName string) Extraction {
	var acc Extraction
	args := namedChildren(inv.ChildByFieldName("arguments"))

	registry := ""
	kind := ir.NodeKind("")
	if len(args) > 0 {
		registry = text(args[0], source)
		if k, ok := registryKind(registry); ok {
			kind = k
		}
	}

	localID := ""
	if len(args) > 1 {
		if lit := firstDescendantOfType(args[1], "string_literal"); lit != nil {
			localID = unquote(text(lit, source))
		}
	}
	if localID == "" {
		localID = strings.ToLower(fieldName)
	}

	name := fieldName
	if name == "" {
		name = localID
	}

	if kind == "" {
		acc.Nodes = append(acc.Nodes, &ir.Node{
			ID:       nodeID(ir.KindUnknown, file, name, startLine(inv)),
			Kind:     ir.KindUnknown,
			Name:     name,
			Location: location(inv, file),
			Payload: &ir.UnknownPayload{
				Reason: "unsupported registry " + registry,
				Source: text(inv, source),
			},
		})
		return acc
	}

	class := ""
	if len(args) > 2 {
		if created := firstDescendantOfType(args[2], "object_creation_expression"); created != nil {
			class = text(created.ChildByFieldName("type"), source)
		}
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
		ID:       nodeID(kind, file, localID, startLine(inv)),
		Kind:     kind,
		Name:     name,
		Location: location(inv, file),
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

// extractInitializer walks an initializer method body, lifting registrations
// and event subscriptions into their own nodes. Whatever remains stays
// together as an init function.
func (f *FabricExtractor) extractInitializer(method *sitter.Node, source []byte, file string, modNode *ir.Node, methodName string) Extraction {
	var acc Extraction
	block := method.ChildByFieldName("body")

	var leftovers []ir.Statement
	for _, stmt := range namedChildren(block) {
		if stmt.Type() == "line_comment" || stmt.Type() == "block_comment" {
			continue
		}
		if stmt.Type() == "expression_statement" {
			if inv := firstOfType(stmt, "method_invocation"); inv != nil {
				callee := calleePath(inv, source)
				if callee == "Registry.register" {
					acc = acc.merge(f.registration(inv, source, file, modNode, ""))
					continue
				}
				if strings.HasSuffix(callee, ".register") && hasCallbackArg(inv) {
					acc = acc.merge(f.eventListener(inv, source, file, modNode, callee))
					continue
				}
			}
		}
		leftovers = append(leftovers, simplifyStatement(stmt, source))
	}

	if len(leftovers) == 0 {
		return acc
	}

	node := &ir.Node{
		ID:       nodeID(ir.KindFunction, file, methodName, startLine(method)),
		Kind:     ir.KindFunction,
		Name:     methodName,
		Location: location(method, file),
		Payload: &ir.FunctionPayload{
			Body:   leftovers,
			Source: text(method, source),
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func hasCallbackArg(inv *sitter.Node) bool {
	args := inv.ChildByFieldName("arguments")
	return firstDescendantOfType(args, "lambda_expression") != nil ||
		firstDescendantOfType(args, "method_reference") != nil
}

func (f *FabricExtractor) eventListener(inv *sitter.Node, source []byte, file string, modNode *ir.Node, callee string) Extraction {
	var acc Extraction
	eventType := strings.TrimSuffix(callee, ".register")

	var body []ir.Statement
	callback := ""
	args := inv.ChildByFieldName("arguments")
	if lambda := firstDescendantOfType(args, "lambda_expression"); lambda != nil {
		lambdaBody := lambda.ChildByFieldName("body")
		if lambdaBody != nil && lambdaBody.Type() == "block" {
			body = simplifyBody(lambdaBody, source)
		} else if lambdaBody != nil {
			body = []ir.Statement{simplifyStatement(lambdaBody, source)}
		}
	} else if ref := firstDescendantOfType(args, "method_reference"); ref != nil {
		callback = text(ref, source)
	}

	node := &ir.Node{
		ID:       nodeID(ir.KindEventListener, file, eventType, startLine(inv)),
		Kind:     ir.KindEventListener,
		Name:     eventType,
		Location: location(inv, file),
		Payload: &ir.EventListenerPayload{
			EventType: eventType,
			Callback:  callback,
			Body:      body,
			Source:    text(inv, source),
		},
	}
	acc.Nodes = append(acc.Nodes, node)
	if modNode != nil {
		acc.Relationships = append(acc.Relationships, relationship(ir.RelListens, modNode.ID, node.ID))
		acc.Relationships = append(acc.Relationships, relationship(ir.RelContains, modNode.ID, node.ID))
		modNode.Children = append(modNode.Children, node.ID)
	}
	return acc
}

func (f *FabricExtractor) extractConstructor(ctor *sitter.Node, source []byte, file string, modNode *ir.Node) Extraction {
	var acc Extraction
	body := simplifyBody(ctor.ChildByFieldName("body"), source)
	if len(body) == 0 {
		return acc
	}

	node := &ir.Node{
		ID:       nodeID(ir.KindFunction, file, "init", startLine(ctor)),
		Kind:     ir.KindFunction,
		Name:     "init",
		Location: location(ctor, file),
		Payload: &ir.FunctionPayload{
			Body:   body,
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
