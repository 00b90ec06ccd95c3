package extractor

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"modport/internal/ir"
)

// Extraction is the accumulated output of one recognition walk. Walk
// functions return extractions and callers merge them, so the recursion
// carries no shared mutable state.
type Extraction struct {
	Nodes         []*ir.Node
	Relationships []*ir.Relationship
}

func (e Extraction) merge(other Extraction) Extraction {
	e.Nodes = append(e.Nodes, other.Nodes...)
	e.Relationships = append(e.Relationships, other.Relationships...)
	return e
}

// LoaderExtractor recognizes one loader's mod structure in a parsed syntax
// tree. Implementations differ only in how entry points, event subscriptions
// and registration calls look; both funnel into the same node and
// relationship shapes.
type LoaderExtractor interface {
	Loader() ir.Loader
	Extract(root *sitter.Node, source []byte, file string) Extraction
	ExtractMetadata(root *sitter.Node, source []byte) ir.Metadata
}

// Extractor builds IR contexts using a loader-specific extractor.
type Extractor struct {
	loaderExtractor LoaderExtractor
}

// New creates an extractor for the given loader.
func New(loader ir.Loader) (*Extractor, error) {
	switch loader {
	case ir.LoaderForge:
		return &Extractor{loaderExtractor: &ForgeExtractor{}}, nil
	case ir.LoaderFabric:
		return &Extractor{loaderExtractor: &FabricExtractor{}}, nil
	default:
		return nil, fmt.Errorf("unsupported loader: %s", loader)
	}
}

// Metadata returns the partial metadata record recognized in the tree. The
// caller merges it over its defaults.
func (e *Extractor) Metadata(root *sitter.Node, source []byte) ir.Metadata {
	return e.loaderExtractor.ExtractMetadata(root, source)
}

// BuildContext extracts the mod structure of one parsed source file into a
// fresh IR context, merging recognized metadata over the given defaults.
// Malformed or unrecognizable input never fails: the result always contains
// at least a mod declaration root, so downstream stages have something to
// operate on.
func (e *Extractor) BuildContext(root *sitter.Node, source []byte, file string, defaults ir.Metadata) *ir.Context {
	partial := e.loaderExtractor.ExtractMetadata(root, source)
	meta := defaults.Merge(partial)
	if meta.ModID == "" {
		meta.ModID = "unknown_mod"
	}
	if meta.Loader == "" {
		meta.Loader = e.loaderExtractor.Loader()
	}

	ctx := ir.NewContext(meta)
	extraction := e.loaderExtractor.Extract(root, source, file)

	rootNode := findModDeclaration(extraction.Nodes)
	if rootNode == nil {
		rootNode = &ir.Node{
			ID:   nodeID(ir.KindModDeclaration, file, meta.ModID, 0),
			Kind: ir.KindModDeclaration,
			Name: meta.ModID,
			Payload: &ir.ModDeclarationPayload{
				ModID:  meta.ModID,
				Loader: meta.Loader,
			},
		}
		ctx.AddNode(rootNode)
	}

	for _, n := range extraction.Nodes {
		ctx.AddNode(n)
	}
	for _, r := range extraction.Relationships {
		ctx.AddRelationship(r)
	}

	// Any node not yet contained anywhere hangs off the root so the context
	// stays a connected tree.
	contained := make(map[string]bool)
	for _, r := range extraction.Relationships {
		if r.Kind == ir.RelContains {
			contained[r.TargetID] = true
		}
	}
	for _, n := range extraction.Nodes {
		if n == rootNode || contained[n.ID] {
			continue
		}
		rootNode.Children = append(rootNode.Children, n.ID)
		ctx.AddRelationship(relationship(ir.RelContains, rootNode.ID, n.ID))
	}

	return ctx
}

func findModDeclaration(nodes []*ir.Node) *ir.Node {
	for _, n := range nodes {
		if n.Kind == ir.KindModDeclaration {
			return n
		}
	}
	return nil
}

func relationship(kind ir.RelationshipKind, sourceID, targetID string) *ir.Relationship {
	return &ir.Relationship{
		ID:       fmt.Sprintf("rel:%s:%s->%s", kind, sourceID, targetID),
		SourceID: sourceID,
		TargetID: targetID,
		Kind:     kind,
	}
}
