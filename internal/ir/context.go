package ir

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one vertex of the intermediate representation.
type Node struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Name     string          `json:"name"`
	Location *SourceLocation `json:"location,omitempty"`
	Payload  Payload         `json:"payload,omitempty"`
	Children []string        `json:"children,omitempty"`
}

type nodeEnvelope struct {
	ID       string          `json:"id"`
	Kind     NodeKind        `json:"kind"`
	Name     string          `json:"name"`
	Location *SourceLocation `json:"location,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Children []string        `json:"children,omitempty"`
}

// MarshalJSON encodes the node with its payload inlined under "payload".
func (n Node) MarshalJSON() ([]byte, error) {
	env := nodeEnvelope{
		ID:       n.ID,
		Kind:     n.Kind,
		Name:     n.Name,
		Location: n.Location,
		Children: n.Children,
	}
	if n.Payload != nil {
		raw, err := json.Marshal(n.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload of node %s: %w", n.ID, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the node, picking the payload type by kind.
func (n *Node) UnmarshalJSON(data []byte) error {
	var env nodeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	n.ID = env.ID
	n.Kind = env.Kind
	n.Name = env.Name
	n.Location = env.Location
	n.Children = env.Children
	n.Payload = nil
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		payload, err := NewPayload(env.Kind)
		if err != nil {
			return fmt.Errorf("failed to decode node %s: %w", env.ID, err)
		}
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return fmt.Errorf("failed to decode payload of node %s: %w", env.ID, err)
		}
		n.Payload = payload
	}
	return nil
}

// Context is the complete intermediate representation of one translation
// unit. It is built once by the extractor and treated as read-only
// afterwards; refinement passes attach annotations instead of mutating
// nodes.
type Context struct {
	Nodes         []*Node           `json:"nodes"`
	Relationships []*Relationship   `json:"relationships,omitempty"`
	Metadata      Metadata          `json:"metadata"`
	Annotations   map[string]string `json:"annotations,omitempty"`

	// Lookup index, rebuilt lazily after JSON decoding.
	index map[string]*Node
}

// NewContext creates an empty context carrying the given metadata.
func NewContext(meta Metadata) *Context {
	return &Context{
		Metadata: meta,
		index:    make(map[string]*Node),
	}
}

// AddNode appends a node and indexes it by ID. Nil nodes are ignored.
func (c *Context) AddNode(n *Node) {
	if n == nil {
		return
	}
	if c.index == nil {
		c.index = make(map[string]*Node)
	}
	c.Nodes = append(c.Nodes, n)
	c.index[n.ID] = n
}

// AddRelationship appends a relationship. Nil relationships are ignored.
func (c *Context) AddRelationship(r *Relationship) {
	if r == nil {
		return
	}
	c.Relationships = append(c.Relationships, r)
}

// Node returns the node with the given ID.
func (c *Context) Node(id string) (*Node, bool) {
	if c.index == nil {
		c.index = make(map[string]*Node, len(c.Nodes))
		for _, n := range c.Nodes {
			c.index[n.ID] = n
		}
	}
	n, ok := c.index[id]
	return n, ok
}

// NodesOfKind returns all nodes of the given kind in insertion order.
func (c *Context) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range c.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Annotate attaches a derived attribute to the context without touching any
// node.
func (c *Context) Annotate(key, value string) {
	if c.Annotations == nil {
		c.Annotations = make(map[string]string)
	}
	c.Annotations[key] = value
}

// Validate checks the referential invariants: every child ID and every
// relationship endpoint resolves within the context, and every unknown node
// carries a reason.
func (c *Context) Validate() error {
	for _, n := range c.Nodes {
		for _, child := range n.Children {
			if _, ok := c.Node(child); !ok {
				return fmt.Errorf("node %s references missing child %s", n.ID, child)
			}
		}
		if n.Kind == KindUnknown {
			payload, ok := n.Payload.(*UnknownPayload)
			if !ok || strings.TrimSpace(payload.Reason) == "" {
				return fmt.Errorf("unknown node %s carries no reason", n.ID)
			}
		}
	}
	for _, r := range c.Relationships {
		if _, ok := c.Node(r.SourceID); !ok {
			return fmt.Errorf("relationship %s references missing source %s", r.ID, r.SourceID)
		}
		if _, ok := c.Node(r.TargetID); !ok {
			return fmt.Errorf("relationship %s references missing target %s", r.ID, r.TargetID)
		}
	}
	return nil
}
