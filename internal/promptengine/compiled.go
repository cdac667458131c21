package promptengine

import "strings"

// renderBuf accumulates rendered output. It is a thin wrapper over
// strings.Builder so node.render has a narrow, mockable interface.
type renderBuf struct {
	strings.Builder
}

// CompiledTemplate is a parsed template source ready to render repeatedly
// against different variable sets without re-parsing.
type CompiledTemplate struct {
	source string
	nodes  []node
}

// Source returns the original template text this CompiledTemplate was
// compiled from.
func (c *CompiledTemplate) Source() string {
	return c.source
}

// Render substitutes vars into the compiled template and returns the
// result. Rendering never fails: an unresolved variable passes through as
// its original "{{...}}" text rather than raising an error.
func (c *CompiledTemplate) Render(vars map[string]any) string {
	var buf renderBuf
	s := newScope(vars)
	for _, n := range c.nodes {
		n.render(&buf, s)
	}
	return buf.String()
}

// compile parses src into a CompiledTemplate.
func compile(src string) (*CompiledTemplate, error) {
	nodes, err := parse(src)
	if err != nil {
		return nil, err
	}
	return &CompiledTemplate{source: src, nodes: nodes}, nil
}
