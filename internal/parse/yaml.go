package parse

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/token"

	"github.com/jacoelho/treeview/internal/docerr"
	"github.com/jacoelho/treeview/internal/value"
)

// YAML parses a stream of YAML documents. A single document yields one
// unlabeled root; a multi-document stream yields one root per document
// labeled by position.
func YAML(data []byte, opts Options) ([]value.Root, error) {
	file, err := parser.ParseBytes(data, 0, parser.AllowDuplicateMapKey())
	if err != nil {
		return nil, yamlError(err)
	}

	budget := &nodeBudget{limit: opts.maxNodes()}
	var roots []value.Root
	for _, doc := range file.Docs {
		body := doc.Body
		if _, ok := body.(*ast.CommentGroupNode); ok {
			body = nil
		}
		if body == nil {
			if doc.Start == nil {
				continue
			}
			if err := budget.add(1); err != nil {
				return nil, err
			}
			roots = append(roots, value.Root{Value: value.NewNull()})
			continue
		}

		c := &yamlConverter{
			anchors:  make(map[string]*anchorState),
			maxDepth: opts.maxDepth(),
			budget:   budget,
		}
		v, err := c.convert(body, 0)
		if err != nil {
			return nil, err
		}
		roots = append(roots, value.Root{Value: v})
	}

	if len(roots) > 1 {
		for i := range roots {
			roots[i].Index, roots[i].Indexed = i, true
		}
	}
	return roots, nil
}

func yamlError(err error) error {
	var syntaxErr *yaml.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := tokenPosition(syntaxErr.GetToken())
		return docerr.At(line, col, "%s", syntaxErr.GetMessage())
	}
	return docerr.Wrap(docerr.ParseError, err, "yaml")
}

func tokenPosition(tk *token.Token) (int, int) {
	if tk == nil || tk.Position == nil {
		return 0, 0
	}
	return tk.Position.Line, tk.Position.Column
}

func nodeError(kind docerr.Kind, n ast.Node, format string, args ...any) error {
	line, col := tokenPosition(n.GetToken())
	return &docerr.Error{Kind: kind, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// nodeBudget counts the nodes a stream expands to. Aliases share their
// anchored value, so a small input can describe a huge tree.
type nodeBudget struct {
	used  int64
	limit int64
}

func (b *nodeBudget) add(n int64) error {
	b.used += n
	if b.used > b.limit {
		return docerr.New(docerr.ResourceLimit, "yaml expands to more than %d nodes", b.limit)
	}
	return nil
}

// anchorState tracks an anchor while its value is converted so that an
// alias reaching back into it can be reported as a cycle. size is the number
// of nodes the anchored value expands to.
type anchorState struct {
	value     value.Value
	size      int64
	resolving bool
}

// yamlConverter holds the anchors of a single document.
type yamlConverter struct {
	anchors  map[string]*anchorState
	maxDepth int
	budget   *nodeBudget
}

func (c *yamlConverter) convert(n ast.Node, depth int) (value.Value, error) {
	if depth > c.maxDepth {
		return value.Value{}, depthError(c.maxDepth)
	}

	switch n.(type) {
	case *ast.AnchorNode, *ast.AliasNode, *ast.TagNode, *ast.MappingKeyNode:
	default:
		if err := c.budget.add(1); err != nil {
			return value.Value{}, err
		}
	}

	switch n := n.(type) {
	case nil:
		return value.NewNull(), nil
	case *ast.NullNode:
		return value.NewNull(), nil
	case *ast.BoolNode:
		return value.NewBool(n.Value), nil
	case *ast.IntegerNode:
		return integerValue(n)
	case *ast.FloatNode:
		if lit := n.Token.Value; value.IsNumberLiteral(lit) {
			return value.NewNumber(lit, false), nil
		}
		return value.NewFloat(n.Value, 64), nil
	case *ast.InfinityNode:
		return value.NewString(n.Token.Value), nil
	case *ast.NanNode:
		return value.NewString(n.Token.Value), nil
	case *ast.StringNode:
		return value.NewString(n.Value), nil
	case *ast.LiteralNode:
		if n.Value == nil {
			return value.NewString(""), nil
		}
		return value.NewString(n.Value.Value), nil
	case *ast.MappingNode:
		return c.mapping(n.Values, depth)
	case *ast.MappingValueNode:
		return c.mapping([]*ast.MappingValueNode{n}, depth)
	case *ast.MappingKeyNode:
		return c.convert(n.Value, depth)
	case *ast.SequenceNode:
		items := make([]value.Value, 0, len(n.Values))
		for _, item := range n.Values {
			v, err := c.convert(item, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.NewArray(items), nil
	case *ast.AnchorNode:
		return c.anchor(n, depth)
	case *ast.AliasNode:
		return c.alias(n)
	case *ast.TagNode:
		return c.tagged(n, depth)
	case *ast.CommentGroupNode:
		return value.NewNull(), nil
	default:
		return value.Value{}, nodeError(docerr.ParseError, n, "unsupported yaml node %s", n.Type())
	}
}

func integerValue(n *ast.IntegerNode) (value.Value, error) {
	switch v := n.Value.(type) {
	case int64:
		return value.NewInt(v), nil
	case uint64:
		return value.NewUint(v), nil
	default:
		return value.Value{}, nodeError(docerr.ParseError, n, "invalid integer %q", n.Token.Value)
	}
}

func (c *yamlConverter) anchor(n *ast.AnchorNode, depth int) (value.Value, error) {
	name := n.Name.GetToken().Value
	state := &anchorState{resolving: true}
	c.anchors[name] = state

	before := c.budget.used
	v, err := c.convert(n.Value, depth)
	if err != nil {
		return value.Value{}, err
	}
	state.value, state.size, state.resolving = v, c.budget.used-before, false
	return v, nil
}

func (c *yamlConverter) alias(n *ast.AliasNode) (value.Value, error) {
	name := n.Value.GetToken().Value
	state, ok := c.anchors[name]
	if !ok {
		return value.Value{}, nodeError(docerr.ParseError, n, "unknown anchor %q", name)
	}
	if state.resolving {
		return value.Value{}, nodeError(docerr.CycleDetected, n, "alias %q refers to an enclosing node", name)
	}
	if err := c.budget.add(state.size); err != nil {
		return value.Value{}, err
	}
	return state.value, nil
}

type yamlPair struct {
	key   string
	value value.Value
	merge *ast.MappingValueNode
}

func (c *yamlConverter) mapping(nodes []*ast.MappingValueNode, depth int) (value.Value, error) {
	pairs := make([]yamlPair, 0, len(nodes))
	explicit := make(map[string]struct{}, len(nodes))
	for _, node := range nodes {
		var pair yamlPair
		if isMergeKey(node.Key) {
			pair.merge = node
		} else {
			key, err := c.keyText(node.Key, depth)
			if err != nil {
				return value.Value{}, err
			}
			pair.key = key
			explicit[key] = struct{}{}
		}

		v, err := c.convert(node.Value, depth+1)
		if err != nil {
			return value.Value{}, err
		}
		pair.value = v
		pairs = append(pairs, pair)
	}

	obj := value.NewObjectBuilder(len(pairs))
	for _, pair := range pairs {
		if pair.merge != nil {
			if err := merge(obj, explicit, pair.merge, pair.value); err != nil {
				return value.Value{}, err
			}
			continue
		}
		obj.Set(pair.key, pair.value)
	}
	return obj.Build(), nil
}

func isMergeKey(key ast.MapKeyNode) bool {
	return key != nil && key.IsMergeKey()
}

// merge copies members of the merged mappings that are not defined
// explicitly. Earlier sources in a merge sequence take precedence.
func merge(obj *value.ObjectBuilder, explicit map[string]struct{}, pair *ast.MappingValueNode, v value.Value) error {
	sources := []value.Value{v}
	if v.Kind() == value.Array {
		sources = v.Items()
	}
	for _, src := range sources {
		if src.Kind() != value.Object {
			return nodeError(docerr.ParseError, pair.Value, "merge value must be a mapping or a sequence of mappings")
		}
		for _, m := range src.Members() {
			if _, ok := explicit[m.Key]; ok {
				continue
			}
			obj.SetIfAbsent(m.Key, m.Value)
		}
	}
	return nil
}

// keyText renders a mapping key as text. Non-scalar keys use their JSON form.
func (c *yamlConverter) keyText(key ast.MapKeyNode, depth int) (string, error) {
	if s, ok := key.(*ast.StringNode); ok {
		return s.Value, nil
	}
	v, err := c.convert(key, depth+1)
	if err != nil {
		return "", err
	}
	if v.Kind().IsContainer() {
		return string(value.AppendJSON(nil, v)), nil
	}
	return v.Text(), nil
}

func (c *yamlConverter) tagged(n *ast.TagNode, depth int) (value.Value, error) {
	tag := token.ReservedTagKeyword(n.Start.Value)

	switch tag {
	case token.StringTag, token.NullTag, token.BinaryTag:
		if err := c.budget.add(1); err != nil {
			return value.Value{}, err
		}
	}

	switch tag {
	case token.StringTag:
		return value.NewString(scalarSource(n.Value)), nil
	case token.NullTag:
		return value.NewNull(), nil
	case token.BinaryTag:
		raw := strings.Join(strings.Fields(scalarSource(n.Value)), "")
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return value.Value{}, nodeError(docerr.ParseError, n, "invalid !!binary: %v", err)
		}
		return value.NewBinary(b), nil
	}

	v, err := c.convert(n.Value, depth)
	if err != nil {
		return value.Value{}, err
	}

	switch tag {
	case token.IntegerTag:
		return coerceNumber(n, v, true)
	case token.FloatTag:
		return coerceNumber(n, v, false)
	case token.BooleanTag:
		if v.Kind() == value.Bool {
			return v, nil
		}
		b, err := strconv.ParseBool(v.Text())
		if err != nil {
			return value.Value{}, nodeError(docerr.ParseError, n, "invalid !!bool %q", v.Text())
		}
		return value.NewBool(b), nil
	case token.TimestampTag:
		return value.NewString(scalarSource(n.Value)), nil
	default:
		return v, nil
	}
}

func coerceNumber(n *ast.TagNode, v value.Value, wantInt bool) (value.Value, error) {
	switch {
	case v.Kind() == value.Number && (!wantInt || v.IsInt()):
		return value.NewNumber(v.Literal(), wantInt && v.IsInt()), nil
	case v.Kind() == value.String && value.IsNumberLiteral(v.Str()):
		lit := v.Str()
		if wantInt && !value.IsIntLiteral(lit) {
			break
		}
		return value.NewNumber(lit, value.IsIntLiteral(lit)), nil
	case v.Kind() == value.String && !wantInt:
		// .inf and .nan have no number literal.
		return v, nil
	}
	return value.Value{}, nodeError(docerr.ParseError, n, "value %q does not match tag %s", v.Text(), n.Start.Value)
}

// scalarSource is the unresolved text of a scalar node.
func scalarSource(n ast.Node) string {
	switch n := n.(type) {
	case nil:
		return ""
	case *ast.StringNode:
		return n.Value
	case *ast.LiteralNode:
		if n.Value == nil {
			return ""
		}
		return n.Value.Value
	default:
		if tk := n.GetToken(); tk != nil {
			return tk.Value
		}
		return ""
	}
}
