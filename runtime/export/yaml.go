package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tuyuji/ako/core/value"
)

func (c *config) encodeYAML(w io.Writer, doc *value.Value) error {
	root, err := c.yamlNode(doc)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(len(c.indent))
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return enc.Close()
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}

func yamlFloat(f float32) *yaml.Node {
	switch {
	case math.IsNaN(float64(f)):
		return scalar("!!float", ".nan")
	case math.IsInf(float64(f), 1):
		return scalar("!!float", ".inf")
	case math.IsInf(float64(f), -1):
		return scalar("!!float", "-.inf")
	}
	return scalar("!!float", formatFloat(f))
}

func (c *config) yamlNode(v *value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.KindNull:
		return scalar("!!null", "null"), nil
	case value.KindBool:
		b, _ := v.AsBool()
		return scalar("!!bool", strconv.FormatBool(b)), nil
	case value.KindInt:
		i, _ := v.AsInt()
		return scalar("!!int", strconv.FormatInt(int64(i), 10)), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return yamlFloat(f), nil
	case value.KindString:
		s, _ := v.AsString()
		return scalar("!!str", s), nil
	case value.KindShortType:
		n := scalar("!!str", c.shortTypeName(v))
		n.Style = yaml.DoubleQuotedStyle
		return n, nil
	case value.KindVector:
		comps, _ := v.AsVector()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, f := range comps {
			seq.Content = append(seq.Content, yamlFloat(f))
		}
		return seq, nil
	case value.KindTable:
		tbl, _ := v.AsTable()
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for key, child := range tbl.All() {
			n, err := c.yamlNode(child)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, scalar("!!str", key), n)
		}
		return m, nil
	case value.KindArray:
		elems, _ := v.AsArray()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, child := range elems {
			n, err := c.yamlNode(child)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("yaml: unhandled kind %s", v.Kind())
	}
}

// decodeYAML walks the node tree so mapping keys keep their order.
func decodeYAML(r io.Reader) (*value.Value, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return value.EmptyTable(), nil
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}

	v, err := fromYAML(&doc)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if v.IsNull() {
		return value.EmptyTable(), nil
	}
	return v, nil
}

func fromYAML(n *yaml.Node) (*value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		tbl := value.NewTable()
		if err := mappingInto(tbl, n); err != nil {
			return nil, err
		}
		return value.TableOf(tbl), nil
	case yaml.SequenceNode:
		elems := make([]*value.Value, 0, len(n.Content))
		for i, child := range n.Content {
			v, err := fromYAML(child)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems = append(elems, v)
		}
		return value.Array(elems...), nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %v", n.Line, n.Kind)
	}
}

func mappingInto(tbl *value.Table, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]

		// "<<: *defaults" fills in keys the mapping does not set itself
		if key.ShortTag() == "!!merge" {
			if err := mergeKey(tbl, val); err != nil {
				return err
			}
			continue
		}
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}
		v, err := fromYAML(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key.Value, err)
		}
		tbl.Set(key.Value, v)
	}
	return nil
}

func mergeKey(tbl *value.Table, n *yaml.Node) error {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	var sources []*yaml.Node
	switch n.Kind {
	case yaml.MappingNode:
		sources = []*yaml.Node{n}
	case yaml.SequenceNode:
		sources = n.Content
	default:
		return fmt.Errorf("line %d: merge key needs a mapping", n.Line)
	}

	for _, src := range sources {
		v, err := fromYAML(src)
		if err != nil {
			return err
		}
		defaults, err := v.AsTable()
		if err != nil {
			return fmt.Errorf("line %d: merge key needs a mapping", src.Line)
		}
		for key, child := range defaults.All() {
			if !tbl.Has(key) {
				tbl.Set(key, child)
			}
		}
	}
	return nil
}

func yamlScalar(n *yaml.Node) (*value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			var f float64
			if ferr := n.Decode(&f); ferr != nil {
				return nil, err
			}
			return value.Float(float32(f)), nil
		}
		return value.FromNative(i)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return value.Float(float32(f)), nil
	default:
		return value.String(n.Value), nil
	}
}
