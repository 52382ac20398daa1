// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/iamafool/opensas-sub001/internal/dataset"
	"github.com/iamafool/opensas-sub001/internal/value"
)

// ReadYAML reads a sequence of mappings, one mapping per row. Key order
// becomes schema order.
func ReadYAML(r io.Reader, name string) (*dataset.Dataset, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.New(name, nil), nil
		}
		return nil, err
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a sequence of rows", root.Line)
	}

	d := dataset.New(name, nil)
	for _, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping", item.Line)
		}
		row := dataset.NewRow()
		for i := 0; i+1 < len(item.Content); i += 2 {
			k, v := item.Content[i], item.Content[i+1]
			val, err := scalar(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", v.Line, k.Value, err)
			}
			row.Set(k.Value, val)
		}
		d.Append(row)
	}
	return d, nil
}

func scalar(n *yaml.Node) (value.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return value.Missing(), errors.New("expected a scalar")
	}
	switch n.ShortTag() {
	case "!!null":
		return value.Missing(), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Missing(), err
		}
		return value.Num(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.Missing(), err
		}
		return value.Bool(b), nil
	}
	return value.Str(n.Value), nil
}

// WriteYAML writes d as a sequence of mappings in schema order. Missing
// values are written as null.
func WriteYAML(w io.Writer, d *dataset.Dataset) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	schema := d.Schema()
	for i := 0; i < d.Len(); i++ {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, n := range schema {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n},
				node(d.Value(i, n)))
		}
		seq.Content = append(seq.Content, m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func node(v value.Value) *yaml.Node {
	switch v.Kind() {
	case value.KindNumber:
		f, _ := v.AsNumber()
		if f == math.Trunc(f) && math.Abs(f) < 1e15 {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(int64(f), 10)}
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}
	case value.KindText:
		s, _ := v.AsText()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
