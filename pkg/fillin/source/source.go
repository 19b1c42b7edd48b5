// Package source loads render data from files, command-line pairs, the
// environment and SQL queries into props Contexts.
//
// Nested JSON and YAML objects are flattened: {"a": {"b": 1}} yields the
// names "a" (a JSON value) and "a.b" (the integer 1). Array elements are
// addressed by index, as in "items.0".
package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/fillin/pkg/fillin/props"
	"github.com/sambeau/fillin/pkg/fillin/value"
)

// Format names a data file format.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatDotEnv Format = "env"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".env":
		return FormatDotEnv, nil
	}
	if filepath.Base(path) == ".env" {
		return FormatDotEnv, nil
	}
	return "", fmt.Errorf("unknown data format for %s (want .json, .yaml, .yml or .env)", path)
}

// ParseFormat validates a format name given on the command line.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatJSON, FormatYAML, FormatDotEnv:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown data format %q (want json, yaml or env)", name)
}

// Load reads a single record from the file at path.
func Load(path string) (*props.Context, error) {
	records, err := LoadRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("%s: expected one record, found %d", path, len(records))
	}
	return records[0], nil
}

// LoadRecords reads every record from the file at path. A JSON or YAML
// document holding a list of objects yields one record per element; any
// other document is a single record.
func LoadRecords(path string) ([]*props.Context, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read decodes records from r.
func Read(r io.Reader, format Format) ([]*props.Context, error) {
	switch format {
	case FormatJSON:
		return readJSON(r)
	case FormatYAML:
		return readYAML(r)
	case FormatDotEnv:
		ctx, err := DotEnv(r)
		if err != nil {
			return nil, err
		}
		return []*props.Context{ctx}, nil
	}
	return nil, fmt.Errorf("unknown data format %q", format)
}

// JSON reads one JSON object from r.
func JSON(r io.Reader) (*props.Context, error) {
	return single(readJSON(r))
}

// YAML reads one YAML mapping from r.
func YAML(r io.Reader) (*props.Context, error) {
	return single(readYAML(r))
}

func single(records []*props.Context, err error) (*props.Context, error) {
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("expected one record, found %d", len(records))
	}
	return records[0], nil
}

func readJSON(r io.Reader) ([]*props.Context, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after document")
	}

	switch d := doc.(type) {
	case map[string]any:
		return []*props.Context{FromMap(d)}, nil
	case []any:
		records := make([]*props.Context, 0, len(d))
		for i, item := range d {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d is not an object", i)
			}
			records = append(records, FromMap(m))
		}
		return records, nil
	}
	return nil, fmt.Errorf("JSON document must be an object or a list of objects")
}

// FromMap builds a Context from a decoded document, flattening nested
// objects and arrays. Keys are visited in sorted order.
func FromMap(m map[string]any) *props.Context {
	var fields []props.Field
	flattenMap(&fields, "", m)
	return props.New(fields...)
}

func flattenMap(fields *[]props.Field, prefix string, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flattenAny(fields, prefix+k, m[k])
	}
}

func flattenAny(fields *[]props.Field, name string, v any) {
	switch n := v.(type) {
	case map[string]any:
		*fields = append(*fields, props.Field{Name: name, Value: value.JSON(n)})
		flattenMap(fields, name+".", n)
	case []any:
		*fields = append(*fields, props.Field{Name: name, Value: value.JSON(n)})
		for i, item := range n {
			flattenAny(fields, name+"."+strconv.Itoa(i), item)
		}
	case json.Number:
		v := value.Of(n).Reduce()
		if fixedPoint.MatchString(n.String()) {
			if d, err := value.ParseDecimal(n.String()); err == nil {
				v = value.DecimalValue(d)
			}
		}
		*fields = append(*fields, props.Field{Name: name, Value: v})
	default:
		*fields = append(*fields, props.Field{Name: name, Value: value.Of(n)})
	}
}

func readYAML(r io.Reader) ([]*props.Context, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []*props.Context{props.New()}, nil
		}
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	root := resolveAlias(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolveAlias(root.Content[0])
	}

	switch root.Kind {
	case yaml.MappingNode:
		ctx, err := fromMapping(root)
		if err != nil {
			return nil, err
		}
		return []*props.Context{ctx}, nil
	case yaml.SequenceNode:
		records := make([]*props.Context, 0, len(root.Content))
		for i, item := range root.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("record %d is not a mapping", i)
			}
			ctx, err := fromMapping(item)
			if err != nil {
				return nil, err
			}
			records = append(records, ctx)
		}
		return records, nil
	}
	return nil, fmt.Errorf("YAML document must be a mapping or a list of mappings")
}

func fromMapping(n *yaml.Node) (*props.Context, error) {
	var fields []props.Field
	if err := flattenNode(&fields, "", n); err != nil {
		return nil, err
	}
	return props.New(fields...), nil
}

// flattenNode walks a mapping in document order.
func flattenNode(fields *[]props.Field, prefix string, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := prefix + n.Content[i].Value
		if err := flattenYAMLValue(fields, name, resolveAlias(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

func flattenYAMLValue(fields *[]props.Field, name string, n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		var node any
		if err := n.Decode(&node); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*fields = append(*fields, props.Field{Name: name, Value: value.JSON(node)})
		if n.Kind == yaml.MappingNode {
			return flattenNode(fields, name+".", n)
		}
		for i, item := range n.Content {
			if err := flattenYAMLValue(fields, name+"."+strconv.Itoa(i), resolveAlias(item)); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := yamlScalar(n)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*fields = append(*fields, props.Field{Name: name, Value: v})
	return nil
}

// yamlScalar converts a scalar by its resolved tag. Timestamps without a
// clock become dates.
func yamlScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null, nil
	case "!!str":
		return value.String(n.Value), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return value.Null, err
		}
		if len(strings.TrimSpace(n.Value)) == len("2006-01-02") {
			return value.Date(t), nil
		}
		return value.DateTimeOffset(t), nil
	case "!!float":
		if d, err := value.ParseDecimal(n.Value); err == nil {
			return value.DecimalValue(d), nil
		}
	}

	var x any
	if err := n.Decode(&x); err != nil {
		return value.Null, err
	}
	return value.Of(x), nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// DotEnv reads KEY=value lines. Values are typed with Infer and names are
// sorted.
func DotEnv(r io.Reader) (*props.Context, error) {
	m, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("invalid .env data: %w", err)
	}
	return fromStrings(m), nil
}

// Pairs builds a Context from "name=value" arguments in order. Values are
// typed with Infer.
func Pairs(pairs []string) (*props.Context, error) {
	fields := make([]props.Field, 0, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid pair %q (want name=value)", p)
		}
		fields = append(fields, props.Field{Name: name, Value: Infer(raw)})
	}
	return props.New(fields...), nil
}

// Env builds a Context from "NAME=value" entries such as os.Environ().
func Env(environ []string) *props.Context {
	fields := make([]props.Field, 0, len(environ))
	for _, kv := range environ {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		fields = append(fields, props.Field{Name: name, Value: Infer(raw)})
	}
	return props.New(fields...)
}

func fromStrings(m map[string]string) *props.Context {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]props.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, props.Field{Name: k, Value: Infer(m[k])})
	}
	return props.New(fields...)
}

// Merge layers contexts left to right; a later name replaces an earlier
// value and keeps the earlier position. Nil contexts are skipped.
func Merge(ctxs ...*props.Context) *props.Context {
	var fields []props.Field
	for _, c := range ctxs {
		fields = append(fields, c.Fields()...)
	}
	return props.New(fields...)
}

// Decode is a convenience for tests and the server: it reads records from
// an in-memory document.
func Decode(data []byte, format Format) ([]*props.Context, error) {
	return Read(bytes.NewReader(data), format)
}
