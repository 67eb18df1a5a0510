// Package tree holds the compiled command tree shared by the compiler and the
// runtime dispatcher.
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultEndpoint is used when the source document declares no server.
const DefaultEndpoint = "https://api.cloudflare.com/client/v4"

// DefaultVersion is the API major version assumed when info.version has no
// leading integer.
const DefaultVersion = 4

// Location is where a bound parameter travels in the HTTP request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// ParamType is the primitive a parameter value is coerced to.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
)

// ReservedFlags are dispatcher and global flags that no parameter flag may
// shadow.
var ReservedFlags = map[string]bool{
	"body":      true,
	"body-file": true,
	"header":    true,
	"raw":       true,
	"pretty":    true,
	"help":      true,
	"config":    true,
	"tree":      true,
	"timeout":   true,
	"debug":     true,
}

type CommandTree struct {
	Version      int        `json:"version"`
	Endpoint     string     `json:"endpoint"`
	SourceDigest string     `json:"source_digest,omitempty"`
	Resources    []Resource `json:"resources"`
}

type Resource struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Operations  []Operation `json:"operations"`
}

type Operation struct {
	Name         string  `json:"name"`
	DisplayName  string  `json:"display_name"`
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	Summary      string  `json:"summary,omitempty"`
	Description  string  `json:"description,omitempty"`
	Parameters   []Param `json:"parameters"`
	HasBody      bool    `json:"has_body"`
	BodyRequired bool    `json:"body_required,omitempty"`
}

type Param struct {
	Name        string    `json:"name"`
	Flag        string    `json:"flag"`
	Location    Location  `json:"location"`
	Required    bool      `json:"required"`
	Type        ParamType `json:"type"`
	Items       ParamType `json:"items,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IsList reports whether the parameter accepts multiple values.
func (p Param) IsList() bool { return p.Type == TypeArray }

// ValueType is the primitive each individual value is coerced to.
func (p Param) ValueType() ParamType {
	if p.Type == TypeArray {
		if p.Items == "" {
			return TypeString
		}
		return p.Items
	}
	return p.Type
}

// Resource returns the resource with the given slug.
func (t *CommandTree) Resource(name string) (*Resource, bool) {
	i := sort.Search(len(t.Resources), func(i int) bool { return t.Resources[i].Name >= name })
	if i < len(t.Resources) && t.Resources[i].Name == name {
		return &t.Resources[i], true
	}
	return nil, false
}

// Operation returns the operation with the given slug.
func (r *Resource) Operation(name string) (*Operation, bool) {
	i := sort.Search(len(r.Operations), func(i int) bool { return r.Operations[i].Name >= name })
	if i < len(r.Operations) && r.Operations[i].Name == name {
		return &r.Operations[i], true
	}
	return nil, false
}

// Lookup resolves a (resource, operation) slug pair.
func (t *CommandTree) Lookup(resource, op string) (*Operation, bool) {
	r, ok := t.Resource(resource)
	if !ok {
		return nil, false
	}
	return r.Operation(op)
}

// ResourceNames returns every resource slug in order.
func (t *CommandTree) ResourceNames() []string {
	out := make([]string, 0, len(t.Resources))
	for _, r := range t.Resources {
		out = append(out, r.Name)
	}
	return out
}

// OperationNames returns every operation slug of r in order.
func (r *Resource) OperationNames() []string {
	out := make([]string, 0, len(r.Operations))
	for _, op := range r.Operations {
		out = append(out, op.Name)
	}
	return out
}

// PathParams returns the path parameters of op in template order.
func (op *Operation) PathParams() []Param {
	var out []Param
	for _, name := range Placeholders(op.Path) {
		for _, p := range op.Parameters {
			if p.Location == InPath && p.Name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Placeholders lists the {name} segments of a path template in order.
func Placeholders(path string) []string {
	var out []string
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			return out
		}
		out = append(out, path[start+1:start+end])
		path = path[start+end+1:]
	}
}

// Marshal renders the tree as canonical JSON: two-space indent, no HTML
// escaping, trailing newline. Struct field order is fixed, so equal trees
// always produce identical bytes.
func Marshal(t *CommandTree) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode command tree: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes and checks a command tree.
func Unmarshal(data []byte) (*CommandTree, error) {
	var t CommandTree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode command tree: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the structural invariants lookups rely on: sorted, unique
// slugs at every level and one path parameter per template placeholder.
func (t *CommandTree) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("command tree: empty endpoint")
	}
	for i, r := range t.Resources {
		if r.Name == "" {
			return fmt.Errorf("command tree: resource %d has no name", i)
		}
		if i > 0 && strings.ToLower(t.Resources[i-1].Name) >= strings.ToLower(r.Name) {
			return fmt.Errorf("command tree: resources not sorted or duplicated at %q", r.Name)
		}
		for j, op := range r.Operations {
			if op.Name == "" {
				return fmt.Errorf("command tree: %s: operation %d has no name", r.Name, j)
			}
			if j > 0 && strings.ToLower(r.Operations[j-1].Name) >= strings.ToLower(op.Name) {
				return fmt.Errorf("command tree: %s: operations not sorted or duplicated at %q", r.Name, op.Name)
			}
			if err := checkPathParams(&op); err != nil {
				return fmt.Errorf("command tree: %s %s: %w", r.Name, op.Name, err)
			}
		}
	}
	return nil
}

func checkPathParams(op *Operation) error {
	want := map[string]int{}
	for _, name := range Placeholders(op.Path) {
		want[name] = 1
	}
	for _, p := range op.Parameters {
		if p.Location != InPath {
			continue
		}
		if _, ok := want[p.Name]; !ok {
			return fmt.Errorf("path parameter %q not in template %s", p.Name, op.Path)
		}
		want[p.Name]--
	}
	for name, n := range want {
		if n != 0 {
			return fmt.Errorf("placeholder {%s} needs exactly one path parameter", name)
		}
	}
	return nil
}
