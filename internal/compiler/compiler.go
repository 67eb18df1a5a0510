// Package compiler turns a Schema Model into a command tree.
//
// Compilation is pure and deterministic: operations are grouped into
// resources (first tag, else first static path segment), given kebab-case
// slugs that are unique among siblings, and emitted sorted at every level so
// recompiling an unchanged document yields byte-identical output.
package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/cloudflare-cli/internal/spec"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// SchemaError reports a document the compiler cannot turn into a tree:
// unresolved references, placeholders without a path parameter, cyclic
// request bodies or operations without a derivable name.
type SchemaError struct {
	Operation string // "METHOD path", empty for document-level errors
	Reason    string
}

func (e *SchemaError) Error() string {
	if e.Operation == "" {
		return "schema error: " + e.Reason
	}
	return fmt.Sprintf("schema error: %s: %s", e.Operation, e.Reason)
}

// Compile builds the command tree for sm.
func Compile(sm *spec.SchemaModel) (*tree.CommandTree, error) {
	if sm == nil {
		return nil, &SchemaError{Reason: "nil schema model"}
	}

	res := newResolver(sm.Schemas)
	groups := map[string]*group{}
	var order []string

	for i := range sm.Operations {
		src := &sm.Operations[i]
		label := fmt.Sprintf("%s %s", strings.ToUpper(string(src.Method)), src.Path)

		op, err := compileOperation(res, src)
		if err != nil {
			return nil, &SchemaError{Operation: label, Reason: err.Error()}
		}

		display, base := groupKey(src)
		if base == "" {
			return nil, &SchemaError{Operation: label, Reason: "no tag or static path segment to derive a resource name from"}
		}
		g, ok := groups[display]
		if !ok {
			g = &group{display: display, base: base, firstPath: src.Path}
			groups[display] = g
			order = append(order, display)
		}
		g.ops = append(g.ops, pending{op: op, base: opBaseName(src), method: strings.ToLower(string(src.Method))})
	}

	t := &tree.CommandTree{
		Version:   majorVersion(sm.Version),
		Endpoint:  endpoint(sm.Servers),
		Resources: []tree.Resource{},
	}

	sort.Strings(order)
	taken := map[string]bool{}
	for _, display := range order {
		g := groups[display]
		name := uniqueName(taken, g.base, pathSlug(g.firstPath))
		taken[name] = true

		r := tree.Resource{Name: name, DisplayName: g.display}
		r.Operations = nameOperations(g.ops)
		t.Resources = append(t.Resources, r)
	}
	sort.Slice(t.Resources, func(i, j int) bool { return t.Resources[i].Name < t.Resources[j].Name })

	if err := t.Validate(); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	return t, nil
}

type group struct {
	display   string
	base      string
	firstPath string
	ops       []pending
}

type pending struct {
	op     tree.Operation
	base   string
	method string
}

// groupKey returns the resource display name and its slug base.
func groupKey(op *spec.Operation) (string, string) {
	for _, tag := range op.Tags {
		if slug := kebabCase(tag); slug != "" {
			return tag, slug
		}
	}
	for _, seg := range staticSegments(op.Path) {
		if slug := kebabCase(seg); slug != "" {
			return seg, slug
		}
	}
	return "", ""
}

// opBaseName is the kebab-cased operation id, else method plus the static
// path segments.
func opBaseName(op *spec.Operation) string {
	if slug := kebabCase(op.OperationID); slug != "" {
		return slug
	}
	method := strings.ToLower(string(op.Method))
	if ps := pathSlug(op.Path); ps != "" {
		return method + "-" + ps
	}
	return method
}

// nameOperations assigns unique slugs in source order (path, then method)
// and returns the operations sorted by slug.
func nameOperations(ops []pending) []tree.Operation {
	taken := map[string]bool{}
	out := make([]tree.Operation, 0, len(ops))
	for _, p := range ops {
		name := uniqueName(taken, p.base, p.method, pathSlug(p.op.Path))
		taken[name] = true
		p.op.Name = name
		out = append(out, p.op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// uniqueName returns base if free, else base with each suffix appended in
// turn (cumulatively), else the last candidate with a counter.
func uniqueName(taken map[string]bool, base string, suffixes ...string) string {
	if !taken[base] {
		return base
	}
	candidate := base
	for _, s := range suffixes {
		if s == "" || strings.HasSuffix(candidate, "-"+s) {
			continue
		}
		candidate = candidate + "-" + s
		if !taken[candidate] {
			return candidate
		}
	}
	for i := 2; ; i++ {
		next := candidate + "-" + strconv.Itoa(i)
		if !taken[next] {
			return next
		}
	}
}

func compileOperation(res *resolver, src *spec.Operation) (tree.Operation, error) {
	display := src.OperationID
	if display == "" {
		display = fmt.Sprintf("%s %s", strings.ToUpper(string(src.Method)), src.Path)
	}
	op := tree.Operation{
		DisplayName: display,
		Method:      strings.ToUpper(string(src.Method)),
		Path:        src.Path,
		Summary:     src.Summary,
		Description: src.Description,
		Parameters:  []tree.Param{},
	}

	params, err := compileParams(res, src)
	if err != nil {
		return op, err
	}
	op.Parameters = params

	placeholders := map[string]bool{}
	for _, name := range tree.Placeholders(src.Path) {
		placeholders[name] = true
	}
	bound := map[string]bool{}
	for _, p := range params {
		if p.Location != tree.InPath {
			continue
		}
		if !placeholders[p.Name] {
			return op, fmt.Errorf("path parameter %q does not appear in the path template", p.Name)
		}
		bound[p.Name] = true
	}
	for _, name := range tree.Placeholders(src.Path) {
		if !bound[name] {
			return op, fmt.Errorf("path placeholder {%s} has no path parameter", name)
		}
	}

	if src.RequestBody != nil {
		op.HasBody = true
		op.BodyRequired = src.RequestBody.Required
		ok, err := res.isConcrete(src.RequestBody.Schema, map[string]bool{})
		if err != nil {
			return op, fmt.Errorf("request body: %w", err)
		}
		if !ok {
			return op, fmt.Errorf("request body schema is cyclic and never reaches a concrete type")
		}
	}
	return op, nil
}

var locationRank = map[tree.Location]int{
	tree.InPath:   0,
	tree.InQuery:  1,
	tree.InHeader: 2,
	tree.InCookie: 3,
}

// compileParams orders parameters by location (path, query, header, cookie)
// then name, and derives collision-free flag names in that order.
func compileParams(res *resolver, src *spec.Operation) ([]tree.Param, error) {
	params := make([]tree.Param, 0, len(src.Parameters))
	for _, p := range src.Parameters {
		typ, items, err := res.paramType(p.Schema)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		params = append(params, tree.Param{
			Name:        p.Name,
			Location:    tree.Location(p.In),
			Required:    p.Required,
			Type:        typ,
			Items:       items,
			Description: p.Description,
		})
	}
	sort.SliceStable(params, func(i, j int) bool {
		ri, rj := locationRank[params[i].Location], locationRank[params[j].Location]
		if ri != rj {
			return ri < rj
		}
		return params[i].Name < params[j].Name
	})

	taken := map[string]bool{}
	for flag := range tree.ReservedFlags {
		taken[flag] = true
	}
	for i := range params {
		base := kebabCase(params[i].Name)
		if base == "" {
			return nil, fmt.Errorf("parameter %q has no derivable flag name", params[i].Name)
		}
		flag := uniqueName(taken, base, string(params[i].Location))
		taken[flag] = true
		params[i].Flag = flag
	}
	return params, nil
}

// majorVersion parses the leading integer of info.version.
func majorVersion(v string) int {
	head := strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexByte(head, '.'); i >= 0 {
		head = head[:i]
	}
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return tree.DefaultVersion
	}
	return n
}

func endpoint(servers []spec.Server) string {
	for _, s := range servers {
		if u := strings.TrimRight(strings.TrimSpace(s.URL), "/"); u != "" {
			return u
		}
	}
	return tree.DefaultEndpoint
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
