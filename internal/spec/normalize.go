package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildOption configures how the SchemaModel is built from an OpenAPI doc.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
}

// WithIncludeTags keeps only operations that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.includeTags == nil {
				c.includeTags = make(map[string]struct{}, len(tags))
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes operations that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if c.excludeTags == nil {
				c.excludeTags = make(map[string]struct{}, len(tags))
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only operations using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only operations whose path matches at least one of
// the provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// BuildSchemaModel converts a loaded OpenAPI v3 document into the Schema
// Model. Local component schema references stay symbolic so the compiler can
// resolve them (and detect cycles) itself; any other reference is inlined.
func BuildSchemaModel(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*SchemaModel, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	sm := &SchemaModel{Schemas: map[string]*SchemaOrRef{}}
	if doc.Info != nil {
		sm.Title = safeStr(doc.Info.Title)
		sm.Version = safeStr(doc.Info.Version)
		sm.Description = safeStr(doc.Info.Description)
	}

	for _, s := range doc.Servers {
		if s == nil {
			continue
		}
		sm.Servers = append(sm.Servers, Server{URL: safeStr(s.URL), Description: safeStr(s.Description)})
	}

	if doc.Components != nil {
		for name, ref := range doc.Components.Schemas {
			if sor := toSchemaOrRef(ref, map[*openapi3.Schema]bool{}); sor != nil {
				sm.Schemas[SchemaRefPrefix+name] = sor
			}
		}
	}

	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		// Path-level parameters first, overridden by op-level ones.
		baseParams := make(map[string]*Parameter)
		for _, pref := range item.Parameters {
			if pm := toParameter(pref); pm != nil {
				baseParams[paramKey(pm.In, pm.Name)] = pm
			}
		}

		ops := []struct {
			m HttpMethod
			o *openapi3.Operation
		}{
			{GET, item.Get},
			{POST, item.Post},
			{PUT, item.Put},
			{DELETE, item.Delete},
			{PATCH, item.Patch},
			{HEAD, item.Head},
			{OPTIONS, item.Options},
			{TRACE, item.Trace},
		}

		for _, pair := range ops {
			if pair.o == nil {
				continue
			}
			if len(cfg.methods) > 0 {
				if _, ok := cfg.methods[pair.m]; !ok {
					continue
				}
			}
			if !allowByPath(p, cfg) {
				continue
			}

			tags := make([]string, 0, len(pair.o.Tags))
			for _, t := range pair.o.Tags {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
			if !allowByTags(tags, cfg) {
				continue
			}

			merged := make(map[string]*Parameter, len(baseParams))
			for k, v := range baseParams {
				merged[k] = v
			}
			for _, pref := range pair.o.Parameters {
				if pm := toParameter(pref); pm != nil {
					merged[paramKey(pm.In, pm.Name)] = pm
				}
			}
			params := make([]Parameter, 0, len(merged))
			for _, v := range merged {
				params = append(params, *v)
			}
			sort.Slice(params, func(i, j int) bool {
				if params[i].In == params[j].In {
					return params[i].Name < params[j].Name
				}
				return params[i].In < params[j].In
			})

			sm.Operations = append(sm.Operations, Operation{
				ID:          string(pair.m) + " " + p,
				OperationID: safeStr(pair.o.OperationID),
				Method:      pair.m,
				Path:        p,
				Summary:     safeStr(pair.o.Summary),
				Description: safeStr(pair.o.Description),
				Tags:        tags,
				Parameters:  params,
				RequestBody: toRequestBody(pair.o.RequestBody),
			})
		}
	}

	sm.Tags = collectSortedTags(sm.Operations)
	return sm, nil
}

func allowByPath(path string, cfg *buildConfig) bool {
	if len(cfg.pathRes) == 0 {
		return true
	}
	for _, re := range cfg.pathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		ok := false
		for _, t := range tags {
			if _, yes := cfg.includeTags[t]; yes {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, t := range tags {
		if _, blocked := cfg.excludeTags[t]; blocked {
			return false
		}
	}
	return true
}

func paramKey(in Location, name string) string { return string(in) + ":" + name }

func safeStr(s string) string { return strings.TrimSpace(s) }

func toParameter(pref *openapi3.ParameterRef) *Parameter {
	if pref == nil || pref.Value == nil {
		return nil
	}
	p := pref.Value
	in, ok := ParseLocation(safeStr(p.In))
	if !ok || safeStr(p.Name) == "" {
		return nil
	}
	pm := &Parameter{
		Name:        safeStr(p.Name),
		In:          in,
		Required:    p.Required,
		Description: safeStr(p.Description),
	}
	if p.Schema != nil {
		pm.Schema = toSchemaOrRef(p.Schema, map[*openapi3.Schema]bool{})
	}
	return pm
}

// toRequestBody picks the JSON media type when present, else the first
// declared one in sorted order.
func toRequestBody(ref *openapi3.RequestBodyRef) *RequestBody {
	if ref == nil || ref.Value == nil {
		return nil
	}
	rb := &RequestBody{Required: ref.Value.Required}
	keys := make([]string, 0, len(ref.Value.Content))
	for k := range ref.Value.Content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, mime := range keys {
		if strings.HasPrefix(mime, "application/json") {
			rb.Mime = mime
			break
		}
	}
	if rb.Mime == "" && len(keys) > 0 {
		rb.Mime = keys[0]
	}
	if mt := ref.Value.Content[rb.Mime]; mt != nil && mt.Schema != nil {
		rb.Schema = toSchemaOrRef(mt.Schema, map[*openapi3.Schema]bool{})
	}
	return rb
}

func toSchemaOrRef(ref *openapi3.SchemaRef, seen map[*openapi3.Schema]bool) *SchemaOrRef {
	if ref == nil {
		return nil
	}
	if strings.HasPrefix(ref.Ref, SchemaRefPrefix) {
		return &SchemaOrRef{Ref: &SchemaRef{Ref: ref.Ref}}
	}
	if ref.Value == nil {
		if ref.Ref != "" {
			return &SchemaOrRef{Ref: &SchemaRef{Ref: ref.Ref}}
		}
		return nil
	}
	// Inlined (non-local) references can recurse; cut the cycle with a
	// dangling symbolic ref the compiler will report.
	if seen[ref.Value] {
		return &SchemaOrRef{Ref: &SchemaRef{Ref: ref.Ref}}
	}
	seen[ref.Value] = true
	defer delete(seen, ref.Value)

	v := ref.Value
	s := &Schema{
		Type:        safeStr(v.Type),
		Format:      safeStr(v.Format),
		Description: safeStr(v.Description),
		Required:    append([]string(nil), v.Required...),
	}
	if len(v.Enum) > 0 {
		s.Enum = append([]any(nil), v.Enum...)
	}
	if v.Items != nil {
		s.Items = toSchemaOrRef(v.Items, seen)
	}
	if len(v.Properties) > 0 {
		s.Properties = make(map[string]*SchemaOrRef, len(v.Properties))
		for name, prop := range v.Properties {
			s.Properties[name] = toSchemaOrRef(prop, seen)
		}
	}
	for _, r := range v.AllOf {
		s.AllOf = append(s.AllOf, toSchemaOrRef(r, seen))
	}
	for _, r := range v.AnyOf {
		s.AnyOf = append(s.AnyOf, toSchemaOrRef(r, seen))
	}
	for _, r := range v.OneOf {
		s.OneOf = append(s.OneOf, toSchemaOrRef(r, seen))
	}
	return &SchemaOrRef{Schema: s}
}

func collectSortedTags(ops []Operation) []string {
	set := make(map[string]struct{})
	for _, op := range ops {
		for _, t := range op.Tags {
			set[t] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
