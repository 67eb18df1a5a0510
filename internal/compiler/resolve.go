package compiler

import (
	"fmt"

	"github.com/mark3labs/cloudflare-cli/internal/spec"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// resolver follows $ref pointers through the model's schema table. Results
// are memoized per reference so large documents are walked once.
type resolver struct {
	table    map[string]*spec.SchemaOrRef
	memo     map[string]*spec.Schema
	concrete map[string]bool
}

func newResolver(table map[string]*spec.SchemaOrRef) *resolver {
	return &resolver{
		table:    table,
		memo:     map[string]*spec.Schema{},
		concrete: map[string]bool{},
	}
}

// deref follows a chain of references to the first inline schema.
func (r *resolver) deref(s *spec.SchemaOrRef) (*spec.Schema, error) {
	var chain []string
	seen := map[string]bool{}
	for s != nil {
		if s.Schema != nil {
			for _, ref := range chain {
				r.memo[ref] = s.Schema
			}
			return s.Schema, nil
		}
		if s.Ref == nil {
			return nil, nil
		}
		ref := s.Ref.Ref
		if cached, ok := r.memo[ref]; ok {
			return cached, nil
		}
		if seen[ref] {
			return nil, fmt.Errorf("cyclic reference %s", ref)
		}
		seen[ref] = true
		chain = append(chain, ref)
		next, ok := r.table[ref]
		if !ok || next == nil {
			return nil, fmt.Errorf("unresolved reference %s", ref)
		}
		s = next
	}
	return nil, nil
}

// isConcrete reports whether s reaches a concrete JSON type. Every reference
// reachable from s must resolve. Recursion through properties or items is
// legal; a branch that loops back to a reference under evaluation is simply
// not concrete.
func (r *resolver) isConcrete(s *spec.SchemaOrRef, visiting map[string]bool) (bool, error) {
	if s == nil {
		return true, nil
	}
	if s.Ref != nil {
		ref := s.Ref.Ref
		if r.concrete[ref] {
			return true, nil
		}
		if visiting[ref] {
			return false, nil
		}
		next, ok := r.table[ref]
		if !ok || next == nil {
			return false, fmt.Errorf("unresolved reference %s", ref)
		}
		visiting[ref] = true
		ok, err := r.isConcrete(next, visiting)
		delete(visiting, ref)
		if err != nil {
			return false, err
		}
		if ok {
			r.concrete[ref] = true
		}
		return ok, nil
	}
	if s.Schema == nil {
		return true, nil
	}

	sch := s.Schema
	ok := sch.Type != "" || len(sch.Properties) > 0 || len(sch.Enum) > 0
	for _, name := range sortedKeys(sch.Properties) {
		if _, err := r.isConcrete(sch.Properties[name], visiting); err != nil {
			return false, err
		}
	}
	if sch.Items != nil {
		if _, err := r.isConcrete(sch.Items, visiting); err != nil {
			return false, err
		}
	}
	for _, group := range [][]*spec.SchemaOrRef{sch.AllOf, sch.AnyOf, sch.OneOf} {
		for _, member := range group {
			c, err := r.isConcrete(member, visiting)
			if err != nil {
				return false, err
			}
			ok = ok || c
		}
	}
	if len(sch.AllOf)+len(sch.AnyOf)+len(sch.OneOf) == 0 && sch.Type == "" {
		// An empty schema accepts any JSON value.
		ok = true
	}
	return ok, nil
}

// paramType maps a parameter schema onto the primitive the binder coerces
// to. Objects and untyped schemas travel as strings.
func (r *resolver) paramType(s *spec.SchemaOrRef) (tree.ParamType, tree.ParamType, error) {
	sch, err := r.deref(s)
	if err != nil || sch == nil {
		return tree.TypeString, "", err
	}
	if sch.Type == "array" {
		items, err := r.primitive(sch.Items)
		if err != nil {
			return "", "", err
		}
		return tree.TypeArray, items, nil
	}
	t, err := r.primitiveOf(sch, 0)
	return t, "", err
}

func (r *resolver) primitive(s *spec.SchemaOrRef) (tree.ParamType, error) {
	return r.primitiveAt(s, 0)
}

// maxCompositeDepth bounds the walk through allOf/oneOf/anyOf members.
const maxCompositeDepth = 8

func (r *resolver) primitiveAt(s *spec.SchemaOrRef, depth int) (tree.ParamType, error) {
	sch, err := r.deref(s)
	if err != nil || sch == nil {
		return tree.TypeString, err
	}
	return r.primitiveOf(sch, depth)
}

func (r *resolver) primitiveOf(sch *spec.Schema, depth int) (tree.ParamType, error) {
	if depth > maxCompositeDepth {
		return tree.TypeString, nil
	}
	switch sch.Type {
	case "integer":
		return tree.TypeInteger, nil
	case "number":
		return tree.TypeNumber, nil
	case "boolean":
		return tree.TypeBoolean, nil
	case "":
		for _, group := range [][]*spec.SchemaOrRef{sch.AllOf, sch.OneOf, sch.AnyOf} {
			if len(group) > 0 {
				return r.primitiveAt(group[0], depth+1)
			}
		}
	}
	return tree.TypeString, nil
}
