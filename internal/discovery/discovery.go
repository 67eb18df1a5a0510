// Package discovery answers list, describe and tree queries against a
// command tree. Nothing here touches the network.
package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/cloudflare-cli/internal/suggest"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// ErrUnknown matches every LookupError via errors.Is.
var ErrUnknown = errors.New("unknown command")

type LookupKind string

const (
	UnknownResource  LookupKind = "UnknownResource"
	UnknownOperation LookupKind = "UnknownOperation"
)

// LookupError names a resource or operation slug that is not in the tree.
type LookupError struct {
	Kind       LookupKind
	Resource   string
	Operation  string
	Suggestion string
}

func (e *LookupError) Error() string {
	var msg string
	if e.Kind == UnknownResource {
		msg = fmt.Sprintf("unknown resource %q", e.Resource)
	} else {
		msg = fmt.Sprintf("unknown operation %q for resource %q", e.Operation, e.Resource)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *LookupError) Is(target error) bool { return target == ErrUnknown }

type ResourceSummary struct {
	Name        string             `json:"name"`
	DisplayName string             `json:"display_name"`
	Operations  []OperationSummary `json:"operations"`
}

type OperationSummary struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Summary     string `json:"summary,omitempty"`
}

// List returns every resource slug in lexicographic order.
func List(t *tree.CommandTree) []string {
	return t.ResourceNames()
}

// ListWithOps returns every resource together with its operations.
func ListWithOps(t *tree.CommandTree) []ResourceSummary {
	out := make([]ResourceSummary, 0, len(t.Resources))
	for i := range t.Resources {
		out = append(out, Summarize(&t.Resources[i]))
	}
	return out
}

// Summarize projects a resource onto its listing form.
func Summarize(r *tree.Resource) ResourceSummary {
	s := ResourceSummary{Name: r.Name, DisplayName: r.DisplayName, Operations: make([]OperationSummary, 0, len(r.Operations))}
	for _, op := range r.Operations {
		s.Operations = append(s.Operations, OperationSummary{
			Name:        op.Name,
			DisplayName: op.DisplayName,
			Method:      op.Method,
			Path:        op.Path,
			Summary:     op.Summary,
		})
	}
	return s
}

// FindResource looks up a resource slug.
func FindResource(t *tree.CommandTree, resource string) (*tree.Resource, error) {
	r, ok := t.Resource(resource)
	if !ok {
		return nil, &LookupError{
			Kind:       UnknownResource,
			Resource:   resource,
			Suggestion: suggest.Closest(resource, t.ResourceNames()),
		}
	}
	return r, nil
}

// Describe returns the full descriptor of one operation.
func Describe(t *tree.CommandTree, resource, op string) (*tree.Operation, error) {
	r, err := FindResource(t, resource)
	if err != nil {
		return nil, err
	}
	o, ok := r.Operation(op)
	if !ok {
		return nil, &LookupError{
			Kind:       UnknownOperation,
			Resource:   resource,
			Operation:  op,
			Suggestion: suggest.Closest(op, r.OperationNames()),
		}
	}
	return o, nil
}

// Tree returns the whole tree in its canonical JSON form.
func Tree(t *tree.CommandTree) ([]byte, error) {
	return tree.Marshal(t)
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// WriteJSONError writes the structured error object used by --json
// commands.
func WriteJSONError(w io.Writer, category string, err error) error {
	return WriteJSON(w, errorBody{Error: errorDetail{Category: category, Message: err.Error()}})
}
