package spec

import "strings"

// Schema Model definitions consumed by the command tree compiler.

type HttpMethod string

const (
	GET     HttpMethod = "get"
	POST    HttpMethod = "post"
	PUT     HttpMethod = "put"
	DELETE  HttpMethod = "delete"
	PATCH   HttpMethod = "patch"
	HEAD    HttpMethod = "head"
	OPTIONS HttpMethod = "options"
	TRACE   HttpMethod = "trace"
)

// ParseMethod maps an HTTP method name in any case onto an HttpMethod.
func ParseMethod(s string) (HttpMethod, bool) {
	m := HttpMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE:
		return m, true
	}
	return "", false
}

// Location is where a parameter travels in the HTTP request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// ParseLocation maps an OpenAPI "in" value onto a Location.
func ParseLocation(s string) (Location, bool) {
	switch Location(s) {
	case InPath, InQuery, InHeader, InCookie:
		return Location(s), true
	}
	return "", false
}

// SchemaRefPrefix is the only $ref form kept symbolic in the model; every
// other reference is inlined by the builder.
const SchemaRefPrefix = "#/components/schemas/"

type SchemaModel struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
	Tags        []string
	Operations  []Operation
	// Schemas is the $ref table, keyed by the full reference string
	// ("#/components/schemas/Zone").
	Schemas map[string]*SchemaOrRef
}

type Server struct {
	URL         string
	Description string
}

type Operation struct {
	ID          string // method+path
	OperationID string
	Method      HttpMethod
	Path        string
	Summary     string
	Description string
	Tags        []string
	Parameters  []Parameter
	RequestBody *RequestBody
}

type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Description string
	Schema      *SchemaOrRef
}

type RequestBody struct {
	Required bool
	Mime     string
	Schema   *SchemaOrRef
}

type Schema struct {
	Type        string
	Format      string
	Description string
	Properties  map[string]*SchemaOrRef
	Required    []string
	Items       *SchemaOrRef
	AllOf       []*SchemaOrRef
	AnyOf       []*SchemaOrRef
	OneOf       []*SchemaOrRef
	Enum        []any
}

type SchemaRef struct{ Ref string }

type SchemaOrRef struct {
	Schema *Schema
	Ref    *SchemaRef
}

// RefTo builds a symbolic reference to a named component schema.
func RefTo(name string) *SchemaOrRef {
	return &SchemaOrRef{Ref: &SchemaRef{Ref: SchemaRefPrefix + name}}
}
