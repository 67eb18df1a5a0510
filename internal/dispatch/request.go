package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// BoundRequest is a fully resolved HTTP request ready for execution.
type BoundRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Overrides carries request settings that come from configuration rather
// than the operation itself.
type Overrides struct {
	BaseURL string
	Token   string
	// Headers are raw --header values ("key:value" or "key=value"). They
	// win over header parameters and the Authorization header.
	Headers []string
}

// Build turns a bound operation into a request. Path values are
// percent-encoded, array query parameters repeat their key and the body must
// be valid JSON. An operation that declares a body always needs one.
func Build(op *tree.Operation, bound *Bound, o Overrides) (*BoundRequest, error) {
	path := op.Path
	query := url.Values{}
	header := http.Header{}
	var cookies []string

	for _, p := range bound.Params {
		switch p.Location {
		case tree.InPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", escapePathValue(strings.Join(p.Values, ",")))
		case tree.InQuery:
			for _, v := range p.Values {
				query.Add(p.Name, v)
			}
		case tree.InHeader:
			header.Set(p.Name, strings.Join(p.Values, ","))
		case tree.InCookie:
			cookies = append(cookies, (&http.Cookie{Name: p.Name, Value: strings.Join(p.Values, ",")}).String())
		}
	}
	if names := tree.Placeholders(path); len(names) > 0 {
		return nil, &UsageError{Kind: UnboundPathParameter, Name: names[0]}
	}
	if len(cookies) > 0 {
		header.Set("Cookie", strings.Join(cookies, "; "))
	}

	if bound.Body != nil {
		var raw json.RawMessage
		if err := json.Unmarshal(bound.Body, &raw); err != nil {
			return nil, &UsageError{Kind: MalformedBody, Err: err}
		}
	} else if op.HasBody {
		return nil, &UsageError{Kind: MissingBody}
	}

	req, err := newRequest(op.Method, o.BaseURL, path, query, header, bound.Body, o.Token)
	if err != nil {
		return nil, err
	}
	if err := applyHeaderOverrides(req.Header, append(append([]string(nil), bound.Headers...), o.Headers...)); err != nil {
		return nil, err
	}
	return req, nil
}

// escapePathValue percent-encodes a path parameter value. A whole-segment
// "." or ".." is spelled with %2E so it cannot be resolved as a dot segment.
func escapePathValue(v string) string {
	if v == "." || v == ".." {
		return strings.Repeat("%2E", len(v))
	}
	return url.PathEscape(v)
}

// BuildRaw builds a request for an arbitrary method and path, bypassing the
// command tree. query values are "key=value" pairs.
func BuildRaw(method, path string, query []string, body []byte, o Overrides) (*BoundRequest, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, &UsageError{Kind: InvalidArgument, Name: "HTTP method is required"}
	}
	values := url.Values{}
	for _, kv := range query {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, &UsageError{Kind: InvalidArgument, Name: fmt.Sprintf("invalid --query %q, want KEY=VALUE", kv)}
		}
		values.Add(strings.TrimSpace(k), v)
	}
	if body != nil {
		var raw json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, &UsageError{Kind: MalformedBody, Err: err}
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := newRequest(method, o.BaseURL, path, values, http.Header{}, body, o.Token)
	if err != nil {
		return nil, err
	}
	if err := applyHeaderOverrides(req.Header, o.Headers); err != nil {
		return nil, err
	}
	return req, nil
}

func newRequest(method, base, path string, query url.Values, header http.Header, body []byte, token string) (*BoundRequest, error) {
	full := joinBaseAndPath(base, path)
	if _, err := url.Parse(full); err != nil {
		return nil, &UsageError{Kind: InvalidArgument, Err: fmt.Errorf("invalid request URL %q: %w", full, err)}
	}
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}
	if body != nil {
		header.Set("Content-Type", "application/json")
	}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &BoundRequest{Method: method, URL: full, Header: header, Body: body}, nil
}

func joinBaseAndPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// applyHeaderOverrides sets each "key:value" or "key=value" pair on h,
// splitting at whichever separator comes first.
func applyHeaderOverrides(h http.Header, raw []string) error {
	for _, kv := range raw {
		k, v, ok := splitHeader(kv)
		if !ok {
			return &UsageError{Kind: InvalidArgument, Name: fmt.Sprintf("invalid --header %q, want KEY:VALUE", kv)}
		}
		h.Set(k, v)
	}
	return nil
}

func splitHeader(kv string) (string, string, bool) {
	i := strings.IndexAny(kv, ":=")
	if i <= 0 {
		return "", "", false
	}
	k := strings.TrimSpace(kv[:i])
	if k == "" {
		return "", "", false
	}
	return k, strings.TrimSpace(kv[i+1:]), true
}

// HeaderNames lists the header keys of r in sorted order.
func (r *BoundRequest) HeaderNames() []string {
	names := make([]string, 0, len(r.Header))
	for k := range r.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
