package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

const testBase = "https://api.example.com/client/v4/"

func TestBuild_FullRequest(t *testing.T) {
	t.Parallel()
	op := listRecordsOp()
	bound, err := (&Binder{}).Bind(op, []string{
		"--zone-id", "a b/c",
		"--type", "A,AAAA",
		"--per-page", "10",
		"--x-trace", "t-1",
		"--header", "X-Trace=user",
	})
	require.NoError(t, err)

	req, err := Build(op, bound, Overrides{BaseURL: testBase, Token: "secret"})
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://api.example.com/client/v4/zones/a%20b%2Fc/dns_records?per_page=10&type=A&type=AAAA", req.URL)
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, "user", req.Header.Get("X-Trace"), "--header wins over header parameters")
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("Content-Type"))
	assert.Nil(t, req.Body)
}

func TestBuild_UserHeaderOverridesAuthorization(t *testing.T) {
	t.Parallel()
	op := listRecordsOp()
	bound, err := (&Binder{}).Bind(op, []string{"z"})
	require.NoError(t, err)

	req, err := Build(op, bound, Overrides{BaseURL: testBase, Token: "secret", Headers: []string{"Authorization: Bearer other"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer other", req.Header.Get("Authorization"))
	assert.Equal(t, []string{"Accept", "Authorization"}, req.HeaderNames())
}

func TestBuild_Body(t *testing.T) {
	t.Parallel()
	op := createRecordOp()

	bound, err := (&Binder{}).Bind(op, []string{"z", "--body", `{"type":"A","name":"www"}`})
	require.NoError(t, err)
	req, err := Build(op, bound, Overrides{BaseURL: testBase})
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"type":"A","name":"www"}`, string(req.Body))
	assert.Empty(t, req.Header.Get("Authorization"))

	bound, err = (&Binder{}).Bind(op, []string{"z", "--body", `{"type":`})
	require.NoError(t, err)
	_, err = Build(op, bound, Overrides{BaseURL: testBase})
	var ue *UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, MalformedBody, ue.Kind)

	bound, err = (&Binder{}).Bind(op, []string{"z"})
	require.NoError(t, err)
	_, err = Build(op, bound, Overrides{BaseURL: testBase})
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, MissingBody, ue.Kind)

}

func TestBuild_DeclaredBodyIsAlwaysNeeded(t *testing.T) {
	t.Parallel()
	op := &tree.Operation{
		Name: "edit-zone", Method: "PATCH", Path: "/zones/{zone_id}",
		Parameters: []tree.Param{
			{Name: "zone_id", Flag: "zone-id", Location: tree.InPath, Required: true, Type: tree.TypeString},
		},
		HasBody:      true,
		BodyRequired: false,
	}
	bound, err := (&Binder{}).Bind(op, []string{"--zone-id", "z"})
	require.NoError(t, err)
	_, err = Build(op, bound, Overrides{BaseURL: testBase})
	var ue *UsageError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.Equal(t, MissingBody, ue.Kind)
	assert.ErrorIs(t, err, ErrUsage)

	bound, err = (&Binder{}).Bind(op, []string{"--zone-id", "z", "--body", `{"paused":true}`})
	require.NoError(t, err)
	req, err := Build(op, bound, Overrides{BaseURL: testBase})
	require.NoError(t, err)
	assert.Equal(t, "PATCH", req.Method)
	assert.JSONEq(t, `{"paused":true}`, string(req.Body))
}

func TestBuild_DotSegmentValuesStayInTheirSegment(t *testing.T) {
	t.Parallel()
	op := listRecordsOp()
	cases := map[string]string{
		"..":   "https://api.example.com/client/v4/zones/%2E%2E/dns_records",
		".":    "https://api.example.com/client/v4/zones/%2E/dns_records",
		"...":  "https://api.example.com/client/v4/zones/.../dns_records",
		"../x": "https://api.example.com/client/v4/zones/..%2Fx/dns_records",
	}
	for value, want := range cases {
		bound, err := (&Binder{}).Bind(op, []string{"--zone-id", value})
		require.NoError(t, err)
		req, err := Build(op, bound, Overrides{BaseURL: testBase})
		require.NoError(t, err)
		assert.Equal(t, want, req.URL, "zone id %q", value)
	}
}

func TestBuild_UnboundPathParameter(t *testing.T) {
	t.Parallel()
	op := getRecordOp()
	bound := &Bound{Params: []BoundParam{{
		Param:  tree.Param{Name: "zone_id", Location: tree.InPath},
		Values: []string{"z"},
	}}}
	_, err := Build(op, bound, Overrides{BaseURL: testBase})
	var ue *UsageError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, UnboundPathParameter, ue.Kind)
	assert.Equal(t, "dns_record_id", ue.Name)
}

func TestBuild_Cookies(t *testing.T) {
	t.Parallel()
	op := &tree.Operation{
		Name: "get", Method: "GET", Path: "/session",
		Parameters: []tree.Param{
			{Name: "sid", Flag: "sid", Location: tree.InCookie, Type: tree.TypeString},
			{Name: "theme", Flag: "theme", Location: tree.InCookie, Type: tree.TypeString},
		},
	}
	bound, err := (&Binder{}).Bind(op, []string{"--sid", "abc", "--theme", "dark"})
	require.NoError(t, err)
	req, err := Build(op, bound, Overrides{BaseURL: testBase})
	require.NoError(t, err)
	assert.Equal(t, "sid=abc; theme=dark", req.Header.Get("Cookie"))
}

func TestBuildRaw(t *testing.T) {
	t.Parallel()
	req, err := BuildRaw("get", "zones", []string{"name=example.com", "page=2"}, nil, Overrides{BaseURL: testBase, Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://api.example.com/client/v4/zones?name=example.com&page=2", req.URL)
	assert.Equal(t, "Bearer t", req.Header.Get("Authorization"))

	_, err = BuildRaw("POST", "/zones", []string{"broken"}, nil, Overrides{BaseURL: testBase})
	assert.ErrorIs(t, err, ErrUsage)

	_, err = BuildRaw("POST", "/zones", nil, []byte("nope"), Overrides{BaseURL: testBase})
	assert.ErrorContains(t, err, "malformed request body")

	_, err = BuildRaw("GET", "/zones", nil, nil, Overrides{BaseURL: testBase, Headers: []string{"novalue"}})
	assert.ErrorContains(t, err, "invalid --header")
}

func TestSplitHeader(t *testing.T) {
	t.Parallel()
	k, v, ok := splitHeader("Cookie: a=b")
	require.True(t, ok)
	assert.Equal(t, "Cookie", k)
	assert.Equal(t, "a=b", v)

	k, v, ok = splitHeader("X-Token=abc:def")
	require.True(t, ok)
	assert.Equal(t, "X-Token", k)
	assert.Equal(t, "abc:def", v)

	_, _, ok = splitHeader(":nokey")
	assert.False(t, ok)
}
