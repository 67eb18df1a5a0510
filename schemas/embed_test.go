package schemas_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/cloudflare-cli/internal/artifact"
	"github.com/mark3labs/cloudflare-cli/internal/compiler"
	"github.com/mark3labs/cloudflare-cli/internal/spec"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
	"github.com/mark3labs/cloudflare-cli/schemas"
)

// The embedded tree must be exactly what compiling the embedded document
// produces today.
func TestEmbeddedTreeIsUpToDate(t *testing.T) {
	doc, err := spec.Load(context.Background(), "openapi.yaml")
	require.NoError(t, err)
	sm, err := spec.BuildSchemaModel(context.Background(), doc.T)
	require.NoError(t, err)
	compiled, err := compiler.Compile(sm)
	require.NoError(t, err)
	compiled.SourceDigest = artifact.Digest(doc.Raw)

	want, err := tree.Marshal(compiled)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(schemas.CommandTree), "run `cloudflare compile` to refresh schemas/command_tree.json")
}

func TestEmbeddedTreeDecodes(t *testing.T) {
	ct, err := tree.Unmarshal(schemas.CommandTree)
	require.NoError(t, err)
	assert.Equal(t, 4, ct.Version)
	assert.Equal(t, tree.DefaultEndpoint, ct.Endpoint)
	assert.Equal(t, artifact.Digest(schemas.OpenAPI), ct.SourceDigest)

	op, ok := ct.Lookup("dns-records-for-a-zone", "dns-records-for-a-zone-list-dns-records")
	require.True(t, ok)
	assert.Equal(t, "/zones/{zone_id}/dns_records", op.Path)

	raw, err := os.ReadFile("openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, raw, schemas.OpenAPI)
}
