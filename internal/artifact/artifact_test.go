package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

func sampleTree() *tree.CommandTree {
	return &tree.CommandTree{
		Version:      4,
		Endpoint:     tree.DefaultEndpoint,
		SourceDigest: Digest([]byte("openapi: 3.0.3\n")),
		Resources: []tree.Resource{{
			Name:        "zones",
			DisplayName: "Zone",
			Operations: []tree.Operation{{
				Name:        "get",
				DisplayName: "Zone Details",
				Method:      "GET",
				Path:        "/zones/{zone_id}",
				Parameters: []tree.Param{
					{Name: "zone_id", Flag: "zone-id", Location: tree.InPath, Required: true, Type: tree.TypeString},
				},
			}},
		}},
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "blake3:af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", Digest(nil))
	assert.Equal(t, "blake3:6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85", Digest([]byte("abc")))
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}

func TestWriteLoad_Plain(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "command_tree.json")
	require.NoError(t, Write(path, sampleTree()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := tree.Marshal(sampleTree())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(raw))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleTree(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestWriteLoad_Zstd(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "command_tree.json.zst")
	require.NoError(t, Write(path, sampleTree()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, zstdMagic, raw[:4])

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleTree(), got)

	// Detection is by content, not by name.
	renamed := filepath.Join(filepath.Dir(path), "tree.bin")
	require.NoError(t, os.Rename(path, renamed))
	got, err = Load(renamed)
	require.NoError(t, err)
	assert.Equal(t, "zones", got.Resources[0].Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	corrupt := filepath.Join(dir, "corrupt.zst")
	require.NoError(t, os.WriteFile(corrupt, append(append([]byte{}, zstdMagic...), 0xff, 0xff), 0o644))
	_, err = Load(corrupt)
	assert.ErrorContains(t, err, "zstd decompress")
}

func TestCheck(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "command_tree.json")

	err := Check(path, sampleTree())
	assert.True(t, errors.Is(err, ErrStale))

	require.NoError(t, Write(path, sampleTree()))
	require.NoError(t, Check(path, sampleTree()))

	changed := sampleTree()
	changed.Resources[0].Operations[0].Summary = "Zone Details"
	assert.True(t, errors.Is(Check(path, changed), ErrStale))
}
