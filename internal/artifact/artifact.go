// Package artifact reads and writes compiled command tree files. A path
// ending in .zst is stored zstd-compressed; reads detect the frame magic
// regardless of the file name.
package artifact

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/mark3labs/cloudflare-cli/internal/tree"
)

// DigestPrefix tags source digests with the hash algorithm.
const DigestPrefix = "blake3:"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrStale is returned by Check when the file on disk differs from the
// freshly compiled tree.
var ErrStale = errors.New("command tree is out of date")

// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("artifact: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("artifact: zstd decoder initialization failed: " + err.Error())
	}
}

// Digest fingerprints the raw bytes of an OpenAPI document.
func Digest(source []byte) string {
	sum := blake3.Sum256(source)
	return DigestPrefix + hex.EncodeToString(sum[:])
}

// Compressed reports whether path selects the zstd encoding.
func Compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Encode serializes t in canonical form, compressing it when path asks for
// it.
func Encode(path string, t *tree.CommandTree) ([]byte, error) {
	data, err := tree.Marshal(t)
	if err != nil {
		return nil, err
	}
	if Compressed(path) {
		return zstdEncoder.EncodeAll(data, nil), nil
	}
	return data, nil
}

// Decode undoes Encode.
func Decode(data []byte) (*tree.CommandTree, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		plain, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		data = plain
	}
	return tree.Unmarshal(data)
}

// Load reads a command tree file.
func Load(path string) (*tree.CommandTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading command tree: %w", err)
	}
	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write stores t at path atomically: the file is written to a temporary
// sibling and renamed into place.
func Write(path string, t *tree.CommandTree) error {
	data, err := Encode(path, t)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-command-tree-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing command tree: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod command tree: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming command tree: %w", err)
	}
	success = true
	return nil
}

// Check compares the tree stored at path with t. It returns ErrStale when
// they differ or the file is missing.
func Check(path string, t *tree.CommandTree) error {
	onDisk, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrStale, path)
	}
	if err != nil {
		return err
	}
	have, err := tree.Marshal(onDisk)
	if err != nil {
		return err
	}
	want, err := tree.Marshal(t)
	if err != nil {
		return err
	}
	if !bytes.Equal(have, want) {
		return fmt.Errorf("%w: %s", ErrStale, path)
	}
	return nil
}
