package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semind/semind/pkg/identity"
)

func TestSourceInstanceIDDeterministic(t *testing.T) {
	a := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs")
	b := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs")
	require.Equal(t, a, b)
	require.Len(t, a, 64) // hex-encoded sha256
}

func TestSourceInstanceIDDeviceSensitive(t *testing.T) {
	a := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs")
	b := identity.SourceInstanceID("filesystem", "dev-2", "/data/docs")
	assert.NotEqual(t, a, b)
}

func TestSourceInstanceIDTrailingSlashNormalization(t *testing.T) {
	a := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs/")
	b := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs")
	assert.Equal(t, a, b, "trailing slash must not change identity")
}

func TestDocumentPartIDBindsSourceAndLocator(t *testing.T) {
	sid := identity.SourceInstanceID("filesystem", "dev-1", "/data/docs")
	a := identity.DocumentPartID(sid, "filesystem:/data/docs/a.txt")
	b := identity.DocumentPartID(sid, "filesystem:/data/docs/b.txt")
	assert.NotEqual(t, a, b)
}

func TestChunkIDPositionSensitive(t *testing.T) {
	a := identity.ChunkID("part-1", "checksum-1", 0)
	b := identity.ChunkID("part-1", "checksum-1", 1)
	assert.NotEqual(t, a, b, "chunk id must mutate with position")
}

func TestChunkIDContentSensitive(t *testing.T) {
	a := identity.ChunkID("part-1", "checksum-1", 0)
	b := identity.ChunkID("part-1", "checksum-2", 0)
	assert.NotEqual(t, a, b, "chunk id must mutate when content changes")
}

func TestChecksumMatchesCanonicalizedText(t *testing.T) {
	raw := "  hello world  \n\n"
	canon := identity.Canonicalize(raw)
	assert.Equal(t, identity.Checksum(canon), identity.Checksum(identity.Canonicalize(raw)))
	assert.Equal(t, "hello world", canon)
}
