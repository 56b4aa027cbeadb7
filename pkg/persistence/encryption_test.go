package persistence_test

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/crabritto/arbor/pkg/domain"
	"github.com/crabritto/arbor/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sampleTree() *domain.Tree {
	return domain.NewTreeFromRoot(&domain.Node{
		ID:    domain.RootID,
		Label: 42,
		Children: []*domain.Node{
			{ID: "n1", Label: 7, Side: domain.SideLeft, Children: []*domain.Node{}},
		},
	})
}

func TestEncryptedCodec_Roundtrip(t *testing.T) {
	codec, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	sealed, err := codec.Marshal(sampleTree())
	require.NoError(t, err)

	plain, _ := persistence.JSONCodec{}.Marshal(sampleTree())
	assert.False(t, bytes.Contains(sealed, plain), "stored bytes must not contain the plain tree")
	assert.NotContains(t, string(sealed), `"label":42`)

	tree, err := codec.Unmarshal(sealed)
	require.NoError(t, err)
	assert.Equal(t, 42, tree.Root().Label)
	assert.Equal(t, 2, tree.Len())
}

func TestEncryptedCodec_KeyRotation(t *testing.T) {
	oldKey, newKey := generateKey(t), generateKey(t)

	oldCodec, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	sealed, err := oldCodec.Marshal(sampleTree())
	require.NoError(t, err)

	rotated, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	tree, err := rotated.Unmarshal(sealed)
	require.NoError(t, err)
	assert.Equal(t, 42, tree.Root().Label)

	// New writes use the new key only.
	resealed, err := rotated.Marshal(tree)
	require.NoError(t, err)
	_, err = oldCodec.Unmarshal(resealed)
	assert.ErrorIs(t, err, persistence.ErrDecrypt)
}

func TestEncryptedCodec_WrongKey(t *testing.T) {
	a, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	b, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	sealed, err := a.Marshal(sampleTree())
	require.NoError(t, err)
	_, err = b.Unmarshal(sealed)
	assert.ErrorIs(t, err, persistence.ErrDecrypt)

	_, err = b.Unmarshal([]byte("short"))
	assert.ErrorIs(t, err, persistence.ErrDecrypt)
}

func TestNewEncryptedCodec_KeySize(t *testing.T) {
	_, err := persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{ActiveKey: []byte("too-short")})
	assert.Error(t, err)

	_, err = persistence.NewEncryptedCodec(nil, persistence.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("bad")},
	})
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	k1, k2 := generateKey(t), generateKey(t)
	cfg, err := persistence.ParseKeys(base64.StdEncoding.EncodeToString(k1), []string{base64.StdEncoding.EncodeToString(k2)})
	require.NoError(t, err)
	assert.Equal(t, k1, cfg.ActiveKey)
	assert.Equal(t, [][]byte{k2}, cfg.FallbackKeys)

	_, err = persistence.ParseKeys("not base64!", nil)
	assert.Error(t, err)
}
