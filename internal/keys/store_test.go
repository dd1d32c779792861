package keys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/keys"
	"github.com/systmms/envvault/internal/source"
	"github.com/systmms/envvault/tests/testutil"
)

func openBase(t *testing.T, values map[string]string) *source.FileSource {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env", values)
	src, err := source.OpenEnvironment("BASE", ".env", dir, nil, source.WithEnvLookup(testutil.NoEnv))
	require.NoError(t, err)
	return src
}

func TestSourceStoreSaveLoad(t *testing.T) {
	t.Parallel()

	src := openBase(t, map[string]string{"BROWSER": "chrome"})
	store := keys.SourceStore{Source: src}

	encoded, err := keys.Encode(generate(t))
	require.NoError(t, err)
	require.NoError(t, store.Save("UAT_SECRET_KEY", encoded))

	loaded, err := store.Load("UAT_SECRET_KEY")
	require.NoError(t, err)
	assert.Equal(t, encoded, loaded)

	// Other variables survive and the key is on disk.
	browser, err := src.Get("BROWSER")
	require.NoError(t, err)
	assert.Equal(t, "chrome", browser)
	testutil.AssertFileContains(t, src.Path(), "UAT_SECRET_KEY=")

	_, err = store.Load("MISSING_KEY")
	assert.ErrorIs(t, err, dserrors.ErrMissingKey)
	assert.ErrorIs(t, store.Save("", encoded), dserrors.ErrInvalidArgument)
}

func TestKeyringStoreSaveLoad(t *testing.T) {
	keyring.MockInit()

	store := keys.KeyringStore{Service: "envvault-test"}
	assert.Equal(t, "keyring envvault-test", store.Name())

	_, err := store.Load("UAT_SECRET_KEY")
	assert.ErrorIs(t, err, dserrors.ErrMissingKey)

	encoded, err := keys.Encode(generate(t))
	require.NoError(t, err)
	require.NoError(t, store.Save("UAT_SECRET_KEY", encoded))

	loaded, err := store.Load("UAT_SECRET_KEY")
	require.NoError(t, err)
	assert.Equal(t, encoded, loaded)
}

func TestResolveOrder(t *testing.T) {
	keyring.MockInit()

	first := generate(t)
	firstEncoded, err := keys.Encode(first)
	require.NoError(t, err)
	second := generate(t)
	secondEncoded, err := keys.Encode(second)
	require.NoError(t, err)

	fileStore := keys.SourceStore{Source: openBase(t, map[string]string{"UAT_SECRET_KEY": firstEncoded})}
	ringStore := keys.KeyringStore{Service: "envvault-resolve"}
	require.NoError(t, ringStore.Save("UAT_SECRET_KEY", secondEncoded))
	require.NoError(t, ringStore.Save("ONLY_IN_RING", secondEncoded))

	key, from, err := keys.Resolve("UAT_SECRET_KEY", fileStore, ringStore)
	require.NoError(t, err)
	defer key.Destroy()
	assert.Equal(t, fileStore.Name(), from.Name())
	got, err := keys.Encode(key)
	require.NoError(t, err)
	assert.Equal(t, firstEncoded, got)

	key2, from, err := keys.Resolve("ONLY_IN_RING", fileStore, ringStore)
	require.NoError(t, err)
	defer key2.Destroy()
	assert.Equal(t, ringStore.Name(), from.Name())

	_, _, err = keys.Resolve("NOWHERE", fileStore, ringStore)
	assert.ErrorIs(t, err, dserrors.ErrMissingKey)

	_, _, err = keys.Resolve("NOWHERE")
	assert.ErrorIs(t, err, dserrors.ErrMissingKey)
}

func TestResolveRejectsCorruptKey(t *testing.T) {
	t.Parallel()

	store := keys.SourceStore{Source: openBase(t, map[string]string{"UAT_SECRET_KEY": "not-a-key"})}
	_, _, err := keys.Resolve("UAT_SECRET_KEY", store)
	assert.ErrorIs(t, err, dserrors.ErrInvalidKeyEncoding)
}
