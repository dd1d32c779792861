package registry_test

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dserrors "github.com/systmms/envvault/internal/errors"
	"github.com/systmms/envvault/internal/registry"
	"github.com/systmms/envvault/internal/source"
	"github.com/systmms/envvault/tests/testutil"
)

// countingOpener loads dotenv files from dir and counts how often it is called.
func countingOpener(dir string, calls *int32, delay time.Duration) registry.Opener {
	return func(key registry.Key) (source.Source, error) {
		atomic.AddInt32(calls, 1)
		time.Sleep(delay)
		return source.OpenEnvironment(key.DisplayName, key.FileIdentifier, dir, nil, source.WithEnvLookup(testutil.NoEnv))
	}
}

func TestGetConfigurationCachesInstance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "alice"})

	var calls int32
	reg := registry.New(countingOpener(dir, &calls, 0))

	first, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)
	second, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, reg.Len())

	value, err := first.Get("PORTAL_USERNAME")
	require.NoError(t, err)
	assert.Equal(t, "alice", value)
}

func TestGetConfigurationDistinctKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env", map[string]string{"A": "base"})
	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"A": "uat"})

	var calls int32
	reg := registry.New(countingOpener(dir, &calls, 0))

	base, err := reg.GetConfiguration("BASE", ".env")
	require.NoError(t, err)
	uat, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)
	// Same file under a different display name is a different instance.
	alias, err := reg.GetConfiguration("STAGING", ".env.uat")
	require.NoError(t, err)

	assert.NotSame(t, base, uat)
	assert.NotSame(t, uat, alias)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetConfigurationInvalidArguments(t *testing.T) {
	t.Parallel()

	var calls int32
	reg := registry.New(countingOpener(t.TempDir(), &calls, 0))

	_, err := reg.GetConfiguration("", ".env")
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
	_, err = reg.GetConfiguration("UAT", "")
	assert.ErrorIs(t, err, dserrors.ErrInvalidArgument)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLoadFailureIsNotCached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, logs := testutil.NewTestLogger(t)

	var calls int32
	reg := registry.New(countingOpener(dir, &calls, 0), registry.WithLogger(logger))

	_, err := reg.GetConfiguration("UAT", ".env.uat")
	var cfgErr *dserrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, logs.String(), "getConfiguration failed for UAT:.env.uat")
	assert.Zero(t, reg.Len())

	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "alice"})
	src, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)
	assert.NotNil(t, src)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenerErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("disk on fire")
	reg := registry.New(func(registry.Key) (source.Source, error) { return nil, root })

	_, err := reg.GetConfiguration("UAT", ".env.uat")
	var cfgErr *dserrors.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "UAT:.env.uat", cfgErr.Key)
	assert.ErrorIs(t, err, root)
}

func TestConcurrentFirstAccessLoadsOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "alice"})

	var calls int32
	reg := registry.New(countingOpener(dir, &calls, 50*time.Millisecond))

	const callers = 50
	results := make([]source.Source, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(id int) {
			defer wg.Done()
			<-start
			results[id], errs[id] = reg.GetConfiguration("UAT", ".env.uat")
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one file load")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestConcurrentUnrelatedKeys(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}
	t.Parallel()

	dir := t.TempDir()
	const envs = 10
	for i := 0; i < envs; i++ {
		testutil.WriteEnvFile(t, dir, fmt.Sprintf(".env.%d", i), map[string]string{"ID": fmt.Sprint(i)})
	}

	var calls int32
	reg := registry.New(countingOpener(dir, &calls, 10*time.Millisecond))

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for i := 0; i < envs; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				src, err := reg.GetConfiguration(fmt.Sprintf("ENV%d", id), fmt.Sprintf(".env.%d", id))
				if assert.NoError(t, err) {
					value, _ := src.Get("ID")
					assert.Equal(t, fmt.Sprint(id), value)
				}
			}(i)
		}
	}
	wg.Wait()

	assert.Equal(t, int32(envs), atomic.LoadInt32(&calls))
	assert.Equal(t, envs, reg.Len())
}

func TestClearCacheForcesFreshRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "alice"})
	reg := registry.NewEnvironmentRegistry(dir, nil, source.WithEnvLookup(testutil.NoEnv))

	before, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)

	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "bob"})

	cached, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)
	value, _ := cached.Get("PORTAL_USERNAME")
	assert.Equal(t, "alice", value, "cache hit does not touch disk")

	reg.ClearCache()
	assert.Zero(t, reg.Len())

	after, err := reg.GetConfiguration("UAT", ".env.uat")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	value, _ = after.Get("PORTAL_USERNAME")
	assert.Equal(t, "bob", value)

	// The instance handed out before the clear still works.
	value, _ = before.Get("PORTAL_USERNAME")
	assert.Equal(t, "alice", value)
}

func TestClearDuringLoadDoesNotCacheStaleEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteEnvFile(t, dir, ".env.uat", map[string]string{"PORTAL_USERNAME": "alice"})

	entered := make(chan struct{})
	release := make(chan struct{})
	reg := registry.New(func(key registry.Key) (source.Source, error) {
		close(entered)
		<-release
		return source.OpenEnvironment(key.DisplayName, key.FileIdentifier, dir, nil)
	})

	done := make(chan source.Source)
	go func() {
		src, err := reg.GetConfiguration("UAT", ".env.uat")
		assert.NoError(t, err)
		done <- src
	}()

	<-entered
	reg.ClearCache()
	close(release)

	assert.NotNil(t, <-done, "in-flight callers still get their source")
	assert.Zero(t, reg.Len())
}

func TestPropertiesRegistry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WritePropertiesFile(t, dir, "global.properties", map[string]string{"CHROME_BROWSER": "chrome"})
	reg := registry.NewPropertiesRegistry(dir, nil, source.WithEnvLookup(testutil.NoEnv))

	src, err := reg.GetConfiguration("GLOBAL", "global.properties")
	require.NoError(t, err)
	browser, err := src.Get("CHROME_BROWSER")
	require.NoError(t, err)
	assert.Equal(t, "chrome", browser)
}

func TestKeyString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "UAT:.env.uat", registry.Key{DisplayName: "UAT", FileIdentifier: ".env.uat"}.String())
}
