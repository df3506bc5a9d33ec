package envbuild_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
	"github.com/gantryci/gantry/internal/envbuild"
	"github.com/gantryci/gantry/internal/testutil"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func layeredEnv() *config.Environment {
	return &config.Environment{
		Name: "metrics",
		Layers: []*config.Layer{
			{Kind: config.LayerSystemPkgs, Name: "tooling",
				Install: []string{"apk", "add", "build-base"},
				Cleanup: []string{"apk", "del", "build-base"}},
			{Kind: config.LayerLanguageDeps, Name: "pip",
				Install: []string{"pip", "install", "-r", "requirements.txt"}},
			{Kind: config.LayerTestPayload, Name: "pytest",
				Install: []string{"pip", "install", "pytest"}},
		},
	}
}

func TestBuild_RunsLayersInDeclaredOrder(t *testing.T) {
	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	handle, err := builder.Build(testContext(), layeredEnv())
	require.NoError(t, err)
	require.NotEmpty(t, handle.ID)
	require.Equal(t, "metrics", handle.Environment)
	require.DirExists(t, handle.Dir)

	// Install then its paired cleanup, then the next layer's install.
	require.Equal(t, []string{
		"apk add build-base",
		"apk del build-base",
		"pip install -r requirements.txt",
		"pip install pytest",
	}, engine.CallStrings())
}

func TestBuild_ShortCircuitsOnFailingLayer(t *testing.T) {
	engine := &testutil.ScriptedEngine{
		Handler: func(dir string, argv []string) (*envbuild.ExecResult, error) {
			if argv[0] == "pip" {
				return &envbuild.ExecResult{ExitStatus: 1, Log: []byte("resolution failed")}, nil
			}
			return &envbuild.ExecResult{}, nil
		},
	}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	handle, err := builder.Build(testContext(), layeredEnv())
	require.Nil(t, handle)

	var buildErr *envbuild.BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, "metrics", buildErr.Environment)
	require.Equal(t, "pip", buildErr.Layer)
	require.Equal(t, "install", buildErr.Action)
	require.Equal(t, 1, buildErr.ExitStatus)
	require.Equal(t, []byte("resolution failed"), buildErr.Log)

	// The third layer never runs.
	require.Equal(t, []string{
		"apk add build-base",
		"apk del build-base",
		"pip install -r requirements.txt",
	}, engine.CallStrings())
}

func TestBuild_SuccessIsCached(t *testing.T) {
	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	first, err := builder.Build(testContext(), layeredEnv())
	require.NoError(t, err)
	callsAfterFirst := len(engine.Calls())

	second, err := builder.Build(testContext(), layeredEnv())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Len(t, engine.Calls(), callsAfterFirst)
}

func TestBuild_FailureIsCached(t *testing.T) {
	engine := &testutil.ScriptedEngine{
		Handler: func(dir string, argv []string) (*envbuild.ExecResult, error) {
			return &envbuild.ExecResult{ExitStatus: 7}, nil
		},
	}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	_, firstErr := builder.Build(testContext(), layeredEnv())
	require.Error(t, firstErr)
	callsAfterFirst := len(engine.Calls())

	_, secondErr := builder.Build(testContext(), layeredEnv())
	require.Equal(t, firstErr, secondErr)
	require.Len(t, engine.Calls(), callsAfterFirst)
}

func TestBuild_DistinctSpecsGetDistinctSnapshots(t *testing.T) {
	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	a, err := builder.Build(testContext(), layeredEnv())
	require.NoError(t, err)

	other := layeredEnv()
	other.Name = "forecast"
	b, err := builder.Build(testContext(), other)
	require.NoError(t, err)

	require.NotEqual(t, a.Digest, b.Digest)
	require.NotEqual(t, a.Dir, b.Dir)
}

func TestBuild_CancelledBeforeFirstLayer(t *testing.T) {
	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(testContext())
	cancel()

	_, buildErr := builder.Build(cancelled, layeredEnv())
	require.ErrorIs(t, buildErr, context.Canceled)
	require.Empty(t, engine.Calls())

	// Cancellation is not cached; a later attempt builds for real.
	handle, err := builder.Build(testContext(), layeredEnv())
	require.NoError(t, err)
	require.NotNil(t, handle)
	require.Len(t, engine.Calls(), 4)
}

func TestBuild_MaterialisesCopyInputs(t *testing.T) {
	sourceRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(sourceRoot, "metrics"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "metrics", "app.py"), []byte("print()\n"), 0o644))

	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, sourceRoot, t.TempDir())
	require.NoError(t, err)

	env := &config.Environment{
		Name: "payload",
		Layers: []*config.Layer{
			{Kind: config.LayerAppPayload, Name: "sources", Copy: []string{"metrics"}},
		},
	}
	handle, err := builder.Build(testContext(), env)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(handle.Dir, "metrics", "app.py"))
}

func TestBuild_MissingCopyInputFailsLayer(t *testing.T) {
	engine := &testutil.ScriptedEngine{}
	builder, err := envbuild.New(engine, t.TempDir(), t.TempDir())
	require.NoError(t, err)

	env := &config.Environment{
		Name: "payload",
		Layers: []*config.Layer{
			{Kind: config.LayerAppPayload, Name: "sources", Copy: []string{"absent"}},
		},
	}
	_, buildErr := builder.Build(testContext(), env)

	var be *envbuild.BuildError
	require.ErrorAs(t, buildErr, &be)
	require.Equal(t, "sources", be.Layer)
	require.Equal(t, "copy", be.Action)
	require.True(t, errors.Is(be, os.ErrNotExist))
}

func TestLease_ClonesSnapshotAndReleases(t *testing.T) {
	sourceRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceRoot, "conftest.py"), []byte(""), 0o644))

	builder, err := envbuild.New(&testutil.ScriptedEngine{}, sourceRoot, t.TempDir())
	require.NoError(t, err)

	env := &config.Environment{
		Name: "payload",
		Layers: []*config.Layer{
			{Kind: config.LayerTestPayload, Name: "tests", Copy: []string{"conftest.py"}},
		},
	}
	handle, err := builder.Build(testContext(), env)
	require.NoError(t, err)

	dir, release, err := builder.Lease(testContext(), handle, "test-metrics")
	require.NoError(t, err)
	require.NotEqual(t, handle.Dir, dir)
	require.FileExists(t, filepath.Join(dir, "conftest.py"))

	// Mutating the lease leaves the snapshot untouched.
	require.NoError(t, os.Remove(filepath.Join(dir, "conftest.py")))
	require.FileExists(t, filepath.Join(handle.Dir, "conftest.py"))

	release()
	require.NoDirExists(t, dir)
}
