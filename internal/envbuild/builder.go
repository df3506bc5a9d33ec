package envbuild

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gantryci/gantry/internal/config"
	"github.com/gantryci/gantry/internal/ctxlog"
)

// snapshotCacheSize bounds how many built environments are kept addressable.
const snapshotCacheSize = 64

// Handle is an opaque reference to a fully built, immutable environment
// snapshot.
type Handle struct {
	// ID uniquely identifies this snapshot instance.
	ID string
	// Environment is the name of the spec the snapshot was built from.
	Environment string
	// Digest is the content digest of the spec; identical specs share it.
	Digest string
	// Dir is the snapshot root. Treat as read-only; jobs run in leases.
	Dir string
}

// outcome records the terminal result of one build so repeat requests,
// including ones for environments that failed to build, resolve without
// re-running any layer action.
type outcome struct {
	handle *Handle
	err    error
}

// Builder assembles environment snapshots from layered specs.
type Builder struct {
	engine      Engine
	sourceRoot  string
	scratchRoot string

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
	cache    *lru.Cache[string, *outcome]
}

// New creates a Builder. sourceRoot is the directory copy inputs are
// resolved against; scratchRoot receives snapshots and leases.
func New(engine Engine, sourceRoot, scratchRoot string) (*Builder, error) {
	cache, err := lru.New[string, *outcome](snapshotCacheSize)
	if err != nil {
		return nil, err
	}
	return &Builder{
		engine:      engine,
		sourceRoot:  sourceRoot,
		scratchRoot: scratchRoot,
		inflight:    make(map[string]*sync.Mutex),
		cache:       cache,
	}, nil
}

// Build applies the spec's layers strictly in declared order and returns a
// handle to the resulting snapshot. Builds are cancellable at layer
// boundaries only: a layer action already running completes before the
// cancellation is observed. Two concurrent builds of the same spec
// coalesce into one.
func (b *Builder) Build(ctx context.Context, env *config.Environment) (*Handle, error) {
	digest, err := specDigest(env)
	if err != nil {
		return nil, err
	}

	// Serialise per digest so concurrent jobs sharing an environment
	// trigger exactly one build.
	lock := b.digestLock(digest)
	lock.Lock()
	defer lock.Unlock()

	if out, ok := b.cache.Get(digest); ok {
		ctxlog.FromContext(ctx).Debug("Environment snapshot cache hit.",
			"environment", env.Name, "digest", digest[:12])
		return out.handle, out.err
	}

	handle, err := b.build(ctx, env, digest)
	if err != nil {
		// Cancellation is not a property of the spec; do not poison the
		// cache with it.
		if ctx.Err() != nil {
			return nil, err
		}
		b.cache.Add(digest, &outcome{err: err})
		return nil, err
	}
	b.cache.Add(digest, &outcome{handle: handle})
	return handle, nil
}

func (b *Builder) build(ctx context.Context, env *config.Environment, digest string) (*Handle, error) {
	logger := ctxlog.FromContext(ctx).With("environment", env.Name)
	logger.Info("▶️ Building environment", "layers", len(env.Layers))

	dir := filepath.Join(b.scratchRoot, "env-"+digest[:12])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	// Layer actions run to completion even if the run is being cancelled;
	// the boundary check below is the only cancellation point.
	actionCtx := context.WithoutCancel(ctx)

	for i, layer := range env.Layers {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("environment build cancelled before layer %q: %w", layer.Name, err)
		}
		layerLogger := logger.With("layer", layer.Name, "kind", string(layer.Kind), "index", i)

		for _, src := range layer.Copy {
			layerLogger.Debug("Materialising copy input.", "source", src)
			if err := copyInput(b.sourceRoot, src, dir); err != nil {
				os.RemoveAll(dir)
				return nil, &BuildError{
					Environment: env.Name, Layer: layer.Name, Action: "copy", Err: err,
				}
			}
		}

		if len(layer.Install) > 0 {
			layerLogger.Debug("Running install action.", "argv", layer.Install)
			if err := b.runAction(actionCtx, env.Name, layer, "install", layer.Install, dir); err != nil {
				os.RemoveAll(dir)
				return nil, err
			}
		}

		// The cleanup action is paired to the install and runs
		// unconditionally once the install has succeeded, stripping the
		// build-only tooling the layer pulled in.
		if len(layer.Cleanup) > 0 {
			layerLogger.Debug("Running cleanup action.", "argv", layer.Cleanup)
			if err := b.runAction(actionCtx, env.Name, layer, "cleanup", layer.Cleanup, dir); err != nil {
				os.RemoveAll(dir)
				return nil, err
			}
		}
	}

	handle := &Handle{
		ID:          uuid.NewString(),
		Environment: env.Name,
		Digest:      digest,
		Dir:         dir,
	}
	logger.Info("✅ Environment built", "digest", digest[:12])
	return handle, nil
}

// runAction executes one layer action and converts any failure into a
// BuildError.
func (b *Builder) runAction(ctx context.Context, envName string, layer *config.Layer, action string, argv []string, dir string) error {
	result, err := b.engine.Exec(ctx, dir, argv)
	if err != nil {
		return &BuildError{Environment: envName, Layer: layer.Name, Action: action, Err: err}
	}
	if result.ExitStatus != 0 {
		return &BuildError{
			Environment: envName,
			Layer:       layer.Name,
			Action:      action,
			ExitStatus:  result.ExitStatus,
			Log:         result.Log,
		}
	}
	return nil
}

// digestLock returns the mutex serialising builds of one digest.
func (b *Builder) digestLock(digest string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.inflight[digest]
	if !ok {
		lock = &sync.Mutex{}
		b.inflight[digest] = lock
	}
	return lock
}

// specDigest derives the content digest of an environment spec from its
// canonical JSON encoding.
func specDigest(env *config.Environment) (string, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint environment %q: %w", env.Name, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
