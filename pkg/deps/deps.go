// Package deps resolves the external driver toolchain at run time.
//
// The DepthAI device stack is distributed through pip rather than a
// system package manager, so first use on a fresh capture rig has to
// be able to install it on demand. Ensure probes the interpreter for
// an importable module, installs the distribution when the probe
// fails, and re-probes in the same process. Results are cached per
// distribution behind a mutex so concurrent first use is serialized
// instead of racing on the install step.
package deps

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// Spec identifies one resolvable distribution.
type Spec struct {
	// Dist is the name handed to the installer (e.g. "opencv-python").
	Dist string

	// Import is the importable module name (e.g. "cv2"). When empty it
	// defaults to Dist with dashes mapped to underscores.
	Import string
}

// Well-known specs for the sensor backends.
var (
	// DepthAI is the Luxonis OAK driver stack.
	DepthAI = Spec{Dist: "depthai"}

	// OpenCV is the video library used by the device pipeline helper.
	OpenCV = Spec{Dist: "opencv-python", Import: "cv2"}
)

func (s Spec) importName() string {
	if s.Import != "" {
		return s.Import
	}
	name := []byte(s.Dist)
	for i, c := range name {
		if c == '-' {
			name[i] = '_'
		}
	}
	return string(name)
}

// Resolution is the result of a successful Ensure call.
type Resolution struct {
	// Dist is the resolved distribution name.
	Dist string

	// Import is the module name that was probed.
	Import string

	// Installed reports whether this call performed an install, as
	// opposed to hitting the already-importable fast path.
	Installed bool
}

// Runner executes one toolchain command and returns its combined output.
// It exists so tests can observe and fake subprocess invocations.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Resolver ensures distributions are importable, installing on demand.
// The zero value is not usable; call NewResolver.
type Resolver struct {
	python string
	run    Runner
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]Resolution
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPython sets the interpreter binary (default "python3").
func WithPython(bin string) Option {
	return func(r *Resolver) { r.python = bin }
}

// WithRunner replaces the subprocess runner.
func WithRunner(run Runner) Option {
	return func(r *Resolver) { r.run = run }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		python: "python3",
		run:    execRunner,
		logger: slog.Default(),
		cache:  make(map[string]Resolution),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure makes spec importable in the current environment.
//
// Already-resolved distributions return from the cache without any
// subprocess invocation. A failed probe triggers one install attempt
// (retried user-scoped if the system-scoped install is rejected)
// followed by a re-probe; only successes are cached, so a later call
// after an out-of-band install re-probes rather than short-circuiting
// on stale not-found state. Installation failures are not retried
// here; retry policy belongs to the caller.
func (r *Resolver) Ensure(ctx context.Context, spec Spec) (Resolution, error) {
	if spec.Dist == "" {
		return Resolution{}, fmt.Errorf("deps: empty distribution name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.cache[spec.Dist]; ok {
		return res, nil
	}

	mod := spec.importName()

	if err := r.probe(ctx, mod); err == nil {
		res := Resolution{Dist: spec.Dist, Import: mod}
		r.cache[spec.Dist] = res
		return res, nil
	}

	r.logger.Info("dependency not importable, installing",
		"dist", spec.Dist,
		"import", mod,
	)

	if err := r.install(ctx, spec.Dist); err != nil {
		return Resolution{}, &UnavailableError{Dist: spec.Dist, Err: err}
	}

	if err := r.probe(ctx, mod); err != nil {
		return Resolution{}, &UnavailableError{Dist: spec.Dist, Err: fmt.Errorf("still not importable after install: %w", err)}
	}

	r.logger.Info("dependency installed", "dist", spec.Dist)

	res := Resolution{Dist: spec.Dist, Import: mod, Installed: true}
	r.cache[spec.Dist] = res
	return res, nil
}

// probe checks that mod is importable by the interpreter.
func (r *Resolver) probe(ctx context.Context, mod string) error {
	out, err := r.run(ctx, r.python, "-c", "import "+mod)
	if err != nil {
		return fmt.Errorf("import %s: %w (%s)", mod, err, firstLine(out))
	}
	return nil
}

// install runs the package installer for dist, falling back to a
// user-scoped install when the environment rejects the first attempt.
// The interpreter picks up the user site directory on its own, so no
// path surgery is needed before the re-probe.
func (r *Resolver) install(ctx context.Context, dist string) error {
	out, err := r.run(ctx, r.python, "-m", "pip", "install", dist)
	if err == nil {
		return nil
	}
	r.logger.Warn("install failed, retrying user-scoped",
		"dist", dist,
		"error", err,
	)
	userOut, userErr := r.run(ctx, r.python, "-m", "pip", "install", "--user", dist)
	if userErr == nil {
		return nil
	}
	return fmt.Errorf("pip install: %w (%s); --user: %v (%s)",
		err, firstLine(out), userErr, firstLine(userOut))
}

func firstLine(out []byte) string {
	for i, c := range out {
		if c == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}

var (
	defaultResolver     *Resolver
	defaultResolverOnce sync.Once
)

// Default returns the process-wide resolver.
func Default() *Resolver {
	defaultResolverOnce.Do(func() {
		defaultResolver = NewResolver()
	})
	return defaultResolver
}

// Ensure resolves spec with the process-wide resolver.
func Ensure(ctx context.Context, spec Spec) (Resolution, error) {
	return Default().Ensure(ctx, spec)
}
