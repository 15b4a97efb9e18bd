package proc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/chadac/nixspace/lockfile"
)

// FlakeMetadata is the builder tool's answer to a metadata query: the
// resolved pin, the lockfile it produced, and some descriptive fields.
// Field names mirror the builder's own JSON output (flake_type serializes
// as "type" inside the nested InputSpecs per lockfile.InputSpec's tags).
type FlakeMetadata struct {
	Description  string             `json:"description,omitempty"`
	LastModified int64              `json:"lastModified"`
	Locked       lockfile.InputSpec `json:"locked"`
	Locks        *lockfile.LockFile `json:"locks,omitempty"`
	Original     lockfile.InputSpec `json:"original"`
	OriginalURL  string             `json:"originalUrl"`
	Path         string             `json:"path"`
	Resolved     lockfile.InputSpec `json:"resolved"`
	ResolvedURL  string             `json:"resolvedUrl"`
	Revision     string             `json:"revision,omitempty"`
	URL          string             `json:"url"`
}

// PrefetchResult is the builder's answer to a prefetch query.
type PrefetchResult struct {
	Hash      string `json:"hash"`
	StorePath string `json:"storePath"`
}

// Builder wraps the flake build tool collaborator: clone, prefetch,
// metadata, and an interactive passthrough run.
type Builder struct {
	// Tool is the build tool binary name, overridable for tests.
	Tool string
}

// NewBuilder returns a Builder that shells out to the system `nix`.
func NewBuilder() *Builder {
	return &Builder{Tool: "nix"}
}

func (b *Builder) tool() string {
	if b.Tool == "" {
		return "nix"
	}
	return b.Tool
}

// FlakeClone materializes ref at dest by cloning the flake's source tree —
// the mechanism `workspace.Edit` uses to make a registered project's
// reference locally editable.
func (b *Builder) FlakeClone(ctx context.Context, ref, dest string) error {
	_, _, err := run(ctx, b.tool(), "", "flake", "clone", ref, "--dest", dest)
	return err
}

// FlakePrefetch fetches ref into the store and reports its hash and path.
func (b *Builder) FlakePrefetch(ctx context.Context, ref string) (PrefetchResult, error) {
	stdout, _, err := run(ctx, b.tool(), "", "flake", "prefetch", "--json", ref)
	if err != nil {
		return PrefetchResult{}, err
	}
	var result PrefetchResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		return PrefetchResult{}, errors.Wrap(err, "parsing flake prefetch output")
	}
	return result, nil
}

// FlakeMetadata fetches canonical metadata for url: its resolved pin,
// original and locked InputSpecs, and the flake's own lockfile. This is
// the authoritative source strategy.Update consumes verbatim.
func (b *Builder) FlakeMetadata(ctx context.Context, url string) (FlakeMetadata, error) {
	stdout, _, err := run(ctx, b.tool(), "", "flake", "metadata", "--json", url)
	if err != nil {
		return FlakeMetadata{}, err
	}
	var meta FlakeMetadata
	if err := json.Unmarshal([]byte(stdout), &meta); err != nil {
		return FlakeMetadata{}, errors.Wrap(err, "parsing flake metadata output")
	}
	return meta, nil
}

// Run invokes the builder tool interactively from cwd, inheriting the
// caller's stdin/stdout/stderr. Used for `build`/`run` passthrough.
func (b *Builder) Run(ctx context.Context, cwd string, args ...string) error {
	return runInteractive(ctx, b.tool(), cwd, args...)
}
