// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workspace implements the top-level aggregate (C6): the config,
// per-environment lockfiles, and local overlay that together describe a
// workspace root, plus every mutating and read-only operation that acts on
// them.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	radix "github.com/armon/go-radix"
	"github.com/pkg/errors"

	"github.com/chadac/nixspace/internal/fsutil"
	"github.com/chadac/nixspace/lockfile"
	"github.com/chadac/nixspace/log"
	"github.com/chadac/nixspace/merge"
	"github.com/chadac/nixspace/proc"
	"github.com/chadac/nixspace/ref"
	"github.com/chadac/nixspace/strategy"
)

const (
	configFileName = "nixspace.toml"
	stateDirName   = ".nixspace"
	localFileName  = "local.json"
)

// Workspace is the top-level aggregate: root directory, config, one
// LockFile per configured environment, and the local overlay.
type Workspace struct {
	Root   string
	Config *Config
	Locks  map[string]*lockfile.LockFile
	Local  *Local

	VCS     *proc.VCS
	Builder *proc.Builder
	Log     *log.Logger
}

// configPath, stateDir, lockPath, and localPath are the on-disk layout
// rooted at w.Root.
func (w *Workspace) configPath() string { return filepath.Join(w.Root, configFileName) }
func (w *Workspace) stateDir() string   { return filepath.Join(w.Root, stateDirName) }
func (w *Workspace) lockPath(env string) string {
	return filepath.Join(w.stateDir(), env+".lock")
}
func (w *Workspace) localPath() string { return filepath.Join(w.stateDir(), localFileName) }

// Discover ascends parent directories from start until a directory
// containing nixspace.toml is found, then loads it via At.
func Discover(start string) (*Workspace, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, errors.Wrap(err, "resolving start directory")
	}
	for {
		exists, err := fsutil.Exists(filepath.Join(dir, configFileName))
		if err != nil {
			return nil, err
		}
		if exists {
			return At(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, errors.Errorf("no %s found in %s or any parent directory", configFileName, start)
		}
		dir = parent
	}
}

// At loads a workspace rooted at dir: its config, one lockfile per
// configured environment, and the local overlay (new if absent).
func At(dir string) (*Workspace, error) {
	w := &Workspace{
		Root:    dir,
		Locks:   map[string]*lockfile.LockFile{},
		VCS:     proc.NewVCS(),
		Builder: proc.NewBuilder(),
	}

	cfg, err := ReadConfig(w.configPath())
	if err != nil {
		return nil, err
	}
	w.Config = cfg

	for _, e := range cfg.Environments {
		path := w.lockPath(e.Name)
		exists, err := fsutil.Exists(path)
		if err != nil {
			return nil, err
		}
		if !exists {
			w.Locks[e.Name] = lockfile.Empty()
			continue
		}
		lf, err := lockfile.Read(path)
		if err != nil {
			return nil, err
		}
		w.Locks[e.Name] = lf
	}

	local, err := ReadLocal(w.localPath())
	if err != nil {
		return nil, err
	}
	w.Local = local

	return w, nil
}

// Init creates a fresh workspace at dir: a seeded config, an empty lockfile
// per configured environment, an empty local overlay, and the .nixspace
// state directory.
func Init(dir string) (*Workspace, error) {
	w := &Workspace{
		Root:    dir,
		Config:  NewConfig(),
		Locks:   map[string]*lockfile.LockFile{},
		Local:   NewLocal(),
		VCS:     proc.NewVCS(),
		Builder: proc.NewBuilder(),
	}
	for _, e := range w.Config.Environments {
		w.Locks[e.Name] = lockfile.Empty()
	}
	if err := os.MkdirAll(w.stateDir(), 0755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", w.stateDir())
	}
	return w, w.Save()
}

// Save writes the config, every environment's lockfile, and the local
// overlay back to disk.
func (w *Workspace) Save() error {
	if err := w.Config.Write(w.configPath()); err != nil {
		return err
	}
	for env, lf := range w.Locks {
		if err := lf.Write(w.lockPath(env)); err != nil {
			return err
		}
	}
	if err := w.Local.Write(w.localPath()); err != nil {
		return err
	}
	return nil
}

// Files returns the canonical version-controlled set: flake.nix, flake.lock,
// nixspace.toml, and one <env>.lock per configured environment. The local
// overlay is deliberately excluded — it is machine-local state.
func (w *Workspace) Files() []string {
	files := []string{
		filepath.Join(w.Root, "flake.nix"),
		filepath.Join(w.Root, "flake.lock"),
		w.configPath(),
	}
	envs := make([]string, 0, len(w.Config.Environments))
	for _, e := range w.Config.Environments {
		envs = append(envs, e.Name)
	}
	sort.Strings(envs)
	for _, env := range envs {
		files = append(files, w.lockPath(env))
	}
	return files
}

// Changed reports whether any file in Files() is dirty — in the worktree
// or in the index.
func (w *Workspace) Changed(ctx context.Context) (bool, error) {
	for _, f := range w.Files() {
		rel, err := filepath.Rel(w.Root, f)
		if err != nil {
			return false, errors.Wrapf(err, "relativizing %s", f)
		}
		changed, err := w.VCS.DiffExitCode(ctx, w.Root, rel)
		if err != nil {
			return false, err
		}
		if changed {
			return true, nil
		}
		staged, err := w.VCS.DiffStagedExitCode(ctx, w.Root, rel)
		if err != nil {
			return false, err
		}
		if staged {
			return true, nil
		}
	}
	return false, nil
}

// Sync rebases the workspace root onto its upstream (pull --rebase). Requires a clean
// tree: an in-flight local edit to a tracked file could otherwise be lost
// to a rebase.
func (w *Workspace) Sync(ctx context.Context) error {
	changed, err := w.Changed(ctx)
	if err != nil {
		return err
	}
	if changed {
		return errors.New("workspace has uncommitted changes to tracked files; commit or discard them before syncing")
	}
	return w.VCS.PullRebase(ctx, w.Root)
}

// TracksLatest reports whether the workspace root has no outstanding
// changes to its tracked files — i.e. it reflects exactly what's committed.
func (w *Workspace) TracksLatest(ctx context.Context) (bool, error) {
	changed, err := w.Changed(ctx)
	if err != nil {
		return false, err
	}
	return !changed, nil
}

// Publish pushes the workspace root's current branch upstream.
func (w *Workspace) Publish(ctx context.Context, force bool) error {
	return w.VCS.Push(ctx, w.Root, "origin", force)
}

// Commit resets the index, stages the config and every environment's
// lockfile, and commits them with msg.
func (w *Workspace) Commit(ctx context.Context, msg string) error {
	if err := w.VCS.Reset(ctx, w.Root); err != nil {
		return err
	}
	configRel, err := filepath.Rel(w.Root, w.configPath())
	if err != nil {
		return err
	}
	if err := w.VCS.Add(ctx, w.Root, configRel); err != nil {
		return err
	}
	envs := make([]string, 0, len(w.Config.Environments))
	for _, e := range w.Config.Environments {
		envs = append(envs, e.Name)
	}
	sort.Strings(envs)
	for _, env := range envs {
		rel, err := filepath.Rel(w.Root, w.lockPath(env))
		if err != nil {
			return err
		}
		if err := w.VCS.Add(ctx, w.Root, rel); err != nil {
			return err
		}
	}
	return w.VCS.Commit(ctx, w.Root, msg)
}

// Register adds a new project to the config and marks it non-editable in
// the local overlay.
func (w *Workspace) Register(name, url, path string) error {
	if _, ok := w.Config.ProjectByName(name); ok {
		return errors.Errorf("project %q is already registered", name)
	}
	w.Config.Projects = append(w.Config.Projects, Project{Name: name, URL: url, Path: path})
	w.Local.SetEditable(name, false)
	return nil
}

// Deregister removes a project from the config, optionally deleting its
// on-disk directory, and removes it from every environment's lockfile and
// from the local overlay.
func (w *Workspace) Deregister(name string, delete bool) error {
	proj, ok := w.Config.ProjectByName(name)
	if !ok {
		return errors.Errorf("project %q is not registered", name)
	}
	if delete {
		if proj.Path != "" {
			full := filepath.Join(w.Root, proj.Path)
			exists, err := fsutil.Exists(full)
			if err != nil {
				return err
			}
			if exists {
				if err := os.RemoveAll(full); err != nil {
					return errors.Wrapf(err, "removing %s", full)
				}
			} else if w.Log != nil {
				w.Log.LogNSfln("project %q has no directory at %s to delete", name, full)
			}
		}
	}
	w.Config.RemoveProject(name)
	for _, lf := range w.Locks {
		lf.Rm(name)
	}
	w.Local.Forget(name)
	return nil
}

// Edit makes a registered project locally editable: if its configured
// path doesn't exist on disk yet, clone it there first.
func (w *Workspace) Edit(ctx context.Context, name string) error {
	proj, ok := w.Config.ProjectByName(name)
	if !ok {
		return errors.Errorf("project %q is not registered", name)
	}
	if proj.Path == "" {
		return errors.Errorf("project %q has no configured path to edit", name)
	}
	if w.Local.IsEditable(name) {
		return errors.Errorf("project %q is already editable", name)
	}
	full := filepath.Join(w.Root, proj.Path)
	exists, err := fsutil.IsDir(full)
	if err != nil {
		return err
	}
	if !exists {
		if err := w.Builder.FlakeClone(ctx, proj.URL, full); err != nil {
			return err
		}
	}
	w.Local.SetEditable(name, true)
	return nil
}

// Unedit marks a project non-editable again, optionally deleting its
// checked-out directory.
func (w *Workspace) Unedit(name string, delete bool) error {
	proj, ok := w.Config.ProjectByName(name)
	if !ok {
		return errors.Errorf("project %q is not registered", name)
	}
	w.Local.SetEditable(name, false)
	if delete && proj.Path != "" {
		full := filepath.Join(w.Root, proj.Path)
		if err := os.RemoveAll(full); err != nil {
			return errors.Wrapf(err, "removing %s", full)
		}
	}
	return nil
}

// UpdateAllProjects resolves every project's effective policy for env
// (config.default_env if env is empty), updates each one via the strategy
// resolver, merges the results into a single LockFile per §4.5, and
// installs it as the lockfile for env.
func (w *Workspace) UpdateAllProjects(ctx context.Context, env string) error {
	if env == "" {
		env = w.Config.DefaultEnv
	}
	if _, ok := w.Config.Environment(env); !ok {
		return errors.Errorf("unknown environment %q", env)
	}

	projectLocks := map[string]*lockfile.LockFile{}
	metadata := map[string]merge.ProjectMetadata{}

	for _, proj := range w.Config.Projects {
		policy, err := w.Config.EffectiveStrategy(&proj, env)
		if err != nil {
			return err
		}
		reference, err := ref.Parse(proj.URL)
		if err != nil {
			return errors.Wrapf(err, "project %q has an unparseable reference %q", proj.Name, proj.URL)
		}
		meta, err := strategy.Update(ctx, reference, policy, w.VCS, w.Builder)
		if err != nil {
			return errors.Wrapf(err, "updating project %q", proj.Name)
		}
		if meta.Locks != nil {
			projectLocks[proj.Name] = meta.Locks
		} else {
			projectLocks[proj.Name] = lockfile.Empty()
		}
		metadata[proj.Name] = merge.FromFlakeMetadata(meta)
		if w.Log != nil {
			w.Log.LogNSfln("updated %q", proj.Name)
		}
	}

	merged, err := merge.Merge(projectLocks, metadata)
	if err != nil {
		return errors.Wrapf(err, "merging project lockfiles for environment %q", env)
	}
	w.Locks[env] = merged
	return nil
}

// Context reports the project whose configured path contains CWD, if any
// — used by the build/run CLI alias to rewrite a bare .#attr target into
// path:<root>#<project>/attr.
func (w *Workspace) Context(cwd string) (*Project, bool) {
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, false
	}

	tree := radix.New()
	for i := range w.Config.Projects {
		proj := &w.Config.Projects[i]
		if proj.Path == "" {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(w.Root, proj.Path))
		if err != nil {
			continue
		}
		tree.Insert(abs, proj)
	}

	// WalkPath visits every node whose key is a string prefix of cwd, in
	// root-to-leaf order, so the last hit is the deepest candidate. It
	// doesn't know about path separators, though ("/foo" string-prefixes
	// "/foobar"), so each hit is re-checked with HasFilepathPrefix before
	// replacing the current best.
	var best *Project
	tree.WalkPath(cwd, func(prefix string, v interface{}) bool {
		if fsutil.HasFilepathPrefix(cwd, prefix) {
			best = v.(*Project)
		}
		return false
	})
	if best == nil {
		return nil, false
	}
	return best, true
}
