// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nixspace is the CLI front end for the workspace manager. It owns
// no business logic of its own: every subcommand parses its flags, loads
// or constructs a *workspace.Workspace, and delegates.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chadac/nixspace/log"
	"github.com/chadac/nixspace/workspace"
)

type command interface {
	Name() string
	Args() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(ctx context.Context, c *Config, args []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{WorkingDir: wd, Stdout: os.Stdout, Stderr: os.Stderr}
	os.Exit(c.Run(os.Args[1:]))
}

// Config specifies a full execution: where to run and where output goes.
type Config struct {
	WorkingDir     string
	Stdout, Stderr io.Writer
}

// Run dispatches args[0] to the matching command and returns an exit code.
func (c *Config) Run(args []string) int {
	commands := []command{
		&initCommand{},
		&showCommand{},
		&registerCommand{},
		&unregisterCommand{},
		&editCommand{},
		&uneditCommand{},
		&syncCommand{},
		&publishCommand{},
		&updateCommand{},
		&buildCommand{},
		&runCommand{},
	}

	if len(args) == 0 {
		c.usage(commands)
		return 1
	}

	for _, cmd := range commands {
		if cmd.Name() != args[0] {
			continue
		}
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		cmd.Register(fs)
		if err := fs.Parse(args[1:]); err != nil {
			return 1
		}
		if err := cmd.Run(context.Background(), c, fs.Args()); err != nil {
			fmt.Fprintln(c.Stderr, "nixspace:", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(c.Stderr, "nixspace: unknown command %q\n", args[0])
	c.usage(commands)
	return 1
}

func (c *Config) usage(commands []command) {
	fmt.Fprintln(c.Stderr, "usage: nixspace <command> [arguments]")
	for _, cmd := range commands {
		fmt.Fprintf(c.Stderr, "  %-12s %-20s %s\n", cmd.Name(), cmd.Args(), cmd.ShortHelp())
	}
}

func (c *Config) logger() *log.Logger { return log.New(c.Stdout) }

func (c *Config) discover() (*workspace.Workspace, error) {
	w, err := workspace.Discover(c.WorkingDir)
	if err != nil {
		return nil, err
	}
	w.Log = c.logger()
	return w, nil
}

type initCommand struct{}

func (*initCommand) Name() string      { return "init" }
func (*initCommand) Args() string      { return "" }
func (*initCommand) ShortHelp() string { return "create a new workspace in the current directory" }
func (*initCommand) Register(*flag.FlagSet) {}
func (*initCommand) Run(ctx context.Context, c *Config, args []string) error {
	_, err := workspace.Init(c.WorkingDir)
	return err
}

type showCommand struct{}

func (*showCommand) Name() string      { return "show" }
func (*showCommand) Args() string      { return "" }
func (*showCommand) ShortHelp() string { return "print the workspace config" }
func (*showCommand) Register(*flag.FlagSet) {}
func (*showCommand) Run(ctx context.Context, c *Config, args []string) error {
	w, err := c.discover()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Stdout, "root: %s\n", w.Root)
	fmt.Fprintf(c.Stdout, "default environment: %s\n", w.Config.DefaultEnv)
	for _, e := range w.Config.Environments {
		fmt.Fprintf(c.Stdout, "environment %s\n", e.Name)
	}
	for _, p := range w.Config.Projects {
		fmt.Fprintf(c.Stdout, "project %s %s\n", p.Name, p.URL)
	}
	return nil
}

type registerCommand struct {
	path string
}

func (*registerCommand) Name() string      { return "register" }
func (*registerCommand) Args() string      { return "<name> <url>" }
func (*registerCommand) ShortHelp() string { return "add a project to the workspace" }
func (r *registerCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&r.path, "path", "", "relative checkout path")
}
func (r *registerCommand) Run(ctx context.Context, c *Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("register requires <name> <url>")
	}
	w, err := c.discover()
	if err != nil {
		return err
	}
	if err := w.Register(args[0], args[1], r.path); err != nil {
		return err
	}
	return w.Save()
}

type unregisterCommand struct {
	delete bool
}

func (*unregisterCommand) Name() string      { return "unregister" }
func (*unregisterCommand) Args() string      { return "<name>" }
func (*unregisterCommand) ShortHelp() string { return "remove a project from the workspace" }
func (u *unregisterCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&u.delete, "delete", false, "also delete the project's checkout directory")
}
func (u *unregisterCommand) Run(ctx context.Context, c *Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("unregister requires <name>")
	}
	w, err := c.discover()
	if err != nil {
		return err
	}
	if err := w.Deregister(args[0], u.delete); err != nil {
		return err
	}
	return w.Save()
}

type editCommand struct{}

func (*editCommand) Name() string      { return "edit" }
func (*editCommand) Args() string      { return "<name>" }
func (*editCommand) ShortHelp() string { return "check a project out editable" }
func (*editCommand) Register(*flag.FlagSet) {}
func (*editCommand) Run(ctx context.Context, c *Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("edit requires <name>")
	}
	w, err := c.discover()
	if err != nil {
		return err
	}
	if err := w.Edit(ctx, args[0]); err != nil {
		return err
	}
	return w.Save()
}

type uneditCommand struct {
	delete bool
}

func (*uneditCommand) Name() string      { return "unedit" }
func (*uneditCommand) Args() string      { return "<name>" }
func (*uneditCommand) ShortHelp() string { return "mark a project non-editable" }
func (u *uneditCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&u.delete, "delete", false, "also delete the project's checkout directory")
}
func (u *uneditCommand) Run(ctx context.Context, c *Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("unedit requires <name>")
	}
	w, err := c.discover()
	if err != nil {
		return err
	}
	if err := w.Unedit(args[0], u.delete); err != nil {
		return err
	}
	return w.Save()
}

type syncCommand struct{}

func (*syncCommand) Name() string           { return "sync" }
func (*syncCommand) Args() string           { return "" }
func (*syncCommand) ShortHelp() string      { return "pull --rebase the workspace root" }
func (*syncCommand) Register(*flag.FlagSet) {}
func (*syncCommand) Run(ctx context.Context, c *Config, args []string) error {
	w, err := c.discover()
	if err != nil {
		return err
	}
	return w.Sync(ctx)
}

type publishCommand struct {
	force bool
}

func (*publishCommand) Name() string      { return "publish" }
func (*publishCommand) Args() string      { return "" }
func (*publishCommand) ShortHelp() string { return "push the workspace root" }
func (p *publishCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&p.force, "force", false, "force-push")
}
func (p *publishCommand) Run(ctx context.Context, c *Config, args []string) error {
	w, err := c.discover()
	if err != nil {
		return err
	}
	return w.Publish(ctx, p.force)
}

type updateCommand struct {
	env string
}

func (*updateCommand) Name() string      { return "update" }
func (*updateCommand) Args() string      { return "" }
func (*updateCommand) ShortHelp() string { return "re-resolve and re-merge every project's lockfile" }
func (u *updateCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&u.env, "env", "", "environment (defaults to the workspace's default_env)")
}
func (u *updateCommand) Run(ctx context.Context, c *Config, args []string) error {
	w, err := c.discover()
	if err != nil {
		return err
	}
	if err := w.UpdateAllProjects(ctx, u.env); err != nil {
		return err
	}
	return w.Save()
}

// rewriteBuildTarget implements the build/run alias: a bare ".#<attr>"
// target invoked from inside a registered project's path is rewritten to
// "path:<root>#<project>/<attr>"; everything else passes through verbatim.
// --impure is appended unless already present.
func rewriteBuildTarget(w *workspace.Workspace, cwd string, args []string) []string {
	out := make([]string, len(args))
	copy(out, args)

	proj, ok := w.Context(cwd)
	if ok {
		for i, a := range out {
			if strings.HasPrefix(a, ".#") {
				out[i] = fmt.Sprintf("path:%s#%s/%s", w.Root, proj.Name, strings.TrimPrefix(a, ".#"))
			}
		}
	}

	for _, a := range out {
		if a == "--impure" {
			return out
		}
	}
	return append(out, "--impure")
}

type buildCommand struct{}

func (*buildCommand) Name() string      { return "build" }
func (*buildCommand) Args() string      { return "[args...]" }
func (*buildCommand) ShortHelp() string { return "nix build, with workspace-aware target rewriting" }
func (*buildCommand) Register(*flag.FlagSet) {}
func (*buildCommand) Run(ctx context.Context, c *Config, args []string) error {
	return runBuilder(ctx, c, "build", args)
}

type runCommand struct{}

func (*runCommand) Name() string      { return "run" }
func (*runCommand) Args() string      { return "[args...]" }
func (*runCommand) ShortHelp() string { return "nix run, with workspace-aware target rewriting" }
func (*runCommand) Register(*flag.FlagSet) {}
func (*runCommand) Run(ctx context.Context, c *Config, args []string) error {
	return runBuilder(ctx, c, "run", args)
}

func runBuilder(ctx context.Context, c *Config, verb string, args []string) error {
	w, err := c.discover()
	if err != nil {
		return err
	}
	rewritten := rewriteBuildTarget(w, c.WorkingDir, args)
	full := append([]string{verb}, rewritten...)
	return w.Builder.Run(ctx, filepath.Join(w.Root), full...)
}
