// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workspace

import (
	"io/ioutil"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/chadac/nixspace/strategy"
)

// Environment is a named update policy: "dev tracks latest commit", "prod
// tracks latest release-* tag", and so on.
type Environment struct {
	Name     string
	Strategy strategy.Policy
}

// Project is one workspace member: a stable name, its reference URL, an
// optional relative checkout path, and an optional per-environment
// strategy override.
type Project struct {
	Name     string
	URL      string
	Path     string
	Strategy map[string]strategy.Policy // env name -> override, nil if none configured
}

// Config is the top-level persistent document, serialized as nixspace.toml.
type Config struct {
	DefaultEnv   string
	Environments []Environment
	Projects     []Project
}

// rawEnvironment/rawProject/rawConfig mirror the TOML wire shape exactly.
// Strategy is deliberately untyped here: it's a tagged union whose tag is
// the TOML key itself ("latest" as a bare string, or a one-key table like
// {"latest-tag" = "release-*"}), which a plain struct-tag unmarshal can't
// express — rawToPolicy/policyToRaw do that conversion by hand.
type rawEnvironment struct {
	Name     string      `toml:"name"`
	Strategy interface{} `toml:"strategy"`
}

type rawProject struct {
	Name     string                 `toml:"name"`
	URL      string                 `toml:"url"`
	Path     string                 `toml:"path,omitempty"`
	Strategy map[string]interface{} `toml:"strategy,omitempty"`
}

type rawConfig struct {
	DefaultEnv   string           `toml:"default_env"`
	Environments []rawEnvironment `toml:"environments"`
	Projects     []rawProject     `toml:"projects"`
}

// NewConfig returns the config a fresh `init` seeds: one environment named
// "dev" tracking Latest, and that environment as the default.
func NewConfig() *Config {
	return &Config{
		DefaultEnv:   "dev",
		Environments: []Environment{{Name: "dev", Strategy: strategy.Latest{}}},
		Projects:     nil,
	}
}

// ReadConfig parses a nixspace.toml document.
func ReadConfig(path string) (*Config, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var raw rawConfig
	if err := toml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return rawConfigToConfig(&raw)
}

// Write serializes the config as TOML to path.
func (c *Config) Write(path string) error {
	raw, err := configToRaw(c)
	if err != nil {
		return err
	}
	b, err := toml.Marshal(*raw)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "writing config %s", path)
	}
	return nil
}

func rawConfigToConfig(raw *rawConfig) (*Config, error) {
	c := &Config{DefaultEnv: raw.DefaultEnv}
	for _, re := range raw.Environments {
		p, err := rawToPolicy(re.Strategy)
		if err != nil {
			return nil, errors.Wrapf(err, "environment %q", re.Name)
		}
		c.Environments = append(c.Environments, Environment{Name: re.Name, Strategy: p})
	}
	for _, rp := range raw.Projects {
		proj := Project{Name: rp.Name, URL: rp.URL, Path: rp.Path}
		if len(rp.Strategy) > 0 {
			proj.Strategy = map[string]strategy.Policy{}
			for env, v := range rp.Strategy {
				p, err := rawToPolicy(v)
				if err != nil {
					return nil, errors.Wrapf(err, "project %q strategy override for env %q", rp.Name, env)
				}
				proj.Strategy[env] = p
			}
		}
		c.Projects = append(c.Projects, proj)
	}
	return c, nil
}

func configToRaw(c *Config) (*rawConfig, error) {
	raw := &rawConfig{DefaultEnv: c.DefaultEnv}
	for _, e := range c.Environments {
		raw.Environments = append(raw.Environments, rawEnvironment{Name: e.Name, Strategy: policyToRaw(e.Strategy)})
	}
	for _, p := range c.Projects {
		rp := rawProject{Name: p.Name, URL: p.URL, Path: p.Path}
		if len(p.Strategy) > 0 {
			rp.Strategy = map[string]interface{}{}
			for env, pol := range p.Strategy {
				rp.Strategy[env] = policyToRaw(pol)
			}
		}
		raw.Projects = append(raw.Projects, rp)
	}
	return raw, nil
}

// policyToRaw renders a Policy as the TOML wire shape: "latest"/"freeze"
// carry no payload, "latest-tag" carries its glob (or nil), "branch"
// carries its name.
func policyToRaw(p strategy.Policy) interface{} {
	switch v := p.(type) {
	case strategy.Latest:
		return "latest"
	case strategy.Freeze:
		return "freeze"
	case strategy.LatestTag:
		if v.Glob == "" {
			return map[string]interface{}{"latest-tag": nil}
		}
		return map[string]interface{}{"latest-tag": v.Glob}
	case strategy.Branch:
		return map[string]interface{}{"branch": v.Name}
	default:
		return "latest"
	}
}

func rawToPolicy(raw interface{}) (strategy.Policy, error) {
	switch v := raw.(type) {
	case string:
		return strategy.ParsePolicy(v, "")
	case map[string]interface{}:
		for kind, payload := range v {
			switch p := payload.(type) {
			case nil:
				return strategy.ParsePolicy(kind, "")
			case string:
				return strategy.ParsePolicy(kind, p)
			default:
				return nil, errors.Errorf("unsupported payload for strategy %q: %T", kind, payload)
			}
		}
		return nil, errors.New("empty strategy table")
	case *toml.Tree:
		return rawToPolicy(v.ToMap())
	default:
		return nil, errors.Errorf("unsupported strategy encoding: %T", raw)
	}
}

// ProjectByName looks up a project by its stable name.
func (c *Config) ProjectByName(name string) (*Project, bool) {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			return &c.Projects[i], true
		}
	}
	return nil, false
}

// Environment looks up an environment by name.
func (c *Config) Environment(name string) (*Environment, bool) {
	for i := range c.Environments {
		if c.Environments[i].Name == name {
			return &c.Environments[i], true
		}
	}
	return nil, false
}

// EffectiveStrategy resolves project p's policy for env: a per-project
// override for that env if one is configured, otherwise the environment's
// own default.
func (c *Config) EffectiveStrategy(p *Project, env string) (strategy.Policy, error) {
	if p.Strategy != nil {
		if override, ok := p.Strategy[env]; ok {
			return override, nil
		}
	}
	e, ok := c.Environment(env)
	if !ok {
		return nil, errors.Errorf("unknown environment %q", env)
	}
	return e.Strategy, nil
}

// RemoveProject removes a project by name. Reports whether it was present.
func (c *Config) RemoveProject(name string) bool {
	for i := range c.Projects {
		if c.Projects[i].Name == name {
			c.Projects = append(c.Projects[:i], c.Projects[i+1:]...)
			return true
		}
	}
	return false
}
