// Package merge implements the merge engine (C5): combining N per-project
// lockfiles into one unified lockfile, namespacing private inputs,
// collapsing inputs shared across projects, and trimming the result to
// what's reachable from the synthesized root.
package merge

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/chadac/nixspace/lockfile"
	"github.com/chadac/nixspace/proc"
)

// ProjectMetadata is the per-project pin that populates the merged root's
// children in step 8 — normally the builder's FlakeMetadata for that
// project's resolved reference.
type ProjectMetadata struct {
	Original lockfile.InputSpec
	Locked   lockfile.InputSpec
}

// FromFlakeMetadata builds a ProjectMetadata from a builder response.
func FromFlakeMetadata(m proc.FlakeMetadata) ProjectMetadata {
	return ProjectMetadata{Original: m.Original, Locked: m.Locked}
}

// Merge combines project lockfiles (keyed by project label) and their
// metadata into one unified LockFile, following the eight-step algorithm:
// namespace private inputs, collapse shared inputs by redirecting to the
// owning project's label, apply renames, rename each project's root to its
// label, union every renamed lockfile's nodes, synthesize a fresh root
// pointing at each project label, trim unreachable nodes, then populate
// each project node's pin from its metadata.
//
// Iteration is always in project-label sorted order, making the result
// deterministic given the same inputs.
func Merge(projects map[string]*lockfile.LockFile, metadata map[string]ProjectMetadata) (*lockfile.LockFile, error) {
	labels := sortedKeys(projects)
	labelSet := make(map[string]bool, len(labels))
	for _, l := range labels {
		labelSet[l] = true
	}

	renamedProjects := make(map[string]*lockfile.LockFile, len(labels))
	for _, name := range labels {
		lf := projects[name]
		renamed, err := namespaceAndCollapse(lf, name, labelSet)
		if err != nil {
			return nil, errors.Wrapf(err, "merging project %q", name)
		}
		renamedProjects[name] = renamed
	}

	merged := &lockfile.LockFile{
		Nodes:   map[string]*lockfile.LockedRef{},
		Root:    lockfile.RootName,
		Version: lockfile.CurrentVersion,
	}
	for _, name := range labels {
		for nodeName, node := range renamedProjects[name].Nodes {
			if labelSet[nodeName] && nodeName != name {
				// A collapsed redirect: this project referenced another
				// project's label and namespaceAndCollapse renamed its own
				// (private, possibly stale) copy to that label so the edge
				// resolves. The real node for that label comes only from
				// the owning project's own render; keeping this one would
				// let it clobber the real node depending on label sort
				// order.
				continue
			}
			merged.Nodes[nodeName] = node
		}
	}

	merged.Nodes[lockfile.RootName] = &lockfile.LockedRef{Inputs: map[string]lockfile.InputRef{}}
	for _, name := range labels {
		merged.Nodes[lockfile.RootName].Inputs[name] = lockfile.Direct(name)
	}

	if err := merged.Trim(); err != nil {
		return nil, errors.Wrap(err, "trimming merged lockfile")
	}

	for _, name := range labels {
		m, ok := metadata[name]
		if !ok {
			continue
		}
		node, ok := merged.Nodes[name]
		if !ok {
			continue
		}
		original, locked := m.Original, m.Locked
		node.Original = &original
		node.Locked = &locked
	}

	return merged, nil
}

// namespaceAndCollapse implements steps 1–4 for a single project lockfile:
// plan a rename for every private node to "<name>_<node>", plan a
// redirect-rename for every input shared with another project label to
// that label directly, apply all renames, then rename root itself to name.
func namespaceAndCollapse(lf *lockfile.LockFile, name string, labels map[string]bool) (*lockfile.LockFile, error) {
	clone := cloneLockFile(lf)

	renames := map[string]string{}
	for nodeName := range clone.Nodes {
		if nodeName == lockfile.RootName || labels[nodeName] {
			continue
		}
		renames[nodeName] = name + "_" + nodeName
	}

	rootNode, ok := clone.Nodes[lockfile.RootName]
	if !ok {
		return nil, errors.New("project lockfile has no root node")
	}
	for key, inputRef := range rootNode.Inputs {
		if !labels[key] {
			continue
		}
		underlying, err := clone.ResolveInput(inputRef)
		if err != nil {
			return nil, err
		}
		renames[underlying] = key
	}

	for old, new := range renames {
		clone.RenameInput(old, new)
	}

	clone.RenameInput(lockfile.RootName, name)
	return clone, nil
}

func cloneLockFile(lf *lockfile.LockFile) *lockfile.LockFile {
	out := &lockfile.LockFile{
		Nodes:   make(map[string]*lockfile.LockedRef, len(lf.Nodes)),
		Root:    lf.Root,
		Version: lf.Version,
	}
	for name, node := range lf.Nodes {
		clonedNode := &lockfile.LockedRef{}
		if node.Flake != nil {
			v := *node.Flake
			clonedNode.Flake = &v
		}
		if node.Locked != nil {
			v := *node.Locked
			clonedNode.Locked = &v
		}
		if node.Original != nil {
			v := *node.Original
			clonedNode.Original = &v
		}
		if node.Inputs != nil {
			clonedNode.Inputs = make(map[string]lockfile.InputRef, len(node.Inputs))
			for k, v := range node.Inputs {
				clonedNode.Inputs[k] = v
			}
		}
		out.Nodes[name] = clonedNode
	}
	return out
}

func sortedKeys(m map[string]*lockfile.LockFile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
