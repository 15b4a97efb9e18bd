package workspace

import (
	"encoding/json"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// localProjectState is the per-project slice of the local overlay: whether
// the project is checked out editable (a real directory on disk, tracked
// by VCS status) rather than fetched read-only from its pin.
type localProjectState struct {
	Editable bool `json:"editable"`
}

// Local is the machine-local overlay (.nixspace/local.json): which
// registered projects are currently checked out editable. It is never
// committed to version control.
type Local struct {
	Projects map[string]localProjectState `json:"projects"`
}

// NewLocal returns an empty local overlay.
func NewLocal() *Local {
	return &Local{Projects: map[string]localProjectState{}}
}

// ReadLocal loads the local overlay from path. A missing file is not an
// error — it's equivalent to an empty overlay, since the file is never
// checked into version control and a fresh clone won't have one.
func ReadLocal(path string) (*Local, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLocal(), nil
		}
		return nil, errors.Wrapf(err, "reading local overlay %s", path)
	}
	var l Local
	if err := json.Unmarshal(b, &l); err != nil {
		return nil, errors.Wrapf(err, "parsing local overlay %s", path)
	}
	if l.Projects == nil {
		l.Projects = map[string]localProjectState{}
	}
	return &l, nil
}

// Write serializes the local overlay to path.
func (l *Local) Write(path string) error {
	b, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding local overlay")
	}
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "writing local overlay %s", path)
	}
	return nil
}

// IsEditable reports whether name is currently checked out editable.
// Absent entries default to false.
func (l *Local) IsEditable(name string) bool {
	return l.Projects[name].Editable
}

// SetEditable marks name editable or not.
func (l *Local) SetEditable(name string, editable bool) {
	l.Projects[name] = localProjectState{Editable: editable}
}

// Forget removes name from the overlay entirely (used on deregister).
func (l *Local) Forget(name string) {
	delete(l.Projects, name)
}
