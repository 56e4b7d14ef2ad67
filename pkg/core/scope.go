package core

// Scope identifies the target of a scan: a single file or a whole
// workspace directory. Scopes key the per-scope generation counters and
// the diagnostic namespaces that adapters clear before each apply.
type Scope struct {
	// Path is the absolute file or directory path being scanned.
	Path string `json:"path"`

	// Workspace is true when Path is a directory tree rather than one file.
	Workspace bool `json:"workspace"`
}

// FileScope returns a single-file scope.
func FileScope(path string) Scope {
	return Scope{Path: path}
}

// WorkspaceScope returns a whole-workspace scope.
func WorkspaceScope(root string) Scope {
	return Scope{Path: root, Workspace: true}
}

// Key returns the map key for the scope. Two scans of the same path with
// different scope kinds are distinct scopes.
func (s Scope) Key() string {
	if s.Workspace {
		return "workspace:" + s.Path
	}
	return "file:" + s.Path
}

// Trigger identifies what started a scan. Used for metrics and the
// results API scan_source field.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerSave      Trigger = "save"
	TriggerWorkspace Trigger = "workspace"
)
