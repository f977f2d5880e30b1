// Package metadata is the single source of truth for desired state: user
// records, project records, and the sessions/settings/extensions embedded
// on a project. Every mutation write-through; there is no write-behind cache.
package metadata

import "time"

// ProjectStatus is the project lifecycle state.
type ProjectStatus string

const (
	StatusInactive     ProjectStatus = "inactive"
	StatusActivating   ProjectStatus = "activating"
	StatusActive       ProjectStatus = "active"
	StatusDeactivating ProjectStatus = "deactivating"
	StatusError        ProjectStatus = "error"
)

// GithubKeySource records whether a project's effective Git token comes
// from the project's own override or the user's global token.
type GithubKeySource string

const (
	SourceProject GithubKeySource = "project"
	SourceUser    GithubKeySource = "user"
)

// User is identified by an opaque user_id. The clear credential/API-key
// values live in the same row as the masked display copy; the control API
// never returns the clear value, only GithubKeySet/APIKeySet booleans and
// the masked string.
type User struct {
	ID             string
	Name           string
	GithubToken    string // clear value, never serialized to API responses
	GithubTokenSet bool
	APIKey         string // clear value, never serialized to API responses
	APIKeySet      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GithubTokenMasked returns a display-safe form of the token, or "" if unset.
func (u *User) GithubTokenMasked() string { return mask(u.GithubToken, u.GithubTokenSet) }

// APIKeyMasked returns a display-safe form of the API key, or "" if unset.
func (u *User) APIKeyMasked() string { return mask(u.APIKey, u.APIKeySet) }

// Project is owned by exactly one user and strongly owns its sessions,
// settings, and extensions.
type Project struct {
	ID               string
	UserID           string
	Name             string
	Status           ProjectStatus
	Endpoint         string // set on activation; cleared on inactive and error
	RepoURL          string
	HasRepository    bool
	LastCloneError   string
	GithubToken      string // clear project-level override, never serialized
	GithubKeySet     bool
	GithubKeySource  GithubKeySource
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GithubTokenMasked returns a display-safe form of the project's token.
func (p *Project) GithubTokenMasked() string { return mask(p.GithubToken, p.GithubKeySet) }

func mask(value string, set bool) string {
	if !set || value == "" {
		return ""
	}
	if len(value) <= 12 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

// Session is an agent-internal conversational context bound to a project.
type Session struct {
	SessionID    string
	ProjectID    string
	Name         string
	MessageCount int
	CreatedAt    time.Time
}

// SettingType is the declared type of a recognized setting key.
type SettingType string

const (
	SettingString SettingType = "string"
	SettingInt    SettingType = "int"
	SettingFloat  SettingType = "float"
	SettingBool   SettingType = "bool"
	SettingEnum   SettingType = "enum"
)

// SettingDef describes a recognized setting key. The set of recognized
// keys is fixed at compile time; the store writes whatever key it is given,
// and the lifecycle engine's UpdateSettings rejects unknown keys.
type SettingDef struct {
	Key             string
	Type            SettingType
	Default         string
	RequiresRestart bool
	EnumValues      []string // only meaningful when Type == SettingEnum
	EnvVar          string   // environment variable name injected into the workload
}

// Setting is a stored key/value pair for a project.
type Setting struct {
	ProjectID string
	Key       string
	Value     string
}

// ExtensionKind is the kind of an extension's transport/payload.
type ExtensionKind string

const (
	ExtensionBuiltin        ExtensionKind = "builtin"
	ExtensionStdio          ExtensionKind = "stdio"
	ExtensionSSE            ExtensionKind = "sse"
	ExtensionStreamableHTTP ExtensionKind = "streamable_http"
	ExtensionFrontend       ExtensionKind = "frontend"
	ExtensionInlinePython   ExtensionKind = "inline_python"
)

// Extension is a named, kind-tagged tool/integration attached to a project.
type Extension struct {
	ProjectID string
	Name      string
	Kind      ExtensionKind
	Enabled   bool
	Position  int // preserves insertion order

	// kind-specific payload; only the fields relevant to Kind are populated.
	Command string            // stdio
	Args    []string          // stdio
	Env     map[string]string // stdio, sse, streamable_http
	URI     string            // sse, streamable_http
	Code    string            // inline_python
}
