package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/store"
)

// Store is the metadata store (C1): the single source of truth for desired
// state. All mutations write-through; there is no write-behind cache.
type Store struct {
	ds     *store.Store
	logger zerolog.Logger
}

// NewStore wraps an open database connection.
func NewStore(ds *store.Store, logger zerolog.Logger) *Store {
	return &Store{ds: ds, logger: logger.With().Str("component", "metadata.store").Logger()}
}

// Ping reports whether the underlying database connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.ds.DB().PingContext(ctx)
}

func wrapDBErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return cperrors.Wrap(cperrors.KindStorageUnavail, op, err)
}

// UpsertUser creates the user record if missing, or updates its display name.
func (s *Store) UpsertUser(userID, name string) (*User, error) {
	now := time.Now()
	_, err := s.ds.DB().Exec(`
		INSERT INTO users (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, userID, name, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, wrapDBErr(err, "upsert user")
	}
	return s.GetUser(userID)
}

const userColumns = `id, name, github_token, github_token_set, api_key, api_key_set, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt, updatedAt int64
	var githubToken, apiKey sql.NullString
	err := row.Scan(&u.ID, &u.Name, &githubToken, &u.GithubTokenSet, &apiKey, &u.APIKeySet, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, cperrors.New(cperrors.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan user")
	}
	u.GithubToken = githubToken.String
	u.APIKey = apiKey.String
	u.CreatedAt = time.UnixMilli(createdAt)
	u.UpdatedAt = time.UnixMilli(updatedAt)
	return &u, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(userID string) (*User, error) {
	row := s.ds.DB().QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	return scanUser(row)
}

// ListUsers returns all known users.
func (s *Store) ListUsers() ([]*User, error) {
	rows, err := s.ds.DB().Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, wrapDBErr(err, "list users")
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var createdAt, updatedAt int64
		var githubToken, apiKey sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &githubToken, &u.GithubTokenSet, &apiKey, &u.APIKeySet, &createdAt, &updatedAt); err != nil {
			return nil, wrapDBErr(err, "scan user row")
		}
		u.GithubToken = githubToken.String
		u.APIKey = apiKey.String
		u.CreatedAt = time.UnixMilli(createdAt)
		u.UpdatedAt = time.UnixMilli(updatedAt)
		users = append(users, &u)
	}
	return users, nil
}

// SetUserGithubToken sets or clears the user's global Git token.
func (s *Store) SetUserGithubToken(userID string, token *string) error {
	now := time.Now().UnixMilli()
	if token == nil {
		_, err := s.ds.DB().Exec(`UPDATE users SET github_token = NULL, github_token_set = 0, updated_at = ? WHERE id = ?`, now, userID)
		return wrapDBErr(err, "clear user github token")
	}
	_, err := s.ds.DB().Exec(`UPDATE users SET github_token = ?, github_token_set = 1, updated_at = ? WHERE id = ?`, *token, now, userID)
	return wrapDBErr(err, "set user github token")
}

// SetUserAPIKey sets or clears the user's workspace API key.
func (s *Store) SetUserAPIKey(userID string, key *string) error {
	now := time.Now().UnixMilli()
	if key == nil {
		_, err := s.ds.DB().Exec(`UPDATE users SET api_key = NULL, api_key_set = 0, updated_at = ? WHERE id = ?`, now, userID)
		return wrapDBErr(err, "clear user api key")
	}
	_, err := s.ds.DB().Exec(`UPDATE users SET api_key = ?, api_key_set = 1, updated_at = ? WHERE id = ?`, *key, now, userID)
	return wrapDBErr(err, "set user api key")
}

const projectColumns = `id, user_id, name, status, endpoint, repo_url, has_repository, last_clone_error, github_token, github_key_set, github_key_source, created_at, updated_at`

func scanProjectRow(row *sql.Row) (*Project, error) {
	var p Project
	var endpoint, repoURL, lastCloneError, githubToken sql.NullString
	var createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Status, &endpoint, &repoURL, &p.HasRepository,
		&lastCloneError, &githubToken, &p.GithubKeySet, &p.GithubKeySource, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, cperrors.New(cperrors.KindNotFound, "project not found")
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan project")
	}
	p.Endpoint = endpoint.String
	p.RepoURL = repoURL.String
	p.LastCloneError = lastCloneError.String
	p.GithubToken = githubToken.String
	p.CreatedAt = time.UnixMilli(createdAt)
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

// CreateProject inserts a complete project record atomically; it either
// inserts a complete record or fails. No partial record is ever visible.
func (s *Store) CreateProject(userID, name, repoURL string) (*Project, error) {
	now := time.Now()
	p := &Project{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Status:    StatusInactive,
		RepoURL:   repoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.ds.DB().Exec(`
		INSERT INTO projects (id, user_id, name, status, endpoint, repo_url, has_repository, last_clone_error, github_token, github_key_set, github_key_source, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULL, ?, 0, NULL, NULL, 0, '', ?, ?)
	`, p.ID, p.UserID, p.Name, p.Status, nullIfEmpty(p.RepoURL), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, wrapDBErr(err, "create project")
	}
	return p, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// GetProject returns a project by id.
func (s *Store) GetProject(projectID string) (*Project, error) {
	row := s.ds.DB().QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, projectID)
	return scanProjectRow(row)
}

// ListProjectsByUser returns all projects owned by userID.
func (s *Store) ListProjectsByUser(userID string) ([]*Project, error) {
	rows, err := s.ds.DB().Query(`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, wrapDBErr(err, "list projects")
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var endpoint, repoURL, lastCloneError, githubToken sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Status, &endpoint, &repoURL, &p.HasRepository,
			&lastCloneError, &githubToken, &p.GithubKeySet, &p.GithubKeySource, &createdAt, &updatedAt); err != nil {
			return nil, wrapDBErr(err, "scan project row")
		}
		p.Endpoint = endpoint.String
		p.RepoURL = repoURL.String
		p.LastCloneError = lastCloneError.String
		p.GithubToken = githubToken.String
		p.CreatedAt = time.UnixMilli(createdAt)
		p.UpdatedAt = time.UnixMilli(updatedAt)
		projects = append(projects, &p)
	}
	return projects, nil
}

// ListProjectsByGithubSource returns every project of userID, whatever its
// status, whose github_key_source equals source — used to fan out
// update_user_global_token restarts; the caller skips inactive projects.
func (s *Store) ListProjectsByGithubSource(userID string, source GithubKeySource) ([]*Project, error) {
	rows, err := s.ds.DB().Query(`SELECT `+projectColumns+` FROM projects WHERE user_id = ? AND github_key_source = ?`, userID, source)
	if err != nil {
		return nil, wrapDBErr(err, "list projects by github source")
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var endpoint, repoURL, lastCloneError, githubToken sql.NullString
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Status, &endpoint, &repoURL, &p.HasRepository,
			&lastCloneError, &githubToken, &p.GithubKeySet, &p.GithubKeySource, &createdAt, &updatedAt); err != nil {
			return nil, wrapDBErr(err, "scan project row")
		}
		p.Endpoint = endpoint.String
		p.RepoURL = repoURL.String
		p.LastCloneError = lastCloneError.String
		p.GithubToken = githubToken.String
		p.CreatedAt = time.UnixMilli(createdAt)
		p.UpdatedAt = time.UnixMilli(updatedAt)
		projects = append(projects, &p)
	}
	return projects, nil
}

// allowedProjectFields whitelists the columns update_project_fields may touch.
var allowedProjectFields = map[string]bool{
	"name": true, "status": true, "endpoint": true, "repo_url": true,
	"has_repository": true, "last_clone_error": true,
}

// UpdateProjectFields applies a map of field→value; unknown fields are rejected.
func (s *Store) UpdateProjectFields(projectID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for k, v := range fields {
		if !allowedProjectFields[k] {
			return cperrors.New(cperrors.KindInvalidArgument, fmt.Sprintf("unknown project field %q", k))
		}
		setClauses = append(setClauses, k+" = ?")
		args = append(args, v)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now().UnixMilli())
	args = append(args, projectID)

	query := fmt.Sprintf(`UPDATE projects SET %s WHERE id = ?`, strings.Join(setClauses, ", "))
	res, err := s.ds.DB().Exec(query, args...)
	if err != nil {
		return wrapDBErr(err, "update project fields")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cperrors.New(cperrors.KindNotFound, "project not found")
	}
	return nil
}

// SetProjectGithubToken sets or clears the project's own Git-token override
// and its resolved github_key_source.
func (s *Store) SetProjectGithubToken(projectID string, token *string, source GithubKeySource) error {
	now := time.Now().UnixMilli()
	if token == nil {
		_, err := s.ds.DB().Exec(`UPDATE projects SET github_token = NULL, github_key_set = 0, github_key_source = ?, updated_at = ? WHERE id = ?`, string(source), now, projectID)
		return wrapDBErr(err, "clear project github token")
	}
	_, err := s.ds.DB().Exec(`UPDATE projects SET github_token = ?, github_key_set = 1, github_key_source = ?, updated_at = ? WHERE id = ?`, *token, string(source), now, projectID)
	return wrapDBErr(err, "set project github token")
}

// DeleteProject removes the record unconditionally; callers must ensure
// cluster cleanup first, otherwise the cluster leaks.
func (s *Store) DeleteProject(projectID string) error {
	tx, err := s.ds.DB().Begin()
	if err != nil {
		return wrapDBErr(err, "begin delete project tx")
	}
	defer tx.Rollback()

	for _, table := range []string{"extensions", "settings", "sessions"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE project_id = ?`, projectID); err != nil {
			return wrapDBErr(err, "delete project children")
		}
	}
	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return wrapDBErr(err, "delete project")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cperrors.New(cperrors.KindNotFound, "project not found")
	}
	return wrapDBErr(tx.Commit(), "commit delete project tx")
}

// AddSession records a session summary created against the running agent.
// Idempotent on session_id.
func (s *Store) AddSession(sess *Session) error {
	_, err := s.ds.DB().Exec(`
		INSERT INTO sessions (session_id, project_id, name, message_count, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET name = excluded.name
	`, sess.SessionID, sess.ProjectID, sess.Name, sess.MessageCount, sess.CreatedAt.UnixMilli())
	return wrapDBErr(err, "add session")
}

// ListSessions returns sessions for a project in creation order.
func (s *Store) ListSessions(projectID string) ([]*Session, error) {
	rows, err := s.ds.DB().Query(`SELECT session_id, project_id, name, message_count, created_at FROM sessions WHERE project_id = ? ORDER BY created_at`, projectID)
	if err != nil {
		return nil, wrapDBErr(err, "list sessions")
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var createdAt int64
		if err := rows.Scan(&sess.SessionID, &sess.ProjectID, &sess.Name, &sess.MessageCount, &createdAt); err != nil {
			return nil, wrapDBErr(err, "scan session")
		}
		sess.CreatedAt = time.UnixMilli(createdAt)
		sessions = append(sessions, &sess)
	}
	return sessions, nil
}

// RemoveSession deletes a session by id. Idempotent on session_id.
func (s *Store) RemoveSession(projectID, sessionID string) error {
	_, err := s.ds.DB().Exec(`DELETE FROM sessions WHERE project_id = ? AND session_id = ?`, projectID, sessionID)
	return wrapDBErr(err, "remove session")
}

// TouchSessionMessageCount sets a session's message_count.
func (s *Store) TouchSessionMessageCount(projectID, sessionID string, count int) error {
	_, err := s.ds.DB().Exec(`UPDATE sessions SET message_count = ? WHERE project_id = ? AND session_id = ?`, count, projectID, sessionID)
	return wrapDBErr(err, "touch session")
}

// UpsertSetting writes a single recognized setting value.
func (s *Store) UpsertSetting(projectID, key, value string) error {
	_, err := s.ds.DB().Exec(`
		INSERT INTO settings (project_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(project_id, key) DO UPDATE SET value = excluded.value
	`, projectID, key, value)
	return wrapDBErr(err, "upsert setting")
}

// ListSettings returns the explicit settings stored for a project (declared
// defaults for unset keys are filled in by the renderer's env resolver,
// not here).
func (s *Store) ListSettings(projectID string) ([]*Setting, error) {
	rows, err := s.ds.DB().Query(`SELECT project_id, key, value FROM settings WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, wrapDBErr(err, "list settings")
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.ProjectID, &st.Key, &st.Value); err != nil {
			return nil, wrapDBErr(err, "scan setting")
		}
		settings = append(settings, &st)
	}
	return settings, nil
}

// DeleteSetting removes a single setting, reverting it to its declared default.
func (s *Store) DeleteSetting(projectID, key string) error {
	_, err := s.ds.DB().Exec(`DELETE FROM settings WHERE project_id = ? AND key = ?`, projectID, key)
	return wrapDBErr(err, "delete setting")
}

// UpsertExtension writes an extension. Idempotent on (project_id, name).
// Position is only assigned on first insert so re-enabling an extension
// preserves its original order.
func (s *Store) UpsertExtension(ext *Extension) error {
	argsEnv, err := json.Marshal(ext.Env)
	if err != nil {
		return wrapDBErr(err, "marshal extension env")
	}
	argsList, err := json.Marshal(ext.Args)
	if err != nil {
		return wrapDBErr(err, "marshal extension args")
	}

	var maxPos sql.NullInt64
	_ = s.ds.DB().QueryRow(`SELECT MAX(position) FROM extensions WHERE project_id = ?`, ext.ProjectID).Scan(&maxPos)
	nextPos := int(maxPos.Int64) + 1

	_, err = s.ds.DB().Exec(`
		INSERT INTO extensions (project_id, name, kind, enabled, position, command, args, env, uri, code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, name) DO UPDATE SET
			kind = excluded.kind, enabled = excluded.enabled,
			command = excluded.command, args = excluded.args,
			env = excluded.env, uri = excluded.uri, code = excluded.code
	`, ext.ProjectID, ext.Name, string(ext.Kind), ext.Enabled, nextPos,
		ext.Command, string(argsList), string(argsEnv), ext.URI, ext.Code)
	return wrapDBErr(err, "upsert extension")
}

// ListExtensions returns a project's extensions in insertion order.
func (s *Store) ListExtensions(projectID string) ([]*Extension, error) {
	rows, err := s.ds.DB().Query(`
		SELECT project_id, name, kind, enabled, command, args, env, uri, code
		FROM extensions WHERE project_id = ? ORDER BY position
	`, projectID)
	if err != nil {
		return nil, wrapDBErr(err, "list extensions")
	}
	defer rows.Close()

	var extensions []*Extension
	for rows.Next() {
		var e Extension
		var kind string
		var argsRaw, envRaw string
		if err := rows.Scan(&e.ProjectID, &e.Name, &kind, &e.Enabled, &e.Command, &argsRaw, &envRaw, &e.URI, &e.Code); err != nil {
			return nil, wrapDBErr(err, "scan extension")
		}
		e.Kind = ExtensionKind(kind)
		_ = json.Unmarshal([]byte(argsRaw), &e.Args)
		_ = json.Unmarshal([]byte(envRaw), &e.Env)
		extensions = append(extensions, &e)
	}
	return extensions, nil
}

// ToggleExtension flips (or sets) an extension's enabled flag, preserving payload.
func (s *Store) ToggleExtension(projectID, name string, enabled bool) error {
	res, err := s.ds.DB().Exec(`UPDATE extensions SET enabled = ? WHERE project_id = ? AND name = ?`, enabled, projectID, name)
	if err != nil {
		return wrapDBErr(err, "toggle extension")
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return cperrors.New(cperrors.KindNotFound, "extension not found")
	}
	return nil
}

// DeleteExtension removes an extension. Idempotent on name.
func (s *Store) DeleteExtension(projectID, name string) error {
	_, err := s.ds.DB().Exec(`DELETE FROM extensions WHERE project_id = ? AND name = ?`, projectID, name)
	return wrapDBErr(err, "delete extension")
}
