package store

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		github_token TEXT,
		github_token_set INTEGER NOT NULL DEFAULT 0,
		api_key TEXT,
		api_key_set INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'inactive',
		endpoint TEXT,
		repo_url TEXT,
		has_repository INTEGER NOT NULL DEFAULT 0,
		last_clone_error TEXT,
		github_token TEXT,
		github_key_set INTEGER NOT NULL DEFAULT 0,
		github_key_source TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);

	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

	CREATE TABLE IF NOT EXISTS settings (
		project_id TEXT NOT NULL REFERENCES projects(id),
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (project_id, key)
	);

	CREATE TABLE IF NOT EXISTS extensions (
		project_id TEXT NOT NULL REFERENCES projects(id),
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL DEFAULT 0,
		command TEXT NOT NULL DEFAULT '',
		args TEXT NOT NULL DEFAULT '',
		env TEXT NOT NULL DEFAULT '',
		uri TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (project_id, name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}
