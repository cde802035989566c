package store

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS games (
	id TEXT PRIMARY KEY,
	rawg_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	slug TEXT NOT NULL,
	background_image TEXT,
	released TEXT,
	rating REAL,
	metacritic INTEGER,
	platforms TEXT NOT NULL DEFAULT '[]',
	genres TEXT NOT NULL DEFAULT '[]',
	developers TEXT NOT NULL DEFAULT '[]',
	publishers TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	esrb_rating TEXT,
	playtime INTEGER,
	description TEXT,
	website TEXT,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_games_rawg_id ON games(rawg_id);

CREATE TABLE IF NOT EXISTS user_games (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	game_id TEXT NOT NULL REFERENCES games(id),
	owned_on_steam BOOLEAN NOT NULL DEFAULT 0,
	owned_on_epic BOOLEAN NOT NULL DEFAULT 0,
	owned_on_gog BOOLEAN NOT NULL DEFAULT 0,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_user_games_user ON user_games(user_id);
CREATE INDEX IF NOT EXISTS idx_user_games_user_game ON user_games(user_id, game_id);

CREATE TABLE IF NOT EXISTS import_jobs (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id),
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	completed INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_user ON import_jobs(user_id);

CREATE TABLE IF NOT EXISTS user_preferences (
	user_id TEXT PRIMARY KEY REFERENCES users(id),
	view_mode TEXT NOT NULL DEFAULT 'grid',
	visible_fields TEXT NOT NULL DEFAULT '[]',
	items_per_page INTEGER NOT NULL DEFAULT 12
);
`
