package db

const Schema = `
CREATE TABLE IF NOT EXISTS servers (
	id INTEGER PRIMARY KEY,
	created_at REAL NOT NULL DEFAULT (unixepoch('subsec')),
	last_seen_at REAL NOT NULL DEFAULT (unixepoch('subsec')),
	last_ping_ms INTEGER,
	sweep_id TEXT,
	ip TEXT NOT NULL,
	port INTEGER NOT NULL,
	goldsrc BOOLEAN NOT NULL DEFAULT FALSE,
	name TEXT NOT NULL DEFAULT '',
	map TEXT NOT NULL DEFAULT '',
	folder TEXT NOT NULL DEFAULT '',
	game TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	app_id INTEGER NOT NULL DEFAULT 0,
	players INTEGER NOT NULL DEFAULT 0,
	max_players INTEGER NOT NULL DEFAULT 0,
	bots INTEGER NOT NULL DEFAULT 0,
	password BOOLEAN NOT NULL DEFAULT FALSE,
	vac BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE(ip, port)
);

CREATE INDEX IF NOT EXISTS ix_servers_last_seen_at ON servers(last_seen_at);
CREATE INDEX IF NOT EXISTS ix_servers_game ON servers(game);
`
