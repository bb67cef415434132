// Query layer for the servers table, kept in the shape sqlc generates
// so the repo package reads the same as it would with generated code.
package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Server struct {
	ID         int64
	CreatedAt  Time
	LastSeenAt Time
	LastPingMs sql.NullInt64
	SweepID    sql.NullString
	Ip         string
	Port       int64
	Goldsrc    bool
	Name       string
	Map        string
	Folder     string
	Game       string
	Version    string
	AppID      int64
	Players    int64
	MaxPlayers int64
	Bots       int64
	Password   bool
	Vac        bool
}

const serverColumns = `id, created_at, last_seen_at, last_ping_ms, sweep_id, ip, port, goldsrc,
	name, map, folder, game, version, app_id, players, max_players, bots, password, vac`

func scanServer(row interface{ Scan(...any) error }) (*Server, error) {
	var s Server
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.LastSeenAt, &s.LastPingMs, &s.SweepID,
		&s.Ip, &s.Port, &s.Goldsrc, &s.Name, &s.Map, &s.Folder, &s.Game,
		&s.Version, &s.AppID, &s.Players, &s.MaxPlayers, &s.Bots,
		&s.Password, &s.Vac,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const upsertServer = `
INSERT INTO servers (ip, port, goldsrc, name, map, folder, game, version,
	app_id, players, max_players, bots, password, vac, last_ping_ms, sweep_id)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10, ?11, ?12, ?13, ?14, ?15, ?16)
ON CONFLICT (ip, port) DO UPDATE SET
	last_seen_at = unixepoch('subsec'),
	goldsrc = excluded.goldsrc,
	name = excluded.name,
	map = excluded.map,
	folder = excluded.folder,
	game = excluded.game,
	version = excluded.version,
	app_id = excluded.app_id,
	players = excluded.players,
	max_players = excluded.max_players,
	bots = excluded.bots,
	password = excluded.password,
	vac = excluded.vac,
	last_ping_ms = excluded.last_ping_ms,
	sweep_id = excluded.sweep_id
RETURNING ` + serverColumns

type UpsertServerParams struct {
	Ip         string
	Port       int64
	Goldsrc    bool
	Name       string
	Map        string
	Folder     string
	Game       string
	Version    string
	AppID      int64
	Players    int64
	MaxPlayers int64
	Bots       int64
	Password   bool
	Vac        bool
	LastPingMs sql.NullInt64
	SweepID    sql.NullString
}

func (q *Queries) UpsertServer(ctx context.Context, arg *UpsertServerParams) (*Server, error) {
	row := q.db.QueryRowContext(ctx, upsertServer,
		arg.Ip, arg.Port, arg.Goldsrc, arg.Name, arg.Map, arg.Folder,
		arg.Game, arg.Version, arg.AppID, arg.Players, arg.MaxPlayers,
		arg.Bots, arg.Password, arg.Vac, arg.LastPingMs, arg.SweepID,
	)
	return scanServer(row)
}

const getServerByAddr = `
SELECT ` + serverColumns + `
FROM servers
WHERE ip = ?1 AND port = ?2`

type GetServerByAddrParams struct {
	Ip   string
	Port int64
}

func (q *Queries) GetServerByAddr(ctx context.Context, arg *GetServerByAddrParams) (*Server, error) {
	return scanServer(q.db.QueryRowContext(ctx, getServerByAddr, arg.Ip, arg.Port))
}

const listServers = `
SELECT ` + serverColumns + `
FROM servers
ORDER BY last_seen_at DESC
LIMIT ?1`

func (q *Queries) ListServers(ctx context.Context, limit int64) ([]*Server, error) {
	rows, err := q.db.QueryContext(ctx, listServers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}

	return servers, rows.Err()
}

const countServers = `
SELECT COUNT(*) FROM servers`

func (q *Queries) CountServers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countServers).Scan(&count)
	return count, err
}

const pruneServers = `
DELETE FROM servers WHERE last_seen_at < ?1`

func (q *Queries) PruneServers(ctx context.Context, lastSeenBefore Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, pruneServers, lastSeenBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
