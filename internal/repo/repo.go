package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/DeFirence/steam-condenser/internal/db"
	"github.com/DeFirence/steam-condenser/internal/models"
	"github.com/DeFirence/steam-condenser/internal/query"
)

var ErrNotFound = fmt.Errorf("not found: %w", sql.ErrNoRows)

type ServersRepo struct {
	db *sql.DB
	q  *db.Queries
}

func New(sqldb *sql.DB) *ServersRepo {
	return &ServersRepo{
		db: sqldb,
		q:  db.New(sqldb),
	}
}

// TrackServer inserts or refreshes the row for the given server with
// the outcome of one info query.
func (r *ServersRepo) TrackServer(ctx context.Context, addr netip.AddrPort, info *query.ServerInfo, ping time.Duration, sweepID string) (*models.Server, error) {
	params := &db.UpsertServerParams{
		Ip:         addr.Addr().String(),
		Port:       int64(addr.Port()),
		Goldsrc:    info.GoldSrc,
		Name:       info.Name,
		Map:        info.Map,
		Folder:     info.Folder,
		Game:       info.Game,
		Version:    info.Version,
		AppID:      int64(info.AppID),
		Players:    int64(info.Players),
		MaxPlayers: int64(info.MaxPlayers),
		Bots:       int64(info.Bots),
		Password:   info.Password,
		Vac:        info.VAC,
		SweepID:    newNullString(&sweepID),
	}
	if ping > 0 {
		params.LastPingMs = sql.NullInt64{Int64: ping.Milliseconds(), Valid: true}
	}

	dbServer, err := r.q.UpsertServer(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert server: %w", err)
	}

	return convertServer(dbServer), nil
}

func (r *ServersRepo) GetServerByAddr(ctx context.Context, addr netip.AddrPort) (*models.Server, error) {
	dbServer, err := r.q.GetServerByAddr(ctx, &db.GetServerByAddrParams{
		Ip:   addr.Addr().String(),
		Port: int64(addr.Port()),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return convertServer(dbServer), nil
}

func (r *ServersRepo) ListServers(ctx context.Context, limit int64) ([]*models.Server, error) {
	dbServers, err := r.q.ListServers(ctx, limit)
	if err != nil {
		return nil, err
	}

	servers := make([]*models.Server, 0, len(dbServers))
	for _, dbServer := range dbServers {
		servers = append(servers, convertServer(dbServer))
	}

	return servers, nil
}

func (r *ServersRepo) CountServers(ctx context.Context) (int64, error) {
	return r.q.CountServers(ctx)
}

// PruneServers deletes servers that haven't answered a query since the
// given time and returns how many were removed.
func (r *ServersRepo) PruneServers(ctx context.Context, lastSeenBefore time.Time) (int64, error) {
	return r.q.PruneServers(ctx, db.Time(lastSeenBefore))
}

func convertServer(dbServer *db.Server) *models.Server {
	server := &models.Server{
		ID:         dbServer.ID,
		CreatedAt:  time.Time(dbServer.CreatedAt),
		LastSeenAt: time.Time(dbServer.LastSeenAt),
		IP:         dbServer.Ip,
		Port:       int(dbServer.Port),
		GoldSrc:    dbServer.Goldsrc,
		Name:       dbServer.Name,
		Map:        dbServer.Map,
		Folder:     dbServer.Folder,
		Game:       dbServer.Game,
		Version:    dbServer.Version,
		AppID:      int(dbServer.AppID),
		Players:    int(dbServer.Players),
		MaxPlayers: int(dbServer.MaxPlayers),
		Bots:       int(dbServer.Bots),
		Password:   dbServer.Password,
		VAC:        dbServer.Vac,
	}

	if dbServer.LastPingMs.Valid {
		ms := dbServer.LastPingMs.Int64
		server.LastPingMs = &ms
	}
	server.SweepID = convertNullString(dbServer.SweepID)

	return server
}

func convertNullString(s sql.NullString) *string {
	if s.Valid {
		return &s.String
	}
	return nil
}

func newNullString(s *string) sql.NullString {
	res := sql.NullString{Valid: s != nil}
	if res.Valid {
		res.String = *s
	}
	return res
}
