package models

import (
	"net/netip"
	"time"
)

type Server struct {
	ID         int64     `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	LastPingMs *int64    `json:"last_ping_ms"`
	SweepID    *string   `json:"sweep_id"`
	IP         string    `json:"ip"`
	Port       int       `json:"port"`
	GoldSrc    bool      `json:"goldsrc"`
	Name       string    `json:"name"`
	Map        string    `json:"map"`
	Folder     string    `json:"folder"`
	Game       string    `json:"game"`
	Version    string    `json:"version"`
	AppID      int       `json:"app_id"`
	Players    int       `json:"players"`
	MaxPlayers int       `json:"max_players"`
	Bots       int       `json:"bots"`
	Password   bool      `json:"password"`
	VAC        bool      `json:"vac"`
}

// Addr returns the server's query address as ip:port.
func (s *Server) Addr() string {
	addr, err := netip.ParseAddr(s.IP)
	if err != nil {
		return ""
	}

	return netip.AddrPortFrom(addr, uint16(s.Port)).String()
}
