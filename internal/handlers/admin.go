package handlers

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LonelyIsle/resort-api/internal/respond"
)

// ClientCounter is satisfied by *ws.Hub.
type ClientCounter interface {
	ClientCount() int
}

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

type Admin struct {
	started time.Time
	hub     ClientCounter
	pool    PoolStater
}

func NewAdmin(started time.Time, hub ClientCounter, pool PoolStater) *Admin {
	return &Admin{started: started, hub: hub, pool: pool}
}

type poolInfo struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
}

type dashboard struct {
	UptimeSeconds    int64     `json:"uptime_seconds"`
	WebSocketClients int       `json:"websocket_clients"`
	DBPool           *poolInfo `json:"db_pool,omitempty"`
}

// Dashboard: process status for admins.
func (h *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	d := dashboard{UptimeSeconds: int64(time.Since(h.started).Seconds())}
	if h.hub != nil {
		d.WebSocketClients = h.hub.ClientCount()
	}
	if h.pool != nil {
		st := h.pool.Stat()
		d.DBPool = &poolInfo{
			TotalConns:    st.TotalConns(),
			IdleConns:     st.IdleConns(),
			AcquiredConns: st.AcquiredConns(),
		}
	}
	respond.OK(w, d, "")
}
