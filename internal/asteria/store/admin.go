package store

import (
	"fmt"
	"net/http"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/starwatch-station/asteria/internal/httputil"
)

// AttachAdminRoutes mounts a read-only SQL debug console and a table-size
// report on mux, grounded on internal/db/db.go's tsweb.Debugger +
// tailsql.NewServer wiring.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("store: create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://asteria.db", db.DB, &tailsql.DBOptions{
		Label: "Asteria station index",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("clip-count", "Number of indexed clips (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM clips`).Scan(&count); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to count clips: %v", err))
			return
		}
		httputil.WriteJSONOK(w, map[string]int{"clip_count": count})
	}))

	return nil
}
