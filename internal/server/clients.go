package server

import (
	"net/http"
	"strconv"
	"time"
)

func registerClientRoutes(mux *http.ServeMux, d Deps) {
	// GET /api/clients: connected sessions plus recent connect history.
	handleGet(mux, "/api/clients", func(w http.ResponseWriter, r *http.Request) {
		hosts := d.Hub.Registry().UniqueHosts()
		resp := map[string]any{
			"total_clients": d.Hub.Registry().Count(),
			"unique_ips":    len(hosts),
			"ip_addresses":  hosts,
			"clients":       d.Hub.Registry().List(),
			"server_time":   time.Now().Format(time.RFC3339),
		}

		if d.DB != nil {
			limit, _ := strconv.Atoi(r.URL.Query().Get("history"))
			events, err := d.DB.RecentEvents(limit)
			if err != nil {
				log.Warnf("session history: %v", err)
			} else {
				resp["history"] = events
			}
		}

		writeJSON(w, resp)
	})
}
