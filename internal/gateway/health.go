package gateway

import "net/http"

// healthResponse reports liveness plus the number of devices the
// simulator is serving endpoints for.
type healthResponse struct {
	Status  string `json:"status"`
	Devices int    `json:"devices"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Devices: len(s.catalog),
	})
}
