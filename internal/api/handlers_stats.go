package api

import (
	"net/http"
)

func (s *Server) handleTaggerStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "tagger stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tagger":      s.cfg.Tagger,
		"model":       s.cfg.TaggerModel,
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.stats.Snapshot(),
	})
}
