package rpc

import (
	"net/http"

	"ewill/core/types"
)

type eventsListParams struct {
	Limit int `json:"limit"`
}

type eventsListResult struct {
	Events []*types.Event `json:"events"`
}

// handleEventsList returns the node's retained settlement events, oldest
// first. An optional limit keeps only the newest entries.
func (s *Server) handleEventsList(w http.ResponseWriter, req *RPCRequest) {
	var params eventsListParams
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	if params.Limit < 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "limit must not be negative")
		return
	}
	evts := s.node.Events()
	if params.Limit > 0 && params.Limit < len(evts) {
		evts = evts[len(evts)-params.Limit:]
	}
	writeResult(w, req.ID, eventsListResult{Events: evts})
}
