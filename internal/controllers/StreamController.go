package controllers

import (
	"net/http"
	"tally/internal/providers"
	"tally/internal/stream"
)

type StreamController struct {
	logger providers.Logger
	hub    *stream.Hub
}

func NewStreamController(logger providers.Logger, hub *stream.Hub) *StreamController {
	return &StreamController{logger: logger, hub: hub}
}

// Subscribe upgrades to a websocket that receives dashboard frames.
func (sc *StreamController) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := stream.ServeWS(sc.hub, w, r); err != nil {
		sc.logger.Warnf(providers.TypeGet, "Stream upgrade failed: %s rid=%s", err, providers.RequestIDFromContext(r.Context()))
		return
	}
	sc.logger.Debugf(providers.TypeGet, "Stream subscriber connected, rid=%s", providers.RequestIDFromContext(r.Context()))
}
