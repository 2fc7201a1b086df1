package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scanlink/scanlink-core/internal/auth"
)

// healthResponse is returned by GET /api/v1/health.
type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Connections   int    `json:"connections"`
	PairedDevices int    `json:"paired_devices"`
	Discovery     string `json:"discovery"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := g.HealthCheck(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       g.version,
		UptimeSeconds: int64(g.uptime().Seconds()),
		Connections:   g.ConnectionCount(),
		PairedDevices: g.registry.Len(),
		Discovery:     g.discoveryStatus(),
	})
}

// discoveryStatus names the active mDNS strategy, "degraded" when none
// started, or "disabled" without an advertiser.
func (g *Gateway) discoveryStatus() string {
	if g.advertiser == nil {
		return "disabled"
	}
	reporter, ok := g.advertiser.(interface{ Active() string })
	if !ok {
		return "unknown"
	}
	if name := reporter.Active(); name != "" {
		return name
	}
	return "degraded"
}

func (g *Gateway) uptime() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.startedAt.IsZero() {
		return 0
	}
	return time.Since(g.startedAt)
}

type deviceResponse struct {
	DeviceID string `json:"device_id"`
}

type deviceListResponse struct {
	Devices []deviceResponse `json:"devices"`
	Count   int              `json:"count"`
}

func (g *Gateway) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	ids := g.Devices()
	devices := make([]deviceResponse, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, deviceResponse{DeviceID: id})
	}
	writeJSON(w, http.StatusOK, deviceListResponse{Devices: devices, Count: len(devices)})
}

// handleKick delivers the request body verbatim to a paired scanner.
func (g *Gateway) handleKick(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		writeBadRequest(w, "body must be the JSON payload to deliver")
		return
	}

	if !g.Kick(deviceID, body) {
		writeNotFound(w, "device not paired: "+deviceID)
		return
	}
	g.logger.Info("host kicked device", "device_id", deviceID, "subject", hostSubject(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "delivered",
		"device_id": deviceID,
	})
}

// hostSubject returns the subject of the verified host token, if any.
func hostSubject(ctx context.Context) string {
	if claims, ok := ctx.Value(ctxKeyClaims).(*auth.Claims); ok {
		return claims.Subject
	}
	return ""
}

func (g *Gateway) handleNetwork(w http.ResponseWriter, _ *http.Request) {
	info, err := LocalNetworkInfo()
	if err != nil {
		g.logger.Warn("reading network info", "error", err)
		writeInternalError(w, "reading network interfaces")
		return
	}
	info.Port = g.Port()
	info.Path = g.cfg.Path
	writeJSON(w, http.StatusOK, info)
}
