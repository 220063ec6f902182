package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hashmarket/hashmarket-core/internal/controlplane"
	"github.com/hashmarket/hashmarket-core/internal/stratum"
)

// =============================================================================
// CONTROL-PLANE INGRESS ENDPOINTS
// The five internal callbacks a regional proxy calls against a worker id
// (spec.md §4.6), mirroring the teacher's server.go route-group pattern
// but serving controlplane.Service instead of the teacher's pool-stats
// handlers.
// =============================================================================

type ingressOrderLookupRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
}

type ingressConnectRequest struct {
	WorkerID  string `json:"worker_id" binding:"required"`
	RemoteIP  string `json:"remote_ip"`
	UserAgent string `json:"user_agent"`
}

type ingressShareRequest struct {
	WorkerID   string  `json:"worker_id" binding:"required"`
	Outcome    string  `json:"outcome" binding:"required"`
	Difficulty float64 `json:"difficulty"`
	At         string  `json:"at" binding:"required" time_format:"2006-01-02T15:04:05.999999999Z07:00"`
}

type ingressHashrateRequest struct {
	WorkerID string  `json:"worker_id" binding:"required"`
	Hashrate float64 `json:"hashrate"`
	Accuracy float64 `json:"accuracy"`
	Accepted int64   `json:"accepted"`
	Rejected int64   `json:"rejected"`
	Low      bool    `json:"low"`
}

type ingressDisconnectRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
	Reason   string `json:"reason"`
}

// RegisterIngressRoutes wires the five endpoints onto rg, e.g.
// server.Router.Group("/internal/v1").
func RegisterIngressRoutes(rg *gin.RouterGroup, svc *controlplane.Service) {
	h := &ingressHandlers{svc: svc}
	rg.POST("/order-lookup", h.orderLookup)
	rg.POST("/connect", h.connect)
	rg.POST("/share", h.share)
	rg.POST("/hashrate", h.hashrate)
	rg.POST("/disconnect", h.disconnect)
}

type ingressHandlers struct {
	svc *controlplane.Service
}

func (h *ingressHandlers) orderLookup(c *gin.Context) {
	var req ingressOrderLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	lookup, err := h.svc.OrderByWorker(c.Request.Context(), req.WorkerID)
	if err != nil {
		RespondNotFound(c, "unknown worker id")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":         lookup.OrderID,
		"destination":      lookup.Destination,
		"algorithm":        lookup.Algorithm,
		"hours":            lookup.Hours,
		"status":           lookup.Status,
		"ordered_hashrate": lookup.OrderedHashrate,
	})
}

func (h *ingressHandlers) connect(c *gin.Context) {
	var req ingressConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if err := h.svc.Connect(c.Request.Context(), req.WorkerID, req.RemoteIP, req.UserAgent); err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ingressHandlers) share(c *gin.Context) {
	var req ingressShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	at, err := time.Parse(time.RFC3339Nano, req.At)
	if err != nil {
		RespondBadRequest(c, "invalid at timestamp")
		return
	}
	outcome := stratum.ShareOutcome(req.Outcome)
	if err := h.svc.Share(c.Request.Context(), req.WorkerID, outcome, req.Difficulty, at); err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ingressHandlers) hashrate(c *gin.Context) {
	var req ingressHashrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if err := h.svc.Hashrate(c.Request.Context(), req.WorkerID, req.Hashrate, req.Accuracy, req.Accepted, req.Rejected, req.Low); err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ingressHandlers) disconnect(c *gin.Context) {
	var req ingressDisconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	if err := h.svc.Disconnect(c.Request.Context(), req.WorkerID, req.Reason); err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
