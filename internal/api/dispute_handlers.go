package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hashmarket/hashmarket-core/internal/auth"
	"github.com/hashmarket/hashmarket-core/internal/orders"
)

// =============================================================================
// ADMIN DISPUTE RESOLUTION
// Dispute resolution is the one action in this core that needs an
// authenticated human actor (spec.md §4.7); everything else is driven by
// the proxy's ingress callbacks. Routes mirror the teacher's
// admin_handlers.go naming, trimmed to the one admin surface this domain
// keeps.
// =============================================================================

type disputeResolutionRequest struct {
	Action         string `json:"action" binding:"required"` // approve|reject|partial
	PartialPercent int    `json:"partial_percent"`
}

// RegisterDisputeRoutes wires the login endpoint and the JWT/role-gated
// dispute queue onto rg, e.g. server.Router.Group("/api/v1/admin").
func RegisterDisputeRoutes(rg *gin.RouterGroup, adminAuth *auth.AdminAuthService, orderRepo orders.Repository, machine *orders.Machine) {
	h := &disputeHandlers{orderRepo: orderRepo, machine: machine}

	rg.POST("/login", adminLoginHandler(adminAuth))

	protected := rg.Group("")
	protected.Use(AuthMiddlewareStandalone(adminAuth.JWTSecretString()))
	protected.Use(RequireAdminRole(adminAuth))
	protected.GET("/disputes", h.listDisputes)
	protected.POST("/disputes/:order_id/resolve", h.resolveDispute)
}

func adminLoginHandler(adminAuth *auth.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, err.Error())
			return
		}

		user, token, err := adminAuth.Login(req.Username, req.Password)
		if err != nil {
			RespondUnauthorized(c, "invalid admin credentials")
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "username": user.Username})
	}
}

// AuthMiddlewareStandalone validates the Bearer token and sets user_id.
func AuthMiddlewareStandalone(jwtSecret string) gin.HandlerFunc {
	verifier := auth.NewAuthService(nil, jwtSecret)
	return func(c *gin.Context) {
		claims, err := verifier.ValidateJWT(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if err != nil {
			RespondUnauthorized(c, "")
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

// RequireAdminRole looks up the authenticated user (AuthMiddlewareStandalone
// has already set user_id from the JWT) and rejects anyone below
// auth.RoleAdmin, the same two-step JWT-then-role-lookup shape as the
// teacher's AdminMiddleware, adapted to query through auth.UserRepository
// instead of a raw `is_admin` column.
func RequireAdminRole(adminAuth *auth.AdminAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			RespondUnauthorized(c, "")
			c.Abort()
			return
		}
		user, err := adminAuth.UserByID(userID)
		if err != nil || user == nil || user.Role.Level() < auth.RoleAdmin.Level() {
			RespondForbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Set("admin_user_id", userID)
		c.Next()
	}
}

type disputeHandlers struct {
	orderRepo orders.Repository
	machine   *orders.Machine
}

func (h *disputeHandlers) listDisputes(c *gin.Context) {
	disputes, err := h.orderRepo.ListOpenDisputes(c.Request.Context())
	if err != nil {
		RespondInternalError(c, err.Error())
		return
	}
	RespondSuccess(c, disputes, "")
}

func (h *disputeHandlers) resolveDispute(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		RespondBadRequest(c, "invalid order id")
		return
	}

	var req disputeResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	var action orders.AdminAction
	switch req.Action {
	case "approve":
		action = orders.ActionApprove
	case "reject":
		action = orders.ActionReject
	case "partial":
		action = orders.ActionPartial
	default:
		RespondBadRequest(c, "action must be approve, reject, or partial")
		return
	}

	order, err := h.machine.AdminSettle(c.Request.Context(), orderID, action, req.PartialPercent)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	RespondSuccess(c, order, "dispute resolved")
}
