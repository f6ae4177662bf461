// Deal HTTP handlers.
//
// This file exposes REST endpoints for the deal lifecycle:
//   - PUT   /quotes/:id/accept          (owner accepts a quote)
//   - PATCH /deals/:id/status           (either party advances the deal)
//   - GET   /marketplace/active-deals   (list own deals, paginated)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/repo"
)

// UpdateDealStatusRequest is the JSON payload for advancing a deal.
type UpdateDealStatusRequest struct {
	// Status is the target state.
	Status string `json:"status" binding:"required" example:"InTransit"`
	// Description optionally annotates the timeline entry.
	Description string `json:"description" example:"Truck loaded, leaving warehouse"`
}

// AcceptQuote godoc
// @ID          acceptQuote
// @Summary     Accept a quote
// @Description Accepts the quote, creates the deal, rejects sibling quotes, and assigns the cargo in one transaction. Only the cargo owner may call this; concurrent accepts resolve to exactly one winner.
// @Tags        Deals
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"          example(user123)
// @Param       id         path    string  true  "Quote ID (UUID)"  format(uuid)
//
// @Success     201  {object}  handlers.Envelope
// @Failure     403  {object}  handlers.Envelope  "Not the owner"
// @Failure     404  {object}  handlers.Envelope  "Quote not found"
// @Failure     409  {object}  handlers.Envelope  "Quote no longer pending or deal already exists"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /quotes/{id}/accept [put]
func (h *Handlers) AcceptQuote(c *gin.Context) {
	res, err := h.dealSvc.AcceptQuote(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, res)
}

// UpdateDealStatus godoc
// @ID          updateDealStatus
// @Summary     Advance a deal's status
// @Description Moves the deal along Active, InTransit, Delivered, Completed (or cancels it). Restricted to the shipper and the transporter; illegal transitions are rejected.
// @Tags        Deals
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"         example(carrier42)
// @Param       id         path    string  true  "Deal ID (UUID)"  format(uuid)
// @Param       body       body    handlers.UpdateDealStatusRequest  true  "Target status"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Bad request"
// @Failure     403  {object}  handlers.Envelope  "Not a party to the deal"
// @Failure     404  {object}  handlers.Envelope  "Deal not found"
// @Failure     409  {object}  handlers.Envelope  "Transition not allowed"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /deals/{id}/status [patch]
func (h *Handlers) UpdateDealStatus(c *gin.Context) {
	var req UpdateDealStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}

	deal, err := h.dealSvc.UpdateStatus(c.Request.Context(), c.Param("id"), userID(c),
		domain.DealStatus(strings.TrimSpace(req.Status)), req.Description)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, deal)
}

// ListDeals godoc
// @ID          listDeals
// @Summary     List own deals (paginated)
// @Description Returns deals where the current user is shipper or transporter, newest first, with per-status totals.
// @Tags        Marketplace
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"  example(user123)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status     query   string  false  "Status filter"  Enums(Active, InTransit, Delivered, Completed, Cancelled)
// @Param       role       query   string  false  "Side filter"    Enums(shipper, transporter)
//
// @Success     200  {object}  handlers.Envelope
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /marketplace/active-deals [get]
func (h *Handlers) ListDeals(c *gin.Context) {
	page, pageSize := clampPagination(c)
	f := repo.DealFilter{
		Status: domain.DealStatus(strings.TrimSpace(c.Query("status"))),
		Role:   strings.TrimSpace(c.Query("role")),
	}

	items, total, stats, err := h.dealSvc.ListForUser(c.Request.Context(), userID(c), f, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"items": items,
		"meta":  pageMeta(page, pageSize, total),
		"stats": stats,
	})
}
