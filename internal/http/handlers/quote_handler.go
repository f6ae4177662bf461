// Quote HTTP handlers.
//
// This file exposes REST endpoints for bidding:
//   - POST /cargo/:id/quote           (submit a quote)
//   - GET  /cargo/:id/quote           (owner lists quotes on their cargo)
//   - GET  /marketplace/my-quotes     (carrier lists own quotes, paginated)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cargolink/go-freight-backend/internal/services"
)

// SubmitQuote godoc
// @ID          submitQuote
// @Summary     Submit a quote on a cargo
// @Description Creates a Pending quote from the current user. One quote per carrier per cargo; own cargo and inactive cargo are rejected.
// @Tags        Quotes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"          example(carrier42)
// @Param       id         path    string  true  "Cargo ID (UUID)"  format(uuid)
// @Param       body       body    services.QuoteInput  true  "Quote payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation failed"
// @Failure     403  {object}  handlers.Envelope  "Own cargo"
// @Failure     404  {object}  handlers.Envelope  "Cargo not found"
// @Failure     409  {object}  handlers.Envelope  "Duplicate quote or inactive cargo"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /cargo/{id}/quote [post]
func (h *Handlers) SubmitQuote(c *gin.Context) {
	var in services.QuoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	q, err := h.quoteSvc.Create(c.Request.Context(), c.Param("id"), userID(c), in)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, q)
}

// ListCargoQuotes godoc
// @ID          listCargoQuotes
// @Summary     List quotes on a cargo
// @Description Returns all quotes on the cargo, newest first. Restricted to the cargo owner; stale Pending quotes are expired on read.
// @Tags        Quotes
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"          example(user123)
// @Param       id         path    string  true  "Cargo ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.Envelope
// @Failure     403  {object}  handlers.Envelope  "Not the owner"
// @Failure     404  {object}  handlers.Envelope  "Cargo not found"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /cargo/{id}/quote [get]
func (h *Handlers) ListCargoQuotes(c *gin.Context) {
	quotes, err := h.quoteSvc.ListForCargo(c.Request.Context(), c.Param("id"), userID(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, quotes)
}

// ListOwnQuotes godoc
// @ID          listOwnQuotes
// @Summary     List own quotes (paginated)
// @Description Returns the current user's quotes with cargo summaries and, for accepted quotes, the resulting deal's status and progress.
// @Tags        Marketplace
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"  example(carrier42)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.Envelope
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /marketplace/my-quotes [get]
func (h *Handlers) ListOwnQuotes(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.quoteSvc.ListForCarrier(c.Request.Context(), userID(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	paged(c, items, page, pageSize, total)
}
