// Cargo HTTP handlers.
//
// This file exposes REST endpoints for cargo postings:
//   - POST /cargo                      (create posting)
//   - GET  /cargo/:id                  (fetch one posting)
//   - GET  /marketplace/offers         (browse others' postings, filtered + paginated)
//   - GET  /marketplace/my-cargo       (own postings, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/http/middleware"
	"github.com/cargolink/go-freight-backend/internal/repo"
	"github.com/cargolink/go-freight-backend/internal/services"
	"github.com/cargolink/go-freight-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// CargoService defines cargo posting operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CargoService interface {
	// Create validates and persists a new Active posting for ownerID.
	Create(ctx context.Context, ownerID string, in services.CargoInput) (*domain.Cargo, error)
	// ListMarketplace returns a page of other users' public Active postings.
	ListMarketplace(ctx context.Context, requestorID string, f repo.CargoFilter, page, pageSize int) ([]domain.Cargo, int64, error)
	// ListOwn returns a page of the requestor's own postings.
	ListOwn(ctx context.Context, ownerID string, f repo.CargoFilter, page, pageSize int) ([]domain.Cargo, int64, error)
	// Get fetches one posting by id.
	Get(ctx context.Context, id string) (*domain.Cargo, error)
}

// QuoteService defines bidding operations consumed by HTTP handlers.
type QuoteService interface {
	// Create submits a Pending quote from carrierID against cargoID.
	Create(ctx context.Context, cargoID, carrierID string, in services.QuoteInput) (*domain.Quote, error)
	// ListForCargo returns all quotes on a cargo; owner only.
	ListForCargo(ctx context.Context, cargoID, requestorID string) ([]domain.Quote, error)
	// ListForCarrier returns a page of the carrier's quotes with summaries.
	ListForCarrier(ctx context.Context, carrierID string, page, pageSize int) ([]services.CarrierQuote, int64, error)
}

// DealService defines deal lifecycle operations consumed by HTTP handlers.
type DealService interface {
	// AcceptQuote runs the acceptance transaction for the cargo owner.
	AcceptQuote(ctx context.Context, quoteID, requestorID string) (*services.AcceptResult, error)
	// UpdateStatus advances a deal along its lifecycle.
	UpdateStatus(ctx context.Context, dealID, requestorID string, next domain.DealStatus, description string) (*domain.Deal, error)
	// ListForUser returns a page of deals with cargo summaries and status counts.
	ListForUser(ctx context.Context, userID string, f repo.DealFilter, page, pageSize int) ([]services.DealView, int64, map[domain.DealStatus]int64, error)
}

// ChatService defines conversation operations consumed by HTTP handlers.
type ChatService interface {
	// GetOrCreateThread returns the cargo's conversation, creating on first use.
	GetOrCreateThread(ctx context.Context, cargoID, requestorID, counterpartID string) (*domain.ChatThread, error)
	// PostMessage appends a message and fans it out to subscribers.
	PostMessage(ctx context.Context, threadID, senderID, content string) (*domain.ChatMessage, error)
	// ListMessages returns a page of a thread's messages, oldest first.
	ListMessages(ctx context.Context, threadID, requestorID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	// ListThreads returns the requestor's conversations with previews.
	ListThreads(ctx context.Context, requestorID string) ([]repo.ThreadPreview, error)
	// ThreadByCargo resolves a cargo id to its thread without creating one.
	ThreadByCargo(ctx context.Context, cargoID string) (*domain.ChatThread, error)
	// Authorize checks thread membership for the websocket upgrade path.
	Authorize(ctx context.Context, threadID, requestorID string) (*domain.ChatThread, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for cargo, quotes, deals, and chat.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	cargoSvc CargoService
	quoteSvc QuoteService
	dealSvc  DealService
	chatSvc  ChatService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(cargoSvc CargoService, quoteSvc QuoteService, dealSvc DealService, chatSvc ChatService) *Handlers {
	return &Handlers{cargoSvc: cargoSvc, quoteSvc: quoteSvc, dealSvc: dealSvc, chatSvc: chatSvc}
}

// userID extracts the authenticated user id set by the identity middleware.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// cargoFilterFrom builds the shared listing filter from query parameters.
func cargoFilterFrom(c *gin.Context) repo.CargoFilter {
	return repo.CargoFilter{
		Status:     domain.CargoStatus(strings.TrimSpace(c.Query("status"))),
		Type:       domain.CargoType(strings.TrimSpace(c.Query("cargo_type"))),
		Country:    strings.TrimSpace(c.Query("country")),
		UrgentOnly: utils.BoolDefault(c.Query("urgent"), false),
		PriceMin:   utils.FloatPtr(c.Query("price_min")),
		PriceMax:   utils.FloatPtr(c.Query("price_max")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
}

//
// Handlers
//

// CreateCargo godoc
// @ID          createCargo
// @Summary     Post a new cargo
// @Description Creates an Active cargo posting for the current user. Trial accounts are limited to 5 active postings.
// @Tags        Cargo
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    services.CargoInput  true  "Cargo payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Validation failed"
// @Failure     403  {object}  handlers.Envelope  "Quota exceeded"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /cargo [post]
func (h *Handlers) CreateCargo(c *gin.Context) {
	var in services.CargoInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cargo, err := h.cargoSvc.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, cargo)
}

// GetCargo godoc
// @ID          getCargo
// @Summary     Fetch one cargo posting
// @Tags        Cargo
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"       example(user123)
// @Param       id         path    string  true  "Cargo ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.Envelope
// @Failure     404  {object}  handlers.Envelope  "Cargo not found"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /cargo/{id} [get]
func (h *Handlers) GetCargo(c *gin.Context) {
	cargo, err := h.cargoSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, cargo)
}

// ListMarketplace godoc
// @ID          listMarketplace
// @Summary     Browse the marketplace (paginated)
// @Description Returns other users' public Active postings, urgent first then newest. Supports country, type, budget, and free-text filters.
// @Tags        Marketplace
// @Produce     json
//
// @Param       X-User-ID   header  string  true   "User ID"  example(user123)
// @Param       page        query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size   query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       country     query   string  false  "Pickup or delivery country"
// @Param       cargo_type  query   string  false  "Cargo type"  Enums(General, Fragile, Hazardous, Refrigerated)
// @Param       urgent      query   bool    false  "Urgent postings only"
// @Param       price_min   query   number  false  "Minimum budget"
// @Param       price_max   query   number  false  "Maximum budget"
// @Param       search      query   string  false  "Free-text search over title, description, and cities"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /marketplace/offers [get]
func (h *Handlers) ListMarketplace(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.cargoSvc.ListMarketplace(c.Request.Context(), userID(c), cargoFilterFrom(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	paged(c, items, page, pageSize, total)
}

// ListOwnCargo godoc
// @ID          listOwnCargo
// @Summary     List own postings (paginated)
// @Description Returns the current user's postings regardless of visibility. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Marketplace
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "User ID"  example(user123)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status         query   string  false  "Status filter"  Enums(Active, Assigned, Completed, Cancelled)
//
// @Success     200  {object}  handlers.Envelope
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /marketplace/my-cargo [get]
func (h *Handlers) ListOwnCargo(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okc := h.cargoSvc.(*services.CargoService); okc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.OwnCargoStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"cargo:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.cargoSvc.ListOwn(ctx, uid, cargoFilterFrom(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	paged(c, items, page, pageSize, total)
}
