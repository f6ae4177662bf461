// Chat HTTP handlers.
//
// This file exposes REST endpoints for cargo conversations:
//   - GET  /chat/threads              (list own threads with previews)
//   - POST /chat/:cargoId/thread      (get-or-create the cargo's thread)
//   - GET  /chat/:cargoId/messages    (list messages, marks them read)
//   - POST /chat/:cargoId/messages    (send a message)
//
// Message routes address threads by cargo id, matching how clients navigate:
// from a posting or a deal straight into its conversation.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/repo"
	"github.com/cargolink/go-freight-backend/internal/services"
)

// OpenThreadRequest is the JSON payload for opening a conversation.
type OpenThreadRequest struct {
	// CounterpartID names the other party; required only when the caller
	// owns the cargo.
	CounterpartID string `json:"counterpart_id" example:"carrier42"`
}

// SendMessageRequest is the JSON payload for sending a chat message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"Can you pick up on Tuesday morning?"`
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List conversations
// @Description Returns the current user's threads, most recently active first, with last-message previews and unread counts. Supports weak ETag via If-None-Match.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "User ID"  example(user123)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.Envelope
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /chat/threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okc := h.chatSvc.(*services.ChatService); okc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ThreadStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"threads:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	threads, err := h.chatSvc.ListThreads(ctx, uid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, threads)
}

// OpenThread godoc
// @ID          openThread
// @Summary     Open a cargo's conversation
// @Description Returns the conversation for the cargo, creating it on first use. Carriers open it directly; the cargo owner must name the counterpart.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"          example(carrier42)
// @Param       cargoId    path    string  true   "Cargo ID (UUID)"  format(uuid)
// @Param       body       body    handlers.OpenThreadRequest  false  "Counterpart (owner only)"
//
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Missing counterpart"
// @Failure     403  {object}  handlers.Envelope  "Not a participant"
// @Failure     404  {object}  handlers.Envelope  "Cargo not found"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /chat/{cargoId}/thread [post]
func (h *Handlers) OpenThread(c *gin.Context) {
	var req OpenThreadRequest
	// Body is optional; ignore bind errors from an empty body.
	_ = c.ShouldBindJSON(&req)

	thread, err := h.chatSvc.GetOrCreateThread(c.Request.Context(), c.Param("cargoId"), userID(c), req.CounterpartID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, thread)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List a conversation's messages (paginated)
// @Description Returns the cargo conversation's messages, oldest first. Reading marks the counterparty's messages as read.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"          example(user123)
// @Param       cargoId    path    string  true   "Cargo ID (UUID)"  format(uuid)
// @Param       page       query   int     false  "Page number"      minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.Envelope
// @Failure     403  {object}  handlers.Envelope  "Not a participant"
// @Failure     404  {object}  handlers.Envelope  "No conversation for this cargo"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /chat/{cargoId}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	thread, err := h.threadByCargo(c)
	if err != nil {
		failService(c, err)
		return
	}

	page, pageSize := clampPagination(c)
	msgs, total, err := h.chatSvc.ListMessages(c.Request.Context(), thread.ID, userID(c), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	paged(c, msgs, page, pageSize, total)
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message
// @Description Appends a message to the cargo's conversation and fans it out to connected websocket clients.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"          example(user123)
// @Param       cargoId    path    string  true  "Cargo ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.Envelope  "Empty content"
// @Failure     403  {object}  handlers.Envelope  "Not a participant"
// @Failure     404  {object}  handlers.Envelope  "No conversation for this cargo"
// @Failure     500  {object}  handlers.Envelope  "Internal error"
// @Router      /chat/{cargoId}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content is required")
		return
	}

	thread, err := h.threadByCargo(c)
	if err != nil {
		failService(c, err)
		return
	}

	msg, err := h.chatSvc.PostMessage(c.Request.Context(), thread.ID, userID(c), req.Content)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// threadByCargo resolves the :cargoId path parameter to the cargo's thread,
// without creating one.
func (h *Handlers) threadByCargo(c *gin.Context) (*domain.ChatThread, error) {
	return h.chatSvc.ThreadByCargo(c.Request.Context(), c.Param("cargoId"))
}
