// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for chat threads
// and messages.
//
// Thread creation relies on the unique index over cargo_id: concurrent
// get-or-create races resolve at the storage layer, with the losing insert
// surfacing gorm.ErrDuplicatedKey so the caller can fetch the winner.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargolink/go-freight-backend/internal/domain"
)

// ThreadPreview is a thread joined with its latest message and the unread
// count for the listing user. Used by the thread-list endpoint.
type ThreadPreview struct {
	Thread      domain.ChatThread   `json:"thread"`
	LastMessage *domain.ChatMessage `json:"last_message,omitempty"`
	UnreadCount int64               `json:"unread_count"`
}

// CreateThread inserts a new thread for a cargo. A concurrent insert for the
// same cargo fails with gorm.ErrDuplicatedKey.
func CreateThread(ctx context.Context, db *gorm.DB, t *domain.ChatThread) (*domain.ChatThread, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetThread fetches a thread by ID, or ErrNotFound if missing.
func GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.ChatThread, error) {
	var t domain.ChatThread
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetThreadByCargo fetches the thread scoped to a cargo, or ErrNotFound.
func GetThreadByCargo(ctx context.Context, db *gorm.DB, cargoID string) (*domain.ChatThread, error) {
	var t domain.ChatThread
	if err := db.WithContext(ctx).Where("cargo_id = ?", cargoID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// LinkThreadDeal attaches deal/quote references to a thread once a deal forms.
func LinkThreadDeal(ctx context.Context, db *gorm.DB, threadID, dealID, quoteID string) error {
	return db.WithContext(ctx).
		Model(&domain.ChatThread{}).
		Where("id = ?", threadID).
		Updates(map[string]any{"deal_id": dealID, "quote_id": quoteID}).Error
}

// CreateMessage inserts a message row. The caller bumps the thread's
// last_message_at in the same transaction via TouchThread.
func CreateMessage(ctx context.Context, db *gorm.DB, threadID, senderID, content string, mt domain.MessageType) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:          uuid.NewString(),
		ThreadID:    threadID,
		SenderID:    senderID,
		Content:     content,
		MessageType: mt,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// TouchThread bumps the thread's last_message_at sort key.
func TouchThread(ctx context.Context, db *gorm.DB, threadID string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.ChatThread{}).
		Where("id = ?", threadID).
		Update("last_message_at", at).Error
}

// CountMessages returns the total messages in a thread.
func CountMessages(ctx context.Context, db *gorm.DB, threadID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("thread_id = ?", threadID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns messages oldest first, ordered deterministically
// (CreatedAt ASC, ID ASC). Delivery order over the realtime channel is not
// authoritative; consumers re-derive ordering from these timestamps.
func ListMessagesPage(ctx context.Context, db *gorm.DB, threadID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkMessagesRead flips is_read on every message in the thread that was not
// sent by readerID. Returns the number of rows flipped.
func MarkMessagesRead(ctx context.Context, db *gorm.DB, threadID, readerID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("thread_id = ? AND sender_id <> ? AND is_read = ?", threadID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UnreadCount returns the number of unread messages in the thread not sent
// by userID.
func UnreadCount(ctx context.Context, db *gorm.DB, threadID, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("thread_id = ? AND sender_id <> ? AND is_read = ?", threadID, userID, false).
		Count(&total).Error
	return total, err
}

// ListThreadsForUser returns every thread where userID is a participant,
// newest activity first, with last-message preview and unread count.
func ListThreadsForUser(ctx context.Context, db *gorm.DB, userID string) ([]ThreadPreview, error) {
	var threads []domain.ChatThread
	err := db.WithContext(ctx).
		Where("shipper_id = ? OR counterpart_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}

	out := make([]ThreadPreview, 0, len(threads))
	for _, t := range threads {
		p := ThreadPreview{Thread: t}

		var last domain.ChatMessage
		err := db.WithContext(ctx).
			Where("thread_id = ?", t.ID).
			Order("created_at DESC, id DESC").
			First(&last).Error
		switch {
		case err == nil:
			p.LastMessage = &last
		case errors.Is(err, gorm.ErrRecordNotFound):
			// thread exists but has no messages yet
		default:
			return nil, err
		}

		if p.UnreadCount, err = UnreadCount(ctx, db, t.ID, userID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
