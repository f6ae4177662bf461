// Package services – ChatService
//
// This file implements ChatService, the messaging layer between a cargo owner
// and one counterparty. Threads are keyed by cargo: the first participant to
// open a conversation creates the thread, everyone after that lands on the
// same row via the unique index. Messages persist inside a transaction and
// only then fan out to websocket subscribers through the realtime broker.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/realtime"
	"github.com/cargolink/go-freight-backend/internal/repo"
)

// maxMessageLen caps a single chat message body.
const maxMessageLen = 4000

// EventPublisher receives committed chat events for fan-out. *realtime.Broker
// satisfies it; tests substitute a recorder.
type EventPublisher interface {
	Publish(ev realtime.Event)
}

// ChatService owns threads and messages for cargo conversations.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// Publisher receives events after the owning transaction commits.
	// May be nil, in which case fan-out is skipped.
	Publisher EventPublisher
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, pub EventPublisher) *ChatService {
	return &ChatService{DB: db, Publisher: pub}
}

// TopicForThread names the broker topic carrying a thread's events.
func TopicForThread(threadID string) string {
	return "chat.thread." + threadID
}

// GetOrCreateThread returns the conversation for cargoID involving
// requestorID, creating it on first use.
//
// Participant derivation: the cargo owner is always the shipper side. When
// the requestor is the owner, counterpartID must name the other party; when
// the requestor is anyone else, they become the counterpart themselves and
// counterpartID is ignored. Two concurrent creates race on the unique cargo
// index; the loser fetches the winner's row.
func (s *ChatService) GetOrCreateThread(ctx context.Context, cargoID, requestorID, counterpartID string) (*domain.ChatThread, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "GetOrCreateThread",
		trace.WithAttributes(
			attribute.String("cargo.id", cargoID),
			attribute.String("user.id", requestorID),
		),
	)
	defer span.End()

	cargo, err := repo.GetCargo(ctx, s.DB, cargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCargoNotFound
		}
		return nil, err
	}

	var counterpart string
	if requestorID == cargo.OwnerID {
		counterpart = strings.TrimSpace(counterpartID)
		if counterpart == "" || counterpart == cargo.OwnerID {
			verr := &ValidationError{}
			verr.add("counterpart_id", "counterpart is required when opening your own cargo's conversation")
			return nil, verr
		}
	} else {
		counterpart = requestorID
	}

	if t, err := repo.GetThreadByCargo(ctx, s.DB, cargoID); err == nil {
		if !t.HasParticipant(requestorID) {
			return nil, ErrNotParticipant
		}
		return t, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := repo.EnsureUser(ctx, s.DB, requestorID); err != nil {
		return nil, err
	}

	t := &domain.ChatThread{
		CargoID:       cargoID,
		Title:         threadTitle(cargo),
		ShipperID:     cargo.OwnerID,
		CounterpartID: counterpart,
	}
	created, err := repo.CreateThread(ctx, s.DB, t)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the create race; the winner's thread is authoritative.
			existing, gerr := repo.GetThreadByCargo(ctx, s.DB, cargoID)
			if gerr != nil {
				return nil, gerr
			}
			if !existing.HasParticipant(requestorID) {
				return nil, ErrNotParticipant
			}
			return existing, nil
		}
		return nil, err
	}
	return created, nil
}

// PostMessage appends a message from senderID to the thread and fans it out.
// The sender must be a participant. The insert and the thread's activity bump
// share a transaction; the broker only sees the message after commit.
func (s *ChatService) PostMessage(ctx context.Context, threadID, senderID, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "PostMessage",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("user.id", senderID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		verr := &ValidationError{}
		verr.add("content", "message content is required")
		return nil, verr
	}
	if len(content) > maxMessageLen {
		verr := &ValidationError{}
		verr.add("content", fmt.Sprintf("message exceeds %d characters", maxMessageLen))
		return nil, verr
	}

	thread, err := repo.GetThread(ctx, s.DB, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	if !thread.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	var msg *domain.ChatMessage
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, threadID, senderID, content, domain.MessageText)
		if err != nil {
			return err
		}
		if err := repo.TouchThread(ctx, tx, threadID, m.CreatedAt); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(threadID, "message.created", msg)
	return msg, nil
}

// PostSystemMessage appends a system notice (e.g., a deal status change) to
// the cargo's thread, if one exists. Absence of a thread is not an error.
func (s *ChatService) PostSystemMessage(ctx context.Context, cargoID, content string) error {
	thread, err := repo.GetThreadByCargo(ctx, s.DB, cargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	var msg *domain.ChatMessage
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, thread.ID, thread.ShipperID, content, domain.MessageSystem)
		if err != nil {
			return err
		}
		if err := repo.TouchThread(ctx, tx, thread.ID, m.CreatedAt); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(thread.ID, "message.created", msg)
	return nil
}

// ListMessages returns a page of a thread's messages, oldest first, plus the
// total count. Reading marks the counterparty's messages as read.
func (s *ChatService) ListMessages(ctx context.Context, threadID, requestorID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListMessages",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	thread, err := repo.GetThread(ctx, s.DB, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrThreadNotFound
		}
		return nil, 0, err
	}
	if !thread.HasParticipant(requestorID) {
		return nil, 0, ErrNotParticipant
	}

	if n, err := repo.MarkMessagesRead(ctx, s.DB, threadID, requestorID); err != nil {
		return nil, 0, err
	} else if n > 0 {
		s.publish(threadID, "messages.read", map[string]any{
			"thread_id": threadID,
			"reader_id": requestorID,
			"count":     n,
		})
	}

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	total, err := repo.CountMessages(ctx, s.DB, threadID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	msgs, err := repo.ListMessagesPage(ctx, s.DB, threadID, offset, pageSize)
	return msgs, total, err
}

// ListThreads returns the requestor's conversations, most recently active
// first, with last-message previews and unread counts.
func (s *ChatService) ListThreads(ctx context.Context, requestorID string) ([]repo.ThreadPreview, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListThreads",
		trace.WithAttributes(attribute.String("user.id", requestorID)),
	)
	defer span.End()

	return repo.ListThreadsForUser(ctx, s.DB, requestorID)
}

// ThreadByCargo resolves a cargo id to its conversation without creating one.
func (s *ChatService) ThreadByCargo(ctx context.Context, cargoID string) (*domain.ChatThread, error) {
	t, err := repo.GetThreadByCargo(ctx, s.DB, cargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	return t, nil
}

// Authorize reports whether requestorID may attach to the thread's realtime
// topic. Used by the websocket upgrade path.
func (s *ChatService) Authorize(ctx context.Context, threadID, requestorID string) (*domain.ChatThread, error) {
	thread, err := repo.GetThread(ctx, s.DB, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	if !thread.HasParticipant(requestorID) {
		return nil, ErrNotParticipant
	}
	return thread, nil
}

func (s *ChatService) publish(threadID, kind string, payload any) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(realtime.Event{
		Topic:   TopicForThread(threadID),
		Kind:    kind,
		Payload: payload,
	})
}

// threadTitle derives a human-readable conversation title from the cargo's
// route, title-cased per city.
func threadTitle(c *domain.Cargo) string {
	caser := cases.Title(language.English)
	route := fmt.Sprintf("%s → %s", caser.String(c.PickupCity), caser.String(c.DeliveryCity))
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return route
	}
	return fmt.Sprintf("%s (%s)", title, route)
}
