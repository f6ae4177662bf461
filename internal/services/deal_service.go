// Package services – DealService
//
// This file implements DealService, the engine behind the quote-acceptance
// transaction and the deal state machine. Acceptance is the single multi-table
// state transition in the system: it flips the winning quote, creates the
// deal, rejects sibling bids, and assigns the cargo, all inside one database
// transaction.
//
// Concurrency: the transaction re-checks state through guarded UPDATEs
// (WHERE status = expected). When two accepts race on the same cargo, the
// second one's guard affects zero rows, the transaction rolls back, and the
// caller observes ErrQuoteNotPending or ErrDealExists. No external locking is
// layered on top of the database.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cargolink/go-freight-backend/internal/domain"
	"github.com/cargolink/go-freight-backend/internal/repo"
)

// AcceptResult bundles the outputs of a successful acceptance.
type AcceptResult struct {
	Quote *domain.Quote `json:"quote"`
	Deal  *domain.Deal  `json:"deal"`
}

// DealView is a deal joined with its cargo summary for listing endpoints.
type DealView struct {
	Deal         domain.Deal `json:"deal"`
	CargoTitle   string      `json:"cargo_title"`
	PickupCity   string      `json:"pickup_city"`
	DeliveryCity string      `json:"delivery_city"`
	// Role is the requestor's side of this deal: "shipper" or "transporter".
	Role string `json:"role"`
}

// DealService runs the acceptance transaction and subsequent lifecycle steps.
type DealService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewDealService constructs a DealService.
func NewDealService(db *gorm.DB) *DealService {
	return &DealService{DB: db}
}

// AcceptQuote runs the acceptance transaction for quoteID on behalf of
// requestorID.
//
// Pre-checks (outside the transaction, cheap rejections):
//  1. quote and cargo must exist            → ErrQuoteNotFound / ErrCargoNotFound
//  2. requestor must own the cargo          → ErrNotCargoOwner
//  3. quote Pending, cargo Active           → ErrQuoteNotPending / ErrCargoNotActive
//  4. no open deal on the cargo             → ErrDealExists
//
// The transaction then re-verifies 3 via guarded updates, so a concurrent
// winner makes the loser roll back cleanly. On success the accepted quote and
// the new deal are returned; the quote's agreed dates seed the deal.
func (s *DealService) AcceptQuote(ctx context.Context, quoteID, requestorID string) (*AcceptResult, error) {
	tr := otel.Tracer("services/DealService")
	ctx, span := tr.Start(ctx, "AcceptQuote",
		trace.WithAttributes(
			attribute.String("quote.id", quoteID),
			attribute.String("user.id", requestorID),
		),
	)
	defer span.End()

	quote, err := repo.GetQuote(ctx, s.DB, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}

	cargo, err := repo.GetCargo(ctx, s.DB, quote.CargoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCargoNotFound
		}
		return nil, err
	}

	if cargo.OwnerID != requestorID {
		return nil, ErrNotCargoOwner
	}

	// Lazy expiry: a quote past its valid_until may still read Pending if no
	// listing touched it. Flip the cargo's stale quotes before the guard.
	if quote.Status == domain.QuotePending && quote.ValidUntil != nil && quote.ValidUntil.Before(time.Now().UTC()) {
		if _, err := repo.ExpireStaleQuotes(ctx, s.DB, quote.CargoID, time.Now().UTC()); err != nil {
			return nil, err
		}
		return nil, ErrQuoteNotPending
	}
	if quote.Status != domain.QuotePending {
		return nil, ErrQuoteNotPending
	}
	if cargo.Status != domain.CargoActive {
		return nil, ErrCargoNotActive
	}

	open, err := repo.OpenDealExists(ctx, s.DB, cargo.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, ErrDealExists
	}

	var deal *domain.Deal
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Flip the winner first: the Pending guard is the linearization
		// point between racing accepts.
		if err := repo.AcceptQuote(ctx, tx, quote.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuoteNotPending
			}
			return err
		}

		d, err := repo.CreateDeal(ctx, tx, cargo.ID, quote.ID, cargo.OwnerID, quote.CarrierID, quote.TotalPrice)
		if err != nil {
			return err
		}
		d.AgreedPickupDate = quote.EstimatedPickupTime
		d.AgreedDeliveryDate = quote.EstimatedDeliveryTime
		if quote.EstimatedPickupTime != nil || quote.EstimatedDeliveryTime != nil {
			if err := tx.WithContext(ctx).Model(&domain.Deal{}).Where("id = ?", d.ID).
				Updates(map[string]any{
					"agreed_pickup_date":   quote.EstimatedPickupTime,
					"agreed_delivery_date": quote.EstimatedDeliveryTime,
				}).Error; err != nil {
				return err
			}
		}

		if err := repo.RejectSiblingQuotes(ctx, tx, cargo.ID, quote.ID); err != nil {
			return err
		}

		if err := repo.AssignCargo(ctx, tx, cargo.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDealExists
			}
			return err
		}

		// Tie the cargo's chat thread (if any) to the deal.
		thread, err := repo.GetThreadByCargo(ctx, tx, cargo.ID)
		switch {
		case err == nil:
			if err := repo.LinkThreadDeal(ctx, tx, thread.ID, d.ID, quote.ID); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no conversation yet
		default:
			return err
		}

		deal = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	quote.Status = domain.QuoteAccepted
	return &AcceptResult{Quote: quote, Deal: deal}, nil
}

// UpdateStatus advances a deal along its lifecycle on behalf of requestorID,
// who must be the shipper or the transporter. The transition table in the
// domain package is the single authority on legal moves.
//
// Side effects on the cargo: completing the deal completes the cargo;
// cancelling the deal re-opens the cargo to Active so the shipper can accept
// another quote.
func (s *DealService) UpdateStatus(ctx context.Context, dealID, requestorID string, next domain.DealStatus, description string) (*domain.Deal, error) {
	tr := otel.Tracer("services/DealService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("deal.id", dealID),
			attribute.String("deal.next_status", string(next)),
		),
	)
	defer span.End()

	if !next.Valid() {
		return nil, ErrInvalidTransition
	}

	deal, err := repo.GetDeal(ctx, s.DB, dealID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDealNotFound
		}
		return nil, err
	}
	if deal.ShipperID != requestorID && deal.TransporterID != requestorID {
		return nil, ErrNotDealParty
	}
	if !deal.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.AdvanceDeal(ctx, tx, deal, next, strings.TrimSpace(description)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidTransition
			}
			return err
		}

		switch next {
		case domain.DealCompleted:
			if err := repo.UpdateCargoStatus(ctx, tx, deal.CargoID, domain.CargoAssigned, domain.CargoCompleted); err != nil &&
				!errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		case domain.DealCancelled:
			if err := repo.UpdateCargoStatus(ctx, tx, deal.CargoID, domain.CargoAssigned, domain.CargoActive); err != nil &&
				!errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deal, nil
}

// ListForUser returns a page of deals where userID is shipper or transporter,
// with cargo summaries and the per-status totals for dashboards.
func (s *DealService) ListForUser(ctx context.Context, userID string, f repo.DealFilter, page, pageSize int) ([]DealView, int64, map[domain.DealStatus]int64, error) {
	tr := otel.Tracer("services/DealService")
	ctx, span := tr.Start(ctx, "ListForUser",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	page, pageSize = clampPage(page, pageSize)
	offset := (page - 1) * pageSize

	total, err := repo.CountDealsForUser(ctx, s.DB, userID, f)
	if err != nil {
		return nil, 0, nil, err
	}

	counts, err := repo.DealStatusCounts(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, nil, err
	}
	if total == 0 {
		return []DealView{}, 0, counts, nil
	}

	deals, err := repo.ListDealsForUserPage(ctx, s.DB, userID, f, offset, pageSize)
	if err != nil {
		return nil, 0, nil, err
	}

	out := make([]DealView, 0, len(deals))
	for _, d := range deals {
		v := DealView{Deal: d, Role: "transporter"}
		if d.ShipperID == userID {
			v.Role = "shipper"
		}
		cargo, err := repo.GetCargo(ctx, s.DB, d.CargoID)
		if err == nil {
			v.CargoTitle = cargo.Title
			v.PickupCity = cargo.PickupCity
			v.DeliveryCity = cargo.DeliveryCity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, nil, err
		}
		out = append(out, v)
	}
	return out, total, counts, nil
}
