// Status enumerations and their transition tables.
//
// Every lifecycle status in the marketplace is a closed string type with an
// explicit transition table checked through CanTransitionTo. Services consult
// these tables instead of re-validating state ad hoc at each call site, so
// there is exactly one place that knows which moves are legal.
package domain

// UserRole is the account tier. Trial accounts are limited in how many Active
// cargo postings they may hold at once.
type UserRole string

const (
	RoleTrial UserRole = "trial"
	RolePro   UserRole = "pro"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool { return r == RoleTrial || r == RolePro }

// CargoType classifies a shipment for carrier matching.
type CargoType string

const (
	CargoGeneral      CargoType = "General"
	CargoFragile      CargoType = "Fragile"
	CargoHazardous    CargoType = "Hazardous"
	CargoRefrigerated CargoType = "Refrigerated"
)

// Valid reports whether t is a known cargo type.
func (t CargoType) Valid() bool {
	switch t {
	case CargoGeneral, CargoFragile, CargoHazardous, CargoRefrigerated:
		return true
	}
	return false
}

// CargoStatus is the posting lifecycle: Active → Assigned → Completed, with
// Cancelled reachable from either non-terminal state. Assigned cargo whose
// deal is cancelled returns to Active.
type CargoStatus string

const (
	CargoActive    CargoStatus = "Active"
	CargoAssigned  CargoStatus = "Assigned"
	CargoCompleted CargoStatus = "Completed"
	CargoCancelled CargoStatus = "Cancelled"
)

var cargoTransitions = map[CargoStatus][]CargoStatus{
	CargoActive:   {CargoAssigned, CargoCancelled},
	CargoAssigned: {CargoCompleted, CargoCancelled, CargoActive},
}

// CanTransitionTo reports whether the move s → next is allowed.
func (s CargoStatus) CanTransitionTo(next CargoStatus) bool {
	for _, n := range cargoTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s CargoStatus) Terminal() bool { return len(cargoTransitions[s]) == 0 }

// QuoteStatus is the bid lifecycle. Pending quotes are resolved exactly once:
// accepted by the shipper, rejected implicitly when a sibling is accepted, or
// expired when validUntil passes.
type QuoteStatus string

const (
	QuotePending  QuoteStatus = "Pending"
	QuoteAccepted QuoteStatus = "Accepted"
	QuoteRejected QuoteStatus = "Rejected"
	QuoteExpired  QuoteStatus = "Expired"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuotePending: {QuoteAccepted, QuoteRejected, QuoteExpired},
}

// CanTransitionTo reports whether the move s → next is allowed.
func (s QuoteStatus) CanTransitionTo(next QuoteStatus) bool {
	for _, n := range quoteTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s QuoteStatus) Terminal() bool { return len(quoteTransitions[s]) == 0 }

// DealStatus is the engagement lifecycle: Active → InTransit → Delivered →
// Completed, with Cancelled reachable from any non-terminal state.
type DealStatus string

const (
	DealActive    DealStatus = "Active"
	DealInTransit DealStatus = "InTransit"
	DealDelivered DealStatus = "Delivered"
	DealCompleted DealStatus = "Completed"
	DealCancelled DealStatus = "Cancelled"
)

var dealTransitions = map[DealStatus][]DealStatus{
	DealActive:    {DealInTransit, DealCancelled},
	DealInTransit: {DealDelivered, DealCancelled},
	DealDelivered: {DealCompleted, DealCancelled},
}

// CanTransitionTo reports whether the move s → next is allowed.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	for _, n := range dealTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s DealStatus) Terminal() bool { return len(dealTransitions[s]) == 0 }

// Valid reports whether s is a known deal status.
func (s DealStatus) Valid() bool {
	switch s {
	case DealActive, DealInTransit, DealDelivered, DealCompleted, DealCancelled:
		return true
	}
	return false
}

// ProgressFor returns the canonical progress value for a deal status.
func (s DealStatus) ProgressFor() float64 {
	switch s {
	case DealInTransit:
		return 0.25
	case DealDelivered:
		return 0.75
	case DealCompleted:
		return 1.0
	default:
		return 0
	}
}

// activeDealStatuses are the deal states that block a second acceptance for
// the same cargo. Cancelled (and Completed) deals do not.
var activeDealStatuses = []DealStatus{DealActive, DealInTransit, DealDelivered}

// BlockingDealStatuses returns the deal states that count as "open" for the
// one-deal-per-cargo rule.
func BlockingDealStatuses() []DealStatus {
	out := make([]DealStatus, len(activeDealStatuses))
	copy(out, activeDealStatuses)
	return out
}

// MessageType distinguishes user text from system notices in chat.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// Valid reports whether m is a known message type.
func (m MessageType) Valid() bool { return m == MessageText || m == MessageSystem }
