package model

// FulfillmentStatus is the lifecycle of an order between origin and customer.
type FulfillmentStatus string

const (
	StatusInShipment        FulfillmentStatus = "in_shipment"
	StatusMainBranch        FulfillmentStatus = "main_branch"
	StatusPendingReceipt    FulfillmentStatus = "pending_receipt"
	StatusReceivedSubbranch FulfillmentStatus = "received_subbranch"
	StatusWithDelivery      FulfillmentStatus = "with_delivery"
	StatusPickedUp          FulfillmentStatus = "picked_up"
	StatusClosed            FulfillmentStatus = "closed"
	StatusReturned          FulfillmentStatus = "returned"
	StatusCanceled          FulfillmentStatus = "canceled"
)

// transitions lists every allowed move. A status moving to itself is always
// allowed and never posts anything.
var transitions = map[FulfillmentStatus][]FulfillmentStatus{
	StatusInShipment: {
		StatusMainBranch, StatusCanceled,
	},
	StatusMainBranch: {
		StatusPendingReceipt, StatusInShipment, StatusReturned, StatusCanceled,
	},
	StatusPendingReceipt: {
		StatusReceivedSubbranch, StatusWithDelivery, StatusPickedUp,
		StatusMainBranch, StatusInShipment, StatusReturned, StatusCanceled,
	},
	StatusReceivedSubbranch: {
		StatusWithDelivery, StatusPickedUp, StatusClosed,
		StatusPendingReceipt, StatusMainBranch, StatusInShipment, StatusReturned,
	},
	StatusWithDelivery: {
		StatusReceivedSubbranch, StatusPickedUp, StatusClosed,
		StatusPendingReceipt, StatusMainBranch, StatusInShipment, StatusReturned,
	},
	StatusPickedUp: {
		StatusClosed, StatusReceivedSubbranch, StatusWithDelivery,
		StatusPendingReceipt, StatusMainBranch, StatusInShipment, StatusReturned,
	},
	StatusClosed:   {},
	StatusReturned: {},
	StatusCanceled: {},
}

// stageRank orders the forward path. Returned and canceled sit off the path.
var stageRank = map[FulfillmentStatus]int{
	StatusInShipment:        1,
	StatusMainBranch:        2,
	StatusPendingReceipt:    3,
	StatusReceivedSubbranch: 4,
	StatusWithDelivery:      5,
	StatusPickedUp:          6,
	StatusClosed:            7,
}

// Rank is the position of s on the forward path, or 0 for statuses off it.
func (s FulfillmentStatus) Rank() int {
	return stageRank[s]
}

// IsAfter reports whether s is further along the forward path than other.
func (s FulfillmentStatus) IsAfter(other FulfillmentStatus) bool {
	return s.Rank() > other.Rank()
}

func (s FulfillmentStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsReceived reports whether the charge for the order is due at this status.
func (s FulfillmentStatus) IsReceived() bool {
	switch s {
	case StatusReceivedSubbranch, StatusWithDelivery, StatusPickedUp:
		return true
	}
	return false
}

// HoldsCharge reports whether the customer's ledger should carry the order total.
// Closed orders keep the charge they picked up on receipt.
func (s FulfillmentStatus) HoldsCharge() bool {
	return s.IsReceived() || s == StatusClosed
}

func (s FulfillmentStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether moving from s to next is allowed.
func (s FulfillmentStatus) CanTransition(next FulfillmentStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Posting is the ledger action a transition requires.
type Posting int

const (
	PostingNone Posting = iota
	PostingCharge
	PostingReversal
)

// PostingFor returns the ledger action for a move from s to next.
func (s FulfillmentStatus) PostingFor(next FulfillmentStatus) Posting {
	switch {
	case !s.HoldsCharge() && next.IsReceived():
		return PostingCharge
	case s.HoldsCharge() && !next.HoldsCharge():
		return PostingReversal
	}
	return PostingNone
}

// IsShipmentStage reports whether a whole shipment can be moved to this status.
func (s FulfillmentStatus) IsShipmentStage() bool {
	switch s {
	case StatusInShipment, StatusMainBranch, StatusPendingReceipt:
		return true
	}
	return false
}
