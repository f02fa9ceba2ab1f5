package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Filter selects cached transactions. The set of implementations is closed.
type Filter interface {
	// NeedsAccount reports whether the filter compares against the cached account id.
	NeedsAccount() bool
	// Criteria resolves the filter; accountID is only read when NeedsAccount is true.
	Criteria(accountID int32) Criteria
	fmt.Stringer
}

type All struct{}

type Incoming struct{}

type Outgoing struct{}

type CommentEquals struct {
	Text string
}

// CounterpartyPhoneEquals matches the receiver phone number only.
type CounterpartyPhoneEquals struct {
	Phone string
}

// AmountBetween is inclusive on both ends.
type AmountBetween struct {
	Lo decimal.Decimal
	Hi decimal.Decimal
}

// TimeBetween is inclusive on both ends, in epoch milliseconds.
type TimeBetween struct {
	Lo int64
	Hi int64
}

func (All) NeedsAccount() bool                     { return false }
func (Incoming) NeedsAccount() bool                { return true }
func (Outgoing) NeedsAccount() bool                { return true }
func (CommentEquals) NeedsAccount() bool           { return false }
func (CounterpartyPhoneEquals) NeedsAccount() bool { return false }
func (AmountBetween) NeedsAccount() bool           { return false }
func (TimeBetween) NeedsAccount() bool             { return false }

func (All) Criteria(int32) Criteria { return Criteria{} }

func (Incoming) Criteria(accountID int32) Criteria {
	return Criteria{ReceivingAccountID: &accountID}
}

func (Outgoing) Criteria(accountID int32) Criteria {
	return Criteria{SendingAccountID: &accountID}
}

func (f CommentEquals) Criteria(int32) Criteria {
	text := f.Text
	return Criteria{Comment: &text}
}

func (f CounterpartyPhoneEquals) Criteria(int32) Criteria {
	phone := f.Phone
	return Criteria{ReceiverPhoneNumber: &phone}
}

func (f AmountBetween) Criteria(int32) Criteria {
	lo, hi := f.Lo, f.Hi
	return Criteria{MinAmount: &lo, MaxAmount: &hi}
}

func (f TimeBetween) Criteria(int32) Criteria {
	lo, hi := f.Lo, f.Hi
	return Criteria{FromTime: &lo, ToTime: &hi}
}

func (All) String() string      { return "all" }
func (Incoming) String() string { return "incoming" }
func (Outgoing) String() string { return "outgoing" }

func (f CommentEquals) String() string { return fmt.Sprintf("comment=%q", f.Text) }

func (f CounterpartyPhoneEquals) String() string { return fmt.Sprintf("phone=%q", f.Phone) }

func (f AmountBetween) String() string { return fmt.Sprintf("amount=[%s,%s]", f.Lo, f.Hi) }

func (f TimeBetween) String() string { return fmt.Sprintf("time=[%d,%d]", f.Lo, f.Hi) }

// Criteria is a resolved filter. Nil fields do not constrain.
type Criteria struct {
	SendingAccountID    *int32
	ReceivingAccountID  *int32
	Comment             *string
	ReceiverPhoneNumber *string
	MinAmount           *decimal.Decimal
	MaxAmount           *decimal.Decimal
	FromTime            *int64
	ToTime              *int64
}

func (c Criteria) Match(tx TransactionInfo) bool {
	if c.SendingAccountID != nil && tx.SendingAccountID != *c.SendingAccountID {
		return false
	}
	if c.ReceivingAccountID != nil && tx.ReceivingAccountID != *c.ReceivingAccountID {
		return false
	}
	if c.Comment != nil && tx.Comment != *c.Comment {
		return false
	}
	if c.ReceiverPhoneNumber != nil && tx.ReceiverPhoneNumber != *c.ReceiverPhoneNumber {
		return false
	}
	if c.MinAmount != nil && tx.Amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && tx.Amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	if c.FromTime != nil && tx.TransactionTime < *c.FromTime {
		return false
	}
	if c.ToTime != nil && tx.TransactionTime > *c.ToTime {
		return false
	}
	return true
}
