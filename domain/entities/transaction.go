package entities

// Side identifies which half of a lending position a movement affects
type Side string

const (
	SideDebt   Side = "debt"
	SideSupply Side = "supply"
)

// Sides lists both sides in reporting order
var Sides = []Side{SideDebt, SideSupply}

// Valid reports whether the side is known
func (s Side) Valid() bool {
	return s == SideDebt || s == SideSupply
}

// Direction tells whether a movement grows or shrinks the side's balance
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// SourceType represents the protocol action a movement came from
type SourceType string

const (
	SourceTypeBorrow      SourceType = "borrow"
	SourceTypeRepay       SourceType = "repay"
	SourceTypeSupply      SourceType = "supply"
	SourceTypeWithdraw    SourceType = "withdraw"
	SourceTypeTransferIn  SourceType = "transfer_in"
	SourceTypeTransferOut SourceType = "transfer_out"
)

// Reserve is the reserve reference carried by every raw protocol record
type Reserve struct {
	ID string `json:"id"`
}

// RawTransaction is a protocol action record as delivered by the data source.
// Amount is a base-unit integer string.
type RawTransaction struct {
	ID        string  `json:"id"`
	TxHash    string  `json:"txHash"`
	Amount    string  `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	Reserve   Reserve `json:"reserve"`
}

// RawTransfer is a plain token transfer touching the wallet
type RawTransfer struct {
	ID        string  `json:"id"`
	TxHash    string  `json:"txHash"`
	Amount    string  `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	Reserve   Reserve `json:"reserve"`
	From      string  `json:"from"`
	To        string  `json:"to"`
}

// TransactionCollections groups the raw records for one wallet
type TransactionCollections struct {
	Borrows   []RawTransaction
	Repays    []RawTransaction
	Supplies  []RawTransaction
	Withdraws []RawTransaction
	Transfers []RawTransfer
}

// Len returns the total number of raw records
func (c TransactionCollections) Len() int {
	return len(c.Borrows) + len(c.Repays) + len(c.Supplies) + len(c.Withdraws) + len(c.Transfers)
}

// TransactionEvent is a normalized, signed balance movement on one side
type TransactionEvent struct {
	Day        Day        `json:"day"`
	Timestamp  int64      `json:"timestamp"`
	Side       Side       `json:"side"`
	Direction  Direction  `json:"direction"`
	Amount     Amount     `json:"amount"`
	SourceType SourceType `json:"sourceType"`
	TxHash     string     `json:"txHash"`
}

// Delta returns the signed effect of the event on its side's balance
func (e TransactionEvent) Delta() Amount {
	if e.Direction == DirectionDecrease {
		return e.Amount.Neg()
	}
	return e.Amount
}
