package model

import (
	"strings"
	"time"
)

// Operation 買/賣方向
type Operation string

const (
	OperationBuy  Operation = "buy"
	OperationSell Operation = "sell"
)

// IsValid 驗證方向是否有效
func (o Operation) IsValid() bool {
	switch o {
	case OperationBuy, OperationSell:
		return true
	}
	return false
}

// Opposite returns the counter-party side of an operation.
func (o Operation) Opposite() Operation {
	if o == OperationBuy {
		return OperationSell
	}
	return OperationBuy
}

// PastTense is used when rendering notification text.
func (o Operation) PastTense() string {
	if o == OperationBuy {
		return "bought"
	}
	return "sold"
}

// RecordKey is the primary key of a ticket record. An empty CeremonyDate in
// a delete key means "every record owned by UserName".
type RecordKey struct {
	UserName     string
	CeremonyDate string
}

func NewRecordKey(userName, ceremonyDate string) RecordKey {
	return RecordKey{
		UserName:     strings.ToLower(userName),
		CeremonyDate: ceremonyDate,
	}
}

// IsUserWide reports whether the key addresses all of a user's records.
func (k RecordKey) IsUserWide() bool {
	return k.CeremonyDate == ""
}

// TicketRecord 票券交易紀錄，主鍵為 (user_name, ceremony_date)
type TicketRecord struct {
	UserName     string     `json:"user_name" db:"user_name"`
	CeremonyDate string     `json:"ceremony_date" db:"ceremony_date"`
	Operation    Operation  `json:"operation" db:"operation"`
	Amount       int        `json:"amount" db:"amount"`
	Resolved     bool       `json:"resolved" db:"resolved"`
	ResolvedWith *string    `json:"resolved_with,omitempty" db:"resolved_with"`
	LastNotified *time.Time `json:"last_notified,omitempty" db:"last_notified"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (r *TicketRecord) Key() RecordKey {
	return RecordKey{UserName: r.UserName, CeremonyDate: r.CeremonyDate}
}

// IsActive 有剩餘票數才參與配對
func (r *TicketRecord) IsActive() bool {
	return r.Amount > 0
}

// EligibleForNotify reports whether the record may appear in this cycle's
// candidate pools. A record never notified is always eligible; interval <= 0
// disables the gate.
func (r *TicketRecord) EligibleForNotify(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	if r.LastNotified == nil {
		return true
	}
	return now.Sub(*r.LastNotified) >= interval
}

// CounterParty 配對通知中的對手方摘要
type CounterParty struct {
	UserName  string    `json:"user_name"`
	Operation Operation `json:"operation"`
	Amount    int       `json:"amount"`
}
