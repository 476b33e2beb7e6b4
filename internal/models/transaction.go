// Package models defines the canonical data structures shared across the
// ingestion pipeline: raw messages, extracted transactions, ledger rows and
// classifier rules.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMessage is a bank notification as it arrives from any transport.
// It is ephemeral: produced by the ingestion boundary, consumed once.
type RawMessage struct {
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
	// RoutingMeta carries opaque transport metadata, e.g. a destination
	// chat id, serialized as JSON.
	RoutingMeta string `json:"routing_meta,omitempty"`
}

// Transaction is the canonical extracted transaction schema. After
// sanitization every field is always present and type-correct; no nulls or
// partial objects ever reach the ledger stage.
type Transaction struct {
	Merchant   string          `json:"merchant" csv:"merchant"`
	Amount     decimal.Decimal `json:"amount" csv:"amount"`
	Currency   string          `json:"currency" csv:"currency"`
	Category   string          `json:"category" csv:"category"`
	Type       string          `json:"type" csv:"type"`
	IsIncoming bool            `json:"is_incoming" csv:"is_incoming"`
	AccNum     string          `json:"acc_num" csv:"acc_num"`
	CardNum    string          `json:"card_num" csv:"card_num"`
}

// ProcessedTransaction is a transaction after the full pipeline ran, persisted
// for export and balance calibration.
type ProcessedTransaction struct {
	ID          string          `json:"id" csv:"id"`
	Fingerprint string          `json:"fingerprint" csv:"fingerprint"`
	ProcessedAt time.Time       `json:"processed_at" csv:"processed_at"`
	AccountKey  string          `json:"account_key" csv:"account_key"`
	Merchant    string          `json:"merchant" csv:"merchant"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
	Currency    string          `json:"currency" csv:"currency"`
	Category    string          `json:"category" csv:"category"`
	Type        string          `json:"type" csv:"type"`
	IsIncoming  bool            `json:"is_incoming" csv:"is_incoming"`
	RawText     string          `json:"raw_text" csv:"-"`
}

// QueueItem is one ingested message awaiting (or after) batch processing.
type QueueItem struct {
	ID          string    `json:"id"`
	ReceivedAt  time.Time `json:"received_at"`
	Source      string    `json:"source"`
	Text        string    `json:"text"`
	MetaJSON    string    `json:"meta_json,omitempty"`
	Status      string    `json:"status"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// ClassifierRule is one ordered substring-match rule. Fields left empty do
// not override the transaction; IsIncoming is tri-state via the pointer.
type ClassifierRule struct {
	MatchKey   string `yaml:"match_key"`
	Category   string `yaml:"category,omitempty"`
	Type       string `yaml:"type,omitempty"`
	IsIncoming *bool  `yaml:"is_incoming,omitempty"`
	AccNum     string `yaml:"acc_num,omitempty"`
	CardNum    string `yaml:"card_num,omitempty"`
	// OwnerScope limits the rule to one user; empty applies to all.
	OwnerScope string `yaml:"owner_scope,omitempty"`
}

// MerchantMemory is a sticky learned category for a known merchant.
type MerchantMemory struct {
	MerchantKey string    `json:"merchant_key"`
	DisplayName string    `json:"display_name"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	HitCount    int       `json:"hit_count"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Account is a registered bank account, card or wallet.
type Account struct {
	Name           string          `json:"name" csv:"name"`
	Type           string          `json:"type" csv:"type"`
	Number         string          `json:"number" csv:"number"`
	Organization   string          `json:"organization" csv:"organization"`
	Aliases        []string        `json:"aliases" csv:"-"`
	IsMine         bool            `json:"is_mine" csv:"is_mine"`
	IsInternal     bool            `json:"is_internal" csv:"is_internal"`
	OpeningBalance decimal.Decimal `json:"opening_balance" csv:"opening_balance"`
}

// Key returns the canonical identity used for balance rows. The account
// number (or last-4) wins over the display name.
func (a Account) Key() string {
	if a.Number != "" {
		return a.Number
	}
	return a.Name
}

// BalanceRecord is the running balance for one account.
type BalanceRecord struct {
	AccountKey    string          `json:"account_key"`
	Balance       decimal.Decimal `json:"balance"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// BudgetRecord tracks per-category budget consumption within the current
// salary-cycle window.
type BudgetRecord struct {
	Category       string          `json:"category"`
	Budgeted       decimal.Decimal `json:"budgeted"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	AlertThreshold float64         `json:"alert_threshold"`
	Status         string          `json:"status"`
	// CycleStart marks the salary-cycle window Spent belongs to; a new
	// window resets Spent to zero.
	CycleStart time.Time `json:"cycle_start"`
}

// DebtIndexEntry accumulates net owed per counterparty and account reference.
// Positive means owed to the user.
type DebtIndexEntry struct {
	Counterparty  string          `json:"counterparty"`
	AccountRef    string          `json:"account_ref"`
	NetOwed       decimal.Decimal `json:"net_owed"`
	LastUpdatedAt time.Time       `json:"last_updated_at"`
}

// UnknownAccountAlert records an identifier that could not be resolved to a
// registered account. It is a triage signal, not a failure.
type UnknownAccountAlert struct {
	ID           string          `json:"id" csv:"id"`
	SeenAt       time.Time       `json:"seen_at" csv:"seen_at"`
	Organization string          `json:"organization" csv:"organization"`
	Identifier   string          `json:"identifier" csv:"identifier"`
	Merchant     string          `json:"merchant" csv:"merchant"`
	Amount       decimal.Decimal `json:"amount" csv:"amount"`
	RawText      string          `json:"raw_text" csv:"raw_text"`
}

// DedupRecord is one row of the append-only fingerprint log.
type DedupRecord struct {
	Fingerprint string    `json:"fingerprint"`
	SeenAt      time.Time `json:"seen_at"`
	Status      string    `json:"status"`
}
