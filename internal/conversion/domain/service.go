package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ConvertResult reports one lead's outcome. AlreadyConverted is success: the
// contact existed before the call and no credit was charged.
type ConvertResult struct {
	Contact          *Contact `json:"contact"`
	AlreadyConverted bool     `json:"already_converted,omitempty"`
	CreditsRemaining int64    `json:"credits_remaining"`
	Unlimited        bool     `json:"unlimited,omitempty"`
}

// BulkItem is one lead's slot in a bulk conversion. Failures are per-item;
// one bad lead never aborts its neighbors.
type BulkItem struct {
	LeadID  snowflake.ID `json:"lead_id"`
	Contact *Contact     `json:"contact,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type BulkResult struct {
	Converted []BulkItem `json:"converted"`
	Failed    []BulkItem `json:"failed"`
}

type Service interface {
	// Convert promotes one lead to a contact and debits one lead credit in
	// the same transaction. Re-converting an already converted lead returns
	// the existing contact without a charge.
	Convert(ctx context.Context, clientID, leadID snowflake.ID, notes string) (ConvertResult, error)

	// ConvertBulk runs Convert per lead with per-item isolation. The notes
	// apply to every contact the batch creates.
	ConvertBulk(ctx context.Context, clientID snowflake.ID, leadIDs []snowflake.ID, notes string) (BulkResult, error)

	// ListLeads returns the tenant's newest leads, capped at limit when
	// limit is positive.
	ListLeads(ctx context.Context, clientID snowflake.ID, limit int) ([]*Lead, error)
}
