package dto

// AdminNoteRequest carries an optional note for confirm, refund and approve
type AdminNoteRequest struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}

// AdminReasonRequest carries the required note for rejections
type AdminReasonRequest struct {
	Note string `json:"note" validate:"required,min=1,max=500"`
}

// AdminStatsResponse is the admin dashboard summary
type AdminStatsResponse struct {
	PurchasesByStatus  map[string]int64 `json:"purchases_by_status"`
	GrossRevenue       int64            `json:"gross_revenue"`
	PlatformFees       int64            `json:"platform_fees"`
	PendingPayoutTotal int64            `json:"pending_payout_total"`
	UserCount          int64            `json:"user_count"`
	CreatorCount       int64            `json:"creator_count"`
	ContentCount       int64            `json:"content_count"`
}
