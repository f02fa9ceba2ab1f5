package model

const ActivityTransactionCached = "transaction.cached"

// ActivityEvent is published for every record written into the local cache.
type ActivityEvent struct {
	Type        string          `json:"type"`
	Transaction TransactionInfo `json:"transaction"`
	CachedAt    int64           `json:"cachedAt"`
}
