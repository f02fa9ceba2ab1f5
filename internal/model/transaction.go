package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

type TransactionInfo struct {
	SenderPhoneNumber   string          `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string          `json:"receiverPhoneNumber"`
	SendingAccountID    int32           `json:"sendingAccountId"`
	ReceivingAccountID  int32           `json:"receivingAccountId"`
	TransactionTime     int64           `json:"transactionTime"`
	Amount              decimal.Decimal `json:"amount"`
	Comment             string          `json:"comment"`
}

type TransactionRequest struct {
	SenderPhoneNumber   string
	Token               string
	ReceiverPhoneNumber string
	SenderAccountID     int32
	Amount              decimal.Decimal
	Comment             string
}

// SortByTimeDesc returns a copy ordered newest first. Cache fetches keep storage order.
func SortByTimeDesc(txs []TransactionInfo) []TransactionInfo {
	out := make([]TransactionInfo, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionTime > out[j].TransactionTime
	})
	return out
}
