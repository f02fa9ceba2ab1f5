package model

import "github.com/shopspring/decimal"

type AccountInfo struct {
	ID               int32           `json:"id"`
	Currency         string          `json:"currency"`
	Balance          decimal.Decimal `json:"balance"`
	OwnerPhoneNumber string          `json:"ownerPhoneNumber"`
}

type UserInfo struct {
	ID          int32  `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
}
