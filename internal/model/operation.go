package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind int

const (
	KindUpdateBalance Kind = iota + 1
	KindGetTransactions
	KindMakeTransaction
	KindGetAllUsers
	KindUpdateUser
	KindDeleteUser
	KindRegister
	KindLogin
)

var kindNames = map[Kind]string{
	KindUpdateBalance:   "UpdateBalance",
	KindGetTransactions: "GetTransactions",
	KindMakeTransaction: "MakeTransaction",
	KindGetAllUsers:     "GetAllUsers",
	KindUpdateUser:      "UpdateUser",
	KindDeleteUser:      "DeleteUser",
	KindRegister:        "Register",
	KindLogin:           "Login",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Operation is one call against the bank API. The set of implementations is closed.
type Operation interface {
	Kind() Kind
	operation()
}

// Request binds an operation to the payload its 200 response decodes into.
type Request[T any] interface {
	Operation
	Decode(body []byte) (T, error)
}

type UpdateBalance struct {
	AccountID   int32
	AmountToAdd decimal.Decimal
}

type GetTransactions struct {
	AccountID int32
}

type MakeTransaction struct {
	Request TransactionRequest
}

type GetAllUsers struct{}

type UpdateUser struct {
	CurrentPhoneNumber string
	NewPhoneNumber     string
	NewPassword        string
	Token              string
}

type DeleteUser struct {
	UserPhoneNumber string
	Token           string
}

type Register struct {
	PhoneNumber string
	Password    string
	Currency    string
}

type Login struct {
	PhoneNumber string
	Password    string
}

func (UpdateBalance) Kind() Kind   { return KindUpdateBalance }
func (GetTransactions) Kind() Kind { return KindGetTransactions }
func (MakeTransaction) Kind() Kind { return KindMakeTransaction }
func (GetAllUsers) Kind() Kind     { return KindGetAllUsers }
func (UpdateUser) Kind() Kind      { return KindUpdateUser }
func (DeleteUser) Kind() Kind      { return KindDeleteUser }
func (Register) Kind() Kind        { return KindRegister }
func (Login) Kind() Kind           { return KindLogin }

func (UpdateBalance) operation()   {}
func (GetTransactions) operation() {}
func (MakeTransaction) operation() {}
func (GetAllUsers) operation()     {}
func (UpdateUser) operation()      {}
func (DeleteUser) operation()      {}
func (Register) operation()        {}
func (Login) operation()           {}

func (UpdateBalance) Decode(body []byte) (AccountInfo, error) {
	return decodeJSON[AccountInfo](body)
}

func (GetTransactions) Decode(body []byte) ([]TransactionInfo, error) {
	txs, err := decodeJSON[[]TransactionInfo](body)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []TransactionInfo{}
	}
	return txs, nil
}

// Decode accepts an empty body: the API may answer a transfer with a bare 200.
func (MakeTransaction) Decode(body []byte) (*TransactionInfo, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	tx, err := decodeJSON[TransactionInfo](trimmed)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (GetAllUsers) Decode(body []byte) ([]UserInfo, error) {
	return decodeJSON[[]UserInfo](body)
}

func (UpdateUser) Decode(body []byte) (UserAuthenticationResponse, error) {
	return decodeJSON[UserAuthenticationResponse](body)
}

func (DeleteUser) Decode([]byte) (struct{}, error) {
	return struct{}{}, nil
}

func (Register) Decode(body []byte) (UserRegisterResponse, error) {
	return decodeJSON[UserRegisterResponse](body)
}

func (Login) Decode(body []byte) (UserAuthenticationResponse, error) {
	return decodeJSON[UserAuthenticationResponse](body)
}

func decodeJSON[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
