package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bankclient/config"
	"bankclient/internal/model"

	"github.com/shopspring/decimal"
)

// Response is a raw HTTP outcome. Business decoding happens in the dispatcher.
type Response struct {
	StatusCode int
	Body       []byte
}

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(config *config.Config, transport http.RoundTripper) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(config.API.BaseURL), "/"),
		httpClient: &http.Client{
			Timeout:   config.API.Timeout,
			Transport: transport,
		},
	}
}

type route struct {
	method string
	path   string
	query  url.Values
	body   any
}

func routeFor(op model.Operation) (route, error) {
	switch o := op.(type) {
	case model.UpdateBalance:
		return route{http.MethodPut, "/Accounts", nil, updateBalanceBody{
			AccountID:   o.AccountID,
			AmountToAdd: number(o.AmountToAdd),
		}}, nil
	case model.GetTransactions:
		q := url.Values{}
		q.Set("accountId", strconv.FormatInt(int64(o.AccountID), 10))
		return route{http.MethodGet, "/Transactions", q, nil}, nil
	case model.MakeTransaction:
		return route{http.MethodPost, "/Transactions", nil, makeTransactionBody{
			SenderPhoneNumber:   o.Request.SenderPhoneNumber,
			Token:               o.Request.Token,
			ReceiverPhoneNumber: o.Request.ReceiverPhoneNumber,
			SenderAccountID:     o.Request.SenderAccountID,
			Amount:              number(o.Request.Amount),
			Comment:             o.Request.Comment,
		}}, nil
	case model.GetAllUsers:
		return route{http.MethodGet, "/User", nil, nil}, nil
	case model.UpdateUser:
		return route{http.MethodPut, "/User", nil, updateUserBody{
			CurrentPhoneNumber: o.CurrentPhoneNumber,
			NewPhoneNumber:     o.NewPhoneNumber,
			NewPassword:        o.NewPassword,
			Token:              o.Token,
		}}, nil
	case model.DeleteUser:
		return route{http.MethodDelete, "/User", nil, deleteUserBody{
			UserPhoneNumber: o.UserPhoneNumber,
			Token:           o.Token,
		}}, nil
	case model.Register:
		return route{http.MethodPost, "/User/register", nil, registerBody{
			PhoneNumber: o.PhoneNumber,
			Password:    o.Password,
			Currency:    o.Currency,
		}}, nil
	case model.Login:
		return route{http.MethodPost, "/User/login", nil, loginBody{
			PhoneNumber: o.PhoneNumber,
			Password:    o.Password,
		}}, nil
	}
	return route{}, fmt.Errorf("unsupported operation %T", op)
}

// Do issues one HTTP call for op. A returned error always means the call produced
// no usable HTTP status; every status code, 2xx or not, comes back as a Response.
func (c *APIClient) Do(ctx context.Context, op model.Operation) (*Response, error) {
	r, err := routeFor(op)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op.Kind(), err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op.Kind(), err)
	}
	req.Header.Set("Content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s request: %w", op.Kind(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op.Kind(), err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// number renders a decimal as a bare JSON number without going through float64.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type updateBalanceBody struct {
	AccountID   int32       `json:"accountId"`
	AmountToAdd json.Number `json:"amountToAdd"`
}

type makeTransactionBody struct {
	SenderPhoneNumber   string      `json:"senderPhoneNumber"`
	Token               string      `json:"token"`
	ReceiverPhoneNumber string      `json:"receiverPhoneNumber"`
	SenderAccountID     int32       `json:"senderAccountId"`
	Amount              json.Number `json:"amount"`
	Comment             string      `json:"comment"`
}

type updateUserBody struct {
	CurrentPhoneNumber string `json:"currentPhoneNumber"`
	NewPhoneNumber     string `json:"newPhoneNumber"`
	NewPassword        string `json:"newPassword"`
	Token              string `json:"token"`
}

type deleteUserBody struct {
	UserPhoneNumber string `json:"userPhoneNumber"`
	Token           string `json:"token"`
}

type registerBody struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
	Currency    string `json:"currency"`
}

type loginBody struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}
