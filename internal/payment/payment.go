// Package payment talks to the hosted payment page. The built-in processor
// signs requests with a shared secret and accepts the matching signed
// callback, which is enough for the fake payment page and for tests.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Parameter names exchanged with the processor.
const (
	ParamOrderNumber = "orderNumber"
	ParamAmount      = "amount"
	ParamCurrency    = "currency"
	ParamData1       = "merchant_defined_data1"
	ParamData2       = "merchant_defined_data2"
	ParamDecision    = "decision"
	ParamSignature   = "signature"
	ParamSignedNames = "signed_field_names"
)

// DecisionAccept marks a successful payment.
const DecisionAccept = "ACCEPT"

var (
	ErrBadSignature = errors.New("payment response signature mismatch")
	ErrDeclined     = errors.New("payment declined")
	ErrMissingField = errors.New("payment response missing field")
)

// Request is what the processor needs to start a payment.
type Request struct {
	OrderID  int64
	Amount   decimal.Decimal
	Currency string
	Data1    string
	Data2    string
}

// Result is a verified payment response.
type Result struct {
	OrderID  int64
	Amount   decimal.Decimal
	Currency string
	Params   map[string]string
}

// Processor builds signed payment requests and verifies callbacks.
type Processor interface {
	URL() string
	Params(req Request) map[string]string
	Verify(params map[string]string) (*Result, error)
}

// HMACProcessor signs parameters with HMAC-SHA256.
type HMACProcessor struct {
	secret []byte
	url    string
}

// NewHMACProcessor creates a processor for the given secret and page URL.
func NewHMACProcessor(secret, url string) *HMACProcessor {
	return &HMACProcessor{secret: []byte(secret), url: url}
}

func (p *HMACProcessor) URL() string {
	return p.url
}

// Params returns the signed form fields for req.
func (p *HMACProcessor) Params(req Request) map[string]string {
	params := map[string]string{
		ParamOrderNumber: strconv.FormatInt(req.OrderID, 10),
		ParamAmount:      req.Amount.StringFixed(2),
		ParamCurrency:    strings.ToLower(req.Currency),
		ParamData1:       req.Data1,
		ParamData2:       req.Data2,
	}
	p.sign(params)
	return params
}

// Verify checks the signature and decision of a processor callback.
func (p *HMACProcessor) Verify(params map[string]string) (*Result, error) {
	got, ok := params[ParamSignature]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, ParamSignature)
	}
	if !hmac.Equal([]byte(got), []byte(p.signature(params))) {
		return nil, ErrBadSignature
	}

	signed := make(map[string]bool)
	for _, name := range strings.Split(params[ParamSignedNames], ",") {
		signed[name] = true
	}
	for _, name := range []string{ParamOrderNumber, ParamAmount, ParamCurrency, ParamDecision} {
		if params[name] == "" || !signed[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}

	if params[ParamDecision] != DecisionAccept {
		return nil, fmt.Errorf("%w: decision %q", ErrDeclined, params[ParamDecision])
	}

	orderID, err := strconv.ParseInt(params[ParamOrderNumber], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid order number %q: %w", params[ParamOrderNumber], err)
	}

	amount, err := decimal.NewFromString(params[ParamAmount])
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", params[ParamAmount], err)
	}

	return &Result{
		OrderID:  orderID,
		Amount:   amount,
		Currency: params[ParamCurrency],
		Params:   params,
	}, nil
}

// Simulate plays the hosted payment page: it takes the signed request
// fields, adds the decision and re-signs the response.
func (p *HMACProcessor) Simulate(request map[string]string, decision string) (map[string]string, error) {
	if !hmac.Equal([]byte(request[ParamSignature]), []byte(p.signature(request))) {
		return nil, ErrBadSignature
	}

	response := make(map[string]string, len(request)+1)
	for k, v := range request {
		if k == ParamSignature || k == ParamSignedNames {
			continue
		}
		response[k] = v
	}
	response[ParamDecision] = decision
	p.sign(response)
	return response, nil
}

func (p *HMACProcessor) sign(params map[string]string) {
	delete(params, ParamSignature)
	names := make([]string, 0, len(params))
	for k := range params {
		if k != ParamSignedNames {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	params[ParamSignedNames] = strings.Join(names, ",")
	params[ParamSignature] = p.signature(params)
}

// signature covers the fields named in signed_field_names, in that order.
func (p *HMACProcessor) signature(params map[string]string) string {
	names := strings.Split(params[ParamSignedNames], ",")
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		pairs = append(pairs, name+"="+params[name])
	}

	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(strings.Join(pairs, ",")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
