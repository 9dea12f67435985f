package nicepay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/callendar-yojung/pecal-sub002/utils"
)

const (
	defaultAPIURL = "https://sandbox-api.nicepay.co.kr"

	// SuccessCode is the provider's success sentinel. Only this exact
	// result code counts as success; the absence of a transport error
	// does not.
	SuccessCode = "0000"
)

// GatewayError carries the provider's result code and message for a
// non-success response.
type GatewayError struct {
	Code string
	Msg  string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return "nicepay: " + e.Msg
	}
	return fmt.Sprintf("nicepay: %s (%s)", e.Msg, e.Code)
}

// Client calls the provider's billing APIs with a static credential pair.
type Client struct {
	baseURL    string
	clientKey  string
	secretKey  string
	httpClient *http.Client
}

// NewClient builds a client from NICEPAY_CLIENT_KEY, NICEPAY_SECRET_KEY
// and the optional NICEPAY_API_URL override.
func NewClient() (*Client, error) {
	clientKey := os.Getenv("NICEPAY_CLIENT_KEY")
	if clientKey == "" {
		return nil, errors.New("NICEPAY_CLIENT_KEY is not configured")
	}
	secretKey := os.Getenv("NICEPAY_SECRET_KEY")
	if secretKey == "" {
		return nil, errors.New("NICEPAY_SECRET_KEY is not configured")
	}

	baseURL := os.Getenv("NICEPAY_API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewClientWith(baseURL, clientKey, secretKey), nil
}

// NewClientWith builds a client with explicit credentials, mainly for tests.
func NewClientWith(baseURL, clientKey, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		clientKey: clientKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateMoid builds a fresh order id. Order ids are never reused: every
// charge attempt, retries included, gets its own.
func GenerateMoid(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixMilli())
}

// Signature computes the callback signature:
// sha256hex(authToken + clientKey + amount + secretKey).
func (c *Client) Signature(authToken string, amount string) string {
	sum := sha256.Sum256([]byte(authToken + c.clientKey + amount + c.secretKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares a supplied callback signature byte for byte.
func (c *Client) VerifySignature(authToken string, amount string, signature string) bool {
	expected := c.Signature(authToken, amount)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// rawResult collects the fields the provider may return. Legacy endpoints
// capitalize field names, so both spellings are decoded and normalized.
type rawResult struct {
	ResultCode      string `json:"resultCode"`
	ResultCodeUpper string `json:"ResultCode"`
	ResultMsg       string `json:"resultMsg"`
	ResultMsgUpper  string `json:"ResultMsg"`

	Bid      string `json:"bid"`
	BidUpper string `json:"BID"`
	Tid      string `json:"tid"`
	Amount   int    `json:"amount"`

	CardCode string `json:"cardCode"`
	CardName string `json:"cardName"`
	CardNo   string `json:"cardNo"`
	Card     *struct {
		CardCode string `json:"cardCode"`
		CardName string `json:"cardName"`
		CardNo   string `json:"cardNo"`
	} `json:"card"`
}

func (r *rawResult) normalize() (code string, msg string) {
	code = r.ResultCode
	if code == "" {
		code = r.ResultCodeUpper
	}
	msg = r.ResultMsg
	if msg == "" {
		msg = r.ResultMsgUpper
	}
	return code, msg
}

func (r *rawResult) bid() string {
	if r.Bid != "" {
		return r.Bid
	}
	return r.BidUpper
}

func (r *rawResult) cardCode() string {
	if r.CardCode != "" {
		return r.CardCode
	}
	if r.Card != nil {
		return r.Card.CardCode
	}
	return ""
}

func (r *rawResult) cardName() string {
	if r.CardName != "" {
		return r.CardName
	}
	if r.Card != nil {
		return r.Card.CardName
	}
	return ""
}

func (r *rawResult) cardNo() string {
	if r.CardNo != "" {
		return r.CardNo
	}
	if r.Card != nil {
		return r.Card.CardNo
	}
	return ""
}

func (c *Client) post(path string, payload interface{}) (*rawResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error encoding request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientKey + ":" + c.secretKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling nicepay: %v", err)
	}
	defer resp.Body.Close()

	var result rawResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error decoding nicepay response (status %d): %v", resp.StatusCode, err)
	}

	return &result, nil
}

type BillingKeyResult struct {
	Bid        string
	CardCode   string
	CardName   string
	CardNo     string
	ResultCode string
	ResultMsg  string
}

// RegisterBillingKey exchanges an authenticated checkout transaction for a
// reusable billing key (BID). POST /v1/billing/{tid}.
func (c *Client) RegisterBillingKey(tid string, orderID string, amount int, goodsName string) (*BillingKeyResult, error) {
	result, err := c.post("/v1/billing/"+tid, map[string]interface{}{
		"orderId":   orderID,
		"amount":    amount,
		"goodsName": goodsName,
		"cardQuota": 0,
	})
	if err != nil {
		return nil, err
	}

	code, msg := result.normalize()
	utils.LogInfo("NicePay billing key register result: " + code)

	if code != SuccessCode {
		return nil, &GatewayError{Code: code, Msg: msg}
	}

	return &BillingKeyResult{
		Bid:        result.bid(),
		CardCode:   result.cardCode(),
		CardName:   result.cardName(),
		CardNo:     result.cardNo(),
		ResultCode: code,
		ResultMsg:  msg,
	}, nil
}

type ApproveResult struct {
	Tid        string
	Amount     int
	ResultCode string
	ResultMsg  string
}

// ApproveBilling charges a stored billing key. POST /v1/billing/re-pay.
func (c *Client) ApproveBilling(bid string, orderID string, amount int, goodsName string) (*ApproveResult, error) {
	result, err := c.post("/v1/billing/re-pay", map[string]interface{}{
		"bid":             bid,
		"orderId":         orderID,
		"amount":          amount,
		"goodsName":       goodsName,
		"cardQuota":       0,
		"useShopInterest": false,
	})
	if err != nil {
		return nil, err
	}

	code, msg := result.normalize()
	utils.LogInfo("NicePay billing approve result: " + code)

	if code != SuccessCode {
		return nil, &GatewayError{Code: code, Msg: msg}
	}

	amt := result.Amount
	if amt == 0 {
		amt = amount
	}

	return &ApproveResult{
		Tid:        result.Tid,
		Amount:     amt,
		ResultCode: code,
		ResultMsg:  msg,
	}, nil
}

// ApprovePayment approves a one-shot checkout transaction that did not go
// through a billing key. POST /v1/payments/{tid}.
func (c *Client) ApprovePayment(tid string, orderID string, amount int) (*ApproveResult, error) {
	result, err := c.post("/v1/payments/"+tid, map[string]interface{}{
		"amount":  amount,
		"orderId": orderID,
	})
	if err != nil {
		return nil, err
	}

	code, msg := result.normalize()
	utils.LogInfo("NicePay payment approve result: " + code)

	if code != SuccessCode {
		return nil, &GatewayError{Code: code, Msg: msg}
	}

	amt := result.Amount
	if amt == 0 {
		amt = amount
	}

	return &ApproveResult{
		Tid:        result.Tid,
		Amount:     amt,
		ResultCode: code,
		ResultMsg:  msg,
	}, nil
}

type ExpireResult struct {
	ResultCode string
	ResultMsg  string
}

// ExpireBillingKey invalidates a billing key at the provider.
// POST /v1/subscribe/{bid}/expire. The provider's result is returned as-is;
// callers decide whether a non-success code matters.
func (c *Client) ExpireBillingKey(bid string, orderID string) (*ExpireResult, error) {
	result, err := c.post("/v1/subscribe/"+bid+"/expire", map[string]interface{}{
		"orderId": orderID,
	})
	if err != nil {
		return nil, err
	}

	code, msg := result.normalize()
	utils.LogInfo("NicePay billing key expire result: " + code)

	return &ExpireResult{
		ResultCode: code,
		ResultMsg:  msg,
	}, nil
}
