// Package ledger talks to a Sui full node over JSON-RPC: it builds, signs and
// executes the certificate mint call and reads certificate objects back.
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	certificateModule   = "certificate"
	mintFunction        = "mint_certificate"
	certificateStruct   = "Certificate"
	defaultPollInterval = 500 * time.Millisecond
)

// Config is the node connection and the deployed contract.
type Config struct {
	URL             string
	PackageID       string
	GasBudget       uint64
	RequestTimeout  time.Duration
	FinalityTimeout time.Duration
}

// MintRequest is the argument list of mint_certificate.
type MintRequest struct {
	DataHash  string
	ImageURL  string
	Recipient string
}

// TxOutcome is the state of an executed transaction.
type TxOutcome struct {
	Digest       string
	Checkpointed bool
	Success      bool
	Error        string
	// NFTID is the certificate object the transaction created, if any.
	NFTID string
}

// Object is an on-chain object as returned by sui_getObject.
type Object struct {
	ID     string
	Type   string
	Owner  string
	Fields map[string]json.RawMessage
}

// Client is safe for concurrent use.
type Client struct {
	http         *resty.Client
	cfg          Config
	signer       Signer
	logger       *slog.Logger
	pollInterval time.Duration
	nextID       atomic.Uint64
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithPollInterval sets how often finality is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithHTTPClient replaces the transport (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc) }
}

func NewClient(cfg Config, signer Signer, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ledger URL is required")
	}
	if cfg.PackageID == "" {
		return nil, fmt.Errorf("package id is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	c := &Client{
		http:         resty.New(),
		cfg:          cfg,
		signer:       signer,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetHeader("Content-Type", "application/json")
	if cfg.RequestTimeout > 0 {
		c.http.SetTimeout(cfg.RequestTimeout)
	}
	return c, nil
}

// PackageID is the contract every genuine certificate object must come from.
func (c *Client) PackageID() string { return c.cfg.PackageID }

// CertificateType is the fully qualified Move type of a certificate object.
func (c *Client) CertificateType() string {
	return c.cfg.PackageID + "::" + certificateModule + "::" + certificateStruct
}

// SubmitMint builds, signs and executes mint_certificate and returns the
// transaction digest once the node has executed it locally. The digest is
// returned even when execution failed on chain.
func (c *Client) SubmitMint(ctx context.Context, req MintRequest) (string, error) {
	var built struct {
		TxBytes string `json:"txBytes"`
	}
	params := []any{
		c.signer.Address(),
		c.cfg.PackageID,
		certificateModule,
		mintFunction,
		[]string{},
		[]any{req.DataHash, req.ImageURL, req.Recipient},
		nil,
		strconv.FormatUint(c.cfg.GasBudget, 10),
	}
	if err := c.call(ctx, "unsafe_moveCall", params, &built); err != nil {
		return "", err
	}
	txBytes, err := base64.StdEncoding.DecodeString(built.TxBytes)
	if err != nil || len(txBytes) == 0 {
		return "", newError(ErrorBadData, "unsafe_moveCall", "transaction bytes are not base64", err)
	}
	signature, err := c.signer.SignTransaction(txBytes)
	if err != nil {
		return "", newError(ErrorInternal, "sign", "failed to sign transaction", err)
	}

	var executed txBlock
	params = []any{
		built.TxBytes,
		[]string{signature},
		txBlockOptions,
		"WaitForLocalExecution",
	}
	if err := c.call(ctx, "sui_executeTransactionBlock", params, &executed); err != nil {
		return "", err
	}
	if executed.Digest == "" {
		return "", newError(ErrorBadData, "sui_executeTransactionBlock", "response has no digest", nil)
	}
	c.logger.InfoContext(ctx, "mint transaction executed",
		"digest", executed.Digest,
		"status", executed.Effects.Status.Status,
	)
	return executed.Digest, nil
}

// Transaction returns the current state of digest. An unknown digest is a
// not_found error.
func (c *Client) Transaction(ctx context.Context, digest string) (*TxOutcome, error) {
	var block txBlock
	if err := c.call(ctx, "sui_getTransactionBlock", []any{digest, txBlockOptions}, &block); err != nil {
		return nil, err
	}
	return c.outcome(digest, &block), nil
}

// AwaitFinality polls digest until it is checkpointed or FinalityTimeout
// passes.
func (c *Client) AwaitFinality(ctx context.Context, digest string) (*TxOutcome, error) {
	if c.cfg.FinalityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.FinalityTimeout)
		defer cancel()
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		outcome, err := c.Transaction(ctx, digest)
		switch {
		case err == nil && outcome.Checkpointed:
			return outcome, nil
		case err != nil && CategoryOf(err) != ErrorNotFound && !IsRetryable(err):
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, newError(ErrorTimeout, "await_finality", "transaction "+digest+" not final in time", ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetObject reads objectID with its type, owner and fields.
func (c *Client) GetObject(ctx context.Context, objectID string) (*Object, error) {
	var resp struct {
		Data *struct {
			ObjectID string          `json:"objectId"`
			Type     string          `json:"type"`
			Owner    json.RawMessage `json:"owner"`
			Content  *struct {
				DataType string                     `json:"dataType"`
				Type     string                     `json:"type"`
				Fields   map[string]json.RawMessage `json:"fields"`
			} `json:"content"`
		} `json:"data"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	params := []any{objectID, map[string]bool{"showType": true, "showContent": true, "showOwner": true}}
	if err := c.call(ctx, "sui_getObject", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil || resp.Data == nil {
		code := "missing"
		if resp.Error != nil {
			code = resp.Error.Code
		}
		return nil, newError(ErrorNotFound, "sui_getObject", "object "+objectID+": "+code, nil)
	}
	obj := &Object{
		ID:    resp.Data.ObjectID,
		Type:  resp.Data.Type,
		Owner: ownerOf(resp.Data.Owner),
	}
	if resp.Data.Content != nil {
		if obj.Type == "" {
			obj.Type = resp.Data.Content.Type
		}
		if resp.Data.Content.DataType != "moveObject" {
			return nil, newError(ErrorBadData, "sui_getObject", "object "+objectID+" is not a move object", nil)
		}
		obj.Fields = resp.Data.Content.Fields
	}
	return obj, nil
}

// ExplorerLink returns the explorer page for a transaction.
func ExplorerLink(base, digest string) string {
	return strings.TrimRight(base, "/") + "/tx/" + digest
}

var txBlockOptions = map[string]bool{"showEffects": true, "showObjectChanges": true}

type txBlock struct {
	Digest     string `json:"digest"`
	Checkpoint string `json:"checkpoint"`
	Effects    struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []struct {
		Type       string `json:"type"`
		ObjectType string `json:"objectType"`
		ObjectID   string `json:"objectId"`
	} `json:"objectChanges"`
}

func (c *Client) outcome(digest string, block *txBlock) *TxOutcome {
	out := &TxOutcome{
		Digest:       digest,
		Checkpointed: block.Checkpoint != "",
		Success:      block.Effects.Status.Status == "success",
		Error:        block.Effects.Status.Error,
	}
	wanted := c.CertificateType()
	for _, change := range block.ObjectChanges {
		if change.Type != "created" {
			continue
		}
		if change.ObjectType == wanted {
			out.NFTID = change.ObjectID
			break
		}
		if out.NFTID == "" {
			out.NFTID = change.ObjectID
		}
	}
	return out
}

func ownerOf(raw json.RawMessage) string {
	var addressed struct {
		AddressOwner string `json:"AddressOwner"`
		ObjectOwner  string `json:"ObjectOwner"`
	}
	if err := json.Unmarshal(raw, &addressed); err == nil {
		if addressed.AddressOwner != "" {
			return addressed.AddressOwner
		}
		if addressed.ObjectOwner != "" {
			return addressed.ObjectOwner
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call performs one JSON-RPC request and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}
	resp, err := c.http.R().SetContext(ctx).SetBody(req).Post(c.cfg.URL)
	if err != nil {
		return transportError(ctx, method, err)
	}
	switch status := resp.StatusCode(); {
	case status == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, method, "rate limited", nil)
	case status >= 500:
		return newError(ErrorProviderOutage, method, "node returned "+resp.Status(), nil)
	case status >= 300:
		return newError(ErrorBadData, method, "unexpected status "+resp.Status(), nil)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return newError(ErrorBadData, method, "malformed response", err)
	}
	if envelope.Error != nil {
		return rpcError(method, envelope.Error.Code, envelope.Error.Message)
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return newError(ErrorBadData, method, "malformed result", err)
	}
	return nil
}

// rpcError maps a JSON-RPC error object onto a category. Lookups of unknown
// digests answer with invalid params and a "could not find" message.
func rpcError(method string, code int, message string) *Error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "could not find") || strings.Contains(lower, "not found"):
		return newError(ErrorNotFound, method, message, nil)
	case code == -32603:
		return newError(ErrorProviderOutage, method, message, nil)
	}
	return newError(ErrorRejected, method, message, nil)
}
