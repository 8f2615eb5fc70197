package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// VerifyMessageRequest is the body of POST /messages/verify and POST /messages/post.
// Signature is r‖s‖recoveryId; it is passed through unvalidated so that a
// malformed signature verifies as false rather than failing the request.
type VerifyMessageRequest struct {
	Message   hexutil.Bytes `json:"message"`
	Signature hexutil.Bytes `json:"signature"`
	Signer    string        `json:"signer"`
}

// PostMessageRequest is the body of POST /messages/post
type PostMessageRequest = VerifyMessageRequest

// VerifyMessageResponse is returned by POST /messages/verify
type VerifyMessageResponse struct {
	Valid bool `json:"valid"`
}

// PostMessageResponse is returned by POST /messages/post on success
type PostMessageResponse struct {
	Event *PostedMessageEvent `json:"event"`
}

// MessageRef names a (message, signer) pair without a signature
type MessageRef struct {
	Message hexutil.Bytes `json:"message"`
	Signer  string        `json:"signer"`
}

// IsMessagePostedResponse is returned by POST /messages/posted
type IsMessagePostedResponse struct {
	Posted bool `json:"posted"`
}

// EventsResponse is returned by GET /messages/events
type EventsResponse struct {
	Events []*PostedMessageEvent `json:"events"`
}

// LedgerRootResponse is returned by GET /ledger/root
type LedgerRootResponse struct {
	Root  common.Hash `json:"root"`
	Count int         `json:"count"`
}

// LedgerProofResponse is returned by POST /ledger/proof
type LedgerProofResponse struct {
	Root      common.Hash   `json:"root"`
	Key       RegistryKey   `json:"key"`
	LeafIndex int           `json:"leafIndex"`
	Leaf      common.Hash   `json:"leaf"`
	Proof     []common.Hash `json:"proof"`
}

// ErrorResponse is the body of every non-2xx response. Code is set only for
// protocol rejections of a post (100 or 101).
type ErrorResponse struct {
	Code  uint32 `json:"code,omitempty"`
	Error string `json:"error"`
}
