package handler

import (
	"encoding/base64"

	dErrors "travlr/pkg/domain-errors"
)

// CreateRequestBody is the requester's petition for credential fields.
// TTLSeconds caps how long the request stays pending; when omitted the
// server default applies.
type CreateRequestBody struct {
	Holder     string   `json:"holder"`
	Fields     []string `json:"fields"`
	Reason     string   `json:"reason,omitempty"`
	TTLSeconds int64    `json:"ttlSeconds,omitempty"`
}

func (b *CreateRequestBody) Validate() error {
	if b.Holder == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "holder is required")
	}
	if len(b.Fields) == 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "fields must not be empty")
	}
	if b.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "ttlSeconds must be positive")
	}
	return nil
}

// ApproveBody carries the decider's approval: the released subset and the
// base64 signature over the approval payload.
type ApproveBody struct {
	ApprovedFields []string `json:"approvedFields"`
	Signature      string   `json:"signature"`
}

func (b *ApproveBody) Validate() error {
	if len(b.ApprovedFields) == 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "approvedFields must not be empty")
	}
	if b.Signature == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "signature is required")
	}
	return nil
}

// SignedBody carries a decision signature (deny, revoke) and an optional
// reason kept for the ledger.
type SignedBody struct {
	Signature string `json:"signature"`
	Reason    string `json:"reason,omitempty"`
}

func (b *SignedBody) Validate() error {
	if b.Signature == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "signature is required")
	}
	return nil
}

func decodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "signature must be base64")
	}
	return sig, nil
}
