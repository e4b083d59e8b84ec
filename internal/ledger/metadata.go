package ledger

import (
	"encoding/json"
	"fmt"
)

// Metadata is the kind-specific payload attached to a transaction. Each kind
// carries its own typed struct rather than a free-form key-value bag.
type Metadata interface {
	MetadataKind() Kind
}

// DepositMetadata describes how a deposit is funded.
type DepositMetadata struct {
	Method string `json:"method"`
}

// MetadataKind identifies the transaction kind this metadata belongs to.
func (DepositMetadata) MetadataKind() Kind { return KindDeposit }

// WithdrawalMetadata describes where a withdrawal is paid out.
type WithdrawalMetadata struct {
	Destination string `json:"destination"`
}

// MetadataKind identifies the transaction kind this metadata belongs to.
func (WithdrawalMetadata) MetadataKind() Kind { return KindWithdrawal }

// PaymentMetadata links a payment transaction to the order it settles.
type PaymentMetadata struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
}

// MetadataKind identifies the transaction kind this metadata belongs to.
func (PaymentMetadata) MetadataKind() Kind { return KindPayment }

// RefundMetadata links a refund transaction to the reversed order.
type RefundMetadata struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// MetadataKind identifies the transaction kind this metadata belongs to.
func (RefundMetadata) MetadataKind() Kind { return KindRefund }

func encodeMetadata(meta Metadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

func decodeMetadata(kind Kind, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch kind {
	case KindDeposit:
		var m DepositMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindWithdrawal:
		var m WithdrawalMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindPayment:
		var m PaymentMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindRefund:
		var m RefundMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown transaction kind %q", kind)
	}
}
