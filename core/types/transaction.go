package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxType names the ledger operation a transaction invokes.
type TxType string

const (
	TxTypeTransfer          TxType = "bank_transfer"
	TxTypeSetRejectPayments TxType = "bank_setRejectPayments"

	TxTypeCreateRegistry    TxType = "nft_createRegistry"
	TxTypeSetMinter         TxType = "nft_setMinter"
	TxTypeMint              TxType = "nft_mint"
	TxTypeApprove           TxType = "nft_approve"
	TxTypeSetApprovalForAll TxType = "nft_setApprovalForAll"
	TxTypeTransferAsset     TxType = "nft_transfer"

	TxTypeCreateListing   TxType = "market_createListing"
	TxTypeBuy             TxType = "market_buy"
	TxTypeCancelListing   TxType = "market_cancel"
	TxTypeSetPlatformFee  TxType = "market_setPlatformFee"
	TxTypeSetFeeRecipient TxType = "market_setFeeRecipient"

	TxTypeCreateAuction   TxType = "auction_create"
	TxTypePlaceBid        TxType = "auction_placeBid"
	TxTypeConcludeAuction TxType = "auction_conclude"

	TxTypeCreateOffer TxType = "offer_create"
	TxTypeChangeOffer TxType = "offer_change"
	TxTypeCancelOffer TxType = "offer_cancel"
	TxTypeDenyOffer   TxType = "offer_deny"
	TxTypeAcceptOffer TxType = "offer_accept"

	TxTypeCreateSale TxType = "drop_create"
	TxTypePurchase   TxType = "drop_purchase"
	TxTypeSetMaxDate TxType = "drop_setMaxDate"
	TxTypeSetMaxMint TxType = "drop_setMaxMint"

	TxTypeSetPaused TxType = "admin_setPaused"
)

// Payable reports whether the operation accepts attached value.
func (t TxType) Payable() bool {
	switch t {
	case TxTypeTransfer, TxTypeBuy, TxTypePlaceBid, TxTypeCreateOffer, TxTypeChangeOffer, TxTypePurchase:
		return true
	default:
		return false
	}
}

// Transaction is a single caller-authenticated invocation of one ledger
// operation. From is supplied by the execution boundary and never derived
// from the payload.
type Transaction struct {
	Type  TxType          `json:"type"`
	From  common.Address  `json:"from"`
	Nonce uint64          `json:"nonce"`
	Value *big.Int        `json:"value,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hash returns the keccak256 digest of the canonical JSON encoding.
func (tx *Transaction) Hash() common.Hash {
	payload := struct {
		Type  TxType
		From  common.Address
		Nonce uint64
		Value *big.Int
		Data  json.RawMessage
	}{tx.Type, tx.From, tx.Nonce, tx.AttachedValue(), tx.Data}
	b, err := json.Marshal(payload)
	if err != nil {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(b)
}

// AttachedValue returns the attached value, treating nil as zero.
func (tx *Transaction) AttachedValue() *big.Int {
	if tx == nil || tx.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Value)
}

// Receipt summarises a committed transaction.
type Receipt struct {
	TxHash common.Hash `json:"txHash"`
	Height uint64      `json:"height"`
	Time   int64       `json:"time"`
	Result interface{} `json:"result,omitempty"`
	Events []Event     `json:"events"`
}
