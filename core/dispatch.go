package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"marketchain/core/genesis"
	"marketchain/core/types"
	"marketchain/native/auction"
	"marketchain/native/common"
	"marketchain/native/drop"
)

func decodePayload(data json.RawMessage, out interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		data = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// dispatch routes the transaction to exactly one ledger operation and
// returns the operation's result record.
func dispatch(l *Ledgers, call common.Call, tx *types.Transaction) (interface{}, error) {
	switch tx.Type {
	case types.TxTypeTransfer:
		var p TransferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		if err := common.Guard(l.State, common.ModuleBank); err != nil {
			return nil, err
		}
		return nil, l.Bank.Transfer(call.Caller, p.To, call.AttachedValue())

	case types.TxTypeSetRejectPayments:
		var p SetRejectPaymentsPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		if err := common.Guard(l.State, common.ModuleBank); err != nil {
			return nil, err
		}
		return nil, l.Bank.SetRejectPayments(call.Caller, p.Reject)

	case types.TxTypeCreateRegistry:
		var p CreateRegistryPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.NFT.CreateRegistry(call, p.Name, p.Symbol)

	case types.TxTypeSetMinter:
		var p SetMinterPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, l.NFT.SetMinter(call, p.Registry, p.Minter, p.Enabled)

	case types.TxTypeMint:
		var p MintPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.NFT.Mint(call.Caller, p.Registry, p.To)

	case types.TxTypeApprove:
		var p ApprovePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, l.NFT.Approve(call, p.Ref(), p.Spender)

	case types.TxTypeSetApprovalForAll:
		var p SetApprovalForAllPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, l.NFT.SetApprovalForAll(call, p.Registry, p.Operator, p.Approved)

	case types.TxTypeTransferAsset:
		var p TransferAssetPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		from := call.Caller
		if p.From != nil {
			from = *p.From
		}
		return nil, l.NFT.TransferFrom(call.Caller, from, p.To, p.Ref())

	case types.TxTypeCreateListing:
		var p CreateListingPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Market.CreateListing(call, p.Ref(), p.Price, p.Category)

	case types.TxTypeBuy:
		var p BuyPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Market.Buy(call, p.ItemID, p.royalty())

	case types.TxTypeCancelListing:
		var p ItemPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Market.Cancel(call, p.ItemID)

	case types.TxTypeSetPlatformFee:
		var p SetPlatformFeePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, l.Market.SetPlatformFee(call, p.Rate)

	case types.TxTypeSetFeeRecipient:
		var p SetFeeRecipientPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, l.Market.SetFeeRecipient(call, p.Recipient)

	case types.TxTypeCreateAuction:
		var p CreateAuctionPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Auction.CreateAuction(call, auction.CreateParams{
			Asset:        p.Ref(),
			MinBid:       p.MinBid,
			MaxDate:      p.MaxDate,
			MaxMint:      p.MaxMint,
			ArtistWallet: p.ArtistWallet,
			ArtistSplit:  p.ArtistSplit,
		})

	case types.TxTypePlaceBid:
		var p AssetParams
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Auction.PlaceBid(call, p.Ref())

	case types.TxTypeConcludeAuction:
		var p ConcludeAuctionPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Auction.ConcludeAuction(call, p.Ref(), p.Permutation)

	case types.TxTypeCreateOffer:
		var p AssetParams
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Offer.CreateOffer(call, p.Ref())

	case types.TxTypeChangeOffer:
		var p OfferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Offer.ChangeOffer(call, p.OfferID)

	case types.TxTypeCancelOffer:
		var p OfferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Offer.CancelOffer(call, p.OfferID)

	case types.TxTypeDenyOffer:
		var p OfferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Offer.DenyOffer(call, p.OfferID)

	case types.TxTypeAcceptOffer:
		var p AcceptOfferPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Offer.AcceptOffer(call, p.OfferID, p.royalty())

	case types.TxTypeCreateSale:
		var p CreateSalePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Drop.CreateSale(call, drop.CreateParams{
			Registry:     p.Registry,
			Price:        p.Price,
			MaxDate:      p.MaxDate,
			MaxMint:      p.MaxMint,
			ArtistWallet: p.ArtistWallet,
			ArtistSplit:  p.ArtistSplit,
		})

	case types.TxTypePurchase:
		var p SalePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Drop.Purchase(call, p.Registry)

	case types.TxTypeSetMaxDate:
		var p SetMaxDatePayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Drop.SetMaxDate(call, p.Registry, p.MaxDate)

	case types.TxTypeSetMaxMint:
		var p SetMaxMintPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return l.Drop.SetMaxMint(call, p.Registry, p.MaxMint)

	case types.TxTypeSetPaused:
		var p SetPausedPayload
		if err := decodePayload(tx.Data, &p); err != nil {
			return nil, err
		}
		return nil, setPaused(l, call, p)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTxType, tx.Type)
	}
}

func setPaused(l *Ledgers, call common.Call, p SetPausedPayload) error {
	operator, err := l.State.Operator()
	if err != nil {
		return err
	}
	if operator == ([20]byte{}) || operator != call.Caller {
		return fmt.Errorf("%w: operator only", common.ErrNotOwnerOrNotApproved)
	}
	if !genesis.IsKnownModule(p.Module) {
		return fmt.Errorf("%w: unknown module %q", ErrInvalidPayload, p.Module)
	}
	return l.State.SetPaused(p.Module, p.Paused)
}
