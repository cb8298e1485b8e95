package core

import (
	"marketchain/core/events"
	"marketchain/core/state"
	"marketchain/native/auction"
	"marketchain/native/bank"
	"marketchain/native/drop"
	"marketchain/native/market"
	"marketchain/native/nft"
	"marketchain/native/offer"
	"marketchain/storage"
)

// Ledgers bundles the engines bound to one storage view. A fresh bundle is
// built per transaction so every engine writes into the same atomic batch.
type Ledgers struct {
	State   *state.Manager
	Bank    *bank.Ledger
	NFT     *nft.Registry
	Market  *market.Engine
	Auction *auction.Engine
	Offer   *offer.Engine
	Drop    *drop.Engine
}

// NewLedgers wires every engine to store, emitter and the clock.
func NewLedgers(store storage.ReadWriter, emitter events.Emitter, now func() int64) *Ledgers {
	manager := state.NewManager(store)

	ledger := bank.NewLedger()
	ledger.SetState(manager)
	ledger.SetEmitter(emitter)

	registry := nft.NewRegistry()
	registry.SetState(manager)
	registry.SetPauses(manager)
	registry.SetEmitter(emitter)

	marketEngine := market.NewEngine()
	marketEngine.SetState(manager)
	marketEngine.SetRegistry(registry)
	marketEngine.SetBank(ledger)
	marketEngine.SetPauses(manager)
	marketEngine.SetEmitter(emitter)
	marketEngine.SetNowFunc(now)

	auctionEngine := auction.NewEngine()
	auctionEngine.SetState(manager)
	auctionEngine.SetRegistry(registry)
	auctionEngine.SetBank(ledger)
	auctionEngine.SetPauses(manager)
	auctionEngine.SetEmitter(emitter)
	auctionEngine.SetNowFunc(now)

	offerEngine := offer.NewEngine()
	offerEngine.SetState(manager)
	offerEngine.SetRegistry(registry)
	offerEngine.SetBank(ledger)
	offerEngine.SetPauses(manager)
	offerEngine.SetEmitter(emitter)
	offerEngine.SetNowFunc(now)

	dropEngine := drop.NewEngine()
	dropEngine.SetState(manager)
	dropEngine.SetRegistry(registry)
	dropEngine.SetBank(ledger)
	dropEngine.SetPauses(manager)
	dropEngine.SetEmitter(emitter)
	dropEngine.SetNowFunc(now)

	return &Ledgers{
		State:   manager,
		Bank:    ledger,
		NFT:     registry,
		Market:  marketEngine,
		Auction: auctionEngine,
		Offer:   offerEngine,
		Drop:    dropEngine,
	}
}
