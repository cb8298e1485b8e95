package rpc

import (
	"encoding/json"
	"net/http"

	"marketchain/core"
)

func (s *Server) registerMethods() map[string]methodHandler {
	return map[string]methodHandler{
		"tx_send": s.handleSendTransaction,

		"bank_getBalance": s.handleGetBalance,
		"bank_getAccount": s.handleGetAccount,

		"nft_ownerOf":     s.handleOwnerOf,
		"nft_getRegistry": s.handleGetRegistry,

		"market_getListing":          s.handleGetListing,
		"market_fetchActive":         s.handleFetchActive,
		"market_fetchActiveBySeller": s.handleFetchActiveBySeller,
		"market_fetchSettledByBuyer": s.handleFetchSettledByBuyer,
		"market_getPlatformFee":      s.handleGetPlatformFee,

		"auction_get":   s.handleGetAuction,
		"auction_fetch": s.handleFetchAuctions,

		"drop_get":   s.handleGetSale,
		"drop_fetch": s.handleFetchSales,

		"offer_get":             s.handleGetOffer,
		"offer_getByAsset":      s.handleGetOfferByAsset,
		"offer_fetch":           s.handleFetchOffers,
		"offer_fetchForAddress": s.handleFetchOffersForAddress,

		"node_status": s.handleNodeStatus,
		"node_events": s.handleNodeEvents,
	}
}

// view decodes params into p and runs fn against a state snapshot.
func (s *Server) view(params []json.RawMessage, p interface{}, fn func(*core.Ledgers) (interface{}, error)) (interface{}, error) {
	if p != nil {
		if err := decodeParams(params, p); err != nil {
			return nil, err
		}
	} else if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	var out interface{}
	err := s.node.View(func(l *core.Ledgers) error {
		result, err := fn(l)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) handleGetBalance(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p addressParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return nil, err
		}
		balance, err := l.Bank.Balance(addr)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": hexAddr(addr), "balance": balance.String()}, nil
	})
}

func (s *Server) handleGetAccount(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p addressParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return nil, err
		}
		account, err := l.State.GetAccount(addr)
		if err != nil {
			return nil, err
		}
		return accountJSON{
			Address:         hexAddr(addr),
			Balance:         bigString(account.Balance),
			Nonce:           account.Nonce,
			RejectsPayments: account.RejectsPayments,
		}, nil
	})
}

func (s *Server) handleOwnerOf(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p assetParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		ref, err := p.ref()
		if err != nil {
			return nil, err
		}
		owner, err := l.NFT.OwnerOf(ref)
		if err != nil {
			return nil, err
		}
		return map[string]string{"owner": hexAddr(owner)}, nil
	})
}

func (s *Server) handleGetRegistry(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p addressParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return nil, err
		}
		collection, err := l.NFT.Collection(addr)
		if err != nil {
			return nil, err
		}
		return collectionView(collection), nil
	})
}

func (s *Server) handleGetListing(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p itemParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		listing, err := l.Market.Listing(p.ItemID)
		if err != nil {
			return nil, err
		}
		return listingView(listing), nil
	})
}

func (s *Server) handleFetchActive(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	return s.view(params, nil, func(l *core.Ledgers) (interface{}, error) {
		listings, err := l.Market.FetchActive()
		if err != nil {
			return nil, err
		}
		return listingViews(listings), nil
	})
}

func (s *Server) handleFetchActiveBySeller(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p struct {
		Seller string `json:"seller"`
	}
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		seller, err := parseAddress("seller", p.Seller)
		if err != nil {
			return nil, err
		}
		listings, err := l.Market.FetchActiveBySeller(seller)
		if err != nil {
			return nil, err
		}
		return listingViews(listings), nil
	})
}

func (s *Server) handleFetchSettledByBuyer(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p struct {
		Buyer string `json:"buyer"`
	}
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		buyer, err := parseAddress("buyer", p.Buyer)
		if err != nil {
			return nil, err
		}
		listings, err := l.Market.FetchSettledByBuyer(buyer)
		if err != nil {
			return nil, err
		}
		return listingViews(listings), nil
	})
}

func (s *Server) handleGetPlatformFee(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	return s.view(params, nil, func(l *core.Ledgers) (interface{}, error) {
		cfg, err := l.Market.PlatformFee()
		if err != nil {
			return nil, err
		}
		return feeView(cfg), nil
	})
}

func (s *Server) handleGetAuction(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p assetParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		ref, err := p.ref()
		if err != nil {
			return nil, err
		}
		a, err := l.Auction.Auction(ref)
		if err != nil {
			return nil, err
		}
		return auctionView(a), nil
	})
}

func (s *Server) handleFetchAuctions(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	return s.view(params, nil, func(l *core.Ledgers) (interface{}, error) {
		auctions, err := l.Auction.FetchAuctions()
		if err != nil {
			return nil, err
		}
		return auctionViews(auctions), nil
	})
}

func (s *Server) handleGetSale(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p registryParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		registry, err := parseAddress("registry", p.Registry)
		if err != nil {
			return nil, err
		}
		sale, err := l.Drop.Sale(registry)
		if err != nil {
			return nil, err
		}
		return saleView(sale), nil
	})
}

func (s *Server) handleFetchSales(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	return s.view(params, nil, func(l *core.Ledgers) (interface{}, error) {
		sales, err := l.Drop.FetchSales()
		if err != nil {
			return nil, err
		}
		return saleViews(sales), nil
	})
}

func (s *Server) handleGetOffer(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p offerIDParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		o, err := l.Offer.ByID(p.OfferID)
		if err != nil {
			return nil, err
		}
		return offerView(o), nil
	})
}

func (s *Server) handleGetOfferByAsset(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p offerByAssetParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		ref, err := p.ref()
		if err != nil {
			return nil, err
		}
		offerer, err := parseAddress("offerer", p.Offerer)
		if err != nil {
			return nil, err
		}
		o, err := l.Offer.ByAssetAndOfferer(ref, offerer)
		if err != nil {
			return nil, err
		}
		return offerView(o), nil
	})
}

func (s *Server) handleFetchOffers(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	return s.view(params, nil, func(l *core.Ledgers) (interface{}, error) {
		offers, err := l.Offer.FetchOffers()
		if err != nil {
			return nil, err
		}
		return offerViews(offers), nil
	})
}

func (s *Server) handleFetchOffersForAddress(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p addressParams
	return s.view(params, &p, func(l *core.Ledgers) (interface{}, error) {
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return nil, err
		}
		offers, err := l.Offer.FetchOffersForAddress(addr)
		if err != nil {
			return nil, err
		}
		return offerViews(offers), nil
	})
}

func (s *Server) handleNodeStatus(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}
	return s.node.Status()
}

func (s *Server) handleNodeEvents(_ *http.Request, params []json.RawMessage) (interface{}, error) {
	var p eventsParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Limit < 0 {
		return nil, invalidParams("limit must not be negative")
	}
	return s.node.RecentEvents(p.Limit), nil
}
