package state

import (
	"fmt"

	"marketchain/native/offer"
)

func offerKey(id uint64) []byte { return tableKey(offerPrefix, uint64Bytes(id)) }

// OfferNextID allocates the next offer id. Ids start at 1.
func (m *Manager) OfferNextID() (uint64, error) {
	return m.nextSequence(sequenceOffer)
}

func (m *Manager) OfferPut(o *offer.Offer) error {
	if o == nil || o.OfferID == 0 {
		return fmt.Errorf("offer: id required")
	}
	return m.KVPut(offerKey(o.OfferID), o)
}

func (m *Manager) OfferGet(id uint64) (*offer.Offer, bool, error) {
	o := new(offer.Offer)
	ok, err := m.KVGet(offerKey(id), o)
	if err != nil || !ok {
		return nil, false, err
	}
	return o, true, nil
}

// Offers visits every offer in id order.
func (m *Manager) Offers(fn func(*offer.Offer) error) error {
	return kvScan(m, offerPrefix, fn)
}
