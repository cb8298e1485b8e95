package drop

import "math/big"

// Sale is a fixed-price primary sale that mints a fresh token of Registry to
// every buyer. One sale exists per registry. ArtistSplit is a percentage of
// the price paid to ArtistWallet; the rest goes to SaleOwner.
type Sale struct {
	Registry     [20]byte
	Price        *big.Int
	MaxDate      uint64
	MaxMint      uint64
	Sold         uint64
	SaleOwner    [20]byte
	ArtistWallet [20]byte
	ArtistSplit  uint32
	CreatedAt    uint64
	LastTokenID  uint64
}

// Expired reports whether purchases are closed at now.
func (s *Sale) Expired(now uint64) bool {
	return s.MaxDate != 0 && now >= s.MaxDate
}

// SoldOut reports whether every unit has been minted.
func (s *Sale) SoldOut() bool {
	return s.Sold >= s.MaxMint
}

// Remaining returns the number of units still for sale.
func (s *Sale) Remaining() uint64 {
	if s.SoldOut() {
		return 0
	}
	return s.MaxMint - s.Sold
}

func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Price != nil {
		clone.Price = new(big.Int).Set(s.Price)
	}
	return &clone
}

// Purchase records one settled purchase.
type Purchase struct {
	Registry    [20]byte
	TokenID     uint64
	Buyer       [20]byte
	Price       *big.Int
	ArtistShare *big.Int
	OwnerShare  *big.Int
}
