package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"marketchain/core/events"
	"marketchain/core/types"
	"marketchain/native/common"
)

var (
	errNilState = errors.New("bank: state not configured")
	// ErrInsufficientBalance is returned when the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrNegativeAmount is returned for negative transfer amounts.
	ErrNegativeAmount = errors.New("bank: negative amount")
)

type ledgerState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
}

// VaultAddress derives the deterministic custody address of a module. Module
// vaults hold escrowed value between bid/offer creation and resolution.
func VaultAddress(module string) [20]byte {
	var addr [20]byte
	copy(addr[:], crypto.Keccak256([]byte("module:" + module))[12:])
	return addr
}

// Ledger moves native value between accounts.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger constructs a ledger with a no-op emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the ledger.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// Balance returns the balance of addr.
func (l *Ledger) Balance(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone().Balance, nil
}

// Credit mints amount into addr. Only genesis allocation uses it.
func (l *Ledger) Credit(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = acc.Clone()
	acc.Balance.Add(acc.Balance, amount)
	return l.state.PutAccount(addr, acc)
}

// Transfer moves amount from one account to another. A recipient that
// rejects payments fails the transfer with common.ErrTransferFailed; the
// caller must abort the whole operation on any error.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	fromAcc = fromAcc.Clone()
	if fromAcc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromAcc.Balance, amount)
	}
	if from == to {
		return nil
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	toAcc = toAcc.Clone()
	if toAcc.RejectsPayments {
		return fmt.Errorf("%w: recipient %x rejected payment", common.ErrTransferFailed, to)
	}
	fromAcc.Balance.Sub(fromAcc.Balance, amount)
	toAcc.Balance.Add(toAcc.Balance, amount)
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	if err := l.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	l.emitter.Emit(NewTransferEvent(from, to, amount))
	return nil
}

// SetRejectPayments toggles whether addr refuses incoming transfers.
func (l *Ledger) SetRejectPayments(addr [20]byte, reject bool) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = acc.Clone()
	acc.RejectsPayments = reject
	return l.state.PutAccount(addr, acc)
}
