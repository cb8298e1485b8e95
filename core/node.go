package core

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"marketchain/core/events"
	"marketchain/core/genesis"
	"marketchain/core/types"
	"marketchain/native/auction"
	"marketchain/native/bank"
	"marketchain/native/common"
	"marketchain/native/drop"
	"marketchain/native/market"
	"marketchain/native/offer"
	"marketchain/observability"
	"marketchain/storage"
)

var (
	// ErrNonceMismatch is returned when a transaction nonce does not match
	// the caller's account nonce.
	ErrNonceMismatch = errors.New("core: nonce mismatch")
	// ErrUnknownTxType is returned for unsupported transaction types.
	ErrUnknownTxType = errors.New("core: unknown transaction type")
	// ErrInvalidPayload is returned when the transaction data cannot be decoded.
	ErrInvalidPayload = errors.New("core: invalid payload")
	// ErrGenesisApplied is returned when genesis runs on initialised state.
	ErrGenesisApplied = errors.New("core: genesis already applied")
	errNilTransaction = errors.New("core: nil transaction")
)

const defaultEventHistory = 256

// Node serialises transactions against the ledger state. Each transaction
// runs inside one storage transaction that is committed on success and
// discarded on any error, so a failed call leaves no trace.
type Node struct {
	mu      sync.Mutex
	db      storage.Database
	logger  *slog.Logger
	nowFn   func() int64
	emitter events.Emitter
	metrics *observability.LedgerMetrics

	historyMu    sync.RWMutex
	history      []StreamedEvent
	historyLimit int
	eventSeq     uint64
	subs         map[uint64]chan StreamedEvent
	nextSubID    uint64
}

// Option customises a Node.
type Option func(*Node)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithNowFunc overrides the clock. Tests use it to drive auction deadlines.
func WithNowFunc(now func() int64) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// WithEmitter forwards committed events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(n *Node) {
		if emitter != nil {
			n.emitter = emitter
		}
	}
}

// WithEventHistory bounds the number of recent events kept for queries.
func WithEventHistory(limit int) Option {
	return func(n *Node) {
		if limit > 0 {
			n.historyLimit = limit
		}
	}
}

// NewNode creates a node over db.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database must not be nil")
	}
	n := &Node{
		db:           db,
		logger:       slog.Default(),
		nowFn:        func() int64 { return time.Now().Unix() },
		emitter:      events.NoopEmitter{},
		metrics:      observability.Ledger(),
		historyLimit: defaultEventHistory,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// InitGenesis writes the genesis state. It fails once any transaction has
// been committed or an operator is already configured.
func (n *Node) InitGenesis(spec *genesis.GenesisSpec) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	tx, err := n.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	l := NewLedgers(tx, events.NoopEmitter{}, n.nowFn)
	height, err := l.State.Height()
	if err != nil {
		return err
	}
	operator, err := l.State.Operator()
	if err != nil {
		return err
	}
	if height != 0 || operator != ([20]byte{}) {
		return ErrGenesisApplied
	}
	if err := genesis.Apply(spec, l.State); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	operator = spec.OperatorAddress()
	n.logger.Info("genesis applied",
		slog.String("operator", hex.EncodeToString(operator[:])),
		slog.Uint64("platformRate", uint64(spec.FeeConfig().PlatformRate)))
	return nil
}

// Apply executes tx atomically and returns its receipt. Transactions are
// totally ordered by the node mutex and the single open storage transaction.
func (n *Node) Apply(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, errNilTransaction
	}
	start := time.Now()
	receipt, err := n.apply(tx)
	n.metrics.RecordTx(string(tx.Type), err)
	if err != nil {
		n.logger.Warn("transaction rejected",
			slog.String("type", string(tx.Type)),
			slog.String("from", tx.From.Hex()),
			slog.Uint64("nonce", tx.Nonce),
			slog.String("error", err.Error()))
		return nil, err
	}
	n.logger.Info("transaction committed",
		slog.String("type", string(tx.Type)),
		slog.String("from", tx.From.Hex()),
		slog.Uint64("height", receipt.Height),
		slog.Int("events", len(receipt.Events)),
		slog.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

func (n *Node) apply(tx *types.Transaction) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	dbtx, err := n.db.Begin()
	if err != nil {
		return nil, err
	}
	defer dbtx.Discard()

	now := n.nowFn()
	buffer := &events.Buffer{}
	l := NewLedgers(dbtx, buffer, func() int64 { return now })

	from := [20]byte(tx.From)
	account, err := l.State.GetAccount(from)
	if err != nil {
		return nil, err
	}
	if account.Nonce != tx.Nonce {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrNonceMismatch, account.Nonce, tx.Nonce)
	}
	value := tx.AttachedValue()
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value", common.ErrPaymentMismatch)
	}
	if value.Sign() > 0 && !tx.Type.Payable() {
		return nil, fmt.Errorf("%w: %s does not accept value", common.ErrPaymentMismatch, tx.Type)
	}

	result, err := dispatch(l, common.Call{Caller: from, Value: value}, tx)
	if err != nil {
		return nil, err
	}

	// Reload: the operation may have moved the caller's balance.
	account, err = l.State.GetAccount(from)
	if err != nil {
		return nil, err
	}
	account.Nonce++
	if err := l.State.PutAccount(from, account); err != nil {
		return nil, err
	}
	height, err := l.State.Height()
	if err != nil {
		return nil, err
	}
	height++
	if err := l.State.SetHeight(height); err != nil {
		return nil, err
	}
	escrow := n.vaultBalances(l)
	if err := dbtx.Commit(); err != nil {
		return nil, fmt.Errorf("core: commit: %w", err)
	}

	receipt := &types.Receipt{
		TxHash: tx.Hash(),
		Height: height,
		Time:   now,
		Result: result,
		Events: make([]types.Event, 0, buffer.Len()),
	}
	for _, evt := range buffer.Events() {
		if typed, ok := evt.(*types.Event); ok && typed != nil {
			receipt.Events = append(receipt.Events, *typed)
		}
		n.emitter.Emit(evt)
		observability.Events().RecordEvent(evt.EventType())
	}
	n.record(height, receipt.Events)
	n.metrics.SetHeight(height)
	for module, balance := range escrow {
		n.metrics.SetEscrow(module, balance)
	}
	n.recordSettlement(result)
	return receipt, nil
}

func (n *Node) vaultBalances(l *Ledgers) map[string]*big.Int {
	out := make(map[string]*big.Int, 4)
	for _, module := range []string{common.ModuleMarket, common.ModuleAuction, common.ModuleOffer, common.ModuleDrop} {
		balance, err := l.Bank.Balance(bank.VaultAddress(module))
		if err != nil {
			continue
		}
		out[module] = balance
	}
	return out
}

func (n *Node) recordSettlement(result interface{}) {
	switch r := result.(type) {
	case *market.Listing:
		if r.Status == market.ListingSold {
			n.metrics.RecordSettlement(common.ModuleMarket, r.Price)
		}
	case *offer.Offer:
		if r.Status == offer.StatusAccepted {
			n.metrics.RecordSettlement(common.ModuleOffer, r.Price)
		}
	case *drop.Purchase:
		n.metrics.RecordSettlement(common.ModuleDrop, r.Price)
	case *auction.Auction:
		if r.Concluded && r.ConcludedAt != 0 {
			n.metrics.RecordSettlement(common.ModuleAuction, r.Escrowed())
		}
	}
}

// View runs fn against a read-only snapshot of the committed state.
func (n *Node) View(fn func(*Ledgers) error) error {
	snap, err := n.db.Snapshot()
	if err != nil {
		return err
	}
	defer snap.Release()
	return fn(NewLedgers(snap, events.NoopEmitter{}, n.nowFn))
}

// Status summarises the node for health and status queries.
type Status struct {
	Height       uint64               `json:"height"`
	Time         int64                `json:"time"`
	Operator     string               `json:"operator"`
	PlatformRate uint32               `json:"platformRate"`
	FeeRecipient string               `json:"feeRecipient"`
	Vaults       map[string]VaultInfo `json:"vaults"`
	Paused       []string             `json:"paused"`
}

// VaultInfo reports a module vault and its escrowed balance.
type VaultInfo struct {
	Address string   `json:"address"`
	Balance *big.Int `json:"balance"`
}

// Status returns the current node status.
func (n *Node) Status() (*Status, error) {
	out := &Status{Time: n.nowFn(), Vaults: make(map[string]VaultInfo), Paused: make([]string, 0)}
	err := n.View(func(l *Ledgers) error {
		height, err := l.State.Height()
		if err != nil {
			return err
		}
		operator, err := l.State.Operator()
		if err != nil {
			return err
		}
		cfg, err := l.State.FeeConfig()
		if err != nil {
			return err
		}
		out.Height = height
		out.Operator = "0x" + hex.EncodeToString(operator[:])
		out.PlatformRate = cfg.PlatformRate
		out.FeeRecipient = "0x" + hex.EncodeToString(cfg.Recipient[:])
		for module, balance := range n.vaultBalances(l) {
			vault := bank.VaultAddress(module)
			out.Vaults[module] = VaultInfo{Address: "0x" + hex.EncodeToString(vault[:]), Balance: balance}
		}
		for _, module := range []string{common.ModuleBank, common.ModuleNFT, common.ModuleMarket, common.ModuleAuction, common.ModuleOffer, common.ModuleDrop} {
			if l.State.IsPaused(module) {
				out.Paused = append(out.Paused, module)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
