package rpc

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"marketchain/core/types"
	"marketchain/rpc/middleware"
)

type txSendParams struct {
	Type  string          `json:"type"`
	From  string          `json:"from,omitempty"`
	Nonce uint64          `json:"nonce"`
	Value string          `json:"value,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// handleSendTransaction applies one ledger operation. With auth enabled the
// caller is the token subject; otherwise the request names it in from.
func (s *Server) handleSendTransaction(r *http.Request, params []json.RawMessage) (interface{}, error) {
	var p txSendParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Type) == "" {
		return nil, invalidParams("type required")
	}
	from, err := s.resolveCaller(r, p.From)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount("value", p.Value)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{
		Type:  types.TxType(strings.TrimSpace(p.Type)),
		From:  common.Address(from),
		Nonce: p.Nonce,
		Value: value,
		Data:  p.Data,
	}
	receipt, err := s.node.Apply(tx)
	if err != nil {
		return nil, err
	}
	return receiptView(receipt), nil
}

func (s *Server) resolveCaller(r *http.Request, from string) ([20]byte, error) {
	if !s.auth.Enabled() {
		return parseAddress("from", from)
	}
	subject, ok := middleware.Subject(r.Context())
	if !ok {
		return [20]byte{}, unauthorized("bearer token required")
	}
	caller, err := parseAddress("subject", subject)
	if err != nil {
		return [20]byte{}, unauthorized("token subject is not an address")
	}
	if strings.TrimSpace(from) != "" {
		claimed, err := parseAddress("from", from)
		if err != nil {
			return [20]byte{}, err
		}
		if claimed != caller {
			return [20]byte{}, unauthorized("from does not match token subject")
		}
	}
	return caller, nil
}
