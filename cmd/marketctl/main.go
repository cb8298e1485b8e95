package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"marketchain/config"
	"marketchain/rpc/middleware"
)

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("MARKET_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545/rpc"
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "token":
		err = runToken(os.Args[2:])
	case "call":
		err = runCall(os.Args[2:])
	case "send":
		err = runSend(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`usage: marketctl <command> [flags]

commands:
  token   mint a development bearer token for an address
  call    invoke a read method, e.g. marketctl call market_fetchActive
  send    submit a transaction through tx_send`)
}

// runToken signs a token with the node's HMAC secret. Development only.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "", "caller address placed in the sub claim")
	secret := fs.String("secret", os.Getenv(config.EnvJWTSecret), "HMAC secret (defaults to "+config.EnvJWTSecret+")")
	issuer := fs.String("issuer", "marketchain", "iss claim")
	audience := fs.String("audience", "", "aud claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	_ = fs.Parse(args)

	if !common.IsHexAddress(*subject) {
		return fmt.Errorf("subject must be a hex address")
	}
	token, err := middleware.IssueToken(middleware.TokenRequest{
		Secret:   *secret,
		Issuer:   *issuer,
		Audience: *audience,
		Subject:  common.HexToAddress(*subject).Hex(),
		TTL:      *ttl,
	})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	endpoint := fs.String("rpc", defaultRPCEndpoint(), "JSON-RPC endpoint")
	token := fs.String("token", os.Getenv("MARKET_RPC_TOKEN"), "bearer token")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("method required")
	}
	method := fs.Arg(0)
	var params interface{}
	if fs.NArg() > 1 {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(fs.Arg(1)), &raw); err != nil {
			return fmt.Errorf("params must be a JSON object: %w", err)
		}
		params = raw
	}
	result, err := callRPC(*endpoint, *token, method, params)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	endpoint := fs.String("rpc", defaultRPCEndpoint(), "JSON-RPC endpoint")
	token := fs.String("token", os.Getenv("MARKET_RPC_TOKEN"), "bearer token")
	from := fs.String("from", "", "caller address when the node runs without auth")
	txType := fs.String("type", "", "transaction type, e.g. market_buy")
	nonce := fs.Uint64("nonce", 0, "caller nonce")
	value := fs.String("value", "", "attached value")
	data := fs.String("data", "", "payload JSON object")
	_ = fs.Parse(args)

	if strings.TrimSpace(*txType) == "" {
		return fmt.Errorf("type required")
	}
	params := map[string]interface{}{"type": *txType, "nonce": *nonce}
	if *from != "" {
		params["from"] = *from
	}
	if *value != "" {
		params["value"] = *value
	}
	if *data != "" {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(*data), &raw); err != nil {
			return fmt.Errorf("data must be JSON: %w", err)
		}
		params["data"] = raw
	}
	result, err := callRPC(*endpoint, *token, "tx_send", params)
	if err != nil {
		return err
	}
	printJSONResult(result)
	return nil
}

func callRPC(endpoint, token, method string, param interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if param != nil {
		payload["params"] = []interface{}{param}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response from node (HTTP %d)", resp.StatusCode)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("error from node: %s (code %d)", rpcResp.Error.Message, rpcResp.Error.Code)
	}
	return rpcResp.Result, nil
}

func printJSONResult(result json.RawMessage) {
	if len(result) == 0 {
		fmt.Println("No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Println(string(result))
		return
	}
	fmt.Println(buf.String())
}
