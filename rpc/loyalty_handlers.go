package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"loyaltyledger/crypto"
	"loyaltyledger/native/loyalty"
)

type initializeParams struct {
	Admin       string `json:"admin"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	EarnRate    string `json:"earnRate"`
	MinPurchase string `json:"minPurchase"`
}

type earnPointsParams struct {
	Caller         string `json:"caller"`
	PurchaseAmount string `json:"purchaseAmount"`
}

type redeemPointsParams struct {
	Caller string `json:"caller"`
	Points string `json:"points"`
}

type transferParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type mintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type burnParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type updateRatesParams struct {
	Caller      string `json:"caller"`
	EarnRate    string `json:"earnRate"`
	MinPurchase string `json:"minPurchase"`
}

type addressParams struct {
	Address string `json:"address"`
}

type transactionResult struct {
	Amount    string `json:"amount"`
	Kind      string `json:"kind"`
	Timestamp uint64 `json:"timestamp"`
}

type userStatsResult struct {
	TotalEarned      string `json:"totalEarned"`
	TotalRedeemed    string `json:"totalRedeemed"`
	TransactionCount uint64 `json:"transactionCount"`
	LastActivity     uint64 `json:"lastActivity"`
}

type tokenInfoResult struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	TotalSupply string `json:"totalSupply"`
}

type rewardRatesResult struct {
	EarnRate    string `json:"earnRate"`
	MinPurchase string `json:"minPurchase"`
}

type balanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func decodeParams(params []json.RawMessage, out interface{}) *RPCError {
	if len(params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "expected a single params object"}
	}
	if err := json.Unmarshal(params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func parseAddress(field, value string) (crypto.Address, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, &RPCError{
			Code:    codeInvalidParams,
			Message: fmt.Sprintf("invalid %s address: %v", field, err),
		}
	}
	return addr, nil
}

func parseAmount(field, value string) (*big.Int, *RPCError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s is required", field)}
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf("%s must be a base-10 integer", field)}
	}
	return amount, nil
}

func ledgerError(err error) *RPCError {
	return &RPCError{Code: errorCode(err), Message: err.Error(), Data: errorKind(err)}
}

func (s *Server) handleInitialize(params []json.RawMessage) (interface{}, *RPCError) {
	var p initializeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	admin, rpcErr := parseAddress("admin", p.Admin)
	if rpcErr != nil {
		return nil, rpcErr
	}
	earnRate, rpcErr := parseAmount("earnRate", p.EarnRate)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minPurchase, rpcErr := parseAmount("minPurchase", p.MinPurchase)
	if rpcErr != nil {
		return nil, rpcErr
	}
	rates := &loyalty.RewardRates{EarnRate: earnRate, MinPurchase: minPurchase}
	if err := s.engine.Initialize(admin, p.Name, p.Symbol, rates); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"initialized": true}, nil
}

func (s *Server) handleEarnPoints(params []json.RawMessage) (interface{}, *RPCError) {
	var p earnPointsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("purchaseAmount", p.PurchaseAmount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	points, err := s.engine.EarnPoints(caller, amount)
	if err != nil {
		return nil, ledgerError(err)
	}
	return map[string]string{"points": points.String()}, nil
}

func (s *Server) handleRedeemPoints(params []json.RawMessage) (interface{}, *RPCError) {
	var p redeemPointsParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	points, rpcErr := parseAmount("points", p.Points)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.RedeemPoints(caller, points); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"redeemed": true}, nil
}

func (s *Server) handleTransfer(params []json.RawMessage) (interface{}, *RPCError) {
	var p transferParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Transfer(from, to, amount); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"transferred": true}, nil
}

func (s *Server) handleMint(params []json.RawMessage) (interface{}, *RPCError) {
	var p mintParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Mint(caller, to, amount); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"minted": true}, nil
}

func (s *Server) handleBurn(params []json.RawMessage) (interface{}, *RPCError) {
	var p burnParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddress("from", p.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmount("amount", p.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Burn(caller, from, amount); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"burned": true}, nil
}

func (s *Server) handleUpdateRewardRates(params []json.RawMessage) (interface{}, *RPCError) {
	var p updateRatesParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddress("caller", p.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	earnRate, rpcErr := parseAmount("earnRate", p.EarnRate)
	if rpcErr != nil {
		return nil, rpcErr
	}
	minPurchase, rpcErr := parseAmount("minPurchase", p.MinPurchase)
	if rpcErr != nil {
		return nil, rpcErr
	}
	rates := &loyalty.RewardRates{EarnRate: earnRate, MinPurchase: minPurchase}
	if err := s.engine.UpdateRewardRates(caller, rates); err != nil {
		return nil, ledgerError(err)
	}
	return map[string]bool{"updated": true}, nil
}

func (s *Server) handleGetBalance(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	balance, err := s.engine.GetBalance(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &balanceResult{Address: addr.String(), Balance: balance.String()}, nil
}

func (s *Server) handleGetUserStats(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	stats, err := s.engine.GetUserStats(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	return &userStatsResult{
		TotalEarned:      stats.TotalEarned.String(),
		TotalRedeemed:    stats.TotalRedeemed.String(),
		TransactionCount: stats.TransactionCount,
		LastActivity:     stats.LastActivity,
	}, nil
}

func (s *Server) handleGetTransactionHistory(params []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	history, err := s.engine.GetTransactionHistory(addr)
	if err != nil {
		return nil, ledgerError(err)
	}
	results := make([]transactionResult, 0, len(history))
	for _, tx := range history {
		results = append(results, transactionResult{
			Amount:    tx.Amount.String(),
			Kind:      tx.Kind.String(),
			Timestamp: tx.Timestamp,
		})
	}
	return results, nil
}

func (s *Server) handleGetTokenInfo(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) > 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "method takes no params"}
	}
	info, err := s.engine.GetTokenInfo()
	if err != nil {
		return nil, ledgerError(err)
	}
	return &tokenInfoResult{
		Name:        info.Name,
		Symbol:      info.Symbol,
		TotalSupply: info.TotalSupply.String(),
	}, nil
}

func (s *Server) handleGetRewardRates(params []json.RawMessage) (interface{}, *RPCError) {
	if len(params) > 0 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "method takes no params"}
	}
	rates, err := s.engine.GetRewardRates()
	if err != nil {
		return nil, ledgerError(err)
	}
	if rates == nil {
		return nil, ledgerError(loyalty.ErrRatesNotSet)
	}
	return &rewardRatesResult{
		EarnRate:    rates.EarnRate.String(),
		MinPurchase: rates.MinPurchase.String(),
	}, nil
}
