package rpc

import (
	"math/big"
	"net/http"
)

type financeTotalFeeParams struct {
	Years    uint64 `json:"years"`
	Provider string `json:"provider"`
	Referrer string `json:"referrer"`
}

type financeTotalFeeResult struct {
	GrossCents    uint64 `json:"grossCents"`
	RewardCents   uint64 `json:"rewardCents"`
	DiscountCents uint64 `json:"discountCents"`
	GrossTokens   string `json:"grossTokens"`
	GrossEthers   string `json:"grossEthers"`
}

type financeExchangeParams struct {
	Caller string `json:"caller"`
	Tokens string `json:"tokens"`
}

type financeDepositParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type financeBalanceParams struct {
	Address string `json:"address"`
}

func (s *Server) handleFinanceTotalFee(w http.ResponseWriter, req *RPCRequest) {
	var params financeTotalFeeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	provider, err := parseAddr("provider", params.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	referrer, err := parseOptionalAddr("referrer", params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	gross, reward, discount, err := s.node.Finance.TotalFee(params.Years, provider, referrer)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	grossTokens, _, _, err := s.node.Finance.TotalFeeTokens(params.Years, provider, referrer)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	grossEthers, _, _, err := s.node.Finance.TotalFeeEthers(params.Years, provider, referrer)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, financeTotalFeeResult{
		GrossCents:    gross,
		RewardCents:   reward,
		DiscountCents: discount,
		GrossTokens:   grossTokens.String(),
		GrossEthers:   grossEthers.String(),
	})
}

func (s *Server) handleFinanceExchangeTokens(w http.ResponseWriter, req *RPCRequest) {
	var params financeExchangeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	tokens, err := parseAmount("tokens", params.Tokens)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var payout *big.Int
	if err := s.node.WithWrite(func() error {
		var innerErr error
		payout, innerErr = s.node.Finance.ExchangeTokens(caller, tokens)
		return innerErr
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"payout": payout.String()})
}

func (s *Server) handleFinanceDepositEther(w http.ResponseWriter, req *RPCRequest) {
	var params financeDepositParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddr("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Finance.DepositEther(addr, amount)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleFinanceEtherBalance(w http.ResponseWriter, req *RPCRequest) {
	var params financeBalanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddr("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.Finance.EtherBalance(addr)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.String()})
}
