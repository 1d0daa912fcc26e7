package rpc

import "net/http"

type treasuryPayParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type treasuryStatusResult struct {
	Vault          string `json:"vault"`
	Balance        string `json:"balance"`
	MinLockedFund  string `json:"minLockedFund"`
	LastWithdrawal int64  `json:"lastWithdrawal"`
}

func (s *Server) handleTreasuryPay(w http.ResponseWriter, req *RPCRequest) {
	var params treasuryPayParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	recipient, err := parseAddr("recipient", params.Recipient)
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
		return s.node.Treasury.PayOperationalExpenses(caller, recipient, amount)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleTreasuryStatus(w http.ResponseWriter, req *RPCRequest) {
	balance, err := s.node.Treasury.Balance()
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	last, err := s.node.State().TreasuryLastWithdrawal()
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, treasuryStatusResult{
		Vault:          s.node.Treasury.VaultAddress().Hex(),
		Balance:        balance.String(),
		MinLockedFund:  s.node.Treasury.MinLockedFund().String(),
		LastWithdrawal: last,
	})
}
