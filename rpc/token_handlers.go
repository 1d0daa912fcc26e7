package rpc

import "net/http"

type tokenBalanceParams struct {
	Address string `json:"address"`
}

type tokenTransferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type tokenMerchantParams struct {
	Caller   string `json:"caller"`
	Merchant string `json:"merchant"`
}

type tokenMerchantCollectParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type tokenBalanceResult struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func (s *Server) handleTokenGetBalance(w http.ResponseWriter, req *RPCRequest) {
	var params tokenBalanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddr("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.node.Ledger.BalanceOf(addr)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, tokenBalanceResult{Address: addr.Hex(), Balance: balance.String()})
}

func (s *Server) handleTokenTotalSupply(w http.ResponseWriter, req *RPCRequest) {
	supply, err := s.node.Ledger.TotalSupply()
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalSupply": supply.String()})
}

func (s *Server) handleTokenTransfer(w http.ResponseWriter, req *RPCRequest) {
	var params tokenTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseAddr("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddr("to", params.To)
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
		return s.node.Ledger.Transfer(from, to, amount)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleTokenMerchantCollect(w http.ResponseWriter, req *RPCRequest) {
	var params tokenMerchantCollectParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseAddr("from", params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddr("to", params.To)
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
		return s.node.Ledger.MerchantCollect(caller, from, to, amount)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleTokenAddMerchant(w http.ResponseWriter, req *RPCRequest) {
	s.handleTokenMerchantUpdate(w, req, true)
}

func (s *Server) handleTokenRemoveMerchant(w http.ResponseWriter, req *RPCRequest) {
	s.handleTokenMerchantUpdate(w, req, false)
}

func (s *Server) handleTokenMerchantUpdate(w http.ResponseWriter, req *RPCRequest, add bool) {
	var params tokenMerchantParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	merchant, err := parseAddr("merchant", params.Merchant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		if add {
			return s.node.Ledger.AddMerchant(caller, merchant)
		}
		return s.node.Ledger.RemoveMerchant(caller, merchant)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
