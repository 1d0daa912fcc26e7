package rpc

import (
	"net/http"
	"strings"

	"ewill/native/escrow"
)

type escrowRegisterParams struct {
	Caller    string `json:"caller"`
	AnnualFee uint64 `json:"annualFee"`
	InfoID    uint64 `json:"infoId"`
	Delegate  string `json:"delegate"`
}

type escrowActivateParams struct {
	Caller   string `json:"caller"`
	Provider string `json:"provider"`
	State    string `json:"state"`
}

type escrowAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type escrowTargetParams struct {
	Caller   string `json:"caller"`
	Provider string `json:"provider"`
}

type escrowDelegateParams struct {
	Caller      string `json:"caller"`
	NewDelegate string `json:"newDelegate"`
}

type escrowInfoParams struct {
	Caller string `json:"caller"`
	InfoID uint64 `json:"infoId"`
}

type escrowQueryParams struct {
	Provider string `json:"provider"`
}

type providerJSON struct {
	Address      string `json:"address"`
	AnnualFee    uint64 `json:"annualFee"`
	Fund         string `json:"fund"`
	InfoID       uint64 `json:"infoId"`
	Delegate     string `json:"delegate"`
	State        string `json:"state"`
	RegisteredAt int64  `json:"registeredAt"`
	Valid        bool   `json:"valid"`
}

func (s *Server) handleEscrowRegister(w http.ResponseWriter, req *RPCRequest) {
	var params escrowRegisterParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	delegate, err := parseAddr("delegate", params.Delegate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Escrow.Register(caller, params.AnnualFee, params.InfoID, delegate)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowActivateProvider(w http.ResponseWriter, req *RPCRequest) {
	var params escrowActivateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	provider, err := parseAddr("provider", params.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	var target escrow.ProviderState
	switch strings.ToLower(strings.TrimSpace(params.State)) {
	case "", "activated":
		target = escrow.ProviderActivated
	case "whitelisted":
		target = escrow.ProviderWhitelisted
	default:
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "state must be activated or whitelisted")
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Escrow.ActivateProvider(caller, provider, target)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowTopup(w http.ResponseWriter, req *RPCRequest) {
	s.handleEscrowAmountOp(w, req, true)
}

func (s *Server) handleEscrowWithdraw(w http.ResponseWriter, req *RPCRequest) {
	s.handleEscrowAmountOp(w, req, false)
}

func (s *Server) handleEscrowAmountOp(w http.ResponseWriter, req *RPCRequest, topup bool) {
	var params escrowAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
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
		if topup {
			return s.node.Escrow.Topup(caller, amount)
		}
		return s.node.Escrow.Withdraw(caller, amount)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowBanProvider(w http.ResponseWriter, req *RPCRequest) {
	s.handleEscrowBanOp(w, req, true)
}

func (s *Server) handleEscrowUnbanProvider(w http.ResponseWriter, req *RPCRequest) {
	s.handleEscrowBanOp(w, req, false)
}

func (s *Server) handleEscrowBanOp(w http.ResponseWriter, req *RPCRequest, ban bool) {
	var params escrowTargetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	provider, err := parseAddr("provider", params.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		if ban {
			return s.node.Escrow.BanProvider(caller, provider)
		}
		return s.node.Escrow.UnbanProvider(caller, provider)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowChangeDelegate(w http.ResponseWriter, req *RPCRequest) {
	var params escrowDelegateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	delegate, err := parseAddr("newDelegate", params.NewDelegate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Escrow.ChangeDelegate(caller, delegate)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowUpdateInfo(w http.ResponseWriter, req *RPCRequest) {
	var params escrowInfoParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Escrow.UpdateInfo(caller, params.InfoID)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleEscrowGetProvider(w http.ResponseWriter, req *RPCRequest) {
	var params escrowQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	provider, err := parseAddr("provider", params.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	info, err := s.node.Escrow.ProviderInfo(provider)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, providerJSON{
		Address:      info.Address.Hex(),
		AnnualFee:    info.AnnualFee,
		Fund:         info.Fund.String(),
		InfoID:       info.InfoID,
		Delegate:     info.Delegate.Hex(),
		State:        info.State.String(),
		RegisteredAt: info.RegisteredAt,
		Valid:        s.node.Escrow.IsProviderValid(provider),
	})
}
