package rpc

import (
	"net/http"

	"ewill/core/types"
	"ewill/native/platform"
)

type willCreateParams struct {
	Caller          string `json:"caller"`
	Nonce           uint64 `json:"nonce"`
	Description     string `json:"description"`
	InfoID          uint64 `json:"infoId"`
	Years           uint64 `json:"years"`
	BeneficiaryHash string `json:"beneficiaryHash"`
	Provider        string `json:"provider"`
	Referrer        string `json:"referrer"`
	EtherValue      string `json:"etherValue"`
}

type willActorParams struct {
	Caller string `json:"caller"`
	WillID string `json:"willId"`
}

type willApplyParams struct {
	Caller      string `json:"caller"`
	WillID      string `json:"willId"`
	Beneficiary string `json:"beneficiary"`
}

type willRefreshParams struct {
	Caller    string `json:"caller"`
	WillID    string `json:"willId"`
	AutoRenew bool   `json:"autoRenew"`
}

type willProlongParams struct {
	Caller     string `json:"caller"`
	WillID     string `json:"willId"`
	Years      uint64 `json:"years"`
	EtherValue string `json:"etherValue"`
}

type willQueryParams struct {
	WillID string `json:"willId"`
}

type willOwnerParams struct {
	Owner string `json:"owner"`
}

type willJSON struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Provider    string `json:"provider"`
	Beneficiary string `json:"beneficiary"`
	Description string `json:"description"`
	InfoID      uint64 `json:"infoId"`
	CreatedAt   int64  `json:"createdAt"`
	ValidTill   int64  `json:"validTill"`
	RefreshedAt int64  `json:"refreshedAt"`
	YearsPaid   uint64 `json:"yearsPaid"`
	AutoRenew   bool   `json:"autoRenew"`
	Referrer    string `json:"referrer"`
	State       string `json:"state"`
}

func willToJSON(w *platform.Will) willJSON {
	return willJSON{
		ID:          hash32Hex(w.ID),
		Owner:       w.Owner.Hex(),
		Provider:    w.Provider.Hex(),
		Beneficiary: w.Beneficiary.Hex(),
		Description: w.Description,
		InfoID:      w.InfoID,
		CreatedAt:   w.CreatedAt,
		ValidTill:   w.ValidTill,
		RefreshedAt: w.RefreshedAt,
		YearsPaid:   w.YearsPaid,
		AutoRenew:   w.AutoRenew,
		Referrer:    w.Referrer.Hex(),
		State:       w.State.String(),
	}
}

func (s *Server) handleWillCreate(w http.ResponseWriter, req *RPCRequest) {
	var params willCreateParams
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
	referrer, err := parseOptionalAddr("referrer", params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	beneficiaryHash, err := parseHash32("beneficiaryHash", params.BeneficiaryHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	etherValue, err := parseAmount("etherValue", params.EtherValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id := platform.WillID(provider, params.Nonce)
	if err := s.node.WithWrite(func() error {
		return s.node.Platform.CreateWill(caller, id, params.Description, params.InfoID, params.Years, beneficiaryHash, provider, referrer, etherValue)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"willId": hash32Hex(id)})
}

func (s *Server) handleWillActivate(w http.ResponseWriter, req *RPCRequest) {
	s.handleWillActorOp(w, req, s.node.Platform.ActivateWill)
}

func (s *Server) handleWillClaim(w http.ResponseWriter, req *RPCRequest) {
	s.handleWillActorOp(w, req, s.node.Platform.ClaimWill)
}

func (s *Server) handleWillDelete(w http.ResponseWriter, req *RPCRequest) {
	s.handleWillActorOp(w, req, s.node.Platform.DeleteWill)
}

func (s *Server) handleWillReject(w http.ResponseWriter, req *RPCRequest) {
	s.handleWillActorOp(w, req, s.node.Platform.RejectWill)
}

func (s *Server) handleWillActorOp(w http.ResponseWriter, req *RPCRequest, op func(caller types.Address, id [32]byte) error) {
	var params willActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash32("willId", params.WillID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return op(caller, id)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWillApply(w http.ResponseWriter, req *RPCRequest) {
	var params willApplyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash32("willId", params.WillID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	beneficiary, err := parseAddr("beneficiary", params.Beneficiary)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Platform.ApplyWill(caller, id, beneficiary)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWillRefresh(w http.ResponseWriter, req *RPCRequest) {
	var params willRefreshParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash32("willId", params.WillID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Platform.RefreshWill(caller, id, params.AutoRenew)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWillProlong(w http.ResponseWriter, req *RPCRequest) {
	var params willProlongParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash32("willId", params.WillID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	etherValue, err := parseAmount("etherValue", params.EtherValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Platform.ProlongWill(caller, id, params.Years, etherValue)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWillGet(w http.ResponseWriter, req *RPCRequest) {
	var params willQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseHash32("willId", params.WillID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	will, err := s.node.Platform.WillByID(id)
	if err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, willToJSON(will))
}

func (s *Server) handleWillListByOwner(w http.ResponseWriter, req *RPCRequest) {
	var params willOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddr("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	ids := s.node.Platform.WillsOf(owner)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, hash32Hex(id))
	}
	writeResult(w, req.ID, map[string][]string{"willIds": out})
}
