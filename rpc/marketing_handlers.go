package rpc

import (
	"net/http"

	"ewill/core/types"
)

type marketingAddDiscountParams struct {
	Caller      string   `json:"caller"`
	Referrer    string   `json:"referrer"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	DiscountBps uint32   `json:"discountBps"`
	RewardBps   uint32   `json:"rewardBps"`
	Providers   []string `json:"providers"`
	ProviderBps []uint32 `json:"providerBps"`
	UsesLimit   int64    `json:"usesLimit"`
}

type marketingDefaultParams struct {
	Caller      string `json:"caller"`
	DiscountBps uint32 `json:"discountBps"`
	RewardBps   uint32 `json:"rewardBps"`
}

type marketingQueryParams struct {
	Referrer string `json:"referrer"`
}

type discountJSON struct {
	Referrer          string            `json:"referrer"`
	Start             int64             `json:"start"`
	End               int64             `json:"end"`
	DiscountBps       uint32            `json:"discountBps"`
	RewardBps         uint32            `json:"rewardBps"`
	ProviderDiscounts map[string]uint32 `json:"providerDiscounts"`
	RemainingUses     int64             `json:"remainingUses"`
}

func (s *Server) handleMarketingAddDiscount(w http.ResponseWriter, req *RPCRequest) {
	var params marketingAddDiscountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddr("caller", params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	referrer, err := parseAddr("referrer", params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	providers := make([]types.Address, 0, len(params.Providers))
	for _, raw := range params.Providers {
		// The zero address is the default-provider key, so it is allowed
		// here.
		addr, err := parseOptionalAddr("providers", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
			return
		}
		providers = append(providers, addr)
	}
	if err := s.node.WithWrite(func() error {
		return s.node.Marketing.AddDiscount(caller, referrer, params.Start, params.End, params.DiscountBps, params.RewardBps, providers, params.ProviderBps, params.UsesLimit)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleMarketingSetDefaultDiscount(w http.ResponseWriter, req *RPCRequest) {
	var params marketingDefaultParams
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
		return s.node.Marketing.SetDefaultDiscount(caller, params.DiscountBps, params.RewardBps)
	}); err != nil {
		s.writeEngineError(w, req, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleMarketingGetDiscount(w http.ResponseWriter, req *RPCRequest) {
	var params marketingQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	referrer, err := parseAddr("referrer", params.Referrer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	discount, ok := s.node.Marketing.DiscountInfo(referrer)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeNotFound, "not_found", "no discount registered for referrer")
		return
	}
	providerDiscounts := make(map[string]uint32, len(discount.ProviderDiscounts))
	for provider, bps := range discount.ProviderDiscounts {
		providerDiscounts[provider.Hex()] = bps
	}
	writeResult(w, req.ID, discountJSON{
		Referrer:          discount.Referrer.Hex(),
		Start:             discount.Start,
		End:               discount.End,
		DiscountBps:       discount.DiscountBps,
		RewardBps:         discount.RewardBps,
		ProviderDiscounts: providerDiscounts,
		RemainingUses:     discount.RemainingUses,
	})
}
