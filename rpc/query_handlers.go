package rpc

import (
	"net/http"
)

type addressParams struct {
	Address string `json:"address"`
}

type balanceResult struct {
	Address        string `json:"address"`
	Balance        string `json:"balance"`
	Spendable      string `json:"spendable"`
	PrefundedFees  string `json:"prefundedFees"`
	IncentiveCreds string `json:"incentiveCredits"`
	RiskScoreBps   uint64 `json:"riskScoreBps"`
}

func (s *Server) handleGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	spendable, err := s.ledger.SpendableBalanceOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	prefund, err := s.ledger.PrefundedFeesOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	credits, err := s.ledger.IncentiveCreditsOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	score, err := s.ledger.RiskScoreOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{
		Address:        formatAddress(addr),
		Balance:        formatAmount(balance),
		Spendable:      formatAmount(spendable),
		PrefundedFees:  formatAmount(prefund),
		IncentiveCreds: formatAmount(credits),
		RiskScoreBps:   score,
	})
}

func (s *Server) handleGetTotalSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalSupply": formatAmount(supply)})
}

func (s *Server) handleGetRiskScore(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	score, err := s.ledger.RiskScoreOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"riskScoreBps": score})
}

type pendingReceiptResult struct {
	Recipient   string `json:"recipient"`
	Sender      string `json:"sender"`
	Amount      string `json:"amount"`
	FeeAssessed string `json:"feeAssessed"`
	ExpiryTime  int64  `json:"expiryTime"`
	Reversed    bool   `json:"reversed"`
	Finalized   bool   `json:"finalized"`
}

func (s *Server) handleGetPendingReceipt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, ok, err := s.ledger.PendingReceiptOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, pendingReceiptResult{
		Recipient:   formatAddress(addr),
		Sender:      formatAddress(receipt.Sender),
		Amount:      formatAmount(receipt.Amount),
		FeeAssessed: formatAmount(receipt.FeeAssessed),
		ExpiryTime:  receipt.ExpiryTime,
		Reversed:    receipt.Reversed,
		Finalized:   receipt.Finalized,
	})
}

type settlementWindowResult struct {
	Wallet           string `json:"wallet"`
	Originator       string `json:"originator"`
	CommitWindowEnd  int64  `json:"commitWindowEnd"`
	HalfLifeDuration int64  `json:"halfLifeDuration"`
	TransferCount    uint64 `json:"transferCount"`
	TotalFeeAssessed string `json:"totalFeeAssessed"`
	Reversed         bool   `json:"reversed"`
}

func (s *Server) handleGetSettlementWindow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params addressParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	window, ok, err := s.ledger.SettlementWindowOf(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	if !ok {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, settlementWindowResult{
		Wallet:           formatAddress(addr),
		Originator:       formatAddress(window.Originator),
		CommitWindowEnd:  window.CommitWindowEnd,
		HalfLifeDuration: window.HalfLifeDuration,
		TransferCount:    window.TransferCount,
		TotalFeeAssessed: formatAmount(window.TotalFeeAssessed),
		Reversed:         window.Reversed,
	})
}

type feeEstimateParams struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type feeEstimateResult struct {
	Amount      string `json:"amount"`
	BaseFee     string `json:"baseFee"`
	TotalFee    string `json:"totalFee"`
	RiskBps     uint64 `json:"riskBps"`
	ScalerBps   uint64 `json:"scalerBps"`
	Bound       string `json:"bound"`
	FromPrefund string `json:"fromPrefund"`
	FromCredits string `json:"fromCredits"`
	FromBalance string `json:"fromBalance"`
}

func (s *Server) handleEstimateTransferFee(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params feeEstimateParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	sender, err := parseAddress(params.Sender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	estimate, err := s.ledger.EstimateTransferFeeDetails(sender, recipient, amount)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, feeEstimateResult{
		Amount:      formatAmount(estimate.Quote.Amount),
		BaseFee:     formatAmount(estimate.Quote.BaseFee),
		TotalFee:    formatAmount(estimate.Quote.TotalFee),
		RiskBps:     estimate.Quote.RiskBps,
		ScalerBps:   estimate.Quote.ScalerBps,
		Bound:       string(estimate.Quote.Bound),
		FromPrefund: formatAmount(estimate.FromPrefund),
		FromCredits: formatAmount(estimate.FromCredits),
		FromBalance: formatAmount(estimate.FromBalance),
	})
}

type liabilityParams struct {
	Debtor   string `json:"debtor"`
	Creditor string `json:"creditor"`
}

func (s *Server) handleGetNetLiability(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.netting == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "liability ledger unavailable", nil)
		return
	}
	var params liabilityParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtor, err := parseAddress(params.Debtor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	creditor, err := parseAddress(params.Creditor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	net, err := s.netting.Net(debtor, creditor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]string{"netLiability": formatAmount(net)})
}
