package rpc

import (
	"net/http"

	"halochain/native/compliance"
)

type transferParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
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
	if err := s.ledger.Transfer(caller, recipient, amount); err != nil {
		s.metrics.TransferProcessed("error")
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.TransferProcessed("ok")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type transferFromParams struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTransferFrom(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params transferFromParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	from, err := parseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.TransferFrom(caller, from, to, amount); err != nil {
		s.metrics.TransferProcessed("error")
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.TransferProcessed("ok")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type approveParams struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Server) handleApprove(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params approveParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	spender, err := parseAddress(params.Spender)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Approve(caller, spender, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type issuanceParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient,omitempty"`
	Account   string `json:"account,omitempty"`
	Amount    string `json:"amount"`
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params issuanceParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
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
	if err := s.ledger.Mint(caller, recipient, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.IssuanceProcessed("mint")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleBurn(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params issuanceParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.Burn(caller, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.IssuanceProcessed("burn")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleBurnFrom(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params issuanceParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := parseAddress(params.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.BurnFrom(caller, account, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.IssuanceProcessed("burn")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type prefundParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

func (s *Server) handlePrefundFees(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params prefundParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.PrefundFees(caller, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleWithdrawPrefundedFees(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params prefundParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.WithdrawPrefundedFees(caller, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type halfLifeParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient,omitempty"`
	Wallet    string `json:"wallet,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

func (s *Server) handleReverseRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params halfLifeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.ReverseRecipientTransfer(caller); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.ReversalProcessed("recipient")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleFinalizeRecipient(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params halfLifeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.FinalizeRecipientTransfer(caller, recipient); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.FinalizationProcessed()
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleReverseSender(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params halfLifeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
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
	if err := s.ledger.ReverseSenderTransfer(caller, recipient, amount); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	s.metrics.ReversalProcessed("sender")
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleCheckExpiry(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params halfLifeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	wallet, err := parseAddress(params.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.CheckSenderHalfLifeExpiry(caller, wallet); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

// --- administration ---

type adminParams struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury,omitempty"`
	Wallet   string `json:"wallet,omitempty"`
	Address  string `json:"address,omitempty"`
	Role     string `json:"role,omitempty"`
	Module   string `json:"module,omitempty"`
	Paused   bool   `json:"paused,omitempty"`
	Min      int64  `json:"min,omitempty"`
	Max      int64  `json:"max,omitempty"`
	Duration int64  `json:"duration,omitempty"`
	Period   int64  `json:"period,omitempty"`
}

func (s *Server) handleSetTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	treasury, err := parseAddress(params.Treasury)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetTreasury(caller, treasury); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetHalfLifeBounds(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetHalfLifeBounds(caller, params.Min, params.Max); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetHalfLifeDuration(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetHalfLifeDuration(caller, params.Duration); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetInactivityPeriod(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.SetInactivityPeriod(caller, params.Period); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleFlagAbnormal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	wallet, err := parseAddress(params.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.ledger.FlagAbnormalTransaction(caller, wallet); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleGrantRole(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, req, true)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.handleRoleChange(w, req, false)
}

func (s *Server) handleRoleChange(w http.ResponseWriter, req *RPCRequest, grant bool) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if params.Role == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "role required", nil)
		return
	}
	if grant {
		err = s.ledger.GrantRole(caller, params.Role, addr)
	} else {
		err = s.ledger.RevokeRole(caller, params.Role, addr)
	}
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params adminParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if params.Module == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "module required", nil)
		return
	}
	if err := s.ledger.SetPaused(caller, params.Module, params.Paused); err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

// --- compliance ---

type attestParams struct {
	Custodian  string `json:"custodian"`
	Wallet     string `json:"wallet"`
	VerifiedAt int64  `json:"verifiedAt"`
	ExpiresAt  int64  `json:"expiresAt"`
}

func (s *Server) handleComplianceAttest(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "registry unavailable", nil)
		return
	}
	var params attestParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	custodian, err := parseAddress(params.Custodian)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	wallet, err := parseAddress(params.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	rec := &compliance.KYCRecord{
		Custodian:  custodian,
		VerifiedAt: params.VerifiedAt,
		ExpiresAt:  params.ExpiresAt,
	}
	if err := s.registry.Attest(wallet, rec); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type custodianParams struct {
	Custodian string `json:"custodian"`
}

func (s *Server) handleRegisterCustodian(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.registry == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "registry unavailable", nil)
		return
	}
	var params custodianParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	custodian, err := parseAddress(params.Custodian)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.registry.RegisterCustodian(custodian); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
