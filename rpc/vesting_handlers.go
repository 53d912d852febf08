package rpc

import (
	"net/http"

	"tokenvesting/crypto"
	"tokenvesting/native/vesting"
)

func requireNoParams(req *RPCRequest) *rpcFailure {
	if len(req.Params) != 0 {
		return invalidParams("method takes no parameters", nil)
	}
	return nil
}

func (s *Server) handleGetToken(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	addr, err := s.node.Engine().GetToken()
	if err != nil {
		return nil, engineFailure(err)
	}
	meta := s.node.Token()
	return TokenResult{
		Address:  formatAddress(addr),
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
	}, nil
}

func (s *Server) handleSetTGE(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	var params setTGEParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	err := s.node.Engine().SetTGE(caller, vesting.TGE{
		AdvisersPartnerships: params.AdvisersAndPartnerships,
		Marketing:            params.Marketing,
		ReserveFunds:         params.ReserveFunds,
	})
	if err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true}, nil
}

func (s *Server) handleCalculatePools(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	if err := s.node.Engine().CalculatePools(caller); err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true}, nil
}

func (s *Server) handleGetWithdrawableAmount(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	amount, err := s.node.Engine().GetWithdrawableAmount()
	if err != nil {
		return nil, engineFailure(err)
	}
	return AmountResult{Amount: formatAmount(amount)}, nil
}

func (s *Server) handleWithdrawFromTGEBank(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	var params withdrawParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams("invalid amount", err)
	}
	if err := s.node.Engine().WithdrawFromTGEBank(caller, vesting.Category(params.Category), amount); err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true}, nil
}

func (s *Server) handleCreateVestingSchedule(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	var params createScheduleParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	beneficiary, err := crypto.ParseAddress(params.Beneficiary)
	if err != nil {
		return nil, invalidParams("invalid beneficiary", err)
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams("invalid amount", err)
	}
	id, err := s.node.Engine().CreateVestingSchedule(caller, vesting.CreateParams{
		Category:           vesting.Category(params.Category),
		Beneficiary:        beneficiary,
		Start:              params.Start,
		Cliff:              params.Cliff,
		Duration:           params.Duration,
		SlicePeriodSeconds: params.SlicePeriodSeconds,
		Revocable:          params.Revocable,
		Amount:             amount,
	})
	if err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true, ID: formatID(id)}, nil
}

func (s *Server) handleGetVestingSchedulesCount(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	count, err := s.node.Engine().GetVestingSchedulesCount()
	if err != nil {
		return nil, engineFailure(err)
	}
	return CountResult{Count: count}, nil
}

func (s *Server) handleGetVestingSchedulesCountByBeneficiary(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	holder, fail := decodeHolder(req)
	if fail != nil {
		return nil, fail
	}
	count, err := s.node.Engine().GetVestingSchedulesCountByBeneficiary(holder)
	if err != nil {
		return nil, engineFailure(err)
	}
	return CountResult{Count: count}, nil
}

func (s *Server) handleGetVestingIDAtIndex(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	var params indexParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	id, err := s.node.Engine().GetVestingIDAtIndex(params.Index)
	if err != nil {
		return nil, engineFailure(err)
	}
	return ScheduleIDResult{ID: formatID(id)}, nil
}

func (s *Server) handleGetVestingSchedule(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	id, category, fail := decodeScheduleID(req)
	if fail != nil {
		return nil, fail
	}
	schedule, err := s.node.Engine().GetVestingSchedule(id, category)
	if err != nil {
		return nil, engineFailure(err)
	}
	return newScheduleResult(schedule), nil
}

func (s *Server) handleGetVestingScheduleByAddressAndIndex(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	holder, index, fail := decodeHolderIndex(req)
	if fail != nil {
		return nil, fail
	}
	schedule, err := s.node.Engine().GetVestingScheduleByAddressAndIndex(holder, index)
	if err != nil {
		return nil, engineFailure(err)
	}
	return newScheduleResult(schedule), nil
}

func (s *Server) handleGetLastVestingScheduleForHolder(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	holder, fail := decodeHolder(req)
	if fail != nil {
		return nil, fail
	}
	schedule, err := s.node.Engine().GetLastVestingScheduleForHolder(holder)
	if err != nil {
		return nil, engineFailure(err)
	}
	return newScheduleResult(schedule), nil
}

func (s *Server) handleComputeReleasableAmount(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	id, category, fail := decodeScheduleID(req)
	if fail != nil {
		return nil, fail
	}
	amount, err := s.node.Engine().ComputeReleasableAmount(id, category)
	if err != nil {
		return nil, engineFailure(err)
	}
	return AmountResult{Amount: formatAmount(amount)}, nil
}

func (s *Server) handleComputeVestingScheduleIDForAddressAndIndex(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	holder, index, fail := decodeHolderIndex(req)
	if fail != nil {
		return nil, fail
	}
	id := s.node.Engine().ComputeVestingScheduleIDForAddressAndIndex(holder, index)
	return ScheduleIDResult{ID: formatID(id)}, nil
}

func (s *Server) handleComputeNextVestingScheduleIDForHolder(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	holder, fail := decodeHolder(req)
	if fail != nil {
		return nil, fail
	}
	id, err := s.node.Engine().ComputeNextVestingScheduleIDForHolder(holder)
	if err != nil {
		return nil, engineFailure(err)
	}
	return ScheduleIDResult{ID: formatID(id)}, nil
}

func (s *Server) handleRelease(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	var params releaseParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	id, err := parseScheduleID(params.ID)
	if err != nil {
		return nil, invalidParams("invalid schedule id", err)
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		return nil, invalidParams("invalid amount", err)
	}
	if err := s.node.Engine().Release(caller, id, amount, vesting.Category(params.Category)); err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true, ID: formatID(id)}, nil
}

func (s *Server) handleRevoke(_ *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure) {
	var params revokeParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	id, err := parseScheduleID(params.ID)
	if err != nil {
		return nil, invalidParams("invalid schedule id", err)
	}
	if err := s.node.Engine().Revoke(caller, id, vesting.Category(params.Category)); err != nil {
		return nil, engineFailure(err)
	}
	return TxResult{OK: true, ID: formatID(id)}, nil
}

func (s *Server) handleGetPools(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	pools, err := s.node.Engine().GetPools()
	if err != nil {
		return nil, engineFailure(err)
	}
	out := make([]PoolResult, 0, len(pools))
	for _, pool := range pools {
		out = append(out, newPoolResult(pool))
	}
	return out, nil
}

func (s *Server) handleGetTGE(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	tge, err := s.node.Engine().GetTGE()
	if err != nil {
		return nil, engineFailure(err)
	}
	return TGEResult{
		AdvisersAndPartnerships: tge.AdvisersPartnerships,
		Marketing:               tge.Marketing,
		ReserveFunds:            tge.ReserveFunds,
	}, nil
}

func (s *Server) handleGetOwner(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	owner, err := s.node.Engine().Owner()
	if err != nil {
		return nil, engineFailure(err)
	}
	return OwnerResult{Owner: formatAddress(owner), Vault: formatAddress(s.node.Engine().Vault())}, nil
}

func (s *Server) handleBalanceOf(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	var params addressParams
	if fail := decodeParams(req, &params); fail != nil {
		return nil, fail
	}
	addr, err := crypto.ParseAddress(params.Address)
	if err != nil {
		return nil, invalidParams("invalid address", err)
	}
	balance, err := s.node.BalanceOf(addr)
	if err != nil {
		return nil, engineFailure(err)
	}
	return AmountResult{Amount: formatAmount(balance)}, nil
}

func (s *Server) handleTotalSupply(_ *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	supply, err := s.node.TotalSupply()
	if err != nil {
		return nil, engineFailure(err)
	}
	return AmountResult{Amount: formatAmount(supply)}, nil
}

func (s *Server) handleAuditVerify(r *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	if fail := requireNoParams(req); fail != nil {
		return nil, fail
	}
	if s.journal == nil {
		return nil, failure(http.StatusServiceUnavailable, codeServerError, "audit journal disabled", nil)
	}
	result, err := s.journal.Verify(r.Context())
	if err != nil {
		return nil, failure(http.StatusInternalServerError, codeServerError, "audit verification failed", err.Error())
	}
	return result, nil
}

func decodeHolder(req *RPCRequest) ([20]byte, *rpcFailure) {
	var params holderParams
	if fail := decodeParams(req, &params); fail != nil {
		return [20]byte{}, fail
	}
	holder, err := crypto.ParseAddress(params.Holder)
	if err != nil {
		return [20]byte{}, invalidParams("invalid holder", err)
	}
	return holder, nil
}

func decodeHolderIndex(req *RPCRequest) ([20]byte, uint64, *rpcFailure) {
	var params holderIndexParams
	if fail := decodeParams(req, &params); fail != nil {
		return [20]byte{}, 0, fail
	}
	holder, err := crypto.ParseAddress(params.Holder)
	if err != nil {
		return [20]byte{}, 0, invalidParams("invalid holder", err)
	}
	return holder, params.Index, nil
}

// decodeScheduleID reads the schedule id and its optional category, which
// defaults to the first pool.
func decodeScheduleID(req *RPCRequest) ([32]byte, vesting.Category, *rpcFailure) {
	var params scheduleIDParams
	if fail := decodeParams(req, &params); fail != nil {
		return [32]byte{}, 0, fail
	}
	id, err := parseScheduleID(params.ID)
	if err != nil {
		return [32]byte{}, 0, invalidParams("invalid schedule id", err)
	}
	return id, vesting.Category(params.Category), nil
}
