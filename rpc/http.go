package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tokenvesting/native/token"
	"tokenvesting/native/vesting"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020

	codeInvalidDuration          = -32030
	codeInvalidSlicePeriod       = -32031
	codeInvalidAmount            = -32032
	codeInsufficientFunds        = -32033
	codeInsufficientVestedAmount = -32034
	codeNotRevocable             = -32035
	codeInsufficientBankBalance  = -32036
	codeScheduleNotFound         = -32037
	codeScheduleRevoked          = -32038
	codeInvalidCategory          = -32039
	codeTransferFailed           = -32040
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rpcFailure pairs a JSON-RPC error with the HTTP status to send it with.
type rpcFailure struct {
	status int
	err    *RPCError
}

func failure(status, code int, message string, data interface{}) *rpcFailure {
	return &rpcFailure{status: status, err: &RPCError{Code: code, Message: message, Data: data}}
}

func invalidParams(message string, err error) *rpcFailure {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return failure(http.StatusBadRequest, codeInvalidParams, message, data)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle decodes a JSON-RPC request and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "rpc."+req.Method)
	defer span.End()
	r = r.WithContext(ctx)

	started := time.Now()
	result, fail := s.dispatch(r, req)
	code := 0
	if fail != nil {
		code = fail.err.Code
		span.SetStatus(codes.Error, fail.err.Message)
	}
	span.SetAttributes(attribute.String("rpc.method", req.Method), attribute.Int("rpc.code", code))
	s.metrics.Observe(req.Method, code, time.Since(started))

	if fail != nil {
		s.logger.Debug("rpc call failed",
			slog.String("method", req.Method),
			slog.Int("code", code),
			slog.String("message", fail.err.Message))
		writeError(w, fail.status, req.ID, fail.err.Code, fail.err.Message, fail.err.Data)
		return
	}
	writeResult(w, req.ID, result)
}

type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *rpcFailure)

type callerHandlerFunc func(r *http.Request, req *RPCRequest, caller [20]byte) (interface{}, *rpcFailure)

func (s *Server) dispatch(r *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
	var handler handlerFunc
	switch req.Method {
	case "getToken":
		handler = s.handleGetToken
	case "setTGE":
		handler = s.withCaller(s.handleSetTGE)
	case "calculatePools":
		handler = s.withCaller(s.handleCalculatePools)
	case "getWithdrawableAmount":
		handler = s.handleGetWithdrawableAmount
	case "withdrawFromTGEBank":
		handler = s.withCaller(s.handleWithdrawFromTGEBank)
	case "createVestingSchedule":
		handler = s.withCaller(s.handleCreateVestingSchedule)
	case "getVestingSchedulesCount":
		handler = s.handleGetVestingSchedulesCount
	case "getVestingSchedulesCountByBeneficiary":
		handler = s.handleGetVestingSchedulesCountByBeneficiary
	case "getVestingIdAtIndex":
		handler = s.handleGetVestingIDAtIndex
	case "getVestingSchedule":
		handler = s.handleGetVestingSchedule
	case "getVestingScheduleByAddressAndIndex":
		handler = s.handleGetVestingScheduleByAddressAndIndex
	case "getLastVestingScheduleForHolder":
		handler = s.handleGetLastVestingScheduleForHolder
	case "computeReleasableAmount":
		handler = s.handleComputeReleasableAmount
	case "computeVestingScheduleIdForAddressAndIndex":
		handler = s.handleComputeVestingScheduleIDForAddressAndIndex
	case "computeNextVestingScheduleIdForHolder":
		handler = s.handleComputeNextVestingScheduleIDForHolder
	case "release":
		handler = s.withCaller(s.handleRelease)
	case "revoke":
		handler = s.withCaller(s.handleRevoke)
	case "getPools":
		handler = s.handleGetPools
	case "getTGE":
		handler = s.handleGetTGE
	case "getOwner":
		handler = s.handleGetOwner
	case "balanceOf":
		handler = s.handleBalanceOf
	case "totalSupply":
		handler = s.handleTotalSupply
	case "audit_verify":
		handler = s.handleAuditVerify
	default:
		return nil, failure(http.StatusNotFound, codeMethodNotFound, "method not found", req.Method)
	}
	return handler(r, req)
}

func (s *Server) withCaller(next callerHandlerFunc) handlerFunc {
	return func(r *http.Request, req *RPCRequest) (interface{}, *rpcFailure) {
		caller, err := s.auth.Caller(r)
		if err != nil {
			return nil, failure(http.StatusUnauthorized, codeUnauthorized, "unauthorized", err.Error())
		}
		return next(r, req, caller)
	}
}

// engineFailure maps ledger errors onto JSON-RPC codes.
func engineFailure(err error) *rpcFailure {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case errors.Is(err, vesting.ErrUnauthorized):
		return failure(http.StatusForbidden, codeUnauthorized, msg, nil)
	case errors.Is(err, vesting.ErrInvalidPercent):
		return failure(http.StatusBadRequest, codeInvalidParams, msg, nil)
	case errors.Is(err, vesting.ErrInvalidDuration), errors.Is(err, vesting.ErrTimestampOverflow):
		return failure(http.StatusBadRequest, codeInvalidDuration, msg, nil)
	case errors.Is(err, vesting.ErrInvalidSlicePeriod):
		return failure(http.StatusBadRequest, codeInvalidSlicePeriod, msg, nil)
	case errors.Is(err, vesting.ErrTransferFailed), errors.Is(err, token.ErrInsufficientBalance):
		return failure(http.StatusBadRequest, codeTransferFailed, msg, nil)
	case errors.Is(err, vesting.ErrInvalidAmount), errors.Is(err, token.ErrInvalidAmount):
		return failure(http.StatusBadRequest, codeInvalidAmount, msg, nil)
	case errors.Is(err, vesting.ErrInsufficientFunds):
		return failure(http.StatusBadRequest, codeInsufficientFunds, msg, nil)
	case errors.Is(err, vesting.ErrInsufficientVestedAmount):
		return failure(http.StatusBadRequest, codeInsufficientVestedAmount, msg, nil)
	case errors.Is(err, vesting.ErrNotRevocable):
		return failure(http.StatusBadRequest, codeNotRevocable, msg, nil)
	case errors.Is(err, vesting.ErrInsufficientBankBalance):
		return failure(http.StatusBadRequest, codeInsufficientBankBalance, msg, nil)
	case errors.Is(err, vesting.ErrScheduleNotFound):
		return failure(http.StatusNotFound, codeScheduleNotFound, msg, nil)
	case errors.Is(err, vesting.ErrScheduleRevoked):
		return failure(http.StatusBadRequest, codeScheduleRevoked, msg, nil)
	case errors.Is(err, vesting.ErrInvalidCategory):
		return failure(http.StatusBadRequest, codeInvalidCategory, msg, nil)
	default:
		return failure(http.StatusInternalServerError, codeServerError, "internal error", msg)
	}
}
