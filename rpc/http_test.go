package rpc

import (
	"bytes"
	"fmt"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tokenvesting/native/token"
	"tokenvesting/native/vesting"
)

func TestHandleRejectsMalformedRequests(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	post := func(body string) (int, RPCResponse) {
		resp, err := env.http.Client().Post(env.http.URL+"/rpc", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var out RPCResponse
		require.NoError(t, decodeJSON(resp, &out))
		return resp.StatusCode, out
	}

	status, resp := post("")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)

	status, resp = post("{not json")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeParseError, resp.Error.Code)

	status, resp = post(`{"jsonrpc":"1.0","method":"getToken","id":1}`)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)

	status, resp = post(`{"jsonrpc":"2.0","method":"nope","id":1}`)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	big := bytes.Repeat([]byte("a"), maxRequestBytes+1)
	status, resp = post(string(big))
	require.Equal(t, http.StatusRequestEntityTooLarge, status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestGetTokenAndSupply(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	_, resp := env.call(t, "", "getToken")
	var tok TokenResult
	result(t, resp, &tok)
	require.Equal(t, testToken.Hex(), tok.Address)
	require.Equal(t, "VEST", tok.Symbol)
	require.Equal(t, uint8(18), tok.Decimals)

	_, resp = env.call(t, "", "totalSupply")
	var supply AmountResult
	result(t, resp, &supply)
	require.Equal(t, "100000000", supply.Amount)

	_, resp = env.call(t, "", "balanceOf", addressParams{Address: testVault.Hex()})
	var bal AmountResult
	result(t, resp, &bal)
	require.Equal(t, "100000000", bal.Amount)

	status, resp := env.call(t, "", "getToken", map[string]string{"x": "y"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestMutatingMethodsRequireCallerToken(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	status, resp := env.call(t, "", "calculatePools")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, resp = env.call(t, "garbage", "calculatePools")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	forged, err := IssueCallerToken("other-secret", testIssuer, testAudience, testOwner, 0)
	require.NoError(t, err)
	status, _ = env.call(t, forged, "calculatePools")
	require.Equal(t, http.StatusUnauthorized, status)

	wrongAudience, err := IssueCallerToken(testSecret, testIssuer, "elsewhere", testOwner, 0)
	require.NoError(t, err)
	status, _ = env.call(t, wrongAudience, "calculatePools")
	require.Equal(t, http.StatusUnauthorized, status)

	// Authenticated but not the owner.
	status, resp = env.call(t, env.token(t, testBeneficiary), "calculatePools")
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestVestingLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	owner := env.token(t, testOwner)
	holder := env.token(t, testBeneficiary)

	_, resp := env.call(t, owner, "setTGE", setTGEParams{AdvisersAndPartnerships: 7, Marketing: 5})
	require.Nil(t, resp.Error)
	_, resp = env.call(t, owner, "calculatePools")
	require.Nil(t, resp.Error)

	_, resp = env.call(t, "", "getPools")
	var pools []PoolResult
	result(t, resp, &pools)
	require.Len(t, pools, 3)
	require.Equal(t, "700000", pools[0].TGEBank)
	require.Equal(t, "9300000", pools[0].VestingPool)

	_, resp = env.call(t, "", "getTGE")
	var tge TGEResult
	result(t, resp, &tge)
	require.Equal(t, uint8(7), tge.AdvisersAndPartnerships)

	_, resp = env.call(t, "", "computeNextVestingScheduleIdForHolder", holderParams{Holder: testBeneficiary.Hex()})
	var next ScheduleIDResult
	result(t, resp, &next)
	require.Equal(t, "0xa279197a1d7a4b7398aa0248e95b8fcc6cdfb43220ade05d01add9c5468ea097", next.ID)

	_, resp = env.call(t, owner, "createVestingSchedule", map[string]interface{}{
		"category":           "advisers_partnerships",
		"beneficiary":        testBeneficiary.Hex(),
		"start":              testStart,
		"cliff":              0,
		"duration":           1000,
		"slicePeriodSeconds": 1,
		"revocable":          true,
		"amount":             "100",
	})
	var created TxResult
	result(t, resp, &created)
	require.Equal(t, next.ID, created.ID)

	_, resp = env.call(t, "", "getVestingSchedulesCount")
	var count CountResult
	result(t, resp, &count)
	require.Equal(t, uint64(1), count.Count)

	_, resp = env.call(t, "", "getVestingSchedulesCountByBeneficiary", holderParams{Holder: testBeneficiary.Hex()})
	result(t, resp, &count)
	require.Equal(t, uint64(1), count.Count)

	_, resp = env.call(t, "", "getVestingIdAtIndex", indexParams{Index: 0})
	var atIndex ScheduleIDResult
	result(t, resp, &atIndex)
	require.Equal(t, created.ID, atIndex.ID)

	_, resp = env.call(t, "", "computeVestingScheduleIdForAddressAndIndex", holderIndexParams{Holder: testBeneficiary.Hex(), Index: 0})
	var computed ScheduleIDResult
	result(t, resp, &computed)
	require.Equal(t, created.ID, computed.ID)

	_, resp = env.call(t, "", "computeReleasableAmount", scheduleIDParams{ID: created.ID})
	var releasable AmountResult
	result(t, resp, &releasable)
	require.Equal(t, "50", releasable.Amount)

	status, resp := env.call(t, holder, "release", releaseParams{ID: created.ID, Amount: "51", Category: CategoryParam(vesting.CategoryAdvisersPartnerships)})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInsufficientVestedAmount, resp.Error.Code)

	_, resp = env.call(t, holder, "release", releaseParams{ID: created.ID, Amount: "45", Category: CategoryParam(vesting.CategoryAdvisersPartnerships)})
	require.Nil(t, resp.Error)

	_, resp = env.call(t, "", "balanceOf", addressParams{Address: testBeneficiary.Hex()})
	var bal AmountResult
	result(t, resp, &bal)
	require.Equal(t, "45", bal.Amount)

	_, resp = env.call(t, owner, "revoke", revokeParams{ID: created.ID})
	require.Nil(t, resp.Error)

	_, resp = env.call(t, "", "getVestingSchedule", map[string]interface{}{"id": created.ID, "category": "marketing"})
	require.Nil(t, resp.Error)

	_, resp = env.call(t, "", "getVestingSchedule", scheduleIDParams{ID: created.ID})
	var schedule ScheduleResult
	result(t, resp, &schedule)
	require.True(t, schedule.Revoked)
	require.Equal(t, "50", schedule.Released)
	require.Equal(t, testBeneficiary.Hex(), schedule.Beneficiary)

	_, resp = env.call(t, "", "getLastVestingScheduleForHolder", holderParams{Holder: testBeneficiary.Hex()})
	var last ScheduleResult
	result(t, resp, &last)
	require.Equal(t, created.ID, last.ID)

	status, resp = env.call(t, owner, "revoke", revokeParams{ID: created.ID})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeScheduleRevoked, resp.Error.Code)

	_, resp = env.call(t, "", "getWithdrawableAmount")
	var withdrawable AmountResult
	result(t, resp, &withdrawable)
	require.Equal(t, "79999950", withdrawable.Amount)
}

func TestRPCParameterValidation(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	owner := env.token(t, testOwner)

	status, resp := env.call(t, "", "getVestingSchedule", scheduleIDParams{ID: "0x1234"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	missing := "0x" + strings.Repeat("00", 32)
	status, resp = env.call(t, "", "getVestingSchedule", scheduleIDParams{ID: missing})
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, codeScheduleNotFound, resp.Error.Code)

	status, resp = env.call(t, owner, "withdrawFromTGEBank", map[string]interface{}{"category": 9, "amount": "1"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = env.call(t, owner, "withdrawFromTGEBank", map[string]interface{}{"category": "marketing", "amount": "1"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInsufficientBankBalance, resp.Error.Code)

	status, resp = env.call(t, owner, "setTGE", setTGEParams{Marketing: 101})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = env.call(t, owner, "createVestingSchedule", map[string]interface{}{
		"category": 0, "beneficiary": testBeneficiary.Hex(), "start": testStart,
		"duration": 0, "slicePeriodSeconds": 1, "amount": "1",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidDuration, resp.Error.Code)

	for _, field := range []string{"duration", "cliff"} {
		params := map[string]interface{}{
			"category": 0, "beneficiary": testBeneficiary.Hex(), "start": testStart,
			"duration": 1000, "slicePeriodSeconds": 1, "amount": "1",
		}
		params[field] = uint64(math.MaxUint64)
		status, resp = env.call(t, owner, "createVestingSchedule", params)
		require.Equal(t, http.StatusBadRequest, status, field)
		require.Equal(t, codeInvalidDuration, resp.Error.Code, field)
	}

	status, resp = env.call(t, "", "computeReleasableAmount", map[string]interface{}{"id": missing, "category": 9})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = env.call(t, "", "audit_verify")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, codeServerError, resp.Error.Code)
}

func TestEngineFailureCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{fmt.Errorf("%w: %w", vesting.ErrTransferFailed, token.ErrInsufficientBalance), http.StatusBadRequest, codeTransferFailed},
		{token.ErrInsufficientBalance, http.StatusBadRequest, codeTransferFailed},
		{vesting.ErrInsufficientFunds, http.StatusBadRequest, codeInsufficientFunds},
		{vesting.ErrTimestampOverflow, http.StatusBadRequest, codeInvalidDuration},
		{vesting.ErrInvalidCategory, http.StatusBadRequest, codeInvalidCategory},
		{vesting.ErrUnauthorized, http.StatusForbidden, codeUnauthorized},
	}
	for _, tc := range cases {
		fail := engineFailure(tc.err)
		require.NotNil(t, fail, tc.err.Error())
		require.Equal(t, tc.status, fail.status, tc.err.Error())
		require.Equal(t, tc.code, fail.err.Code, tc.err.Error())
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimit: RateLimit{RequestsPerSecond: 0.001, Burst: 1}})

	status, resp := env.call(t, "", "getToken")
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	status, resp = env.call(t, "", "getToken")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	_, _ = env.call(t, "", "getToken")

	resp, err := env.http.Client().Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = env.http.Client().Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "vesting_rpc_requests_total")
}
