package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"tokenvesting/crypto"
	"tokenvesting/native/vesting"
)

// CategoryParam accepts either the numeric pool index or its name.
type CategoryParam vesting.Category

func (c *CategoryParam) UnmarshalJSON(data []byte) error {
	var n uint8
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := vesting.ParseCategory(strconv.Itoa(int(n)))
		if err != nil {
			return err
		}
		*c = CategoryParam(parsed)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("category must be a number or name")
	}
	parsed, err := vesting.ParseCategory(name)
	if err != nil {
		return err
	}
	*c = CategoryParam(parsed)
	return nil
}

type setTGEParams struct {
	AdvisersAndPartnerships uint8 `json:"advisersAndPartnerships"`
	Marketing               uint8 `json:"marketing"`
	ReserveFunds            uint8 `json:"reserveFunds"`
}

type withdrawParams struct {
	Category CategoryParam `json:"category"`
	Amount   string        `json:"amount"`
}

type createScheduleParams struct {
	Category           CategoryParam `json:"category"`
	Beneficiary        string        `json:"beneficiary"`
	Start              uint64        `json:"start"`
	Cliff              uint64        `json:"cliff"`
	Duration           uint64        `json:"duration"`
	SlicePeriodSeconds uint64        `json:"slicePeriodSeconds"`
	Revocable          bool          `json:"revocable"`
	Amount             string        `json:"amount"`
}

type holderParams struct {
	Holder string `json:"holder"`
}

type holderIndexParams struct {
	Holder string `json:"holder"`
	Index  uint64 `json:"index"`
}

type indexParams struct {
	Index uint64 `json:"index"`
}

type scheduleIDParams struct {
	ID       string        `json:"id"`
	Category CategoryParam `json:"category"`
}

type releaseParams struct {
	ID       string        `json:"id"`
	Amount   string        `json:"amount"`
	Category CategoryParam `json:"category"`
}

type revokeParams struct {
	ID       string        `json:"id"`
	Category CategoryParam `json:"category"`
}

type addressParams struct {
	Address string `json:"address"`
}

type TokenResult struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
}

type AmountResult struct {
	Amount string `json:"amount"`
}

type CountResult struct {
	Count uint64 `json:"count"`
}

type ScheduleIDResult struct {
	ID string `json:"id"`
}

type TxResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

type TGEResult struct {
	AdvisersAndPartnerships uint8 `json:"advisersAndPartnerships"`
	Marketing               uint8 `json:"marketing"`
	ReserveFunds            uint8 `json:"reserveFunds"`
}

type OwnerResult struct {
	Owner string `json:"owner"`
	Vault string `json:"vault"`
}

type PoolResult struct {
	Category    string `json:"category"`
	CategoryID  uint8  `json:"categoryId"`
	TGEPercent  uint8  `json:"tgePercent"`
	TGEBank     string `json:"tgeBank"`
	VestingPool string `json:"vestingPool"`
	Committed   string `json:"committed"`
	Released    string `json:"released"`
}

type ScheduleResult struct {
	ID                 string `json:"id"`
	Initialized        bool   `json:"initialized"`
	Beneficiary        string `json:"beneficiary"`
	Category           string `json:"category"`
	CategoryID         uint8  `json:"categoryId"`
	Cliff              uint64 `json:"cliff"`
	Start              uint64 `json:"start"`
	Duration           uint64 `json:"duration"`
	SlicePeriodSeconds uint64 `json:"slicePeriodSeconds"`
	Revocable          bool   `json:"revocable"`
	AmountTotal        string `json:"amountTotal"`
	Released           string `json:"released"`
	Revoked            bool   `json:"revoked"`
}

func newScheduleResult(s *vesting.Schedule) ScheduleResult {
	return ScheduleResult{
		ID:                 formatID(s.ID),
		Initialized:        s.Initialized,
		Beneficiary:        formatAddress(s.Beneficiary),
		Category:           s.Category.String(),
		CategoryID:         uint8(s.Category),
		Cliff:              s.Cliff,
		Start:              s.Start,
		Duration:           s.Duration,
		SlicePeriodSeconds: s.SlicePeriodSeconds,
		Revocable:          s.Revocable,
		AmountTotal:        formatAmount(s.AmountTotal),
		Released:           formatAmount(s.Released),
		Revoked:            s.Revoked,
	}
}

func newPoolResult(p *vesting.Pool) PoolResult {
	return PoolResult{
		Category:    p.Category.String(),
		CategoryID:  uint8(p.Category),
		TGEPercent:  p.TGEPercent,
		TGEBank:     formatAmount(p.TGEBank),
		VestingPool: formatAmount(p.VestingPool),
		Committed:   formatAmount(p.Committed),
		Released:    formatAmount(p.Released),
	}
}

// decodeParams unmarshals the single parameter object of req into dst.
func decodeParams(req *RPCRequest, dst interface{}) *rpcFailure {
	if len(req.Params) != 1 {
		return invalidParams("exactly one parameter object expected", nil)
	}
	if err := json.Unmarshal(req.Params[0], dst); err != nil {
		return invalidParams("invalid parameter object", err)
	}
	return nil
}

// parseAmount accepts a decimal string or a 0x-prefixed hex quantity.
func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errors.New("amount is required")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return uint256.FromHex(trimmed)
	}
	return uint256.FromDecimal(trimmed)
}

func parseScheduleID(value string) ([32]byte, error) {
	var id [32]byte
	raw, err := hexutil.Decode(strings.TrimSpace(value))
	if err != nil {
		return id, fmt.Errorf("invalid schedule id: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("schedule id must be %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func formatID(id [32]byte) string { return hexutil.Encode(id[:]) }

func formatAddress(addr [20]byte) string { return crypto.FromBytes(addr).Hex() }

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
