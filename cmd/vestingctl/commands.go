package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

type paramsFunc func() ([]interface{}, error)

// rpcCommand maps a subcommand onto one JSON-RPC method.
type rpcCommand struct {
	method string
	help   string
	flags  func(fs *flag.FlagSet) paramsFunc
}

func noParams(*flag.FlagSet) paramsFunc {
	return func() ([]interface{}, error) { return nil, nil }
}

func object(fields map[string]interface{}) []interface{} {
	return []interface{}{fields}
}

func required(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("-%s is required", name)
	}
	return trimmed, nil
}

func holderFlags(fs *flag.FlagSet) paramsFunc {
	holder := fs.String("holder", "", "beneficiary address (hex or bech32)")
	return func() ([]interface{}, error) {
		h, err := required("holder", *holder)
		if err != nil {
			return nil, err
		}
		return object(map[string]interface{}{"holder": h}), nil
	}
}

func holderIndexFlags(fs *flag.FlagSet) paramsFunc {
	holder := fs.String("holder", "", "beneficiary address (hex or bech32)")
	index := fs.Uint64("index", 0, "per-holder schedule index")
	return func() ([]interface{}, error) {
		h, err := required("holder", *holder)
		if err != nil {
			return nil, err
		}
		return object(map[string]interface{}{"holder": h, "index": *index}), nil
	}
}

func indexFlags(fs *flag.FlagSet) paramsFunc {
	index := fs.Uint64("index", 0, "global schedule index")
	return func() ([]interface{}, error) {
		return object(map[string]interface{}{"index": *index}), nil
	}
}

func idFlags(fs *flag.FlagSet) paramsFunc {
	id := fs.String("id", "", "0x-prefixed schedule identifier")
	category := fs.String("category", "", "pool category (number or name)")
	return func() ([]interface{}, error) {
		v, err := required("id", *id)
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{"id": v}
		if c := strings.TrimSpace(*category); c != "" {
			fields["category"] = c
		}
		return object(fields), nil
	}
}

var rpcCommands = map[string]rpcCommand{
	"get-token":       {method: "getToken", help: "show the token the vault holds", flags: noParams},
	"calculate-pools": {method: "calculatePools", help: "split the vault balance into pools (owner)", flags: noParams},
	"withdrawable":    {method: "getWithdrawableAmount", help: "show the uncommitted vault balance", flags: noParams},
	"count":           {method: "getVestingSchedulesCount", help: "show the number of schedules", flags: noParams},
	"pools":           {method: "getPools", help: "show every pool", flags: noParams},
	"tge":             {method: "getTGE", help: "show the TGE percentages", flags: noParams},
	"owner":           {method: "getOwner", help: "show the owner and vault", flags: noParams},
	"supply":          {method: "totalSupply", help: "show the token supply", flags: noParams},
	"audit-verify":    {method: "audit_verify", help: "recompute the audit journal hash chain", flags: noParams},
	"count-by":        {method: "getVestingSchedulesCountByBeneficiary", help: "count schedules of -holder", flags: holderFlags},
	"next-id":         {method: "computeNextVestingScheduleIdForHolder", help: "show the next schedule id of -holder", flags: holderFlags},
	"last-schedule":   {method: "getLastVestingScheduleForHolder", help: "show the latest schedule of -holder", flags: holderFlags},
	"compute-id":      {method: "computeVestingScheduleIdForAddressAndIndex", help: "derive the id for -holder/-index", flags: holderIndexFlags},
	"schedule-at":     {method: "getVestingScheduleByAddressAndIndex", help: "show the schedule at -holder/-index", flags: holderIndexFlags},
	"id-at":           {method: "getVestingIdAtIndex", help: "show the schedule id at global -index", flags: indexFlags},
	"schedule":        {method: "getVestingSchedule", help: "show schedule -id", flags: idFlags},
	"releasable":      {method: "computeReleasableAmount", help: "show the releasable amount of -id", flags: idFlags},
	"set-tge": {method: "setTGE", help: "set TGE percentages (owner)", flags: func(fs *flag.FlagSet) paramsFunc {
		advisers := fs.Uint("advisers", 0, "advisers and partnerships TGE percent")
		marketing := fs.Uint("marketing", 0, "marketing TGE percent")
		reserve := fs.Uint("reserve", 0, "reserve funds TGE percent")
		return func() ([]interface{}, error) {
			for _, v := range []uint{*advisers, *marketing, *reserve} {
				if v > 100 {
					return nil, errors.New("percentages must be <= 100")
				}
			}
			return object(map[string]interface{}{
				"advisersAndPartnerships": *advisers,
				"marketing":               *marketing,
				"reserveFunds":            *reserve,
			}), nil
		}
	}},
	"withdraw-tge": {method: "withdrawFromTGEBank", help: "withdraw from a TGE bank (owner)", flags: func(fs *flag.FlagSet) paramsFunc {
		category := fs.String("category", "", "pool category (name or index)")
		amount := fs.String("amount", "", "decimal amount")
		return func() ([]interface{}, error) {
			c, err := required("category", *category)
			if err != nil {
				return nil, err
			}
			a, err := required("amount", *amount)
			if err != nil {
				return nil, err
			}
			return object(map[string]interface{}{"category": c, "amount": a}), nil
		}
	}},
	"create-schedule": {method: "createVestingSchedule", help: "create a vesting schedule (owner)", flags: func(fs *flag.FlagSet) paramsFunc {
		var s planSchedule
		fs.StringVar(&s.Category, "category", "", "pool category (name or index)")
		fs.StringVar(&s.Beneficiary, "beneficiary", "", "beneficiary address")
		fs.Uint64Var(&s.Start, "start", 0, "start timestamp (unix seconds)")
		fs.Uint64Var(&s.Cliff, "cliff", 0, "cliff duration in seconds")
		fs.Uint64Var(&s.Duration, "duration", 0, "vesting duration in seconds")
		fs.Uint64Var(&s.SlicePeriodSeconds, "slice", 1, "slice period in seconds")
		fs.BoolVar(&s.Revocable, "revocable", false, "whether the owner may revoke")
		fs.StringVar(&s.Amount, "amount", "", "decimal amount")
		return func() ([]interface{}, error) {
			if err := s.validate(); err != nil {
				return nil, err
			}
			return object(s.params()), nil
		}
	}},
	"release": {method: "release", help: "release vested tokens (beneficiary or owner)", flags: func(fs *flag.FlagSet) paramsFunc {
		id := fs.String("id", "", "schedule id")
		amount := fs.String("amount", "", "decimal amount")
		category := fs.String("category", "0", "pool category (name or index)")
		return func() ([]interface{}, error) {
			v, err := required("id", *id)
			if err != nil {
				return nil, err
			}
			a, err := required("amount", *amount)
			if err != nil {
				return nil, err
			}
			return object(map[string]interface{}{"id": v, "amount": a, "category": strings.TrimSpace(*category)}), nil
		}
	}},
	"revoke": {method: "revoke", help: "revoke a schedule (owner)", flags: func(fs *flag.FlagSet) paramsFunc {
		id := fs.String("id", "", "schedule id")
		category := fs.String("category", "0", "pool category (name or index)")
		return func() ([]interface{}, error) {
			v, err := required("id", *id)
			if err != nil {
				return nil, err
			}
			return object(map[string]interface{}{"id": v, "category": strings.TrimSpace(*category)}), nil
		}
	}},
	"balance": {method: "balanceOf", help: "show the token balance of -address", flags: func(fs *flag.FlagSet) paramsFunc {
		addr := fs.String("address", "", "account address")
		return func() ([]interface{}, error) {
			a, err := required("address", *addr)
			if err != nil {
				return nil, err
			}
			return object(map[string]interface{}{"address": a}), nil
		}
	}},
}

func runRPCCommand(c *client, name string, cmd rpcCommand, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	build := cmd.flags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	params, err := build()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	result, err := c.call(cmd.method, params)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(stdout, result)
	return 0
}

// runRawCall sends an arbitrary method with JSON-encoded positional params.
func runRawCall(c *client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: vestingctl call <method> [json-param ...]")
		return 1
	}
	params := make([]interface{}, 0, len(args)-1)
	for _, raw := range args[1:] {
		if !json.Valid([]byte(raw)) {
			fmt.Fprintf(stderr, "Error: invalid JSON parameter %q\n", raw)
			return 1
		}
		params = append(params, json.RawMessage(raw))
	}
	result, err := c.call(args[0], params)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	writeResult(stdout, result)
	return 0
}

func commandNames() []string {
	names := make([]string, 0, len(rpcCommands))
	for name := range rpcCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
