package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tokenvesting/crypto"
	"tokenvesting/native/vesting"
)

// plan is a YAML document describing a batch of owner operations, applied in
// the order: setTGE, calculatePools, then every schedule.
type plan struct {
	TGE            *planTGE       `yaml:"tge"`
	CalculatePools bool           `yaml:"calculatePools"`
	Schedules      []planSchedule `yaml:"schedules"`
}

type planTGE struct {
	AdvisersAndPartnerships uint8 `yaml:"advisersAndPartnerships"`
	Marketing               uint8 `yaml:"marketing"`
	ReserveFunds            uint8 `yaml:"reserveFunds"`
}

type planSchedule struct {
	Category           string `yaml:"category"`
	Beneficiary        string `yaml:"beneficiary"`
	Start              uint64 `yaml:"start"`
	Cliff              uint64 `yaml:"cliff"`
	Duration           uint64 `yaml:"duration"`
	SlicePeriodSeconds uint64 `yaml:"slicePeriodSeconds"`
	Revocable          bool   `yaml:"revocable"`
	Amount             string `yaml:"amount"`
}

func (s planSchedule) validate() error {
	if _, err := vesting.ParseCategory(s.Category); err != nil {
		return err
	}
	if _, err := crypto.ParseAddress(s.Beneficiary); err != nil {
		return fmt.Errorf("beneficiary: %w", err)
	}
	if s.Duration == 0 {
		return vesting.ErrInvalidDuration
	}
	if s.SlicePeriodSeconds == 0 {
		return vesting.ErrInvalidSlicePeriod
	}
	if strings.TrimSpace(s.Amount) == "" {
		return errors.New("amount is required")
	}
	return nil
}

func (s planSchedule) params() map[string]interface{} {
	return map[string]interface{}{
		"category":           strings.TrimSpace(s.Category),
		"beneficiary":        strings.TrimSpace(s.Beneficiary),
		"start":              s.Start,
		"cliff":              s.Cliff,
		"duration":           s.Duration,
		"slicePeriodSeconds": s.SlicePeriodSeconds,
		"revocable":          s.Revocable,
		"amount":             strings.TrimSpace(s.Amount),
	}
}

func loadPlan(path string) (*plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var p plan
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if p.TGE != nil {
		for _, v := range []uint8{p.TGE.AdvisersAndPartnerships, p.TGE.Marketing, p.TGE.ReserveFunds} {
			if v > 100 {
				return nil, vesting.ErrInvalidPercent
			}
		}
	}
	for i, s := range p.Schedules {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("schedule %d: %w", i, err)
		}
	}
	return &p, nil
}

// applyPlan executes p and stops at the first failure. Operations already
// applied stay committed.
func applyPlan(c *client, p *plan, stdout io.Writer) error {
	if p.TGE != nil {
		if _, err := c.call("setTGE", object(map[string]interface{}{
			"advisersAndPartnerships": p.TGE.AdvisersAndPartnerships,
			"marketing":               p.TGE.Marketing,
			"reserveFunds":            p.TGE.ReserveFunds,
		})); err != nil {
			return fmt.Errorf("setTGE: %w", err)
		}
		fmt.Fprintln(stdout, "setTGE ok")
	}
	if p.CalculatePools {
		if _, err := c.call("calculatePools", nil); err != nil {
			return fmt.Errorf("calculatePools: %w", err)
		}
		fmt.Fprintln(stdout, "calculatePools ok")
	}
	for i, s := range p.Schedules {
		result, err := c.call("createVestingSchedule", object(s.params()))
		if err != nil {
			return fmt.Errorf("schedule %d (%s): %w", i, s.Beneficiary, err)
		}
		fmt.Fprintf(stdout, "schedule %d created: %s\n", i, strings.TrimSpace(string(result)))
	}
	return nil
}
