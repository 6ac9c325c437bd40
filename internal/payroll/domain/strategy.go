package domain

import (
	"math"
	"strings"

	"github.com/staffdesk/staffdesk/pkg/errors"
)

// Strategy names as stored on payslips
const (
	StrategyStandardHourly  = "Standard Hourly Pay"
	StrategySalesCommission = "Sales Commission Pay"
)

const (
	// HoursPerMonth converts a monthly base salary into an hourly rate
	HoursPerMonth = 160
	// OvertimeMultiplier is applied to overtime hours
	OvertimeMultiplier = 1.5
	// DefaultCommissionRate is used when no rate is given
	DefaultCommissionRate = 0.1
)

// Input carries the figures a strategy may use
type Input struct {
	BaseSalary     float64
	HoursWorked    float64
	OvertimeHours  float64
	SalesAmount    float64
	CommissionRate float64
}

// Strategy computes a net salary
type Strategy interface {
	Name() string
	Calculate(in Input) float64
}

// StandardHourly pays the hourly rate for worked hours plus overtime at 1.5x
type StandardHourly struct{}

func (StandardHourly) Name() string { return StrategyStandardHourly }

func (StandardHourly) Calculate(in Input) float64 {
	hourly := in.BaseSalary / HoursPerMonth
	return round2((in.HoursWorked + in.OvertimeHours*OvertimeMultiplier) * hourly)
}

// SalesCommission pays the base salary plus a share of sales
type SalesCommission struct{}

func (SalesCommission) Name() string { return StrategySalesCommission }

func (SalesCommission) Calculate(in Input) float64 {
	return round2(in.BaseSalary + in.SalesAmount*EffectiveCommissionRate(in.CommissionRate))
}

// EffectiveCommissionRate returns rate, or DefaultCommissionRate when rate is zero
func EffectiveCommissionRate(rate float64) float64 {
	if rate == 0 {
		return DefaultCommissionRate
	}
	return rate
}

var strategies = []Strategy{StandardHourly{}, SalesCommission{}}

// StrategyNames lists the selectable strategies
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	return names
}

// StrategyFor looks up a strategy by name. An empty name selects Standard Hourly Pay.
func StrategyFor(name string) (Strategy, error) {
	if name == "" {
		return StandardHourly{}, nil
	}
	for _, s := range strategies {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, errors.Validation(map[string]string{
		"strategy": "must be one of: " + strings.Join(StrategyNames(), ", "),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
