/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: config.go
Description: Explicit fuzzing configuration built by the user's driver (or the CLI) and
handed to the engine as immutable owned state: the parameter signature, hard and soft
numeric constraints, and every runtime tunable.
*/

package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/solver"
)

// Scheduling strategies.
const (
	ScheduleRand = "rand"
)

// FuzzConfig collects the target signature, the user constraints, and the
// engine tunables. Populate it before calling the driver; the engine treats
// it as read-only.
type FuzzConfig struct {
	Sig *signature.Signature

	HardConstraints []*expr.BoolExpr
	SoftConstraints []*expr.BoolExpr

	Corpus        string
	RunOnly       bool
	CmdInput      string
	CmdConstraint string

	MaxTotalTime   time.Duration
	MaxTotalGen    int
	MaxGenPerIter  int
	MaxTimePerIter time.Duration
	MaxIter        int
	WarmupCount    int

	ArgIntMin int64
	ArgIntMax int64
	MutRate   float64

	CondAccuracyThreshold float64
	SynthesisBudget       time.Duration
	SynthesizerBin        string

	Schedule        string
	WoNBP           bool
	IgnoreException bool

	CovOutputFile     string
	StatOutputFile    string
	CovIntervalTime   int // seconds
	CovIntervalGen    int
	RunCorpusFromGen  int
	RunCorpusToGen    int
	RunCorpusFromTime int
	RunCorpusToTime   int

	Verbose  int
	Colorize bool
}

// New creates a configuration with the engine defaults.
func New() *FuzzConfig {
	return &FuzzConfig{
		Sig:                   signature.New(),
		MaxTotalTime:          time.Duration(math.MaxInt64),
		MaxTotalGen:           math.MaxInt32,
		MaxGenPerIter:         10,
		MaxTimePerIter:        10 * time.Second,
		MaxIter:               math.MaxInt32,
		WarmupCount:           64,
		ArgIntMin:             solver.DefaultArgIntMin,
		ArgIntMax:             solver.DefaultArgIntMax,
		MutRate:               solver.DefaultMutRate,
		CondAccuracyThreshold: condition.DefaultAccuracyThreshold,
		SynthesisBudget:       condition.DefaultSynthesisBudget,
		SynthesizerBin:        "duet",
		Schedule:              ScheduleRand,
		RunCorpusFromGen:      -1,
		RunCorpusToGen:        math.MaxInt32,
		RunCorpusFromTime:     -1,
		RunCorpusToTime:       math.MaxInt32,
		Colorize:              true,
	}
}

// RegisterEnumArg declares an enum parameter with named entries.
func (c *FuzzConfig) RegisterEnumArg(name string, entries []string) error {
	return c.Sig.AddEnumEntries(name, entries)
}

// RegisterEnumArgRange declares an enum parameter over [start, start+size).
func (c *FuzzConfig) RegisterEnumArgRange(name string, start int64, size int) error {
	return c.Sig.AddEnumRange(name, start, size)
}

// RegisterIntArg declares an integer parameter.
func (c *FuzzConfig) RegisterIntArg(name string) error {
	return c.Sig.AddInt(name)
}

// AddHardConstraint adds a clause every generated input must satisfy.
func (c *FuzzConfig) AddHardConstraint(e *expr.BoolExpr) {
	c.HardConstraints = append(c.HardConstraints, e)
}

// AddSoftConstraint adds a clause half of the draws conform to.
func (c *FuzzConfig) AddSoftConstraint(e *expr.BoolExpr) {
	c.SoftConstraints = append(c.SoftConstraints, e)
}

var comparators = []string{"==", "!=", "<=", ">=", "<", ">"}

func splitComparator(constraint string) (string, string, string, error) {
	for _, comp := range comparators {
		if idx := strings.Index(constraint, comp); idx >= 0 {
			lhs := strings.TrimSpace(constraint[:idx])
			rhs := strings.TrimSpace(constraint[idx+len(comp):])
			return lhs, comp, rhs, nil
		}
	}
	return "", "", "", fmt.Errorf("config: no comparator in constraint %q", constraint)
}

// argRef resolves an argN reference to the Nth declared numeric parameter's
// symbolic variable (indices count every parameter in declaration order,
// enums first).
func (c *FuzzConfig) argRef(ref string) (*expr.IntExpr, error) {
	if !strings.HasPrefix(ref, "arg") {
		return nil, fmt.Errorf("config: invalid argument name %q in --constraint", ref)
	}
	idx, err := strconv.Atoi(ref[3:])
	if err != nil || idx < 0 || idx >= c.Sig.Size() {
		return nil, fmt.Errorf("config: invalid argument name %q in --constraint", ref)
	}
	numericIdx := idx - c.Sig.NumEnum()
	if numericIdx < 0 {
		return nil, fmt.Errorf("config: constraint argument %q refers to an enum parameter", ref)
	}
	return expr.IntVar(c.Sig.NumericParams()[numericIdx].Name), nil
}

func compare(comp string, lhs, rhs *expr.IntExpr) (*expr.BoolExpr, error) {
	switch comp {
	case "==":
		return lhs.Eq(rhs), nil
	case "!=":
		return lhs.Neq(rhs), nil
	case "<":
		return lhs.Lt(rhs), nil
	case "<=":
		return lhs.Lte(rhs), nil
	case ">":
		return lhs.Gt(rhs), nil
	case ">=":
		return lhs.Gte(rhs), nil
	}
	return nil, fmt.Errorf("config: invalid comparator %q in --constraint", comp)
}

// AddCmdConstraints parses the --constraint flag value, a comma-separated
// list of "argN<op>value" clauses, into hard constraints.
func (c *FuzzConfig) AddCmdConstraints() error {
	if c.CmdConstraint == "" {
		return nil
	}
	for _, clause := range strings.Split(c.CmdConstraint, ",") {
		lhs, comp, rhs, err := splitComparator(strings.TrimSpace(clause))
		if err != nil {
			return err
		}
		left, err := c.argRef(lhs)
		if err != nil {
			return err
		}
		var right *expr.IntExpr
		if value, verr := strconv.ParseInt(rhs, 10, 64); verr == nil {
			right = expr.IntConst(value)
		} else {
			right, err = c.argRef(rhs)
			if err != nil {
				return err
			}
		}
		cond, err := compare(comp, left, right)
		if err != nil {
			return err
		}
		c.AddHardConstraint(cond)
	}
	return nil
}

// CmdInputValues parses the --run_cmd_input flag value into flat int64s.
func (c *FuzzConfig) CmdInputValues() ([]int64, error) {
	if c.CmdInput == "" {
		return nil, nil
	}
	parts := strings.Split(c.CmdInput, ",")
	values := make([]int64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid value %q in --run_cmd_input: %w", part, err)
		}
		values = append(values, v)
	}
	return values, nil
}

// Validate checks the configuration for fatal mistakes.
func (c *FuzzConfig) Validate() error {
	if c.Sig.Size() < 1 {
		return fmt.Errorf("config: no parameters registered")
	}
	if c.ArgIntMin > c.ArgIntMax {
		return fmt.Errorf("config: --min %d exceeds --max %d", c.ArgIntMin, c.ArgIntMax)
	}
	if c.MutRate < 0 || c.MutRate > 1 {
		return fmt.Errorf("config: --mut_rate must be in [0,1]")
	}
	if c.CondAccuracyThreshold < -1 || c.CondAccuracyThreshold > 1 {
		return fmt.Errorf("config: --cond_accuracy_threshold must be in [-1,1]")
	}
	if c.Schedule != ScheduleRand {
		return fmt.Errorf("config: unknown scheduling strategy %q", c.Schedule)
	}
	return nil
}
