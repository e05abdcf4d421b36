/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sygus.go
Description: SyGuS problem generation for the external synthesizer. Emits (set-logic LIA),
a synth-fun with the grammar for the condition kind (enum variable equality, or linear
arithmetic over the numeric parameters), one constraint per example, and (check-synth).
*/

package condition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

const sygusFunName = "f"

var defaultLiterals = []int{0, 1, 2, 3, 4, 5}

// productionRule is one nonterminal of a SyGuS grammar.
type productionRule struct {
	symbol string
	typ    string // "Int" or "Bool"
	rhs    []string
}

func (r productionRule) render(depth int) string {
	indent := strings.Repeat("    ", depth)
	return indent + "(" + r.symbol + " " + r.typ + " (\n" +
		indent + "    " + strings.Join(r.rhs, " ") + "))"
}

// sygusConstraint is one input-output example for the synthesized function.
type sygusConstraint struct {
	values []int64
	result bool
}

func (c sygusConstraint) render() string {
	var sb strings.Builder
	sb.WriteString("(constraint (= (" + sygusFunName + " ")
	for i, v := range c.values {
		sb.WriteString(strconv.FormatInt(v, 10))
		if i != len(c.values)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString(") ")
	if c.result {
		sb.WriteString("true")
	} else {
		sb.WriteString("false")
	}
	sb.WriteString("))")
	return sb.String()
}

// enumRules builds the equality grammar: Start is a BoolExpr or its negation,
// BoolExpr is an equality inside one enum group, and each EnumType_i expands
// to the parameters of group i.
func enumRules(sig *signature.Signature) []productionRule {
	var boolRHS []string
	var intRules []productionRule
	for i, group := range sig.EnumGroups() {
		symbol := fmt.Sprintf("EnumType_%d", i)
		boolRHS = append(boolRHS, "(= "+symbol+" "+symbol+")")
		names := make([]string, len(group))
		for j, p := range group {
			names[j] = p.Name
		}
		intRules = append(intRules, productionRule{symbol: symbol, typ: "Int", rhs: names})
	}

	rules := []productionRule{
		{symbol: "Start", typ: "Bool", rhs: []string{"BoolExpr", "(not BoolExpr)"}},
		{symbol: "BoolExpr", typ: "Bool", rhs: boolRHS},
	}
	return append(rules, intRules...)
}

// numericRules builds the linear-arithmetic grammar: And/Or/Not over
// comparisons of sums/differences of c*x, x/c, x%c, variables, and small
// constants.
func numericRules(sig *signature.Signature) []productionRule {
	consts := make([]string, len(defaultLiterals))
	for i, v := range defaultLiterals {
		consts[i] = strconv.Itoa(v)
	}
	vars := sig.NumericNames()

	return []productionRule{
		{symbol: "Start", typ: "Bool", rhs: []string{"BoolExpr0"}},
		{symbol: "BoolExpr0", typ: "Bool", rhs: []string{
			"BoolExpr1",
			"(and BoolExpr1 BoolExpr1)",
			"(or BoolExpr1 BoolExpr1)",
			"(not BoolExpr1)",
		}},
		{symbol: "BoolExpr1", typ: "Bool", rhs: []string{
			"(= IntExpr0 IntExpr0)",
			"(< IntExpr0 IntExpr0)",
			"(<= IntExpr0 IntExpr0)",
		}},
		{symbol: "IntExpr0", typ: "Int", rhs: []string{
			"IntExpr1",
			"(+ IntExpr0 IntExpr0)",
			"(- IntExpr0 IntExpr0)",
		}},
		{symbol: "IntExpr1", typ: "Int", rhs: []string{
			"ConstExpr",
			"VarExpr",
			"(* ConstExpr VarExpr)",
			"(/ VarExpr ConstExpr)",
			"(% VarExpr ConstExpr)",
		}},
		{symbol: "ConstExpr", typ: "Int", rhs: consts},
		{symbol: "VarExpr", typ: "Int", rhs: vars},
	}
}

// genSygusFile renders a complete SyGuS problem for the condition kind.
func genSygusFile(sig *signature.Signature, kind Kind, constraints []sygusConstraint) string {
	var paramNames []string
	var rules []productionRule
	switch kind {
	case KindEnum:
		paramNames = sig.EnumNames()
		rules = enumRules(sig)
	case KindNumeric:
		paramNames = sig.NumericNames()
		rules = numericRules(sig)
	default:
		panic("condition: no grammar for neglect conditions")
	}

	var sb strings.Builder
	sb.WriteString(";; Background theory\n")
	sb.WriteString("(set-logic LIA)\n\n")

	sb.WriteString(";; Spec of the function to be synthesized\n")
	sb.WriteString("(synth-fun " + sygusFunName + "\n\n")
	sb.WriteString("    ;; Parameters and return type\n")
	sb.WriteString("    (")
	for i, name := range paramNames {
		sb.WriteString("(" + name + " Int)")
		if i != len(paramNames)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString(") Bool\n\n")

	sb.WriteString("    ;; Define the syntax\n")
	sb.WriteString("    (\n")
	for _, rule := range rules {
		sb.WriteString(rule.render(2) + "\n")
	}
	sb.WriteString("    )\n)\n\n")

	sb.WriteString(";; Input-Output examples\n")
	for _, c := range constraints {
		sb.WriteString(c.render() + "\n")
	}
	sb.WriteString("\n(check-synth)\n")
	return sb.String()
}

func enumConstraints(sig *signature.Signature, pos, neg []signature.Input) []sygusConstraint {
	out := make([]sygusConstraint, 0, len(pos)+len(neg))
	for _, in := range pos {
		out = append(out, sygusConstraint{values: enumValues(sig, in), result: true})
	}
	for _, in := range neg {
		out = append(out, sygusConstraint{values: enumValues(sig, in), result: false})
	}
	return out
}

func numericConstraints(sig *signature.Signature, pos, neg []signature.Input) []sygusConstraint {
	out := make([]sygusConstraint, 0, len(pos)+len(neg))
	for _, in := range pos {
		out = append(out, sygusConstraint{values: numericValues(sig, in), result: true})
	}
	for _, in := range neg {
		out = append(out, sygusConstraint{values: numericValues(sig, in), result: false})
	}
	return out
}

func enumValues(sig *signature.Signature, in signature.Input) []int64 {
	out := make([]int64, 0, sig.NumEnum())
	for _, p := range sig.EnumParams() {
		out = append(out, in.Enum[p.Name])
	}
	return out
}

func numericValues(sig *signature.Signature, in signature.Input) []int64 {
	out := make([]int64, 0, sig.NumNumeric())
	for _, p := range sig.NumericParams() {
		out = append(out, in.Numeric[p.Name])
	}
	return out
}
