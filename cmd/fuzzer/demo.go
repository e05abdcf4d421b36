/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: demo.go
Description: Built-in demonstration target: a small branch maze over three enums of one
group and four integers, manually instrumented with one PCID per basic block.
*/

package main

import (
	"github.com/kleascm/akaylee-pathfinder/pkg/config"
	"github.com/kleascm/akaylee-pathfinder/pkg/engine"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

const (
	enumA = iota
	enumB
	enumC
)

// demoTarget mirrors the classic XYZabcd maze: nested comparisons over the
// numeric arguments gated by enum equalities.
type demoTarget struct {
	tpc  *trace.TracePC
	base trace.PCID
}

const demoNumGuards = 8

func newDemoTarget(tpc *trace.TracePC, cfg *config.FuzzConfig) (*demoTarget, error) {
	entries := []string{"EnumA", "EnumB", "EnumC"}
	for _, name := range []string{"X", "Y", "Z"} {
		if err := cfg.RegisterEnumArg(name, entries); err != nil {
			return nil, err
		}
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		if err := cfg.RegisterIntArg(name); err != nil {
			return nil, err
		}
	}
	return &demoTarget{tpc: tpc, base: tpc.RegisterGuards(demoNumGuards)}, nil
}

func (d *demoTarget) hit(block int) {
	d.tpc.AppendPathLog(d.base + trace.PCID(block))
}

func (d *demoTarget) run(in signature.Input) int {
	x, y, z := in.At("X"), in.At("Y"), in.At("Z")
	a, b, c, e := in.At("a"), in.At("b"), in.At("c"), in.At("d")

	d.tpc.TraceOn()
	defer d.tpc.TraceOff()

	d.hit(0)
	if x != enumA {
		d.hit(1)
		if b > c {
			d.hit(2)
			if a > b {
				d.hit(3)
				if x == y {
					d.hit(4)
					if y != z {
						d.hit(5)
					}
				}
			}
		} else if x == enumB {
			d.hit(6)
			if c > e {
				d.hit(7)
			}
		}
	}
	return engine.StatusOK
}
