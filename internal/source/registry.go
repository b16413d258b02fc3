package source

import (
	"github.com/rotisserie/eris"
)

// Factory builds an adapter for one run.
type Factory func(Env) Adapter

type entry struct {
	key     string
	factory Factory
	optIn   bool // skipped by run-all; runs only when named
}

// registry order is run order.
var registry = []entry{
	{key: "cc", factory: NewCharityCommission},
	{key: "cc_guidance", factory: NewCharityGuidance},
	{key: "ico", factory: NewICO},
	{key: "hse", factory: NewHSE},
	{key: "hmrc", factory: NewHMRC},
	{key: "fr", factory: NewFundraisingRegulator},
	{key: "safeguarding", factory: NewSafeguarding},
	{key: "data_protection", factory: NewDataProtection},
	{key: "financial_reporting", factory: NewFinancialReporting},
	{key: "risk_management", factory: NewRiskManagement},
	{key: "anti_fraud", factory: NewAntiFraud},
	{key: "ofsi", factory: NewOFSI, optIn: true},
}

// ErrUnknownSource is returned for a key that is not registered.
var ErrUnknownSource = eris.New("unknown source")

// Keys lists every registered key in run order.
func Keys() []string {
	out := make([]string, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.key)
	}
	return out
}

// DefaultKeys lists the keys a run without an explicit selection uses.
func DefaultKeys() []string {
	var out []string
	for _, e := range registry {
		if !e.optIn {
			out = append(out, e.key)
		}
	}
	return out
}

// OptIn reports whether key is excluded from run-all.
func OptIn(key string) bool {
	for _, e := range registry {
		if e.key == key {
			return e.optIn
		}
	}
	return false
}

func Lookup(key string) (Factory, bool) {
	for _, e := range registry {
		if e.key == key {
			return e.factory, true
		}
	}
	return nil, false
}

func New(key string, env Env) (Adapter, error) {
	f, ok := Lookup(key)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSource, "%q", key)
	}
	return f(env), nil
}
