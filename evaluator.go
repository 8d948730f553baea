// SPDX-License-Identifier: GPL-3.0-or-later

package hotspot

// Evaluator decides the [Confidence] of a network for the evaluate handler.
type Evaluator interface {
	Evaluate(network *Network) Confidence
}

// EvaluatorFunc adapts a function to the [Evaluator] interface.
type EvaluatorFunc func(network *Network) Confidence

var _ Evaluator = EvaluatorFunc(nil)

// Evaluate implements [Evaluator].
func (f EvaluatorFunc) Evaluate(network *Network) Confidence {
	return f(network)
}

// HighConfidenceEvaluator assigns [ConfidenceHigh] to every network.
//
// This is the default policy. A production deployment should distinguish
// trusted from untrusted networks by installing its own [Evaluator].
var HighConfidenceEvaluator = EvaluatorFunc(func(*Network) Confidence {
	return ConfidenceHigh
})
