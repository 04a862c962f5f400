package tree

import "math"

// Node is a node of a fitted decision tree. It is implemented only by *Leaf and
// *Internal, so a type switch over those two cases is exhaustive.
type Node interface {
	// Samples returns the number of training samples that reached the node.
	Samples() int
	node()
}

// Leaf is a terminal node holding the predicted value.
type Leaf struct {
	Value       float64
	SampleCount int
}

// Internal is a binary split on x[Feature] <= Threshold.
type Internal struct {
	Feature     int
	Threshold   float64
	Left        Node
	Right       Node
	SampleCount int
}

func (l *Leaf) Samples() int     { return l.SampleCount }
func (n *Internal) Samples() int { return n.SampleCount }

func (*Leaf) node()     {}
func (*Internal) node() {}

// Evaluate walks from n to a leaf, going left when x[Feature] <= Threshold, and
// returns the leaf value.
func Evaluate(n Node, x []float64) float64 {
	for {
		switch t := n.(type) {
		case *Leaf:
			return t.Value
		case *Internal:
			if x[t.Feature] <= t.Threshold {
				n = t.Left
			} else {
				n = t.Right
			}
		default:
			return math.NaN()
		}
	}
}

func depth(n Node) int {
	in, ok := n.(*Internal)
	if !ok {
		return 0
	}
	return 1 + max(depth(in.Left), depth(in.Right))
}

func leafCount(n Node) int {
	switch t := n.(type) {
	case *Leaf:
		return 1
	case *Internal:
		return leafCount(t.Left) + leafCount(t.Right)
	}
	return 0
}
