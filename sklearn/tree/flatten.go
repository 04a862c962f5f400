package tree

import (
	"encoding/json"
	"fmt"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// FlatNode is the serialized form of a Node. Nodes are stored in pre-order and
// children are referenced by index; -1 means no child.
type FlatNode struct {
	ID          int     `json:"id"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Value       float64 `json:"value"`
	SampleCount int     `json:"sample_count"`
	Leaf        bool    `json:"leaf"`
}

// Flatten returns the nodes of the tree rooted at root in pre-order.
func Flatten(root Node) []FlatNode {
	if root == nil {
		return nil
	}
	var nodes []FlatNode
	var walk func(n Node) int
	walk = func(n Node) int {
		id := len(nodes)
		switch t := n.(type) {
		case *Leaf:
			nodes = append(nodes, FlatNode{
				ID: id, Left: -1, Right: -1, Feature: -1,
				Value: t.Value, SampleCount: t.SampleCount, Leaf: true,
			})
		case *Internal:
			nodes = append(nodes, FlatNode{
				ID: id, Feature: t.Feature, Threshold: t.Threshold, SampleCount: t.SampleCount,
			})
			left := walk(t.Left)
			right := walk(t.Right)
			nodes[id].Left, nodes[id].Right = left, right
		}
		return id
	}
	walk(root)
	return nodes
}

// Unflatten rebuilds a tree from Flatten's output. Children must come after their
// parent and each node may be referenced once.
func Unflatten(nodes []FlatNode) (Node, error) {
	if len(nodes) == 0 {
		return nil, errors.NewValueError("tree.Unflatten", "no nodes")
	}
	used := make([]bool, len(nodes))
	var build func(i, parent int) (Node, error)
	build = func(i, parent int) (Node, error) {
		if i <= parent || i >= len(nodes) {
			return nil, errors.NewValueError("tree.Unflatten", fmt.Sprintf("node %d: child index %d out of order", parent, i))
		}
		if used[i] {
			return nil, errors.NewValueError("tree.Unflatten", fmt.Sprintf("node %d referenced twice", i))
		}
		used[i] = true

		fn := nodes[i]
		if fn.Leaf {
			return &Leaf{Value: fn.Value, SampleCount: fn.SampleCount}, nil
		}
		if fn.Feature < 0 {
			return nil, errors.NewValueError("tree.Unflatten", fmt.Sprintf("node %d: negative feature index", i))
		}
		left, err := build(fn.Left, i)
		if err != nil {
			return nil, err
		}
		right, err := build(fn.Right, i)
		if err != nil {
			return nil, err
		}
		return &Internal{
			Feature:     fn.Feature,
			Threshold:   fn.Threshold,
			Left:        left,
			Right:       right,
			SampleCount: fn.SampleCount,
		}, nil
	}
	return build(0, -1)
}

type treeJSON struct {
	Criterion       Criterion  `json:"criterion"`
	MaxDepth        int        `json:"max_depth"`
	MinSamplesSplit int        `json:"min_samples_split"`
	MinSamplesLeaf  int        `json:"min_samples_leaf"`
	NFeatures       int        `json:"n_features"`
	Nodes           []FlatNode `json:"nodes"`
}

// MarshalJSON encodes the hyperparameters and the flattened nodes.
func (dt *DecisionTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeJSON{
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		NFeatures:       dt.nFeatures,
		Nodes:           Flatten(dt.root),
	})
}

// UnmarshalJSON decodes a tree written by MarshalJSON.
func (dt *DecisionTree) UnmarshalJSON(data []byte) error {
	var tj treeJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return errors.Wrap(err, "decode decision tree")
	}
	var root Node
	if len(tj.Nodes) > 0 {
		var err error
		if root, err = Unflatten(tj.Nodes); err != nil {
			return err
		}
		if maxFeature(root) >= tj.NFeatures {
			return errors.NewValueError("tree.UnmarshalJSON", "split feature exceeds n_features")
		}
	}
	*dt = DecisionTree{
		maxDepth:        tj.MaxDepth,
		minSamplesSplit: tj.MinSamplesSplit,
		minSamplesLeaf:  tj.MinSamplesLeaf,
		criterion:       tj.Criterion,
		root:            root,
		nFeatures:       tj.NFeatures,
	}
	return dt.validateParams()
}

func maxFeature(n Node) int {
	in, ok := n.(*Internal)
	if !ok {
		return -1
	}
	return max(in.Feature, maxFeature(in.Left), maxFeature(in.Right))
}
