package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// TreeEnsemble is a gradient-boosted regression tree artifact. The output is
// BaseScore plus the leaf value reached in every tree.
type TreeEnsemble struct {
	Features  []string     `json:"feature_names"`
	BaseScore float64      `json:"base_score"`
	Trees     [][]TreeNode `json:"trees"`
}

// TreeNode is one node of a tree stored as a flat slice. Split nodes send a
// value below Threshold to LeftChild; children always follow their parent.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func (te *TreeEnsemble) FeatureNames() []string {
	return append([]string(nil), te.Features...)
}

// Predict walks every tree and sums the leaf values onto BaseScore.
func (te *TreeEnsemble) Predict(features []float64) (float64, error) {
	if len(te.Trees) == 0 {
		return 0, errors.New("model not loaded")
	}
	if len(features) != len(te.Features) {
		return 0, &InvalidInputError{
			Reason: fmt.Sprintf("model expects %d features, got %d", len(te.Features), len(features)),
		}
	}
	sum := te.BaseScore
	for i, tree := range te.Trees {
		leaf, err := walkTree(tree, features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += leaf
	}
	return sum, nil
}

// walkTree follows the xgboost split convention: x < threshold goes left.
func walkTree(nodes []TreeNode, features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] < node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

// Save writes the ensemble as JSON.
func (te *TreeEnsemble) Save(path string) error {
	if len(te.Trees) == 0 {
		return errors.New("model has no trees")
	}
	payload, err := json.Marshal(te)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

// Load replaces the ensemble with the artifact at path after checking its
// tree structure.
func (te *TreeEnsemble) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded TreeEnsemble
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if err := loaded.validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	*te = loaded
	return nil
}

func (te *TreeEnsemble) validate() error {
	if len(te.Features) == 0 {
		return errors.New("feature_names is empty")
	}
	if len(te.Trees) == 0 {
		return errors.New("trees is empty")
	}
	for t, tree := range te.Trees {
		if len(tree) == 0 {
			return fmt.Errorf("tree %d is empty", t)
		}
		for n, node := range tree {
			if node.IsLeaf {
				continue
			}
			if node.FeatureIdx < 0 || node.FeatureIdx >= len(te.Features) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", t, n, node.FeatureIdx)
			}
			if node.LeftChild <= n || node.LeftChild >= len(tree) || node.RightChild <= n || node.RightChild >= len(tree) {
				return fmt.Errorf("tree %d node %d: child index out of range", t, n)
			}
		}
	}
	return nil
}
