package rating

import (
	"sort"
)

const numFeatures = 5

// trainingRow is one game expressed as model features and its target
// margin. For boosting rounds the target is the running residual.
type trainingRow struct {
	features [numFeatures]float64
	target   float64
}

// treeNode is a binary regression tree node. Leaves carry the mean target
// of the rows that reached them.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

func (n *treeNode) predict(features [numFeatures]float64) float64 {
	for !n.leaf {
		if features[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// buildTree grows a CART regression tree by greedy variance reduction.
// Split search walks features in fixed order and keeps the first best
// threshold, so identical inputs always grow the identical tree.
func buildTree(rows []trainingRow, depth, maxDepth, minLeaf int) *treeNode {
	if depth >= maxDepth || len(rows) < 2*minLeaf {
		return &treeNode{leaf: true, value: meanTarget(rows)}
	}
	feature, threshold, ok := bestSplit(rows, minLeaf)
	if !ok {
		return &treeNode{leaf: true, value: meanTarget(rows)}
	}

	left := make([]trainingRow, 0, len(rows))
	right := make([]trainingRow, 0, len(rows))
	for _, r := range rows {
		if r.features[feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < minLeaf || len(right) < minLeaf {
		return &treeNode{leaf: true, value: meanTarget(rows)}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(left, depth+1, maxDepth, minLeaf),
		right:     buildTree(right, depth+1, maxDepth, minLeaf),
	}
}

// bestSplit scans every feature for the threshold with the lowest split
// sum of squared errors, using prefix sums over the sorted column.
func bestSplit(rows []trainingRow, minLeaf int) (int, float64, bool) {
	n := len(rows)
	bestSSE := totalSSE(rows)
	bestFeature, bestThreshold := -1, 0.0
	found := false

	order := make([]int, n)
	for f := 0; f < numFeatures; f++ {
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return rows[order[a]].features[f] < rows[order[b]].features[f]
		})

		var sumY, sumY2 float64
		prefixY := make([]float64, n+1)
		prefixY2 := make([]float64, n+1)
		for i, idx := range order {
			sumY += rows[idx].target
			sumY2 += rows[idx].target * rows[idx].target
			prefixY[i+1] = sumY
			prefixY2[i+1] = sumY2
		}

		for i := minLeaf; i <= n-minLeaf; i++ {
			lo := rows[order[i-1]].features[f]
			hi := rows[order[i]].features[f]
			if lo == hi {
				continue
			}
			nl, nr := float64(i), float64(n-i)
			sseLeft := prefixY2[i] - prefixY[i]*prefixY[i]/nl
			sseRight := (sumY2 - prefixY2[i]) - (sumY-prefixY[i])*(sumY-prefixY[i])/nr
			if split := sseLeft + sseRight; split < bestSSE-1e-12 {
				bestSSE = split
				bestFeature = f
				bestThreshold = (lo + hi) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func meanTarget(rows []trainingRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += r.target
	}
	return sum / float64(len(rows))
}

func totalSSE(rows []trainingRow) float64 {
	mean := meanTarget(rows)
	var sse float64
	for _, r := range rows {
		d := r.target - mean
		sse += d * d
	}
	return sse
}
