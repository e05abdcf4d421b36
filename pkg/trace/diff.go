/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: diff.go
Description: Nondeterministic-PC discovery. Compares two execution paths produced by the
same input with a chunked Myers O((M+N)D) middle-snake diff and marks the positions that
must differ as nondeterministic, re-pruning and repeating until the traces agree.
*/

package trace

// negIndexable is a PCID-offset vector supporting Python-style negative
// indices, as used by the Myers V arrays.
type negIndexable struct {
	vec []int
}

func newNegIndexable(size int) *negIndexable {
	return &negIndexable{vec: make([]int, size)}
}

func (n *negIndexable) idx(i int) int {
	if i >= 0 {
		return i
	}
	return len(n.vec) + i
}

func (n *negIndexable) get(i int) int    { return n.vec[n.idx(i)] }
func (n *negIndexable) set(i int, v int) { n.vec[n.idx(i)] = v }

// findMiddleSnake runs the original bidirectional Myers search over
// left[leftStart:leftStart+leftSize] and right[rightStart:rightStart+rightSize],
// returning (d, x, y, u, v): the edit distance and the snake endpoints.
func findMiddleSnake(left ExecPath, leftStart, leftSize int, right ExecPath, rightStart, rightSize int) (int, int, int, int, int) {
	max := leftSize + rightSize
	if max == 0 {
		panic("trace: middle snake on two empty chunks")
	}
	delta := leftSize - rightSize

	vf := newNegIndexable(max * 2)
	vb := newNegIndexable(max * 2)
	vf.set(1, 0)
	vb.set(1, 0)

	dMax := max / 2
	if max%2 != 0 {
		dMax++
	}
	for d := 0; d <= dMax; d++ {
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && vf.get(k-1) < vf.get(k+1)) {
				x = vf.get(k + 1)
			} else {
				x = vf.get(k-1) + 1
			}
			y := x - k
			xi, yi := x, y
			for x < leftSize && y < rightSize && left[leftStart+x] == right[rightStart+y] {
				x++
				y++
			}
			vf.set(k, x)
			if delta%2 != 0 && -(k-delta) >= -(d-1) && -(k-delta) <= d-1 {
				if vf.get(k)+vb.get(-(k-delta)) >= leftSize {
					return 2*d - 1, xi, yi, x, y
				}
			}
		}
		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && vb.get(k-1) < vb.get(k+1)) {
				x = vb.get(k + 1)
			} else {
				x = vb.get(k-1) + 1
			}
			y := x - k
			xi, yi := x, y
			for x < leftSize && y < rightSize &&
				left[leftStart+leftSize-x-1] == right[rightStart+rightSize-y-1] {
				x++
				y++
			}
			vb.set(k, x)
			if delta%2 == 0 && -(k-delta) >= -d && -(k-delta) <= d {
				if vb.get(k)+vf.get(-(k-delta)) >= leftSize {
					return 2 * d, leftSize - x, rightSize - y, leftSize - xi, rightSize - yi
				}
			}
		}
	}
	panic("trace: middle snake search did not converge")
}

// checkDiffRange shadows the positions of the two ranges that belong to the
// shortest edit script. On the base d==1 case only the first differing
// position and the last position of the longer side are shadowed.
func checkDiffRange(left ExecPath, leftStart, leftSize int, right ExecPath, rightStart, rightSize int, shadowLeft, shadowRight []bool) {
	if leftSize == 0 {
		for i := 0; i < rightSize; i++ {
			shadowRight[rightStart+i] = true
		}
		return
	}
	if rightSize == 0 {
		for i := 0; i < leftSize; i++ {
			shadowLeft[leftStart+i] = true
		}
		return
	}

	d, x, y, u, v := findMiddleSnake(left, leftStart, leftSize, right, rightStart, rightSize)
	if d > 1 {
		checkDiffRange(left, leftStart, x, right, rightStart, y, shadowLeft, shadowRight)
		checkDiffRange(left, leftStart+u, leftSize-u, right, rightStart+v, rightSize-v, shadowLeft, shadowRight)
	} else if d == 1 {
		if leftSize < rightSize {
			for i := 0; i < leftSize; i++ {
				if left[leftStart+i] != right[rightStart+i] {
					shadowRight[rightStart+i] = true
					break
				}
			}
			shadowRight[rightStart+rightSize-1] = true
		} else {
			for i := 0; i < rightSize; i++ {
				if right[rightStart+i] != left[leftStart+i] {
					shadowLeft[leftStart+i] = true
					break
				}
			}
			shadowLeft[leftStart+leftSize-1] = true
		}
	}
}

func removeCommonPrefix(left, right ExecPath) (ExecPath, ExecPath, int) {
	n := CommonPrefixLen(left, right)
	return left[n:], right[n:], n
}

// addNDShadowed marks shadowed PCIDs nondeterministic. Unless doAll is set,
// only shadows up to the first half of the common positions are committed;
// the remainder of the chunk is re-examined on the next iteration after
// pruning shifts the alignment.
func (t *TracePC) addNDShadowed(p ExecPath, shadow []bool, doAll bool) {
	if doAll {
		for i := range p {
			if shadow[i] {
				t.nd.Set(int(p[i]) - 1)
			}
		}
		return
	}

	commonLen := 0
	for _, s := range shadow {
		if !s {
			commonLen++
		}
	}
	commonHalf := commonLen / 2
	if commonLen%2 != 0 {
		commonHalf++
	}

	commonSeen := 0
	for i := range p {
		if commonSeen > commonHalf {
			break
		}
		if shadow[i] {
			t.nd.Set(int(p[i]) - 1)
		} else {
			commonSeen++
		}
	}
}

// CheckDiff discovers new nondeterministic PCIDs from two paths recorded for
// the same input. It strips the common prefix, diffs chunk by chunk, marks
// the differing positions, then re-prunes both paths against the grown ND
// bitmap and repeats until the traces agree or the common prefix reaches the
// significant length.
func (t *TracePC) CheckDiff(left, right ExecPath) {
	t.initNDBitMap()

	leftPruned, rightPruned, commonLen := removeCommonPrefix(left, right)
	if commonLen >= t.maxSignificant {
		return
	}

	for {
		isLastIter := len(leftPruned) <= t.chunkSize || len(rightPruned) <= t.chunkSize

		var leftChunk, rightChunk ExecPath
		if isLastIter {
			leftChunk = leftPruned
			rightChunk = rightPruned
		} else {
			leftChunk = leftPruned[:t.chunkSize]
			rightChunk = rightPruned[:t.chunkSize]
		}

		shadowLeft := make([]bool, len(leftChunk))
		shadowRight := make([]bool, len(rightChunk))

		checkDiffRange(leftChunk, 0, len(leftChunk), rightChunk, 0, len(rightChunk), shadowLeft, shadowRight)
		t.addNDShadowed(leftChunk, shadowLeft, isLastIter)
		t.addNDShadowed(rightChunk, shadowRight, isLastIter)

		leftPruned, rightPruned, commonLen = removeCommonPrefix(t.Prune(left), t.Prune(right))
		if commonLen >= t.maxSignificant || (len(leftPruned) == 0 && len(rightPruned) == 0) {
			return
		}
	}
}
