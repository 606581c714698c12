package gosam

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
)

// ColBlock locates one variable's column range in the assembled system.
type ColBlock struct {
	Offset int
	Dim    int
}

// GraphOrder maps every key to its column block. It is computed once from
// the initial Values (insertion order) and treated as read-only for the rest
// of an optimize call; it becomes invalid if the key set or any variable
// dimension changes.
type GraphOrder struct {
	keys   []Key
	blocks map[Key]ColBlock
	dim    int
}

// NewGraphOrder builds the column ordering from the Values' insertion order.
func NewGraphOrder(values *Values) *GraphOrder {
	o := &GraphOrder{
		keys:   values.Keys(),
		blocks: make(map[Key]ColBlock, values.Len()),
	}
	for _, key := range o.keys {
		v, _ := values.At(key)
		o.blocks[key] = ColBlock{Offset: o.dim, Dim: v.Dim()}
		o.dim += v.Dim()
	}
	return o
}

// Block returns the column block of key.
func (o *GraphOrder) Block(key Key) (ColBlock, bool) {
	blk, ok := o.blocks[key]
	return blk, ok
}

// Dim returns the total column dimension.
func (o *GraphOrder) Dim() int { return o.dim }

// Len returns the number of variables.
func (o *GraphOrder) Len() int { return len(o.keys) }

// Fingerprint identifies the key set and dimensions, for cache invalidation.
func (o *GraphOrder) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, key := range o.keys {
		binary.LittleEndian.PutUint64(buf[:], uint64(key))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(o.blocks[key].Dim))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// sparsityPattern is the symbolic non-zero structure of the stacked Jacobian
// for a fixed graph and order: CSR index arrays plus a mapping from the
// deterministic block-emission order to numeric data slots. It is computed
// once and reused every iteration; only the numeric values change.
type sparsityPattern struct {
	rows, cols  int
	indptr      []int
	ind         []int
	slots       []int
	orderPrint  uint64
	fingerprint uint64
}

// newSparsityPattern walks every factor's output rows against its keys'
// column ranges, exactly as the numeric scatter will.
func newSparsityPattern(factors []*Factor, order *GraphOrder) (*sparsityPattern, error) {
	type coord struct {
		col  int
		emit int
	}

	rows := 0
	for _, f := range factors {
		rows += f.DimOut()
	}

	p := &sparsityPattern{
		rows:       rows,
		cols:       order.Dim(),
		indptr:     make([]int, 1, rows+1),
		orderPrint: order.Fingerprint(),
	}

	emit := 0
	rowCoords := make([]coord, 0, 32)
	for _, f := range factors {
		blocks := make([]ColBlock, len(f.keys))
		for i, key := range f.keys {
			blk, ok := order.Block(key)
			if !ok {
				return nil, fmt.Errorf("%w: %v (factor over %v)", ErrKeyNotFound, key, f.keys)
			}
			blocks[i] = blk
		}
		for i := 0; i < f.DimOut(); i++ {
			rowCoords = rowCoords[:0]
			for _, blk := range blocks {
				for j := 0; j < blk.Dim; j++ {
					rowCoords = append(rowCoords, coord{col: blk.Offset + j, emit: emit})
					emit++
				}
			}
			p.slots = append(p.slots, make([]int, len(rowCoords))...)
			sort.Slice(rowCoords, func(a, b int) bool { return rowCoords[a].col < rowCoords[b].col })
			// Duplicate columns (a factor repeating a key) share one slot
			// and accumulate.
			prev := -1
			for _, rc := range rowCoords {
				if rc.col != prev {
					p.ind = append(p.ind, rc.col)
					prev = rc.col
				}
				p.slots[rc.emit] = len(p.ind) - 1
			}
			p.indptr = append(p.indptr, len(p.ind))
		}
	}

	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(p.rows))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(p.cols))
	h.Write(buf[:])
	for _, c := range p.ind {
		binary.LittleEndian.PutUint64(buf[:], uint64(c))
		h.Write(buf[:])
	}
	for _, r := range p.indptr {
		binary.LittleEndian.PutUint64(buf[:], uint64(r))
		h.Write(buf[:])
	}
	p.fingerprint = h.Sum64()
	return p, nil
}

// nnz returns the number of stored non-zero positions.
func (p *sparsityPattern) nnz() int { return len(p.ind) }
