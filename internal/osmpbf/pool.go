package osmpbf

import "sync"

// BlockPool recycles *PrimitiveBlock values across worker tasks instead
// of letting each blob's decode allocate a fresh one, the same
// Get/Put/reset shape github.com/sirgallo/mari's NodePool.go applies to
// its MariINode/MariLNode values — generalized here to a single pooled
// type, since decoding has only one hot allocation (a block's string
// table and group slices), not mari's two node kinds.
type BlockPool struct {
	pool *sync.Pool
}

// NewBlockPool constructs an empty pool; values are allocated lazily on
// first Get, matching sync.Pool's own idiom rather than mari's
// initializePools pre-warming (a decode pool has no fixed capacity to
// pre-size against, unlike mari's bounded node budget).
func NewBlockPool() *BlockPool {
	return &BlockPool{
		pool: &sync.Pool{
			New: func() interface{} { return &PrimitiveBlock{} },
		},
	}
}

// Get returns a zeroed, ready-to-decode-into block.
func (p *BlockPool) Get() *PrimitiveBlock {
	return p.pool.Get().(*PrimitiveBlock)
}

// Put returns a block to the pool once its entries have been extracted
// and it is no longer referenced, truncating its slices (not discarding
// their backing arrays) so the next Get reuses the capacity.
func (p *BlockPool) Put(b *PrimitiveBlock) {
	b.StringTable = b.StringTable[:0]
	b.Groups = b.Groups[:0]
	b.Granularity = 0
	b.LatOffset = 0
	b.LonOffset = 0
	p.pool.Put(b)
}
