package preimage

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheSize bounds the number of raw pre-images kept by a CachingOracle.
const DefaultCacheSize = 100_000

// CachingOracle keeps recently retrieved pre-images in memory.
// Pre-images are content-addressed and immutable, so cached entries never go stale.
type CachingOracle struct {
	oracle Oracle
	cache  *simplelru.LRU[[32]byte, []byte]
}

var _ Oracle = (*CachingOracle)(nil)

func NewCachingOracle(oracle Oracle, size int) *CachingOracle {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := simplelru.NewLRU[[32]byte, []byte](size, nil)
	return &CachingOracle{
		oracle: oracle,
		cache:  cache,
	}
}

func (o *CachingOracle) Get(key Key) ([]byte, error) {
	k := key.PreimageKey()
	if v, ok := o.cache.Get(k); ok {
		return v, nil
	}
	v, err := o.oracle.Get(key)
	if err != nil {
		return nil, err
	}
	o.cache.Add(k, v)
	return v, nil
}
