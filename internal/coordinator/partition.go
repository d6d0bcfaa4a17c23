package coordinator

import (
	"fmt"

	"hexpi/internal/digits"
)

// Partition splits [start, start+count) into n contiguous shards. The first n-1
// shards get count/n digits each; the last one also takes the remainder.
//
// n is clamped to count so no shard is empty. A zero count yields no shards.
func Partition(start, count int64, n int) ([]digits.Range, error) {
	if start < 0 || count < 0 {
		return nil, fmt.Errorf("%w: start=%d count=%d", ErrInvalidRange, start, count)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, n)
	}
	if count == 0 {
		return nil, nil
	}
	if int64(n) > count {
		n = int(count)
	}

	shardSize := count / int64(n)
	shards := make([]digits.Range, n)
	for i := range n {
		size := shardSize
		if i == n-1 {
			size = count - int64(n-1)*shardSize
		}
		shards[i] = digits.Range{
			Start: start + int64(i)*shardSize,
			Count: size,
		}
	}

	return shards, nil
}
