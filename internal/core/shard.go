package core

// Shard splits items into n contiguous shards of len(items)/n elements each;
// the last shard absorbs the remainder. Exactly n shards are returned even
// when some are empty. n below 1 is treated as 1.
func Shard[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}

	size := len(items) / n
	shards := make([][]T, n)
	for i := 0; i < n; i++ {
		start := i * size
		end := start + size
		if i == n-1 {
			end = len(items)
		}
		shards[i] = items[start:end:end]
	}
	return shards
}
