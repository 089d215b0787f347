package processor

const (
	// MaxAutoBatch caps the automatically chosen batch size.
	MaxAutoBatch = 10000
)

// Shard is a contiguous id range of the log source processed by one task.
// It covers ids in (StartID, StartID+Size].
type Shard struct {
	Index   int
	StartID int64
	Size    int
}

// Segment splits total rows into shards of batchSize rows each.
// The last shard may cover fewer rows than Size. Segment returns nil when
// there is nothing to read or batchSize is not positive.
func Segment(total int64, batchSize int) []Shard {
	if total <= 0 || batchSize <= 0 {
		return nil
	}

	n := (total + int64(batchSize) - 1) / int64(batchSize)
	shards := make([]Shard, 0, n)
	for k := int64(0); k < n; k++ {
		shards = append(shards, Shard{
			Index:   int(k),
			StartID: k * int64(batchSize),
			Size:    batchSize,
		})
	}
	return shards
}

// AutoBatchSize picks a batch size that gives every worker at least one
// shard for small inputs and caps shards at MaxAutoBatch rows otherwise.
func AutoBatchSize(total int64, workers int) int {
	if workers <= 0 {
		workers = 1
	}
	if total < int64(workers)*MaxAutoBatch {
		return int(max(1, total/int64(workers)))
	}
	return MaxAutoBatch
}
