package utils

/*
PartitionMap splits the items 0..MaxIndex-1 into ParallelDegree contiguous buckets whose sizes
differ by at most one. Assembly hands bucket n to worker n.
*/
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// GetBucket finds the bucket holding item k, bucketNum is -1 when k is out of range.
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	_, bucketNum, min, max = pm.getBucketWithTryCount(k)
	return
}

func (pm *PartitionMap) getBucketWithTryCount(k int) (tryCount, bucketNum, min, max int) {
	if k < 0 || k >= pm.MaxIndex {
		return 0, -1, 0, 0
	}
	// Initial guess
	bucketNum = int(float64(pm.ParallelDegree*k) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= k && pm.Partitions[bucketNum][1] > k) {
		if pm.Partitions[bucketNum][0] > k {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return 0, -1, 0, 0
		}
		tryCount++
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Maximum imbalance of one item, the remainder is spread over the first buckets
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 {
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
