package models

// Cluster groups similar log lines.
// Representative is the sequence that founded the cluster and is never
// modified afterwards. Pattern starts equal to Representative and only gains
// placeholders as members merge in.
type Cluster struct {
	Representative TokenSequence
	Pattern        TokenSequence
	Count          uint64
}

// NewCluster creates a single-member cluster founded by tokens.
func NewCluster(tokens TokenSequence) Cluster {
	return Cluster{
		Representative: tokens,
		Pattern:        tokens,
		Count:          1,
	}
}

// ClusterList is an ordered list of clusters in creation order.
// Order matters: first-fit matching scans it from the front.
type ClusterList []Cluster

// Filter returns the clusters with at least minMembers members, in order.
func (l ClusterList) Filter(minMembers uint64) ClusterList {
	out := make(ClusterList, 0, len(l))
	for _, c := range l {
		if c.Count >= minMembers {
			out = append(out, c)
		}
	}
	return out
}

// TotalCount sums the member counts of all clusters.
func (l ClusterList) TotalCount() uint64 {
	var total uint64
	for _, c := range l {
		total += c.Count
	}
	return total
}

// Clone returns a copy of the list. Token sequences are shared since they are
// replaced, never mutated, after creation.
func (l ClusterList) Clone() ClusterList {
	if l == nil {
		return nil
	}
	out := make(ClusterList, len(l))
	copy(out, l)
	return out
}
