package search

import (
	"container/heap"

	"github.com/maryam-tariqq/DSA-Project/internal/index/postings"
)

type scoredDoc struct {
	Doc   postings.DocID
	Score float64
}

// topK keeps the best limit documents out of the scored set using a
// bounded min-heap, returned best-first. Ties break toward the lower
// DocID.
func topK(scored []scoredDoc, limit int) []scoredDoc {
	if limit <= 0 {
		return nil
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range scored {
		heap.Push(h, doc)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	if h.Len() == 0 {
		return nil
	}
	result := make([]scoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(scoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap: the root is the worst survivor, so
// pushing then popping past the limit evicts correctly. The DocID
// ordering is inverted so higher ids are evicted first on score ties.
type scoredDocHeap []scoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Doc > h[j].Doc
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(scoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
