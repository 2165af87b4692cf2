package benchmark

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/maryam-tariqq/DSA-Project/internal/docstore"
	"github.com/maryam-tariqq/DSA-Project/internal/index"
	"github.com/maryam-tariqq/DSA-Project/pkg/config"
)

func benchConfig(b *testing.B) config.IndexConfig {
	b.Helper()
	return config.IndexConfig{
		DataDir:           b.TempDir(),
		BarrelMaxBytes:    16 << 20,
		ReadRetryAttempts: 2,
		ReadTimeout:       5 * time.Second,
	}
}

func benchCorpus(n int) []docstore.Document {
	titles := []string{
		"neural network training dynamics",
		"sparse coding for image retrieval",
		"distributed consensus protocols",
		"graph representation learning",
		"query optimization in column stores",
	}
	corpus := make([]docstore.Document, n)
	for i := range corpus {
		corpus[i] = docstore.Document{
			ID:       fmt.Sprintf("paper-%d", i),
			Title:    titles[i%len(titles)],
			Abstract: "an abstract describing methods results and evaluation in detail",
		}
	}
	return corpus
}

func BenchmarkBuild(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			corpus := benchCorpus(size)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				cfg := benchConfig(b)
				b.StartTimer()
				ix, err := index.Build(cfg, nil, corpus)
				if err != nil {
					b.Fatal(err)
				}
				b.StopTimer()
				ix.Close()
				b.StartTimer()
			}
		})
	}
}

func BenchmarkAddDocument(b *testing.B) {
	ix, err := index.Build(benchConfig(b), nil, benchCorpus(1000))
	if err != nil {
		b.Fatal(err)
	}
	defer ix.Close()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := ix.AddDocument(ctx, docstore.Document{
			ID:       fmt.Sprintf("bench-add-%d", i),
			Title:    "incremental document addition throughput",
			Abstract: "measures the staged commit path end to end",
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
