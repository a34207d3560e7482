package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aristanetworks/glog"

	"github.com/gocrmap/rhmap"
	"github.com/gocrmap/rhmap/internal/loadgen"
	"github.com/gocrmap/rhmap/rhmetrics"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML workload config file")
	listenAddr := flag.String("listen", "", "Override the config file's metrics listen address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		glog.Fatal(err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	collector := rhmetrics.NewCollector(nil, prometheus.Labels{"workload": "rhmapd"})
	m := rhmap.New[string, int64](
		rhmap.WithBuckets[string, int64](cfg.Buckets),
		rhmap.WithObserver[string, int64](collector),
	)
	collector.Bind(m)
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		glog.V(1).Infof("rhmapd: serving metrics on %s", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
			glog.Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	if err := runWorkload(ctx, m, cfg); err != nil {
		glog.Fatal(err)
	}

	stats := m.Stats()
	fmt.Printf("rhmapd: finished; size=%d primaryBuckets=%d secondaryBuckets=%d largestBucket=%d\n",
		m.Size(), stats.PrimaryBuckets, stats.SecondaryBuckets, stats.LargestBucket)
}

// runWorkload fans Config.Workers writer goroutines out across the map's
// keyspace, bounding how many may be mid-write at once via a Weighted
// semaphore, and stops when ctx is done.
func runWorkload(ctx context.Context, m *rhmap.Map[string, int64], cfg Config) error {
	sem := loadgen.NewWeighted(cfg.MaxConcurrentWriters)

	g, ctx := errgroup.WithContext(ctx)
	var ops atomic.Uint64

	for w := 0; w < cfg.Workers; w++ {
		worker := w
		g.Go(func() error {
			for i := 0; ; i++ {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				if err := sem.Acquire(ctx, 1); err != nil {
					return nil
				}
				key := fmt.Sprintf("worker-%d-key-%d", worker, i%cfg.Keyspace)
				m.Insert(key, int64(i))
				if cfg.DeleteEvery > 0 && i%cfg.DeleteEvery == 0 {
					m.Remove(key)
				}
				sem.Release(1)
				ops.Add(1)
			}
		})
	}

	err := g.Wait()
	glog.V(1).Infof("rhmapd: workload finished after %d operations", ops.Load())
	return err
}
