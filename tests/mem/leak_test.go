//go:build test

package mem

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/lexiserve/pkg/cache"
	"github.com/bastiangx/lexiserve/pkg/config"
	"github.com/bastiangx/lexiserve/pkg/lexicon"
	"github.com/bastiangx/lexiserve/pkg/phonetic"
	"github.com/bastiangx/lexiserve/pkg/search"
	"github.com/bastiangx/lexiserve/pkg/similarity"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var seedWords = map[string]int{
	"happy": 9000, "happier": 4200, "happiest": 2100, "haply": 80,
	"hello": 8000, "help": 7600, "helper": 3100, "helping": 2600,
	"world": 8800, "word": 9100, "work": 9600, "worker": 4400,
	"program": 5200, "programmer": 2900, "progress": 3800, "project": 6100,
	"there": 9700, "theory": 3400, "thermal": 1200, "therapy": 2500,
	"computer": 6800, "compute": 3000, "company": 7400, "compare": 4100,
	"phone": 7100, "phonetic": 900, "photo": 5600, "phrase": 3300,
	"develop": 4800, "developer": 3600, "development": 4000, "device": 5900,
	"international": 3900, "internal": 4300, "internet": 7000, "interval": 1800,
	"search": 6600, "serve": 4700, "server": 5500, "service": 7200,
	"night": 6200, "knight": 1500, "light": 6900, "write": 6400,
}

var testQueries = []string{
	"ha", "hap", "hapy", "happ",
	"he", "hel", "helo", "help",
	"wo", "wor", "wrold", "word",
	"pr", "pro", "progrm", "prog",
	"th", "the", "ther", "teory",
	"co", "com", "compu", "comptuer",
	"fone", "foto", "nite", "rite",
}

var longPatterns = [][]string{
	{"h", "ha", "hap", "happ", "happy"},
	{"h", "he", "hel", "hell", "hello"},
	{"w", "wo", "wor", "worl", "world"},
	{"p", "pr", "pro", "prog", "progr", "progra", "program"},
	{"t", "th", "the", "ther", "there"},
	{"c", "co", "com", "comp", "compu", "comput", "computer"},
	{"i", "in", "int", "inte", "inter", "intern", "interna", "internat", "internati", "internatio", "internation", "internationa", "international"},
	{"d", "de", "dev", "deve", "devel", "develo", "develop", "developm", "developme", "developmen", "development"},
}

func newSoakEngine(t *testing.T) *search.Engine {
	t.Helper()
	ix := lexicon.New()
	results, err := cache.New[[]search.Result](cache.Config{})
	if err != nil {
		t.Fatalf("cache initialization failed: %v", err)
	}
	t.Cleanup(func() { _ = results.Close() })

	engine := search.NewEngine(ix, similarity.NewScorer(ix), phonetic.NewIndex(), nil, results, config.DefaultConfig())
	for word, freq := range seedWords {
		if err := engine.AddWord(word, freq, nil); err != nil {
			t.Fatalf("seeding %q failed: %v", word, err)
		}
	}
	return engine
}

func TestMemoryLeakBasic(t *testing.T) {
	iterations := []int{100, 500, 1000, 2500, 5000}

	for _, iterCount := range iterations {
		t.Run(fmt.Sprintf("iterations_%d", iterCount), func(t *testing.T) {
			runBasicMemoryTest(t, iterCount, testQueries)
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	configs := []struct {
		workers             int
		iterationsPerWorker int
	}{
		{workers: 1, iterationsPerWorker: 1000},
		{workers: 2, iterationsPerWorker: 500},
		{workers: 4, iterationsPerWorker: 250},
		{workers: 8, iterationsPerWorker: 125},
	}

	for _, config := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", config.workers, config.iterationsPerWorker), func(t *testing.T) {
			runConcurrentMemoryTest(t, config.workers, config.iterationsPerWorker)
		})
	}
}

func TestMemoryStabilityLongRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping long-running memory stability test in short mode")
	}

	cycles := 50
	opsPerCycle := 200

	runLongRunMemoryTest(t, cycles, opsPerCycle)
}

func runBasicMemoryTest(t *testing.T, iterations int, queries []string) {
	engine := newSoakEngine(t)
	opts := search.DefaultOptions()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	for i := 0; i < iterations; i++ {
		for _, query := range queries {
			results := engine.Search(query, opts)
			_ = results
		}
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	memDelta := int64(final.Alloc - baseline.Alloc)
	goroutineDelta := finalGoroutines - baselineGoroutines
	totalOps := iterations * len(queries)
	memPerOp := float64(memDelta) / float64(totalOps)

	t.Logf("iterations=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		iterations, totalOps, memDelta, memPerOp, goroutineDelta)

	if memPerOp > 1000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}

	if goroutineDelta > 2 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runConcurrentMemoryTest(t *testing.T, workers, iterationsPerWorker int) {
	memFile, err := os.Create("concurrent_memory.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer func() {
		memFile.Close()
		os.Remove("concurrent_memory.prof")
	}()

	engine := newSoakEngine(t)
	opts := search.DefaultOptions()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	queriesPerIteration := 0
	for _, pattern := range longPatterns {
		queriesPerIteration += len(pattern)
	}

	var wg sync.WaitGroup
	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for iter := 0; iter < iterationsPerWorker; iter++ {
				for _, pattern := range longPatterns {
					for _, query := range pattern {
						results := engine.Search(query, opts)
						_ = results
					}
				}
			}
		}()
	}

	wg.Wait()
	totalOps := workers * iterationsPerWorker * queriesPerIteration

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	memDelta := int64(final.Alloc - baseline.Alloc)
	goroutineDelta := finalGoroutines - baselineGoroutines
	memPerOp := float64(memDelta) / float64(totalOps)

	t.Logf("workers=%d iter_per_worker=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
		workers, iterationsPerWorker, totalOps, memDelta, memPerOp, goroutineDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}

	if memPerOp > 1000 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
	}

	if goroutineDelta > 3 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", goroutineDelta)
	}
}

func runLongRunMemoryTest(t *testing.T, cycles, opsPerCycle int) {
	memFile, err := os.Create("longrun_stability.prof")
	if err != nil {
		t.Fatalf("profile file creation failed: %v", err)
	}
	defer func() {
		memFile.Close()
		os.Remove("longrun_stability.prof")
	}()

	engine := newSoakEngine(t)
	opts := search.DefaultOptions()

	var baseline runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&baseline)
	baselineGoroutines := runtime.NumGoroutine()

	totalOps := 0
	maxMemDelta := int64(0)

	for cycle := 0; cycle < cycles; cycle++ {
		for op := 0; op < opsPerCycle; op++ {
			pattern := longPatterns[op%len(longPatterns)]
			query := pattern[op%len(pattern)]
			results := engine.Search(query, opts)
			_ = results
			totalOps++
		}

		if cycle%10 == 0 {
			var m runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&m)

			memDelta := int64(m.Alloc - baseline.Alloc)
			goroutineDelta := runtime.NumGoroutine() - baselineGoroutines
			memPerOp := float64(memDelta) / float64(totalOps)

			if memDelta > maxMemDelta {
				maxMemDelta = memDelta
			}

			t.Logf("cycle=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				cycle, totalOps, memDelta, memPerOp, goroutineDelta)
		}

		if cycle%20 == 0 && cycle > 0 {
			if err := engine.ClearCache(); err != nil {
				t.Errorf("cache clear failed: %v", err)
			}
		}

		time.Sleep(5 * time.Millisecond)
	}

	var final runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&final)
	finalGoroutines := runtime.NumGoroutine()

	finalMemDelta := int64(final.Alloc - baseline.Alloc)
	finalGoroutineDelta := finalGoroutines - baselineGoroutines
	finalMemPerOp := float64(finalMemDelta) / float64(totalOps)

	t.Logf("final_summary: cycles=%d total_ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d max_mem_delta=%d",
		cycles, totalOps, finalMemDelta, finalMemPerOp, finalGoroutineDelta, maxMemDelta)

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		t.Errorf("heap profile write failed: %v", err)
	}

	if finalMemPerOp > 500 {
		t.Errorf("excessive memory usage per operation: %.2f bytes", finalMemPerOp)
	}

	if finalGoroutineDelta > 2 {
		t.Errorf("goroutine leak detected: %d goroutines leaked", finalGoroutineDelta)
	}

	if maxMemDelta > 10*1024*1024 {
		t.Errorf("excessive peak memory usage: %d bytes", maxMemDelta)
	}
}
