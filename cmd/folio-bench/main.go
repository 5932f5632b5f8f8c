// folio-bench is a benchmark and stress test for the folio paging engine.
// It creates a large file and measures scrolling, jumping, editing and saving
// through a Controller while checking that the window stays bounded.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/phroun/folio"
)

const (
	viewWidth  = 100
	viewHeight = 50
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec) %s", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec)", r.Name, r.Duration.Round(time.Millisecond), r.Ops, opsPerSec)
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Millisecond), r.Extra)
	}
	return fmt.Sprintf("%-40s %12v", r.Name, r.Duration.Round(time.Millisecond))
}

// bench drives one controller on its own loop.
type bench struct {
	loop   *folio.Loop
	source *folio.FileSource
	sink   *folio.TextSink
	ctrl   *folio.Controller
	opts   folio.Options

	maxWindow int
}

func main() {
	sizeMB := flag.Int("size", 256, "Test file size in MB")
	pageSize := flag.Int64("page-size", folio.DefaultPageSize, "Nominal page size in bytes")
	seed := flag.Int64("seed", 1, "Random seed for jumps and edits")
	verbose := flag.Int("v", 0, "Log verbosity (0 = quiet)")
	flag.Parse()

	commonlog.Configure(*verbose, nil)

	fileSize := int64(*sizeMB) << 20

	fmt.Println("Folio Benchmark and Stress Test")
	fmt.Println("===============================")
	fmt.Printf("File size: %d MB, page size: %d KB\n", *sizeMB, *pageSize/1024)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "folio-bench-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	testFile := filepath.Join(tmpDir, "test.txt")

	var results []BenchResult

	fmt.Println("Generating test file...")
	result := generateTestFile(testFile, fileSize)
	results = append(results, result)
	fmt.Println(result)
	fmt.Println()

	opts := folio.Options{PageSize: *pageSize}
	if *pageSize <= folio.DefaultMaxPageBoundaryShift {
		opts.MaxPageBoundaryShift = *pageSize / 4
	}

	b, err := openBench(testFile, opts)
	if err != nil {
		fmt.Printf("Failed to open file: %v\n", err)
		os.Exit(1)
	}
	defer b.close()

	rng := rand.New(rand.NewSource(*seed))

	runBench := func(name string, fn func() BenchResult) {
		fmt.Printf("  %-40s ", name+"...")
		result := fn()
		fmt.Printf("%v\n", result.Duration.Round(time.Millisecond))
		results = append(results, result)
	}

	fmt.Println("Running benchmarks...")
	fmt.Println()

	fmt.Println("Page source:")
	runBench("Sequential page reads", func() BenchResult { return b.benchReadPages() })

	fmt.Println("\nNavigation:")
	runBench("Scroll forward by screen", func() BenchResult { return b.benchScroll(500) })
	runBench("Random page jumps", func() BenchResult { return b.benchJumps(rng, 200) })
	runBench("Scroll backward across pages", func() BenchResult { return b.benchScrollBack(200) })

	fmt.Println("\nEditing:")
	runBench("Edits with undo/redo", func() BenchResult { return b.benchEdits(rng, 100) })
	runBench("Save", func() BenchResult { return b.benchSave() })

	fmt.Println("\n" + "=")
	fmt.Println("SUMMARY")
	fmt.Println("=")
	for _, r := range results {
		fmt.Println(r)
	}

	var s folio.Stats
	b.loop.Do(func() { s = b.ctrl.Stats() })
	fmt.Println()
	fmt.Printf("Largest window: %d pages\n", b.maxWindow)
	fmt.Printf("Reads: %d, cache hits: %d, evictions: %d, resets: %d\n", s.Reads, s.CacheHits, s.Evictions, s.Resets)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Printf("Peak heap allocation: %d MB\n", m.HeapSys/(1024*1024))
	fmt.Printf("Total allocations: %d MB\n", m.TotalAlloc/(1024*1024))
}

func generateTestFile(path string, fileSize int64) BenchResult {
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return BenchResult{Name: "Generate test file", Duration: 0, Extra: fmt.Sprintf("ERROR: %v", err)}
	}
	defer f.Close()

	lineNum := 1
	written := int64(0)
	buf := make([]byte, 16*1024*1024)

	for written < fileSize {
		pos := 0
		for pos < len(buf)-200 && written+int64(pos) < fileSize {
			line := fmt.Sprintf("%08d: ", lineNum)
			copy(buf[pos:], line)
			pos += len(line)

			contentLen := 60 + lineNum%40
			for i := 0; i < contentLen; i++ {
				buf[pos+i] = 'a' + byte((lineNum+i)%26)
			}
			pos += contentLen
			buf[pos] = '\n'
			pos++
			lineNum++
		}

		toWrite := pos
		if written+int64(toWrite) > fileSize {
			toWrite = int(fileSize - written)
		}

		n, err := f.Write(buf[:toWrite])
		if err != nil {
			return BenchResult{Name: "Generate test file", Duration: time.Since(start), Extra: fmt.Sprintf("ERROR: %v", err)}
		}
		written += int64(n)
	}

	return BenchResult{
		Name:     "Generate test file",
		Duration: time.Since(start),
		Extra:    fmt.Sprintf("%d lines", lineNum-1),
	}
}

func openBench(path string, opts folio.Options) (*bench, error) {
	src, err := folio.OpenFileSource(path, opts)
	if err != nil {
		return nil, err
	}
	b := &bench{
		loop:   folio.NewLoop(),
		source: src,
		sink:   folio.NewTextSink(viewWidth, viewHeight),
		opts:   opts,
	}
	b.ctrl, err = folio.NewController(folio.Config{
		Source:   src,
		Sink:     b.sink,
		Viewport: b.sink,
		Executor: b.loop,
		Options:  opts,
	})
	if err != nil {
		src.Close()
		b.loop.Close()
		return nil, err
	}
	b.loop.Do(func() { b.ctrl.OnViewportResized(viewHeight) })
	b.wait()
	return b, nil
}

func (b *bench) close() {
	b.loop.Do(func() { b.ctrl.Close() })
	b.loop.Close()
	b.source.Close()
}

// wait blocks until the controller has no reads or save outstanding and
// records the window size.
func (b *bench) wait() folio.State {
	for {
		var state folio.State
		var busy bool
		var window int
		b.loop.Do(func() {
			state = b.ctrl.State()
			busy = state == folio.StateLoading || b.ctrl.Saving()
			window = len(b.ctrl.Window())
		})
		if window > b.maxWindow {
			b.maxWindow = window
		}
		if !busy {
			return state
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// intent retries fn until the controller accepts it.
func (b *bench) intent(fn func(c *folio.Controller) bool) {
	for {
		ok := false
		b.loop.Do(func() { ok = fn(b.ctrl) })
		if ok {
			return
		}
		b.wait()
	}
}

func (b *bench) benchReadPages() BenchResult {
	count, _ := b.source.PageCount()
	if count > 1000 {
		count = 1000
	}
	start := time.Now()
	var bytes int64
	for n := int64(0); n < count; n++ {
		p, err := b.source.ReadPage(n)
		if err != nil {
			return BenchResult{Name: "Sequential page reads", Duration: time.Since(start), Extra: fmt.Sprintf("ERROR: %v", err)}
		}
		bytes += int64(len(p.Text))
	}
	return BenchResult{
		Name:     "Sequential page reads",
		Duration: time.Since(start),
		Ops:      int(count),
		Extra:    fmt.Sprintf("%d MB", bytes>>20),
	}
}

func (b *bench) benchScroll(steps int) BenchResult {
	b.intent(func(c *folio.Controller) bool { return c.TrySwitchToPage(0) })
	b.wait()

	start := time.Now()
	for i := 0; i < steps; i++ {
		b.intent(func(c *folio.Controller) bool { return c.ScrollBy(viewHeight) })
		if b.wait() == folio.StateError {
			return BenchResult{Name: "Scroll forward by screen", Duration: time.Since(start), Extra: "ERROR: controller failed"}
		}
	}
	var target folio.AbsolutePosition
	b.loop.Do(func() { target = b.ctrl.Target() })
	return BenchResult{
		Name:     "Scroll forward by screen",
		Duration: time.Since(start),
		Ops:      steps,
		Extra:    fmt.Sprintf("reached %v", target),
	}
}

func (b *bench) benchJumps(rng *rand.Rand, jumps int) BenchResult {
	count, _ := b.source.PageCount()
	start := time.Now()
	for i := 0; i < jumps; i++ {
		page := rng.Int63n(count)
		b.intent(func(c *folio.Controller) bool { return c.TrySwitchToPage(page) })
		b.wait()
	}
	return BenchResult{Name: "Random page jumps", Duration: time.Since(start), Ops: jumps}
}

func (b *bench) benchScrollBack(steps int) BenchResult {
	count, _ := b.source.PageCount()
	b.intent(func(c *folio.Controller) bool { return c.TrySwitchToPage(count / 2) })
	b.wait()

	start := time.Now()
	for i := 0; i < steps; i++ {
		b.intent(func(c *folio.Controller) bool { return c.ScrollBy(-viewHeight) })
		b.wait()
	}
	return BenchResult{Name: "Scroll backward across pages", Duration: time.Since(start), Ops: steps}
}

func (b *bench) benchEdits(rng *rand.Rand, edits int) BenchResult {
	start := time.Now()
	applied := 0
	for i := 0; i < edits; i++ {
		var err error
		b.loop.Do(func() {
			win := b.ctrl.Window()
			if len(win) == 0 {
				return
			}
			page := win[rng.Intn(len(win))]
			p, _ := b.ctrl.Page(page)
			err = b.ctrl.ApplyEdit(folio.Edit{Page: page, Offset: rng.Intn(p.Len() + 1), Inserted: "EDIT"})
			if err == nil {
				applied++
			}
		})
		if err != nil {
			return BenchResult{Name: "Edits with undo/redo", Duration: time.Since(start), Extra: fmt.Sprintf("ERROR: %v", err)}
		}
	}
	for i := 0; i < applied; i++ {
		b.intent(func(c *folio.Controller) bool { return c.TryUndoRedo(true) })
		b.wait()
	}
	for i := 0; i < applied; i++ {
		b.intent(func(c *folio.Controller) bool { return c.TryUndoRedo(false) })
		b.wait()
	}
	return BenchResult{Name: "Edits with undo/redo", Duration: time.Since(start), Ops: applied * 3}
}

func (b *bench) benchSave() BenchResult {
	done := make(chan error, 1)
	b.loop.Do(func() {
		b.ctrl.SetSaveHandler(func(err error) { done <- err })
	})

	start := time.Now()
	b.intent(func(c *folio.Controller) bool { return c.TrySave() })
	err := <-done
	b.wait()

	extra := fmt.Sprintf("%d MB", b.source.Size()>>20)
	if err != nil {
		extra = fmt.Sprintf("ERROR: %v", err)
	}
	return BenchResult{Name: "Save", Duration: time.Since(start), Extra: extra}
}
