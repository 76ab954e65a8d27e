// bench-mutations measures heap memory and throughput of the mutation
// pipeline (atomic write + commit + journal) across many tenant libraries.
//
// Usage:
//
//	go run ./scripts/bench-mutations --root /tmp/bench-libraries --tenants 20 \
//	  --mutations 500 --profile-dir docs/profiles/mutations
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/braindrive/library/internal/scope"
	"github.com/braindrive/library/internal/tools"
)

func main() {
	rootDir := flag.String("root", "", "Scratch directory for tenant libraries (created if absent)")
	tenants := flag.Int("tenants", 10, "Number of tenant libraries to create")
	mutations := flag.Int("mutations", 200, "Mutations per tenant")
	chunkSize := flag.Int("chunk-size", 50, "Mutations per chunk between heap snapshots")
	profileDir := flag.String("profile-dir", "", "Directory to write heap profiles")
	cpuProfile := flag.Bool("cpu-profile", false, "Write CPU profile to profile-dir/cpu.prof")

	flag.Parse()

	if *rootDir == "" {
		log.Fatal("--root is required")
	}

	if *profileDir == "" {
		log.Fatal("--profile-dir is required")
	}

	if err := os.MkdirAll(*rootDir, 0o755); err != nil {
		log.Fatalf("mkdir root: %v", err)
	}

	if err := os.MkdirAll(*profileDir, 0o755); err != nil {
		log.Fatalf("mkdir profile-dir: %v", err)
	}

	if *cpuProfile {
		cpuPath := filepath.Join(*profileDir, "cpu.prof")

		cpuFile, cpuErr := os.Create(cpuPath)
		if cpuErr != nil {
			log.Fatalf("create cpu profile: %v", cpuErr)
		}
		defer cpuFile.Close()

		if startErr := pprof.StartCPUProfile(cpuFile); startErr != nil {
			log.Fatalf("start cpu profile: %v", startErr)
		}

		defer pprof.StopCPUProfile()

		log.Printf("CPU profiling enabled -> %s", cpuPath)
	}

	contexts := bootstrapTenants(*rootDir, *tenants)
	log.Printf("bootstrapped %d tenant libraries under %s", len(contexts), *rootDir)

	type heapSnapshot struct {
		label     string
		heapInUse uint64
		heapSys   uint64
		heapIdle  uint64
		numGC     uint32
	}

	var snapshots []heapSnapshot

	takeSnapshot := func(label string) {
		runtime.GC()
		runtime.GC()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snapshots = append(snapshots, heapSnapshot{
			label:     label,
			heapInUse: m.HeapInuse,
			heapSys:   m.HeapSys,
			heapIdle:  m.HeapIdle,
			numGC:     m.NumGC,
		})
		log.Printf("  [heap] %-40s inuse=%6.1f MB  sys=%6.1f MB  idle=%6.1f MB",
			label, float64(m.HeapInuse)/1e6, float64(m.HeapSys)/1e6, float64(m.HeapIdle)/1e6)
	}

	writeHeapProfile := func(name string) {
		runtime.GC()
		runtime.GC()

		path := filepath.Join(*profileDir, name)

		f, ferr := os.Create(path)
		if ferr != nil {
			log.Printf("warning: create heap profile %s: %v", path, ferr)

			return
		}
		defer f.Close()

		if perr := pprof.WriteHeapProfile(f); perr != nil {
			log.Printf("warning: write heap profile %s: %v", path, perr)
		}
	}

	writeMarkdown, ok := tools.Lookup("write_markdown")
	if !ok {
		log.Fatal("write_markdown handler not registered")
	}

	chunks := planChunks(*mutations, *chunkSize)
	log.Printf("running %d mutations per tenant in %d chunks (chunk size %d)", *mutations, len(chunks), *chunkSize)

	takeSnapshot("before_mutations")
	writeHeapProfile("heap_before_mutations.prof")

	started := time.Now()
	total := 0

	for i, chunk := range chunks {
		for n := chunk.start; n < chunk.end; n++ {
			for _, ctx := range contexts {
				payload := map[string]any{
					"path": "capture/inbox/bench.md",
					"operation": map[string]any{
						"type":    "append",
						"content": fmt.Sprintf("- entry %d\n", n),
					},
				}

				if _, err := writeMarkdown(ctx, payload); err != nil {
					log.Fatalf("write_markdown (mutation %d): %v", n, err)
				}

				total++
			}
		}

		takeSnapshot(fmt.Sprintf("chunk_%d_end", i+1))
		writeHeapProfile(fmt.Sprintf("heap_chunk_%d.prof", i+1))
	}

	elapsed := time.Since(started)
	log.Printf("completed %d mutations in %s (%.1f mutations/sec)",
		total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())

	log.Printf("heap snapshot summary:")

	for _, snap := range snapshots {
		log.Printf("  %-40s inuse=%6.1f MB  numGC=%d",
			snap.label, float64(snap.heapInUse)/1e6, snap.numGC)
	}
}

// bootstrapTenants creates tenant roots bench000..benchNNN and runs the
// schema bootstrap against each one.
func bootstrapTenants(rootDir string, count int) []*tools.Context {
	bootstrap, ok := tools.Lookup("bootstrap_user_library")
	if !ok {
		log.Fatal("bootstrap_user_library handler not registered")
	}

	contexts := make([]*tools.Context, 0, count)

	for i := range count {
		userID := fmt.Sprintf("bench%03d", i)

		libraryRoot, err := scope.EnsureLibraryRoot(rootDir, userID)
		if err != nil {
			log.Fatalf("ensure library root %s: %v", userID, err)
		}

		ctx := &tools.Context{LibraryRoot: libraryRoot}

		if _, err := bootstrap(ctx, map[string]any{}); err != nil {
			log.Fatalf("bootstrap %s: %v", userID, err)
		}

		contexts = append(contexts, ctx)
	}

	return contexts
}

type chunkRange struct {
	start int
	end   int
}

func planChunks(total, size int) []chunkRange {
	if size <= 0 {
		size = total
	}

	var chunks []chunkRange

	for start := 0; start < total; start += size {
		end := min(start+size, total)
		chunks = append(chunks, chunkRange{start: start, end: end})
	}

	return chunks
}
