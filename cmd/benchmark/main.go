package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/MeKo-Tech/codescan/internal/batch"
	"github.com/MeKo-Tech/codescan/internal/benchmark"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
)

func main() {
	var (
		photosDir  = flag.String("photos", "testdata/photos", "Directory containing photos to scan")
		iterations = flag.Int("iterations", 3, "Number of iterations per photo and sweep")
		fineStep   = flag.Float64("fine-step", 10, "Fine sweep step in degrees")
		workers    = flag.Int("workers", 0, "Concurrent decode attempts per photo (0 = GOMAXPROCS)")
		outputFile = flag.String("output", "", "Output file for CSV results (optional)")
	)
	flag.Parse()

	fmt.Println("codescan coarse vs fine sweep benchmark")
	fmt.Println("=======================================")

	photos, err := batch.DiscoverImageFiles([]string{*photosDir}, true, nil, nil)
	if err != nil {
		log.Fatalf("Failed to list photos: %v", err)
	}
	if len(photos) == 0 {
		log.Fatalf("No photos found in %s (run generate-test-data first)", *photosDir)
	}

	opts := pipeline.DefaultOptions()
	opts.OCREnabled = false
	opts.Workers = *workers
	scanner := pipeline.NewDefaultScanner(opts)

	fmt.Printf("Running %d photos with %d iterations per sweep...\n\n", len(photos), *iterations)
	results := benchmark.NewSweepComparison(scanner, *fineStep, photos).
		WithLog(os.Stdout).
		Run(context.Background(), *iterations)

	if *outputFile != "" {
		if err := saveResultsToFile(*outputFile, results); err != nil {
			log.Printf("Failed to save results to file: %v", err)
		} else {
			fmt.Printf("\nResults saved to: %s\n", *outputFile)
		}
	}
}

func saveResultsToFile(filename string, results []benchmark.SweepResult) error {
	file, err := os.Create(filename) //nolint:gosec // G304: output path is chosen by the user
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return benchmark.WriteCSV(file, results)
}
