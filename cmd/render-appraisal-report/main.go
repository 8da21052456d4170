package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/mhollis/appraisal-engine/internal/report"
)

// render-appraisal-report converts a markdown report (as produced by the
// service's report endpoint or by appraise -markdown) into a PDF using
// headless Chromium.
func main() {
	inputPath := flag.String("input", "", "Path to report markdown")
	outputPath := flag.String("output", "report.pdf", "Path to write the PDF")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	md, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	renderer := report.NewChromiumPDFRenderer()
	pdf, err := renderer.Render(context.Background(), string(md))
	if err != nil {
		log.Fatalf("render pdf: %v", err)
	}

	if err := os.WriteFile(*outputPath, pdf, 0o644); err != nil {
		log.Fatalf("write pdf: %v", err)
	}
	log.Printf("wrote %s (%d bytes)", *outputPath, len(pdf))
}
