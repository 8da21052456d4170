package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mhollis/appraisal-engine/internal/report"
	"github.com/mhollis/appraisal-engine/internal/store"
	"github.com/mhollis/appraisal-engine/internal/valuation"
)

// appraise runs the valuation engine once over a request file and prints
// either the response envelope JSON or the rendered markdown report.
func main() {
	inputPath := flag.String("input", "", "Path to valuation request JSON")
	outputPath := flag.String("output", "", "Path to write output (defaults to stdout)")
	markdown := flag.Bool("markdown", false, "Emit the markdown report instead of the JSON envelope")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var req valuation.Request
	if err := json.Unmarshal(in, &req); err != nil {
		log.Fatalf("decode request JSON: %v", err)
	}

	engine := valuation.NewEngine(valuation.DefaultPolicy())
	res, verr := engine.Valuate(req)

	var out []byte
	if *markdown {
		if verr != nil {
			log.Fatalf("valuation failed: %v", verr)
		}
		var subject valuation.SubjectDetails
		if req.Subject != nil {
			subject = *req.Subject
		}
		md := report.BuildMarkdown(store.Appraisal{
			ID:        "ad-hoc",
			CreatedAt: time.Now().UTC(),
			Subject:   subject,
			Result:    &res,
		})
		out = []byte(md)
	} else {
		env := valuation.BuildEnvelope(res, verr)
		out, err = json.MarshalIndent(env, "", "  ")
		if err != nil {
			log.Fatalf("encode envelope: %v", err)
		}
		out = append(out, '\n')
	}

	if *outputPath == "" {
		fmt.Print(string(out))
		return
	}
	if err := os.WriteFile(*outputPath, out, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
}
