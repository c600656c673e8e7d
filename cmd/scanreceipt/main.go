package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/receiptwise/expense-tracker/internal/extract"
	"github.com/receiptwise/expense-tracker/internal/recognize"
)

// scanreceipt runs the extraction pipeline over one local image and prints
// the result as JSON, without touching a store. Useful for tuning the
// extractor against real receipts.
func main() {
	fs := ff.NewFlagSet("scanreceipt")
	var (
		tessBin  = fs.StringLong("tesseract", "tesseract", "tesseract binary")
		lang     = fs.StringLong("lang", "eng", "recognition language")
		timeout  = fs.DurationLong("timeout", 45*time.Second, "recognition timeout")
		debugLog = fs.BoolLong("debug", "enable debug logging")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SCANRECEIPT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	args := fs.GetArgs()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: scanreceipt [flags] <image>")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *debugLog {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	recognizer := recognize.NewTesseractRecognizer(recognize.TesseractConfig{
		Tesseract: *tessBin,
		Lang:      *lang,
	}, logger)

	frags, err := recognizer.Recognize(ctx, args[0])
	if err != nil {
		logger.Error("recognition failed", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	cands := extract.NewExtractor().Extract(frags, now)
	res, err := extract.NewValidator(logger).Validate(cands, now)
	if err != nil {
		logger.Error("validation failed", "error", err)
		os.Exit(1)
	}

	out := struct {
		Result     extract.ExtractionResult `json:"result"`
		Candidates []extract.Candidate      `json:"candidates"`
	}{Result: res, Candidates: cands}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode output", "error", err)
		os.Exit(1)
	}
}
