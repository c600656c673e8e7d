package recognize

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		slog.Error("exec failed",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 8<<10),
		)
	} else {
		slog.Debug("exec ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"duration_ms", dur.Milliseconds(),
			"stdout_bytes", out.Len(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// TesseractConfig configures the local tesseract recognizer.
type TesseractConfig struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"
	PSM       int    // 6 is good for a uniform block of text
}

// TesseractRecognizer recognizes text by shelling out to tesseract in TSV
// mode. Image references are local file paths.
type TesseractRecognizer struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractRecognizer(cfg TesseractConfig, logger *slog.Logger) *TesseractRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	return &TesseractRecognizer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner; used by tests.
func (t *TesseractRecognizer) WithRunner(r Runner) *TesseractRecognizer {
	t.runner = r
	return t
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, imageRef string) ([]Fragment, error) {
	args := []string{imageRef, "stdout", "-l", t.cfg.Lang, "--psm", strconv.Itoa(t.cfg.PSM), "tsv"}
	out, _, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w", err)
	}
	return parseTSV(string(out)), nil
}

// parseTSV converts tesseract TSV output into word fragments with line
// indexes. Columns: level page block par line word left top width height
// conf text.
func parseTSV(tsv string) []Fragment {
	var frags []Fragment
	lineIndex := -1
	lastLineKey := ""

	for i, row := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != 5 {
			continue // words only
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		lineKey := cols[2] + "/" + cols[3] + "/" + cols[4]
		if lineKey != lastLineKey {
			lineIndex++
			lastLineKey = lineKey
		}

		left, _ := strconv.ParseInt(cols[6], 10, 64)
		top, _ := strconv.ParseInt(cols[7], 10, 64)
		width, _ := strconv.ParseInt(cols[8], 10, 64)
		height, _ := strconv.ParseInt(cols[9], 10, 64)
		conf, _ := strconv.ParseFloat(cols[10], 32)

		f := Fragment{
			Text: text,
			Line: lineIndex,
			Vertices: []Vertex{
				{X: left, Y: top},
				{X: left + width, Y: top},
				{X: left + width, Y: top + height},
				{X: left, Y: top + height},
			},
		}
		if conf >= 0 {
			f.Confidence = float32(conf) / 100
		}
		frags = append(frags, f)
	}
	return frags
}
