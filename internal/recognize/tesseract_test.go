package recognize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	err    error
	name   string
	args   []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return f.stdout, nil, f.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t600\t800\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t80\t20\t96.5\tBest\n" +
	"5\t1\t1\t1\t1\t2\t100\t10\t150\t20\t94.0\tRestaurant\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t40\t20\t91.2\t123\n" +
	"5\t1\t1\t1\t2\t2\t60\t40\t60\t20\t88.9\tMain\n" +
	"5\t1\t1\t1\t2\t3\t130\t40\t30\t20\t90.0\tSt\n"

func TestParseTSV(t *testing.T) {
	frags := parseTSV(sampleTSV)
	require.Len(t, frags, 5)

	assert.Equal(t, "Best", frags[0].Text)
	assert.Equal(t, 0, frags[0].Line)
	assert.Equal(t, 0, frags[1].Line)
	assert.Equal(t, 1, frags[2].Line)
	assert.Equal(t, 1, frags[4].Line)

	assert.InDelta(t, 0.965, frags[0].Confidence, 0.001)
	require.Len(t, frags[0].Vertices, 4)
	assert.Equal(t, int64(10), frags[0].Vertices[0].X)
	assert.Equal(t, int64(90), frags[0].Vertices[1].X)
	assert.Equal(t, int64(30), frags[0].Vertices[2].Y)
}

func TestParseTSVSkipsNonWordRows(t *testing.T) {
	assert.Empty(t, parseTSV("level\tpage\n1\t1\n"))
	assert.Empty(t, parseTSV(""))
}

func TestTesseractRecognize(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(sampleTSV)}
	rec := NewTesseractRecognizer(TesseractConfig{}, nil).WithRunner(runner)

	frags, err := rec.Recognize(context.Background(), "/tmp/receipt.jpg")
	require.NoError(t, err)
	assert.Len(t, frags, 5)

	assert.Equal(t, "tesseract", runner.name)
	assert.Equal(t, []string{"/tmp/receipt.jpg", "stdout", "-l", "eng", "--psm", "6", "tsv"}, runner.args)
}

func TestTesseractRecognizeError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exit status 1")}
	rec := NewTesseractRecognizer(TesseractConfig{}, nil).WithRunner(runner)

	_, err := rec.Recognize(context.Background(), "/tmp/receipt.jpg")
	assert.Error(t, err)
}

func TestBlockToFragments(t *testing.T) {
	frags := blockToFragments("Best Restaurant\n123 Main St\n\nTotal: $23.45\n")
	require.Len(t, frags, 3)
	assert.Equal(t, "Best Restaurant", frags[0].Text)
	assert.Equal(t, 0, frags[0].Line)
	assert.Equal(t, "Total: $23.45", frags[2].Text)
	assert.Equal(t, 2, frags[2].Line)
}
