package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/blobstore"
	"github.com/receiptwise/expense-tracker/internal/extract"
	"github.com/receiptwise/expense-tracker/internal/recognize"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

// ErrNoOwner reports an object key whose leading path segment is empty, so
// the upload cannot be attributed to a user.
var ErrNoOwner = errors.New("object key carries no owner segment")

// Clock lets tests pin the pipeline's notion of now.
type Clock func() time.Time

// Processor runs the full pipeline for one uploaded image: recognize text,
// extract field candidates, validate, assemble, and persist. Processing is
// idempotent per image reference; a redelivered upload event overwrites the
// same record instead of creating a second one.
type Processor struct {
	logger           *slog.Logger
	recognizer       recognize.Recognizer
	extractor        *extract.Extractor
	validator        *extract.Validator
	store            repository.ReceiptStore
	blob             blobstore.Store
	clock            Clock
	recognizeTimeout time.Duration
}

func NewProcessor(
	logger *slog.Logger,
	recognizer recognize.Recognizer,
	store repository.ReceiptStore,
	blob blobstore.Store,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		recognizer: recognizer,
		extractor:  extract.NewExtractor(),
		validator:  extract.NewValidator(logger),
		store:      store,
		blob:       blob,
		clock:      time.Now,
	}
}

// WithClock swaps the clock; used by tests.
func (p *Processor) WithClock(c Clock) *Processor {
	p.clock = c
	return p
}

// WithMinConfidence overrides the validator's confidence floor.
func (p *Processor) WithMinConfidence(t float32) *Processor {
	p.validator.WithThreshold(t)
	return p
}

// WithRecognizeTimeout bounds each recognition call. Zero leaves only the
// caller's context in charge.
func (p *Processor) WithRecognizeTimeout(d time.Duration) *Processor {
	p.recognizeTimeout = d
	return p
}

// OwnerFromKey recovers the uploading user from the object key's first path
// segment.
func OwnerFromKey(key string) (string, error) {
	uid, _, found := strings.Cut(key, "/")
	if !found || uid == "" {
		return "", fmt.Errorf("%w: %q", ErrNoOwner, key)
	}
	return uid, nil
}

// ProcessUpload handles one storage event for the object at key and returns
// the stored receipt's ID. imageRef is what the recognizer reads (a URI or a
// local path); key is what gets stored as the record's image reference.
//
// A failed or empty recognition still produces a record: every field is left
// unresolved and the receipt is flagged for confirmation, so the upload is
// never silently lost.
func (p *Processor) ProcessUpload(ctx context.Context, key, imageRef string) (uuid.UUID, error) {
	uid, err := OwnerFromKey(key)
	if err != nil {
		return uuid.Nil, err
	}
	now := p.clock()

	rctx := ctx
	if p.recognizeTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, p.recognizeTimeout)
		defer cancel()
	}
	frags, err := p.recognizer.Recognize(rctx, imageRef)
	if err != nil {
		p.logger.Error("recognition failed, storing unresolved record",
			"key", key, "error", err)
		frags = nil
	}
	p.logger.Debug("recognized fragments", "key", key, "count", len(frags))

	cands := p.extractor.Extract(frags, now)
	res, err := p.validator.Validate(cands, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("validate candidates: %w", err)
	}

	rec := extract.Assemble(res, uid, key, now)
	if p.blob != nil {
		rec.ImageURL = p.blob.PublicURL(key)
	}

	id, err := p.store.UpsertByImageRef(ctx, rec)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store receipt: %w", err)
	}

	p.logger.Info("processed upload",
		"key", key,
		"receipt_id", id,
		"merchant", res.Merchant.Value,
		"needs_confirmation", res.NeedsConfirmation,
	)
	return id, nil
}
