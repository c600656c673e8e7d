package server

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/receiptwise/expense-tracker/internal/async"
	"github.com/receiptwise/expense-tracker/internal/blobstore"
	"github.com/receiptwise/expense-tracker/internal/common"
	"github.com/receiptwise/expense-tracker/internal/entity"
	"github.com/receiptwise/expense-tracker/internal/repository"
)

type receiptsHandler struct {
	store     repository.ReceiptStore
	blob      blobstore.Store
	queue     async.Queue
	validator *validator.Validate
	imageRef  func(key string) string
	clock     func() time.Time
}

func (h *receiptsHandler) list(c *fiber.Ctx) error {
	uid := uidFrom(c)
	recs, err := h.store.ListByUser(c.Context(), uid)
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to list receipts", err)
	}
	if recs == nil {
		recs = []*entity.Receipt{}
	}
	return successResponse(c, recs, fiber.StatusOK, "receipts listed")
}

func (h *receiptsHandler) create(c *fiber.Ctx) error {
	uid := uidFrom(c)
	req := new(receiptRequest)
	if err := c.BodyParser(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "malformed request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt", err)
	}

	now := h.clock()
	rec := &entity.Receipt{
		ID:        uuid.New(),
		UID:       uid,
		CreatedAt: now,
	}
	if err := req.apply(rec, now); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt", err)
	}
	if err := h.store.Add(c.Context(), rec); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to create receipt", err)
	}
	return successResponse(c, rec, fiber.StatusCreated, "receipt created")
}

func (h *receiptsHandler) update(c *fiber.Ctx) error {
	uid := uidFrom(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt id", err)
	}
	req := new(receiptRequest)
	if err := c.BodyParser(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "malformed request body", err)
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt", err)
	}

	rec, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return errorResponse(c, common.HTTPStatus(err), "failed to load receipt", err)
	}
	if rec.UID != uid {
		return errorResponse(c, fiber.StatusForbidden, "not your receipt", nil)
	}

	if err := req.apply(rec, h.clock()); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt", err)
	}
	if err := h.store.Update(c.Context(), rec); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to update receipt", err)
	}
	return successResponse(c, rec, fiber.StatusOK, "receipt updated")
}

// remove deletes the record and its stored image. Both deletes are
// idempotent, so retrying a half-finished delete converges.
func (h *receiptsHandler) remove(c *fiber.Ctx) error {
	uid := uidFrom(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid receipt id", err)
	}

	rec, err := h.store.GetByID(c.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return successResponse(c, nil, fiber.StatusOK, "receipt deleted")
	}
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to load receipt", err)
	}
	if rec.UID != uid {
		return errorResponse(c, fiber.StatusForbidden, "not your receipt", nil)
	}

	if rec.ImageBucket != "" && h.blob != nil {
		if err := h.blob.Delete(c.Context(), rec.ImageBucket); err != nil {
			return errorResponse(c, fiber.StatusInternalServerError, "failed to delete image", err)
		}
	}
	if err := h.store.Delete(c.Context(), id); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to delete receipt", err)
	}
	return successResponse(c, nil, fiber.StatusOK, "receipt deleted")
}

// upload accepts a multipart image, stores it, and queues it for the
// extraction pipeline. The response returns immediately; the record appears
// once processing finishes.
func (h *receiptsHandler) upload(c *fiber.Ctx) error {
	uid := uidFrom(c)
	fh, err := c.FormFile("image")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "missing image file", err)
	}

	ext := strings.TrimPrefix(filepath.Ext(fh.Filename), ".")
	key, err := blobstore.ObjectPath(uid, h.clock(), ext)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "unsupported image type", err)
	}

	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to read upload", err)
	}
	defer f.Close()

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if err := h.blob.Put(c.Context(), key, contentType, f); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to store image", err)
	}

	if err := h.queue.Enqueue(c.Context(), async.Job{
		Key:         key,
		ImageRef:    h.imageRef(key),
		SubmittedAt: h.clock(),
	}); err != nil {
		return errorResponse(c, fiber.StatusInternalServerError, "failed to queue image", err)
	}

	return successResponse(c, uploadResponse{
		Key:      key,
		ImageURL: h.blob.PublicURL(key),
	}, fiber.StatusAccepted, "image queued for processing")
}
