package service

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"qpinta/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EditorState is the lifecycle of the product modal.
type EditorState int

const (
	EditorClosed EditorState = iota
	EditorOpen
	EditorSubmitting
)

func (s EditorState) String() string {
	switch s {
	case EditorOpen:
		return "open"
	case EditorSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// Draft is the product being edited in the modal.
type Draft struct {
	Price      *float64 `validate:"required"`
	Size       string   `validate:"required"`
	CategoryID *int64   `validate:"required"`
}

// ImageUpload is an image file staged in the modal.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ItemEditor drives the create/edit modal of the admin product page.
type ItemEditor struct {
	products *ProductList
	images   ImageStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	state      EditorState
	editingID  int64
	draft      Draft
	image      *ImageUpload
	pickerOpen bool
}

func NewItemEditor(products *ProductList, images ImageStore, logger *zap.Logger) *ItemEditor {
	return &ItemEditor{
		products: products,
		images:   images,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

func (e *ItemEditor) State() EditorState { return e.state }
func (e *ItemEditor) Draft() Draft       { return e.draft }
func (e *ItemEditor) PickerOpen() bool   { return e.pickerOpen }

// Editing reports whether the modal edits an existing product, and which.
func (e *ItemEditor) Editing() (int64, bool) {
	return e.editingID, e.editingID != 0
}

// OpenCreate opens the modal with an empty draft.
func (e *ItemEditor) OpenCreate() {
	e.state = EditorOpen
	e.editingID = 0
	e.draft = Draft{}
	e.image = nil
	e.pickerOpen = false
}

// OpenEdit opens the modal seeded from the local copy of product.
func (e *ItemEditor) OpenEdit(product domain.Product) {
	price := product.Price
	e.state = EditorOpen
	e.editingID = product.ID
	e.draft = Draft{Price: &price, Size: product.Size}
	if product.CategoryID != nil {
		id := *product.CategoryID
		e.draft.CategoryID = &id
	}
	e.image = nil
	e.pickerOpen = false
}

// Close discards the draft.
func (e *ItemEditor) Close() {
	e.state = EditorClosed
	e.pickerOpen = false
}

func (e *ItemEditor) SetPrice(price float64) { e.draft.Price = &price }
func (e *ItemEditor) SetSize(size string)    { e.draft.Size = strings.TrimSpace(size) }

// StageImage stages the image a create submission will upload.
func (e *ItemEditor) StageImage(upload ImageUpload) {
	if len(upload.Data) == 0 {
		e.image = nil
		return
	}
	e.image = &upload
}

func (e *ItemEditor) OpenPicker()  { e.pickerOpen = true }
func (e *ItemEditor) ClosePicker() { e.pickerOpen = false }

// PickCategory writes the category into the draft and closes the picker.
func (e *ItemEditor) PickCategory(id int64) {
	e.draft.CategoryID = &id
	e.pickerOpen = false
}

// Submit saves the draft. On success the modal closes; on any failure it
// stays open with the draft intact.
//
// Creating uploads the staged image first and only then writes the record.
// If the record write fails the uploaded image is left in storage.
func (e *ItemEditor) Submit(ctx context.Context) (*domain.Product, error) {
	if e.state != EditorOpen {
		return nil, ErrEditorNotOpen
	}

	creating := e.editingID == 0
	if creating && e.image == nil {
		return nil, ErrImageRequired
	}
	if err := e.validate.Struct(e.draft); err != nil {
		return nil, err
	}

	e.state = EditorSubmitting
	product, err := e.submit(ctx, creating)
	if err != nil {
		e.state = EditorOpen
		return nil, err
	}
	e.Close()
	return product, nil
}

func (e *ItemEditor) submit(ctx context.Context, creating bool) (*domain.Product, error) {
	if !creating {
		patch := domain.ProductPatch{
			Price:      e.draft.Price,
			Size:       &e.draft.Size,
			CategoryID: e.draft.CategoryID,
		}
		if err := e.products.Update(ctx, e.editingID, patch); err != nil {
			return nil, err
		}
		product, _ := e.products.Find(e.editingID)
		return product, nil
	}

	name := ImageName(e.image.Filename, e.now())
	key, err := e.images.Upload(ctx, name, e.image.ContentType, e.image.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	product, err := e.products.Create(ctx, domain.NewProduct{
		Price:      *e.draft.Price,
		Size:       e.draft.Size,
		CategoryID: e.draft.CategoryID,
		Image:      key,
	})
	if err != nil {
		e.logger.Warn("Product create failed after image upload",
			zap.String("image", key),
			zap.Error(err),
		)
		return nil, err
	}
	return product, nil
}

// ImageName builds a storage key of the form <unix millis>-<base36 random>
// followed by the original file extension.
func ImageName(filename string, now time.Time) string {
	suffix := strconv.FormatUint(rand.Uint64(), 36)
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), suffix, strings.ToLower(filepath.Ext(filename)))
}
