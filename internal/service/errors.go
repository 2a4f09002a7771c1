package service

import (
	"errors"
	"fmt"
)

var (
	ErrImageRequired   = errors.New("an image is required to create a product")
	ErrImageTooLarge   = errors.New("image exceeds the upload size limit")
	ErrEditorNotOpen   = errors.New("editor is not open")
	ErrProductNotFound = errors.New("product not found")
)

// DependentItemsError refuses a category delete while products still
// reference the category.
type DependentItemsError struct {
	CategoryID int64
	Count      int
}

func (e *DependentItemsError) Error() string {
	noun := "products use"
	if e.Count == 1 {
		noun = "product uses"
	}
	return fmt.Sprintf("cannot delete this category: %d %s it", e.Count, noun)
}
