package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// PostRepository persists the digital library feed.
type PostRepository struct {
	items *Collection[models.LibraryPost]
}

// NewPostRepository loads the library collection.
func NewPostRepository(ctx context.Context, store *RecordStore) *PostRepository {
	return &PostRepository{items: NewCollection[models.LibraryPost](ctx, store, KeyLibraryPosts)}
}

// List returns posts newest first, optionally restricted to one category.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]models.LibraryPost, error) {
	all := r.items.All()
	items := make([]models.LibraryPost, 0, len(all))
	for _, post := range all {
		if filter.Category != "" && !strings.EqualFold(post.Category, filter.Category) {
			continue
		}
		items = append(items, post)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

// FindByID returns one post.
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.LibraryPost, error) {
	item, ok := r.items.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	return &item, nil
}

// Create stores a new post.
func (r *PostRepository) Create(ctx context.Context, post models.LibraryPost) error {
	return r.items.Upsert(ctx, post)
}

// Update applies fn to post id and saves it.
func (r *PostRepository) Update(ctx context.Context, id string, fn func(models.LibraryPost) (models.LibraryPost, error)) (*models.LibraryPost, error) {
	var updated models.LibraryPost
	_, err := r.items.Mutate(ctx, func(items []models.LibraryPost) ([]models.LibraryPost, error) {
		for _, item := range items {
			if item.ID != id {
				continue
			}
			next, err := fn(item)
			if err != nil {
				return nil, err
			}
			updated = next
			return Upsert(items, next), nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	})
	if updated.ID == "" {
		return nil, err
	}
	return &updated, err
}

// Delete removes a post.
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	return r.items.Remove(ctx, id)
}
