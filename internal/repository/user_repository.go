package repository

import (
	"context"
	"strings"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

// UserRepository persists accounts.
type UserRepository struct {
	items *Collection[models.User]
}

// NewUserRepository loads the user collection.
func NewUserRepository(ctx context.Context, store *RecordStore) *UserRepository {
	return &UserRepository{items: NewCollection[models.User](ctx, store, KeyUsers)}
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.items.Find(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &user, nil
}

// FindByUsername looks a user up case-insensitively.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.items.All() {
		if strings.EqualFold(user.Username, username) {
			u := user
			return &u, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}

// List returns users matching filter in stored order.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]models.User, 0)
	for _, user := range r.items.All() {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.ClassName != "" && user.ClassName != filter.ClassName {
			continue
		}
		if filter.Approved != nil && user.IsApproved != *filter.Approved {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) && !strings.Contains(strings.ToLower(user.Username), search) {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

// Create stores a new user, rejecting duplicate usernames.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.items.Mutate(ctx, func(items []models.User) ([]models.User, error) {
		for _, existing := range items {
			if strings.EqualFold(existing.Username, user.Username) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
			}
		}
		return append(items, user), nil
	})
	return err
}

// Update applies fn to user id and saves it.
func (r *UserRepository) Update(ctx context.Context, id string, fn func(models.User) (models.User, error)) (*models.User, error) {
	var updated models.User
	_, err := r.items.Mutate(ctx, func(items []models.User) ([]models.User, error) {
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
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	})
	if updated.ID == "" {
		return nil, err
	}
	return &updated, err
}

// Count returns the number of stored users.
func (r *UserRepository) Count(ctx context.Context) int {
	return len(r.items.All())
}
