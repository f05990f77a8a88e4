package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/model"
	"github.com/dukerupert/homecrew/internal/store"
)

// Catalog manages the chore templates a household can schedule.
type Catalog struct {
	db     *store.DB
	now    func() time.Time
	logger *slog.Logger
}

type CreateCatalogItemInput struct {
	Title     string          `json:"title" validate:"required,max=50"`
	Category  string          `json:"category" validate:"max=50"`
	Points    int             `json:"points" validate:"min=0,max=100,step5"`
	TimeOfDay model.TimeOfDay `json:"time_of_day" validate:"omitempty,oneof=morning afternoon evening night any"`
	Emoji     string          `json:"emoji" validate:"max=16"`
}

func (c *Catalog) CreateCatalogItem(ctx context.Context, householdID, userID string, in CreateCatalogItemInput) (*model.CatalogItem, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.TimeOfDay == "" {
		in.TimeOfDay = model.TimeAny
	}

	var item *model.CatalogItem
	err := c.db.InTx(ctx, func(tx *store.Set) error {
		taken, err := tx.Catalog.TitleExists(ctx, householdID, in.Title, "")
		if err != nil {
			return err
		}
		if taken {
			return apperr.New(apperr.DuplicateTitle)
		}
		item, err = tx.Catalog.Create(ctx, model.CatalogItem{
			HouseholdID:     &householdID,
			Title:           in.Title,
			Category:        in.Category,
			Points:          in.Points,
			TimeOfDay:       in.TimeOfDay,
			Emoji:           in.Emoji,
			Predefined:      false,
			CreatedByUserID: &userID,
		})
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.DuplicateTitle)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("catalog item created", "household_id", householdID, "item_id", item.ID)
	return item, nil
}

// GetCatalogItems lists the household's own items plus the global
// predefined set, newest first.
func (c *Catalog) GetCatalogItems(ctx context.Context, householdID string, filter model.CatalogFilter) ([]model.CatalogItem, error) {
	if filter == "" {
		filter = model.CatalogAll
	}
	if !filter.Valid() {
		return nil, apperr.Field("type", "must be one of: all, predefined, custom")
	}
	return c.db.Catalog.List(ctx, householdID, filter)
}

// GetCatalogItem returns an item the household may schedule: its own or a
// global one, not deleted.
func (c *Catalog) GetCatalogItem(ctx context.Context, householdID, itemID string) (*model.CatalogItem, error) {
	item, err := c.db.Catalog.GetUsable(ctx, householdID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.New(apperr.CatalogItemNotFound)
	}
	return item, nil
}

type UpdateCatalogItemInput struct {
	Title     *string          `json:"title" validate:"omitnil,min=1,max=50"`
	Category  *string          `json:"category" validate:"omitnil,max=50"`
	Points    *int             `json:"points" validate:"omitnil,min=0,max=100,step5"`
	TimeOfDay *model.TimeOfDay `json:"time_of_day" validate:"omitnil,oneof=morning afternoon evening night any"`
	Emoji     *string          `json:"emoji" validate:"omitnil,max=16"`
}

func (c *Catalog) UpdateCatalogItem(ctx context.Context, householdID, itemID string, in UpdateCatalogItemInput) (*model.CatalogItem, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	u := store.CatalogUpdate{
		Title:     in.Title,
		Category:  in.Category,
		Points:    in.Points,
		TimeOfDay: in.TimeOfDay,
		Emoji:     in.Emoji,
	}

	var item *model.CatalogItem
	err := c.db.InTx(ctx, func(tx *store.Set) error {
		current, err := tx.Catalog.GetOwned(ctx, householdID, itemID)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.New(apperr.NotFound)
		}
		if u.Empty() {
			item = current
			return nil
		}
		if u.Title != nil {
			taken, err := tx.Catalog.TitleExists(ctx, householdID, *u.Title, itemID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.New(apperr.DuplicateTitle)
			}
		}
		item, err = tx.Catalog.Update(ctx, itemID, u)
		if store.IsUniqueViolation(err) {
			return apperr.New(apperr.DuplicateTitle)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (c *Catalog) DeleteCatalogItem(ctx context.Context, householdID, itemID string) error {
	err := c.db.InTx(ctx, func(tx *store.Set) error {
		item, err := tx.Catalog.GetOwned(ctx, householdID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.New(apperr.NotFound)
		}
		return tx.Catalog.SoftDelete(ctx, itemID, c.now())
	})
	if err != nil {
		return err
	}
	c.logger.Info("catalog item deleted", "household_id", householdID, "item_id", itemID)
	return nil
}
