package service

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/eazyeats/internal/menucache"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
)

type ItemInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	IsAvailable *bool
	Stock       *int
	ImageURL    string
}

// ItemPatch 只更新非 nil 字段
type ItemPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	IsAvailable *bool
	Stock       *int
	ImageURL    *string
}

type MenuService interface {
	// Active 当前菜单（附评分），没有时返回 nil
	Active(ctx context.Context) (*model.Menu, error)
	CreateMenu(ctx context.Context, title string) (*model.Menu, error)
	AddItem(ctx context.Context, in ItemInput) (*model.MenuItem, error)
	UpdateItem(ctx context.Context, id string, patch ItemPatch) (*model.MenuItem, error)
	SetAvailability(ctx context.Context, id string, available bool) (*model.MenuItem, error)
	DeleteItem(ctx context.Context, id string) error
	Review(ctx context.Context, userID, itemID string, rating int, comment string) (*model.Review, error)
}

type menuService struct {
	menus repository.MenuRepository
	cache *menucache.Cache
}

// NewMenuService 创建菜单服务，cache 可为 nil，此时每次读库
func NewMenuService(menus repository.MenuRepository, cache *menucache.Cache) MenuService {
	return &menuService{menus: menus, cache: cache}
}

func (s *menuService) Active(ctx context.Context) (*model.Menu, error) {
	return s.cache.ActiveMenu(ctx, s.loadActive)
}

func (s *menuService) loadActive(ctx context.Context) (*model.Menu, error) {
	menu, err := s.menus.Active(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(menu.Items))
	for i, it := range menu.Items {
		ids[i] = it.ID
	}
	stats, err := s.menus.ReviewStats(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "review stats")
	}
	for i := range menu.Items {
		st := stats[menu.Items[i].ID]
		menu.Items[i].ReviewCount = st.Count
		menu.Items[i].AvgRating = decimal.NewFromFloat(st.Avg).Round(2).InexactFloat64()
	}
	return menu, nil
}

func (s *menuService) CreateMenu(ctx context.Context, title string) (*model.Menu, error) {
	menu := &model.Menu{Title: strings.TrimSpace(title)}
	if err := s.menus.CreateActive(ctx, menu); err != nil {
		return nil, err
	}
	menu.Items = []model.MenuItem{}
	s.cache.Invalidate(ctx)
	return menu, nil
}

func (s *menuService) AddItem(ctx context.Context, in ItemInput) (*model.MenuItem, error) {
	menu, err := s.menus.Active(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveMenu
	}
	if err != nil {
		return nil, err
	}

	item := &model.MenuItem{
		MenuID:      menu.ID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		IsAvailable: true,
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if err := s.menus.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return item, nil
}

func (s *menuService) UpdateItem(ctx context.Context, id string, p ItemPatch) (*model.MenuItem, error) {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	if p.IsAvailable != nil {
		fields["is_available"] = *p.IsAvailable
	}
	if p.Stock != nil {
		fields["stock"] = *p.Stock
	}
	if p.ImageURL != nil {
		fields["image_url"] = *p.ImageURL
	}
	return s.update(ctx, id, fields)
}

func (s *menuService) SetAvailability(ctx context.Context, id string, available bool) (*model.MenuItem, error) {
	return s.update(ctx, id, map[string]any{"is_available": available})
}

func (s *menuService) update(ctx context.Context, id string, fields map[string]any) (*model.MenuItem, error) {
	item, err := s.menus.UpdateItem(ctx, id, fields)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return item, nil
}

func (s *menuService) DeleteItem(ctx context.Context, id string) error {
	err := s.menus.DeleteItem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *menuService) Review(ctx context.Context, userID, itemID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := s.menus.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	review := &model.Review{MenuItemID: itemID, UserID: userID, Rating: rating, Comment: strings.TrimSpace(comment)}
	if err := s.menus.UpsertReview(ctx, review); err != nil {
		return nil, errors.Wrap(err, "save review")
	}
	s.cache.Invalidate(ctx)
	return s.menus.GetReview(ctx, itemID, userID)
}
