package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/eazyeats/internal/model"
)

// ReviewStat 单个菜品的评分聚合
type ReviewStat struct {
	MenuItemID string
	Avg        float64
	Count      int64
}

type MenuRepository interface {
	// Active 返回最近创建的 active 菜单及其菜品
	Active(ctx context.Context) (*model.Menu, error)
	// CreateActive 停用其它菜单后创建新菜单
	CreateActive(ctx context.Context, menu *model.Menu) error

	GetItem(ctx context.Context, id string) (*model.MenuItem, error)
	// ItemsByIDs 仅返回属于 menuID 的菜品
	ItemsByIDs(ctx context.Context, menuID string, ids []string) ([]*model.MenuItem, error)
	CreateItem(ctx context.Context, item *model.MenuItem) error
	UpdateItem(ctx context.Context, id string, fields map[string]any) (*model.MenuItem, error)
	DeleteItem(ctx context.Context, id string) error

	// UpsertReview 同一用户对同一菜品只保留一条
	UpsertReview(ctx context.Context, review *model.Review) error
	GetReview(ctx context.Context, itemID, userID string) (*model.Review, error)
	ReviewStats(ctx context.Context, itemIDs []string) (map[string]ReviewStat, error)
}

type menuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) MenuRepository { return &menuRepository{db: db} }

func (r *menuRepository) Active(ctx context.Context) (*model.Menu, error) {
	var menu model.Menu
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("is_active = ?", true).
		Order("created_at DESC").
		First(&menu).Error
	if err != nil {
		return nil, translate(err)
	}
	return &menu, nil
}

func (r *menuRepository) CreateActive(ctx context.Context, menu *model.Menu) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Menu{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return err
		}
		menu.IsActive = true
		return tx.Omit(clause.Associations).Create(menu).Error
	})
}

func (r *menuRepository) GetItem(ctx context.Context, id string) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *menuRepository) ItemsByIDs(ctx context.Context, menuID string, ids []string) ([]*model.MenuItem, error) {
	var items []*model.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("menu_id = ? AND id IN ?", menuID, ids).Find(&items).Error
	return items, err
}

func (r *menuRepository) CreateItem(ctx context.Context, item *model.MenuItem) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *menuRepository) UpdateItem(ctx context.Context, id string, fields map[string]any) (*model.MenuItem, error) {
	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		res := r.db.WithContext(ctx).Model(&model.MenuItem{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetItem(ctx, id)
}

func (r *menuRepository) DeleteItem(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.MenuItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("menu_item_id = ?", id).Delete(&model.Review{}).Error
	})
}

func (r *menuRepository) UpsertReview(ctx context.Context, review *model.Review) error {
	now := time.Now().UTC()
	review.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "menu_item_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"rating": review.Rating, "comment": review.Comment, "updated_at": now}),
	}).Create(review).Error
}

func (r *menuRepository) GetReview(ctx context.Context, itemID, userID string) (*model.Review, error) {
	var review model.Review
	err := r.db.WithContext(ctx).Where("menu_item_id = ? AND user_id = ?", itemID, userID).First(&review).Error
	if err != nil {
		return nil, translate(err)
	}
	return &review, nil
}

func (r *menuRepository) ReviewStats(ctx context.Context, itemIDs []string) (map[string]ReviewStat, error) {
	out := make(map[string]ReviewStat, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	var rows []ReviewStat
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("menu_item_id, AVG(rating) AS avg, COUNT(*) AS count").
		Where("menu_item_id IN ?", itemIDs).
		Group("menu_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MenuItemID] = row
	}
	return out, nil
}
