package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Menu 菜单，同一时间只有一个 active
type Menu struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title     string     `json:"title" gorm:"type:varchar(200);not null"`
	IsActive  bool       `json:"isActive" gorm:"index;not null"`
	Items     []MenuItem `json:"items" gorm:"foreignKey:MenuID"`
	CreatedAt time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (Menu) TableName() string { return "menus" }

func (m *Menu) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// MenuItem 菜品
type MenuItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MenuID      string    `json:"menuId" gorm:"type:varchar(36);not null;index"`
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	Category    string    `json:"category,omitempty" gorm:"type:varchar(100)"`
	IsAvailable bool      `json:"isAvailable" gorm:"not null"`
	Stock       *int      `json:"stock,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" gorm:"type:varchar(500)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// filled from reviews on read
	AvgRating   float64 `json:"avgRating" gorm:"-"`
	ReviewCount int64   `json:"reviewCount" gorm:"-"`
}

func (MenuItem) TableName() string { return "menu_items" }

func (i *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// Review 评分，每个用户对每个菜品一条
type Review struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MenuItemID string    `json:"menuItemId" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_item_user"`
	UserID     string    `json:"userId" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_item_user"`
	Rating     int       `json:"rating" gorm:"not null"`
	Comment    string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (Review) TableName() string { return "reviews" }

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// AllModels 需要迁移的表
func AllModels() []any {
	return []any{&User{}, &Menu{}, &MenuItem{}, &Review{}, &Order{}, &OrderStatusHistory{}}
}
