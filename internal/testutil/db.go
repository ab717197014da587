// Package testutil 为测试与基准创建临时数据库
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/eazyeats/internal/model"
)

var seq atomic.Int64

// NewDB 打开独立的内存 sqlite 并迁移所有表
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:eazyeats_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedMenu 创建包含 items 的当前菜单
func SeedMenu(tb testing.TB, db *gorm.DB, items ...model.MenuItem) *model.Menu {
	tb.Helper()
	menu := &model.Menu{Title: "Lunch", IsActive: true}
	if err := db.Omit("Items").Create(menu).Error; err != nil {
		tb.Fatalf("seed menu: %v", err)
	}
	for i := range items {
		items[i].MenuID = menu.ID
		if err := db.Create(&items[i]).Error; err != nil {
			tb.Fatalf("seed item: %v", err)
		}
	}
	menu.Items = items
	return menu
}

// SeedUser 创建指定角色的用户
func SeedUser(tb testing.TB, db *gorm.DB, email string, role model.Role) *model.User {
	tb.Helper()
	u := &model.User{Email: email, Name: "Test " + string(role), Role: role, PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
