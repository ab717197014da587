// slotbench 压测单个取餐时段的并发下单，验证不会超卖
//
//	N=2000 CONC=64 CAP=20 REDIS=localhost:6379 go run ./cmd/slotbench
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/eazyeats/config"
	"github.com/d60-Lab/eazyeats/internal/admission"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/realtime"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/schedule"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(repository.Migrate(db, model.AllModels()...))

	N := envInt("N", 2000)
	CONC := envInt("CONC", 32)
	CAP := envInt("CAP", cfg.Cafeteria.SlotCapacity)
	ctx := context.Background()

	window := schedule.NewWindow(cfg.Cafeteria.OpenHour, cfg.Cafeteria.CloseHour, cfg.Cafeteria.SlotMinutes, cfg.Cafeteria.TimeZone)

	var counter admission.Counter = admission.NewMemoryCounter()
	backend := "memory"
	if addr := os.Getenv("REDIS"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		mustDo(rdb.Ping(ctx).Err())
		// 每次运行独立的 key 前缀
		counter = admission.NewRedisCounter(rdb, "slotbench:"+uuid.NewString()[:8]+":", time.Hour)
		backend = "redis"
	}

	menus := repository.NewMenuRepository(db)
	menu := &model.Menu{Title: "slotbench"}
	mustDo(menus.CreateActive(ctx, menu))
	item := &model.MenuItem{MenuID: menu.ID, Name: "Masala Dosa", Price: 60, IsAvailable: true}
	mustDo(menus.CreateItem(ctx, item))
	itemID := item.ID

	// seed customers
	users := make([]model.User, N)
	for i := range users {
		id := uuid.NewString()
		users[i] = model.User{ID: id, Email: id[:8] + "@bench.local", Name: "u" + id[:8], PasswordHash: "x"}
	}
	mustDo(db.CreateInBatches(&users, 500).Error)

	orders := service.NewOrderService(service.OrderDeps{
		Orders:    repository.NewOrderRepository(db),
		Menus:     menus,
		Admission: admission.NewController(window, counter, CAP),
		Window:    window,
		Notifier:  realtime.NewOrderNotifier(realtime.NewHub()),
	})

	loc := window.Location()
	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	pickup := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), cfg.Cafeteria.OpenHour, 0, 0, 0, loc)

	var (
		accepted, rejected, failed atomic.Int64
		mu                         sync.Mutex
		lat                        = make([]time.Duration, 0, N)
	)
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	workers := CONC
	if workers > N {
		workers = N
	}
	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				_, err := orders.Create(ctx, service.CreateOrderInput{
					UserID:            users[i].ID,
					Items:             []service.OrderLine{{ItemID: itemID, Qty: 1}},
					ScheduledPickupAt: pickup,
				})
				d := time.Since(st)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, service.ErrSlotFull):
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				mu.Lock()
				lat = append(lat, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)

	var persisted int64
	mustDo(db.Model(&model.Order{}).Where("scheduled_pickup_at = ?", pickup.UTC()).Count(&persisted).Error)

	fmt.Printf("N=%d, CONC=%d, CAP=%d, counter=%s, slot=%s\n", N, CONC, CAP, backend, window.SlotKey(pickup))
	fmt.Printf("Create total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(N), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Accepted: %d, rejected (slot full): %d, errors: %d, persisted: %d\n",
		accepted.Load(), rejected.Load(), failed.Load(), persisted)
	if accepted.Load() > int64(CAP) {
		fmt.Println("OVER-ADMITTED")
		os.Exit(1)
	}
}
