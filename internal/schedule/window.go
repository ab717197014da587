// Package schedule 判断取餐时间是否在营业时间内及所属时段
package schedule

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/d60-Lab/eazyeats/pkg/logger"
)

const slotKeyLayout = "2006-01-02T15:04"

// Window 食堂营业窗口，按配置时区取 [OpenHour, CloseHour)
type Window struct {
	OpenHour    int
	CloseHour   int
	SlotMinutes int
	loc         *time.Location
	zone        string
}

// NewWindow 创建营业窗口，时区为空或无效时使用服务器本地时区
func NewWindow(openHour, closeHour, slotMinutes int, zone string) *Window {
	if slotMinutes <= 0 {
		slotMinutes = 15
	}
	w := &Window{OpenHour: openHour, CloseHour: closeHour, SlotMinutes: slotMinutes, loc: time.Local}
	if zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			logger.Warn("unknown cafeteria timezone, using server local time", zap.String("zone", zone), zap.Error(err))
		} else {
			w.loc = loc
			w.zone = zone
		}
	}
	return w
}

// Location 计算营业时间与时段所用的时区
func (w *Window) Location() *time.Location { return w.loc }

// Zone 配置的 IANA 时区名，使用本地时区时为空
func (w *Window) Zone() string { return w.zone }

// WithinHours t 的本地小时是否在 [OpenHour, CloseHour)
func (w *Window) WithinHours(t time.Time) bool {
	h := t.In(w.loc).Hour()
	return h >= w.OpenHour && h < w.CloseHour
}

// SlotKey 分钟按时段宽度向下取整后格式化到分钟
// 同一时段内的时间 key 相同
func (w *Window) SlotKey(t time.Time) string {
	lt := t.In(w.loc)
	m := lt.Minute() - lt.Minute()%w.SlotMinutes
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), m, 0, 0, w.loc)
	return start.Format(slotKeyLayout)
}

// StartOfDay t 当天本地零点
func (w *Window) StartOfDay(t time.Time) time.Time {
	lt := t.In(w.loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, w.loc)
}

func (w *Window) String() string {
	zone := w.zone
	if zone == "" {
		zone = "local"
	}
	return fmt.Sprintf("%02d:00-%02d:00 %s/%dm", w.OpenHour, w.CloseHour, zone, w.SlotMinutes)
}
