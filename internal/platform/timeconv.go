package platform

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 固定单位长度。年取儒略平均年（31,556,952s）：各站点的"xx ago"文案本就不精确，
// 这里只要求全平台一致，下游唯一用途是与 cutoff 做先后比较，不做日历精确运算。
const (
	minuteSeconds = 60
	hourSeconds   = 3600
	daySeconds    = 86400
	yearSeconds   = 31556952
)

// 数量只认开头的数字串："about 3 hours" 这类前缀文案不取 3，
// 而是走下面的 "a" 规则记 1。
var leadingDigits = regexp.MustCompile(`^(\d+)`)

// 相对表达式匹配失败后，按此顺序尝试绝对日期。
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
}

// ConvertTime 把站点渲染的时间文案（"5 hours ago"、"a day"、"January 2, 2006"…）
// 归一成绝对时间。
//
// 约束：
// - 永不报错。完全解析不出来时返回 now，调用方必须容忍近似值
// - 单位按子串包含匹配，优先级固定 mins/minutes/minute → hours → days → years；
//   对歧义文案的行为未文档化，改动顺序会改变增量扫描的停止点，禁止调整
// - 数字缺失但文案含 "a"（a day / an hour）时数量记 1
func ConvertTime(timeAgo string, now time.Time) time.Time {
	var magnitude int64
	if m := leadingDigits.FindStringSubmatch(timeAgo); m != nil {
		magnitude, _ = strconv.ParseInt(m[1], 10, 64)
	}
	if magnitude == 0 && strings.Contains(timeAgo, "a") {
		magnitude = 1
	}

	var unit int64
	switch {
	case strings.Contains(timeAgo, "mins"),
		strings.Contains(timeAgo, "minutes"),
		strings.Contains(timeAgo, "minute"):
		unit = minuteSeconds
	case strings.Contains(timeAgo, "hours"), strings.Contains(timeAgo, "hour"):
		unit = hourSeconds
	case strings.Contains(timeAgo, "days"), strings.Contains(timeAgo, "day"):
		unit = daySeconds
	case strings.Contains(timeAgo, "year"), strings.Contains(timeAgo, "years"):
		unit = yearSeconds
	default:
		return parseAbsolute(timeAgo, now)
	}

	return now.Add(-time.Duration(magnitude*unit) * time.Second)
}

// parseAbsolute 尝试把文案按固定布局列表解析为绝对日期；全部失败则兜底返回 now。
func parseAbsolute(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}
