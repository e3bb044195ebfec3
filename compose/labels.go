package compose

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supportedLanguages = []language.Tag{language.English, language.SimplifiedChinese}

var labelMatcher = language.NewMatcher(supportedLanguages)

func init() {
	entries := []struct{ key, en, zh string }{
		{"Not started", "Not started", "未开始"},
		{"In progress", "In progress", "进行中"},
		{"Ended", "Ended", "已结束"},
		{"Monday", "Mon", "周一"},
		{"Tuesday", "Tue", "周二"},
		{"Wednesday", "Wed", "周三"},
		{"Thursday", "Thu", "周四"},
		{"Friday", "Fri", "周五"},
		{"Saturday", "Sat", "周六"},
		{"Sunday", "Sun", "周日"},
	}
	for _, e := range entries {
		_ = message.SetString(language.English, e.key, e.en)
		_ = message.SetString(language.SimplifiedChinese, e.key, e.zh)
	}
}

// MatchLanguage maps a BCP 47 string (e.g. "zh", "en-US") to the closest
// supported label language. Unknown input falls back to English.
func MatchLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, i, _ := labelMatcher.Match(tag)
	return supportedLanguages[i]
}

// label translates key with p.
func label(p *message.Printer, key string) string {
	return p.Sprintf(key)
}

// windowText formats a time window as "01-02 Mon  15:04 - 01-03 17:00".
func windowText(p *message.Printer, start, end time.Time) string {
	return start.Format("01-02") + " " + label(p, start.Weekday().String()) + "  " +
		start.Format("15:04") + " - " + end.Format("01-02 15:04")
}
