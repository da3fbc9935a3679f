package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers open/closed questions for one exchange using
// scmhub/calendar, or a plain weekday session when the MIC is unknown to it.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
	session  session
}

type session struct {
	zone           string
	openH, openM   int
	closeH, closeM int
}

// -----------------------------------------------------------------------------

// suffix / index prefix -> MIC (ISO 10383)
var symbolMICs = []struct {
	match string
	mic   string
}{
	{".NS", "xnse"},
	{".BO", "xbom"},
	{"^NSE", "xnse"},
	{"^BSE", "xbom"},
	{".L", "xlon"},
	{".PA", "xpar"},
	{".DE", "xfra"},
	{".AS", "xams"},
	{".SW", "xswx"},
	{".TO", "xtse"},
	{".T", "xtks"},
	{".HK", "xhkg"},
	{".AX", "xasx"},
}

var fallbackSessions = map[string]session{
	"xnse": {"Asia/Kolkata", 9, 15, 15, 30},
	"xbom": {"Asia/Kolkata", 9, 15, 15, 30},
	"xnys": {"America/New_York", 9, 30, 16, 0},
}

// MICForSymbol maps a provider symbol to its exchange. Unknown symbols are NYSE.
func MICForSymbol(symbol string) string {
	for _, m := range symbolMICs {
		if strings.HasPrefix(m.match, "^") {
			if strings.HasPrefix(symbol, m.match) {
				return m.mic
			}
			continue
		}
		if strings.HasSuffix(symbol, m.match) {
			return m.mic
		}
	}
	return "xnys"
}

// -----------------------------------------------------------------------------

func GetCalendar(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	if cal := calendar.GetCalendar(mic); cal != nil {
		return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
	}

	sess, ok := fallbackSessions[mic]
	if !ok {
		sess = fallbackSessions["xnys"]
	}
	loc, err := time.LoadLocation(sess.zone)
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{MIC: mic, Fallback: true, Timezone: loc, session: sess}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if !tc.Fallback {
		return tc.Calendar.IsOpen(t)
	}
	if !tc.IsTradingDay(t) {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	open := tc.session.openH*60 + tc.session.openM
	closing := tc.session.closeH*60 + tc.session.closeM
	return minutes >= open && minutes < closing
}
