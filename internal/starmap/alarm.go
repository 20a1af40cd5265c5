// internal/starmap/alarm.go
package starmap

import (
	"fmt"
	"time"

	"github.com/signalnine/vintel/internal/protocol"
)

// Tier is the decayed severity of an alarm, 0 being the freshest
type Tier int

// TierStale is returned once an alarm is older than every threshold
const TierStale Tier = -1

// alarmThresholds are the upper bounds (exclusive) of each tier
var alarmThresholds = []time.Duration{
	240 * time.Second,
	600 * time.Second,
	900 * time.Second,
	1500 * time.Second,
	24 * time.Hour,
}

// TierColor is the background and text color of a tier
type TierColor struct {
	Background string
	Text       string
}

var tierColors = []TierColor{
	{"#FF0000", "#FFFFFF"},
	{"#FF9B0F", "#FFFFFF"},
	{"#FFFA0F", "#000000"},
	{"#FFFDA2", "#000000"},
	{"#FFFFFF", "#000000"},
}

const (
	ClearColor   = "#59FF6C"
	UnknownColor = "#FFFFFF"
)

// clearFadeWindow is how long a CLEAR takes to fade out
const clearFadeWindow = 600 * time.Second

// AlarmTier maps the time since the last ALARM to a severity tier.
// 239s is tier 0, 240s is tier 1.
func AlarmTier(elapsed time.Duration) Tier {
	for i, max := range alarmThresholds {
		if elapsed < max {
			return Tier(i)
		}
	}
	return TierStale
}

// Color returns the presentation colors for t; stale alarms look unknown
func (t Tier) Color() TierColor {
	if t < 0 || int(t) >= len(tierColors) {
		return TierColor{UnknownColor, "#000000"}
	}
	return tierColors[t]
}

// ClearFade returns 0..255, growing linearly over the fade window
func ClearFade(elapsed time.Duration) int {
	if elapsed < 0 {
		return 0
	}
	v := int(elapsed.Seconds() * 255 / clearFadeWindow.Seconds())
	if v > 255 {
		v = 255
	}
	return v
}

// Elapsed returns the time since the last ALARM/CLEAR transition
func (s *System) Elapsed(now time.Time) time.Duration {
	if s.LastTransition.IsZero() {
		return 0
	}
	return now.Sub(s.LastTransition)
}

// Timer returns the stopwatch text shown under a system name
func (s *System) Timer(now time.Time) string {
	if s.LastTransition.IsZero() {
		return ""
	}
	switch s.Status {
	case protocol.StatusAlarm, protocol.StatusWasAlarmed, protocol.StatusClear:
	default:
		return ""
	}
	diff := int(s.Elapsed(now) / time.Second)
	text := fmt.Sprintf("%02d:%02d", diff/60, diff%60)
	if s.Status == protocol.StatusClear {
		return "clr: " + text
	}
	return text
}

// State returns a copy of the presentation state of s at now
func (s *System) State(now time.Time) protocol.SystemState {
	st := protocol.SystemState{
		Name:           s.Name,
		ID:             s.ID,
		Status:         s.Status,
		Signal:         s.Signal,
		Tier:           int(TierStale),
		Timer:          s.Timer(now),
		LastTransition: s.LastTransition,
		Characters:     s.Characters(),
		Messages:       len(s.Messages),
	}
	switch s.Status {
	case protocol.StatusAlarm:
		st.Tier = int(AlarmTier(s.Elapsed(now)))
	case protocol.StatusClear:
		st.Fade = ClearFade(s.Elapsed(now))
	}
	return st
}

// UntilDowntime returns the time left until the daily 11:00 UTC downtime
func UntilDowntime(now time.Time) time.Duration {
	now = now.UTC()
	target := time.Date(now.Year(), now.Month(), now.Day(), 11, 0, 0, 0, time.UTC)
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target.Sub(now)
}
