package roles

import (
	"fmt"
	"time"
)

// PeriodHours holds the local hour at which each period starts.
type PeriodHours struct {
	Night   int `yaml:"night"`
	Day     int `yaml:"day"`
	Evening int `yaml:"evening"`
}

func DefaultPeriodHours() PeriodHours {
	return PeriodHours{Night: 22, Day: 6, Evening: 18}
}

func (h PeriodHours) Validate() error {
	starts := h.starts()
	seen := make(map[int]Period, len(starts))
	for _, s := range starts {
		if s.hour < 0 || s.hour > 23 {
			return fmt.Errorf("%s start hour %d out of range 0-23", s.period, s.hour)
		}
		if other, dup := seen[s.hour]; dup {
			return fmt.Errorf("%s and %s both start at hour %d", other, s.period, s.hour)
		}
		seen[s.hour] = s.period
	}
	return nil
}

type periodStart struct {
	period Period
	hour   int
}

func (h PeriodHours) starts() []periodStart {
	return []periodStart{
		{PeriodNight, h.Night},
		{PeriodDay, h.Day},
		{PeriodEvening, h.Evening},
	}
}

// PeriodAt returns the period containing t's wall-clock hour: the one with the
// latest start at or before that hour, wrapping past midnight.
func PeriodAt(t time.Time, h PeriodHours) Period {
	hour := t.Hour()
	best, bestHour := Period(""), -1
	latest, latestHour := Period(""), -1
	for _, s := range h.starts() {
		if s.hour <= hour && s.hour > bestHour {
			best, bestHour = s.period, s.hour
		}
		if s.hour > latestHour {
			latest, latestHour = s.period, s.hour
		}
	}
	if best == "" {
		return latest
	}
	return best
}
