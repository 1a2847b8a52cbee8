package models

// Counter is the elapsed-time value kept by the slave node.
// Fields are normally in range (seconds/minutes < 60, hours < 24) but Set
// assigns whatever it is given; Tick only ever carries one step per field.
type Counter struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

const (
	secondsPerMinute = 60
	minutesPerHour   = 60
	hoursPerDay      = 24

	secondsPerHour = secondsPerMinute * minutesPerHour
	secondsPerDay  = secondsPerHour * hoursPerDay
)

// Tick advances the counter by one second, carrying into minutes, hours and days.
func (c *Counter) Tick() {
	c.Seconds++

	if c.Seconds >= secondsPerMinute {
		c.Minutes++
		c.Seconds -= secondsPerMinute
	}
	if c.Minutes >= minutesPerHour {
		c.Hours++
		c.Minutes -= minutesPerHour
	}
	if c.Hours >= hoursPerDay {
		c.Days++
		c.Hours -= hoursPerDay
	}
}

// Reset zeroes every field.
func (c *Counter) Reset() {
	*c = Counter{}
}

// Set assigns all four fields without range validation.
func (c *Counter) Set(days, hours, minutes, seconds int) {
	c.Days = days
	c.Hours = hours
	c.Minutes = minutes
	c.Seconds = seconds
}

// TotalSeconds returns the whole duration in seconds.
func (c Counter) TotalSeconds() int64 {
	return int64(c.Seconds) +
		int64(c.Minutes)*secondsPerMinute +
		int64(c.Hours)*secondsPerHour +
		int64(c.Days)*secondsPerDay
}

// FieldMask selects which Counter fields a SetDuration command overwrites.
type FieldMask uint8

const (
	FieldSeconds FieldMask = 1 << iota
	FieldMinutes
	FieldHours
	FieldDays

	AllFields = FieldDays | FieldHours | FieldMinutes | FieldSeconds
)

// Has reports whether every bit of f is set in m.
func (m FieldMask) Has(f FieldMask) bool { return m&f == f }

// Merge returns base with the fields selected by mask taken from c.
func (c Counter) Merge(base Counter, mask FieldMask) Counter {
	out := base
	if mask.Has(FieldDays) {
		out.Days = c.Days
	}
	if mask.Has(FieldHours) {
		out.Hours = c.Hours
	}
	if mask.Has(FieldMinutes) {
		out.Minutes = c.Minutes
	}
	if mask.Has(FieldSeconds) {
		out.Seconds = c.Seconds
	}
	return out
}
