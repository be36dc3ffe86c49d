package docstore

import "time"

// TimestampSentinel is the wire-visible marker for "the backend's notion of
// now". Incoming plain data holding exactly this string is converted to the
// dedicated server-timestamp variant, and the write path substitutes the
// resolver's current moment for it.
const TimestampSentinel = "__SERVER_TIMESTAMP__"

// Clock resolves the server-timestamp sentinel at write time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall-clock resolver used outside of tests.
func SystemClock() Clock { return systemClock{} }

// FixedClock always resolves to the given instant. Test helper.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// ResolveTimestamps returns a copy of data with every top-level
// server-timestamp value replaced by the clock's current moment.
// Substitution is deliberately shallow; sentinels nested inside lists or
// maps are stored as-is.
func ResolveTimestamps(data Document, clock Clock) Document {
	out := make(Document, len(data))
	var now Value
	for k, v := range data {
		if v.Kind == KindServerTimestamp {
			if now.Kind != KindTime {
				now = Time(clock.Now())
			}
			out[k] = now
			continue
		}
		out[k] = v.Clone()
	}
	return out
}
