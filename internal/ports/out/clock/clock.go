package clock

import "time"

// Clock provides time to the application.
// Token issuance/verification and record timestamps read time only through this interface.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
