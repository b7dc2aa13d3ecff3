package viewer

import "time"

// ArrivedMessage replaces the countdown once the target has passed.
const ArrivedMessage = "🎭 ¡EL CARNAVAL ESTÁ AQUÍ!"

// Countdown is the whole days and remaining whole hours until a target.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Arrived bool `json:"arrived"`
}

// CountdownTo computes the countdown from now to target. At or after the
// target it reports Arrived.
func CountdownTo(target, now time.Time) Countdown {
	diff := target.Sub(now)
	if diff <= 0 {
		return Countdown{Arrived: true}
	}
	const day = 24 * time.Hour
	return Countdown{
		Days:  int(diff / day),
		Hours: int((diff % day) / time.Hour),
	}
}
