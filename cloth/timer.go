package cloth

//Timer turns wall clock frame time into fixed simulation steps
type Timer struct {
	T        float64 //Simulated seconds
	TS       float64 //Fixed step
	TIMELAST float64 //Simulated time before the last step
	MaxSteps int     //Steps per Advance, 0 means no cap
	acc      float64
}

func NewTimer(cfg Config) *Timer {
	return &Timer{TS: float64(cfg.TimeStep), MaxSteps: cfg.MaxSubSteps}
}

func (t *Timer) StepTime() {
	t.TIMELAST = t.T
	t.T = t.T + t.TS
}

//Advance accumulates elapsed seconds and returns how many fixed steps are due.
//Time beyond MaxSteps is dropped so a stalled frame does not spiral
func (t *Timer) Advance(elapsed float64) int {
	if elapsed <= 0 || t.TS <= 0 {
		return 0
	}
	t.acc += elapsed

	n := 0
	for t.acc >= t.TS {
		if t.MaxSteps > 0 && n == t.MaxSteps {
			t.acc = 0
			break
		}
		t.acc -= t.TS
		t.StepTime()
		n++
	}
	return n
}

//Remainder is the accumulated time not yet consumed by a step
func (t *Timer) Remainder() float64 {
	return t.acc
}
