package interfaces

type SchedulerInterface interface {
	Init()
	Stop()
}

// TickerInterface is a job driven by the scheduler at a fixed interval.
type TickerInterface interface {
	Tick()
}
