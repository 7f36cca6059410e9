package market

// TickBroadcaster receives the snapshot produced by a background tick,
// typically to fan it out to live dashboard clients.
type TickBroadcaster interface {
	Publish(snapshot *MarketSnapshot)
}

// TickJob is the scheduled simulation tick: advance the drift model,
// persist, and hand the fresh snapshot to the broadcaster.
type TickJob struct {
	service     *Service
	broadcaster TickBroadcaster
}

// NewTickJob creates the simulation tick job. broadcaster may be nil.
func NewTickJob(service *Service, broadcaster TickBroadcaster) *TickJob {
	return &TickJob{service: service, broadcaster: broadcaster}
}

// Name returns the job name used in scheduler logs.
func (j *TickJob) Name() string {
	return "simulation_tick"
}

// Run executes one tick.
func (j *TickJob) Run() error {
	snapshot, err := j.service.Tick()
	if err != nil {
		return err
	}
	if j.broadcaster != nil {
		j.broadcaster.Publish(snapshot)
	}
	return nil
}
