package tasks

// TaskSchedulerInterface is the surface the HTTP layer and main application
// use to run publish-event work in the background.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
