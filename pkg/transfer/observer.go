package transfer

// Observer is notified after every status change of every record, including
// the initial Unspecified status published on creation.
//
// Notifications for a tracker are delivered one at a time in the order the
// changes were made. Observers run on the goroutine that made the change.
// They may read the tracker (Get, List, Len, Counts) but must not call
// Tracker.Create or Tracker.SetStatus synchronously.
type Observer interface {
	OnStatusChanged(rec Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec Record)

// OnStatusChanged calls f(rec).
func (f ObserverFunc) OnStatusChanged(rec Record) { f(rec) }
