/*
Package status tracks the counters and lifecycle of a single search run.

	+--------+    +----------+    +---------+    +------+
	|  Idle  +--->| Scanning +--->| Copying +--->| Done |
	+--------+    +----+-----+    +---------+    +--+---+
	                   |                            ^
	                   +----------------------------+
	                         (interrupted scan)

🎯 Purpose:
- Counts scanned entries while many walkers run at once
- Counts copied and failed files during the sequential copy
- Exposes snapshots for live display and a final report once done

⚡ Key Responsibilities:
- Atomic counters, safe to update from any goroutine
- Phase transitions, rejecting out-of-order changes
- Elapsed time from acceptance of the run to the end of the copy

🤝 Interfaces:
- walk.Counter: implemented by Tracker.AddScanned
- copier.Recorder: implemented by Tracker.RecordCopied / RecordFailed
- Formatter: renders snapshots and reports for people

🔍 Example:

	t := status.NewTracker()
	_ = t.Start()
	t.AddScanned(10)
	_ = t.BeginCopy(2)
	t.RecordCopied("/a", "/dest/a")
	report, _ := t.Finish()
	fmt.Print(status.NewDefaultFormatter().FormatReport(report))
*/
package status
