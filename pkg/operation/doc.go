/*
Package operation runs a search: it loads the name list, scans every root
in parallel and copies the matches into the destination.

	+-------------+     +-------------+     +-------------+
	|   Names     +---->|    Scan     +---->|    Copy     |
	| (load list) |     | (N walkers) |     | (sequential)|
	+-------------+     +------+------+     +------+------+
	                           |                   |
	                    +------+-------------------+------+
	                    |        status.Tracker           |
	                    |  (counters, phase, report)      |
	                    +---------------------------------+

🎯 Purpose:
- Owns the lifecycle of a run (Idle → Scanning → Copying → Done)
- Turns a SearchRequest into a FinalReport
- Publishes progress snapshots while the run is live

🔄 Flow:
1. Validate the request (InvalidPathError aborts the run)
2. Load the name list (names.InputReadError aborts the run)
3. Fan out one walker per root and wait for all of them
4. Freeze the matches and copy them one by one
5. Build the report

⚡ Key Responsibilities:
- Fatal errors stop the run before any scanning starts
- Per-entry and per-file errors only show up in the report
- Context cancellation is honored at directory and file boundaries

🔍 Example:

	eng, err := operation.New(operation.Options{LockDestination: true})
	report, err := eng.Run(ctx, operation.SearchRequest{
		NameListPath:         "/Users/u/names.txt",
		Roots:                roots,
		ExcludeSystemFolders: true,
		HomeRoot:             "/Users/u",
		Destination:          "/Users/u/found",
	})
*/
package operation
