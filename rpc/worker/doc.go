// Package worker implements the job executor of scallionDB.
//
// A worker announces itself to the broker with a Ready message carrying its
// inbox and then executes one job at a time against the shared tree mapping.
// Results are sent back as Partial messages followed by a Complete message
// (carrying the tree name and whether the tree still exists) or a Failure
// message. List results are streamed as one JSON array split into chunks:
//
//	[  {"_id":...,"_children":[  ...  ]},{...  ]
//	^  \________ chunk ________/ \_ chunk _/  ^
//
// Liveness: every message from the broker resets the liveness counter, every
// poll interval without one decrements it. At zero the worker waits for the
// current backoff, doubles it and announces itself again. When the backoff
// exceeds the configured maximum the worker gives up.
//
// Execution times are recorded per operation as go-metrics timers.
package worker
