// Package logtail reads the end of the gymplanner log file.
//
// The log is written by logrus through lumberjack, so it can grow to several
// megabytes before rotation. Tail keeps a ring of the last n lines and reads
// the file once, holding at most n lines in memory.
//
// Level understands both logrus formatters:
//
//	time="2024-03-04T18:00:00+01:00" level=warning msg="write failed" key=users/u1/data/user_state
//	{"level":"warning","msg":"write failed","time":"2024-03-04T18:00:00+01:00"}
//
// A missing log file is not an error: Tail returns no lines.
package logtail
