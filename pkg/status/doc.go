/*
Package status turns backup progress into something a person can read.

	            +-------------+
	            |   Status    |
	            | (Progress)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|  Tracker  |           | Format  |
	| (Observer)|           | (UI/UX) |
	+-----------+           +---------+

🎯 Purpose:
- Implements operation.Observer for log-based progress
- Formats per-artifact outcomes and run summaries

🔄 Flow:
1. The engine announces the artifact total
2. Each finished artifact is counted and, when interesting, printed
3. The CLI prints the summary once the run ends

Nothing in this package touches the snapshot; it only reads reports.
*/
package status
