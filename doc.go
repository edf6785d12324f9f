// Package clientlog builds the MrBig client report of a host and sends it
// to the display.
//
// A report pass runs every enabled section of package collector against one
// arena. The report is plain text:
//
//	client web01.linux linux
//	[date]
//	2024-03-01 12:34:56
//	[osversion]
//	...
//	[clock]
//	local:	2024-03-01 13:34:56 CET
//	UTC:	2024-03-01 12:34:56 UTC
//
// When the arena faults, the pass stops, the output written so far is kept
// and a note with the fault code ends it:
//
//	(Clientlog ran into a problem, error code 1)
//
// Generate returns a report; Run generates one and hands it to a
// transport.Sender.
package clientlog
