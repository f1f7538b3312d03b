// Package coordinator runs background work single-flight: at most one unit of
// work is alive at a time, concurrent Start calls join it, and it can be
// cancelled cooperatively through its context.
//
// Work is triggered manually (TriggerNow), by a periodic foreground timer
// (RunPeriodic) and by recurring execution windows granted by a Scheduler.
// A window that expires before its work finishes cancels that work.
package coordinator
