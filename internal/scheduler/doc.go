// Package scheduler triggers the daily pipeline run.
//
// A run fires once per business day (Monday to Friday) at a wall-clock time
// in a configured zone, driven by a cron schedule such as
// "CRON_TZ=America/New_York 5 16 * * 1-5". Runs never overlap: a trigger that
// arrives while a run is still in flight is skipped.
package scheduler
