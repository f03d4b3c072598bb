// Copyright 2025 StrongDM Inc
// SPDX-License-Identifier: Apache-2.0

package snapshot

import "time"

// epoch is the fixed origin for the snapshot format's 100-ns tick
// timestamps: midnight, January 1, year 1, UTC.
var epoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

const nanosecondsPerTick = 100

const ticksPerSecond = 1_000_000_000 / nanosecondsPerTick

// timeToTicks converts a time.Time to 100-ns ticks since epoch, the unit
// used by every timestamp field in the snapshot wire format. It works in
// whole seconds plus a sub-second remainder, because the span from epoch
// to any present-day time is too long for a time.Duration.
func timeToTicks(t time.Time) uint64 {
	t = t.UTC()
	secs := t.Unix() - epoch.Unix()
	return uint64(secs)*ticksPerSecond + uint64(t.Nanosecond()/nanosecondsPerTick)
}

// ticksToTime converts 100-ns ticks since epoch back to a time.Time in UTC.
func ticksToTime(ticks uint64) time.Time {
	secs := int64(ticks / ticksPerSecond)
	rem := int64(ticks % ticksPerSecond)
	return time.Unix(secs+epoch.Unix(), rem*nanosecondsPerTick).UTC()
}
