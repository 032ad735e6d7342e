// Package conversation persists per-conversation dialogue turns so the
// planner and answer composer can ground new queries in recent history.
package conversation
