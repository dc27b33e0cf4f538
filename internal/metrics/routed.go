package metrics

import (
	"sort"

	"multiagents/internal/eventlog"
)

// RoleCount is one role's routed-event count, used for the top_roles
// ranking.
type RoleCount struct {
	Role  string
	Count int
}

// RoutedSummary is the Supervisor Metrics view over a stream of `routed`
// NDJSON records.
type RoutedSummary struct {
	Total                 int
	PerRole               map[string]int
	UniqueBroadcasts      int
	P95LatencyPerBroadcast map[string]int64
	TopRoles              []RoleCount
}

// RoutedSummaryOf is a pure, deterministic function computing a
// RoutedSummary over events. It ignores records whose event is not
// "routed" and tolerates malformed or missing optional fields; it never
// panics on absent correlation ids.
func RoutedSummaryOf(events []eventlog.Record) RoutedSummary {
	summary := RoutedSummary{
		PerRole:                map[string]int{},
		P95LatencyPerBroadcast: map[string]int64{},
	}

	latenciesByBroadcast := map[string][]int64{}
	broadcasts := map[string]bool{}

	for _, ev := range events {
		if ev.Event != eventlog.EventRouted {
			continue
		}
		summary.Total++
		if ev.AgentRole != "" {
			summary.PerRole[ev.AgentRole]++
		}
		if ev.BroadcastID != "" {
			broadcasts[ev.BroadcastID] = true
			if ev.DurMS != nil {
				latenciesByBroadcast[ev.BroadcastID] = append(latenciesByBroadcast[ev.BroadcastID], *ev.DurMS)
			}
		}
	}

	summary.UniqueBroadcasts = len(broadcasts)

	for broadcastID, latencies := range latenciesByBroadcast {
		summary.P95LatencyPerBroadcast[broadcastID] = percentile95(latencies)
	}

	summary.TopRoles = topRoles(summary.PerRole, 10)
	return summary
}

func percentile95(latencies []int64) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]int64(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * 0.95)
	return sorted[idx]
}

func topRoles(perRole map[string]int, cap int) []RoleCount {
	roles := make([]RoleCount, 0, len(perRole))
	for role, count := range perRole {
		roles = append(roles, RoleCount{Role: role, Count: count})
	}
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Count != roles[j].Count {
			return roles[i].Count > roles[j].Count
		}
		return roles[i].Role < roles[j].Role
	})
	if len(roles) > cap {
		roles = roles[:cap]
	}
	return roles
}
