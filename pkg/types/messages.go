// Package types holds the JSON shapes clients see.
//
// HTTP
//   success: { "data": <record | record[]> }
//   failure: { "error": string, "kind": string, "retryAfter"?: number }
//     kind: "invalid" | "not_found" | "not_active" | "conflict" |
//           "no_active_session" | "double_count_suppressed" | "internal"
//     double_count_suppressed also sets the Retry-After header (seconds).
//
// WebSocket (/ws?competitionId=...)
// Client -> Server
//   Leaderboard: {}            // ask for a fresh team leaderboard
//   Ping: {}
//
// Server -> Client
//   Leaderboard:
//     competitionId: string
//     teamStats: TeamStat[]    // sent once on connect, then on request
//   SessionStarted | SessionEnded:
//     competitionId, teamId: string
//     session?: SwimSession    // absent for bulk force-closes
//   LapRecorded:
//     competitionId, teamId: string
//     lap: LapCount
//   Pong: {}
//   Error:
//     error: string
package types

type Data struct {
	Data any `json:"data"`
}

type Error struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}
