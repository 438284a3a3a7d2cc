package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// GateDuration holds duration stats for one gate.
type GateDuration struct {
	Gate  string  `json:"gate"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_ms"`
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
}

// QueryGateDurations returns average and percentile wall-clock times per
// gate. Skipped gates carry no duration and are excluded.
func QueryGateDurations(database DB, since string) ([]GateDuration, error) {
	query := `
		SELECT gate, duration_ms
		FROM gate_results
		WHERE status != 'skipped'`

	args := []any{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gate durations: %w", err)
	}
	defer rows.Close()

	gateDurations := make(map[string][]float64)
	for rows.Next() {
		var gate string
		var durationMs float64
		if err := rows.Scan(&gate, &durationMs); err != nil {
			return nil, fmt.Errorf("scan gate duration: %w", err)
		}
		gateDurations[gate] = append(gateDurations[gate], durationMs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []GateDuration
	for gate, durations := range gateDurations {
		sort.Float64s(durations)
		results = append(results, GateDuration{
			Gate:  gate,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Gate < results[j].Gate
	})
	return results, nil
}

// GateFailureRate holds pass/fail stats for one gate.
type GateFailureRate struct {
	Gate        string  `json:"gate"`
	Executed    int     `json:"executed"`
	FailPct     float64 `json:"fail_pct"`
	AvgFindings float64 `json:"avg_findings"`
}

// QueryGateFailureRates returns which gates fail most and how many
// findings a failing execution carries on average.
func QueryGateFailureRates(database DB, since string) ([]GateFailureRate, error) {
	query := `
		SELECT gate,
			COUNT(*) as executed,
			SUM(CASE WHEN status = 'fail' THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN status = 'fail' THEN finding_count ELSE 0 END) as failed_findings
		FROM gate_results
		WHERE status != 'skipped'`

	args := []any{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY gate ORDER BY failed DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gate failure rates: %w", err)
	}
	defer rows.Close()

	var results []GateFailureRate
	for rows.Next() {
		var gate string
		var executed, failed, failedFindings int
		if err := rows.Scan(&gate, &executed, &failed, &failedFindings); err != nil {
			return nil, fmt.Errorf("scan gate failure rate: %w", err)
		}
		results = append(results, GateFailureRate{
			Gate:        gate,
			Executed:    executed,
			FailPct:     pct(failed, executed),
			AvgFindings: math.Round(float64(failedFindings)/float64(max(failed, 1))*10) / 10,
		})
	}
	return results, rows.Err()
}

// RunThroughput holds run volume for one week.
type RunThroughput struct {
	Period        string  `json:"period"`
	Runs          int     `json:"runs"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Reduced       int     `json:"reduced"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// QueryRunThroughput returns run metrics grouped by week.
func QueryRunThroughput(database DB, since string) ([]RunThroughput, error) {
	query := `
		SELECT
			strftime('%Y-W%W', timestamp) as period,
			COUNT(*) as runs,
			SUM(CASE WHEN status = 'pass' THEN 1 ELSE 0 END) as passed,
			SUM(CASE WHEN status = 'fail' THEN 1 ELSE 0 END) as failed,
			SUM(CASE WHEN mode = 'reduced' THEN 1 ELSE 0 END) as reduced,
			AVG(duration_ms) as avg_duration_ms
		FROM runs`

	args := []any{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY period ORDER BY period DESC LIMIT 10`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query run throughput: %w", err)
	}
	defer rows.Close()

	var results []RunThroughput
	for rows.Next() {
		var rt RunThroughput
		var avgDuration sql.NullFloat64
		if err := rows.Scan(&rt.Period, &rt.Runs, &rt.Passed, &rt.Failed, &rt.Reduced, &avgDuration); err != nil {
			return nil, fmt.Errorf("scan throughput: %w", err)
		}
		if avgDuration.Valid {
			rt.AvgDurationMs = math.Round(avgDuration.Float64*10) / 10
		}
		results = append(results, rt)
	}
	return results, rows.Err()
}

// RepairConvergence aggregates repair session outcomes: how often the
// bounded loop clears every finding, and what it costs when it does.
type RepairConvergence struct {
	Sessions      int            `json:"sessions"`
	ConvergedPct  float64        `json:"converged_pct"`
	AvgAttempts   float64        `json:"avg_attempts"`
	AvgPatchLines float64        `json:"avg_patch_lines"`
	RollbackPct   float64        `json:"rollback_pct"`
	Escalations   map[string]int `json:"escalations"`
}

// QueryRepairConvergence returns aggregate repair loop behavior.
// Escalations maps reason code to occurrence count.
func QueryRepairConvergence(database DB, since string) (*RepairConvergence, error) {
	query := `SELECT outcome, reason_code, attempt_count FROM repair_sessions`

	args := []any{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query repair sessions: %w", err)
	}
	defer rows.Close()

	result := &RepairConvergence{Escalations: map[string]int{}}
	converged := 0
	var attemptCounts []float64
	for rows.Next() {
		var outcome string
		var reason sql.NullString
		var attemptCount int
		if err := rows.Scan(&outcome, &reason, &attemptCount); err != nil {
			return nil, fmt.Errorf("scan repair session: %w", err)
		}
		result.Sessions++
		attemptCounts = append(attemptCounts, float64(attemptCount))
		if outcome == "pass" {
			converged++
		} else if reason.Valid {
			result.Escalations[reason.String]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.ConvergedPct = pct(converged, result.Sessions)
	result.AvgAttempts = avg(attemptCounts)

	// Patch size and rollback rate come from the attempt trail.
	attemptQuery := `
		SELECT ra.patch_lines, ra.worsened
		FROM repair_attempts ra
		JOIN repair_sessions rs ON rs.id = ra.session_id`

	attemptArgs := []any{}
	if since != "" {
		attemptQuery += ` WHERE rs.timestamp >= ?`
		attemptArgs = append(attemptArgs, since)
	}

	aRows, err := database.Conn().Query(attemptQuery, attemptArgs...)
	if err != nil {
		return nil, fmt.Errorf("query repair attempts: %w", err)
	}
	defer aRows.Close()

	var patchLines []float64
	total, rollbacks := 0, 0
	for aRows.Next() {
		var lines int
		var worsened bool
		if err := aRows.Scan(&lines, &worsened); err != nil {
			return nil, fmt.Errorf("scan repair attempt: %w", err)
		}
		total++
		patchLines = append(patchLines, float64(lines))
		if worsened {
			rollbacks++
		}
	}
	if err := aRows.Err(); err != nil {
		return nil, err
	}
	result.AvgPatchLines = avg(patchLines)
	result.RollbackPct = pct(rollbacks, total)
	return result, nil
}

// --- helpers ---

func avg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}

func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(p) / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= len(sorted) {
		return math.Round(sorted[lower]*10) / 10
	}
	weight := rank - float64(lower)
	return math.Round((sorted[lower]*(1-weight)+sorted[upper]*weight)*10) / 10
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
