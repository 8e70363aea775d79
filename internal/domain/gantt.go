package domain

import "time"

// GanttSpan is the derived schedule range of one stage. It is never persisted.
type GanttSpan struct {
	StageType StageType
	Start     time.Time
	End       time.Time
}

// ComputeGanttSpans derives a span for every stage carrying an expected date, in
// stage order. A stage starts when its predecessor completed, else when it was
// created, else when the ticket was created. It ends on its expected date, pushed
// to one day after the start when the expected date falls before it.
func ComputeGanttSpans(ticket Ticket, stages []Stage) []GanttSpan {
	byType := make(map[StageType]Stage, len(stages))
	for _, st := range stages {
		byType[st.StageType] = st
	}

	var spans []GanttSpan
	for _, stageType := range StageTypes {
		st, ok := byType[stageType]
		if !ok || st.ExpectedDate == nil {
			continue
		}

		start := ticket.CreatedAt
		if !st.CreatedAt.IsZero() {
			start = st.CreatedAt
		}
		if prevType, ok := stageType.Previous(); ok {
			if prev, ok := byType[prevType]; ok && prev.CompletedAt != nil {
				start = *prev.CompletedAt
			}
		}

		end := *st.ExpectedDate
		if end.Before(start) {
			end = start.AddDate(0, 0, 1)
		}
		spans = append(spans, GanttSpan{StageType: stageType, Start: start, End: end})
	}
	return spans
}
