package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/2beens/gymplanner/internal/plan"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDay accepts a weekday name or prefix ("mon", "Tuesday") or its 1 based number.
func parseDay(raw string) (int, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 || n > plan.DaysInWeek {
			return 0, fmt.Errorf("day %d: %w", n, plan.ErrOutOfRange)
		}
		return n - 1, nil
	}
	if len(raw) >= 2 {
		for i, name := range plan.Weekdays {
			if strings.HasPrefix(strings.ToLower(name), raw) {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown day %q", raw)
}

// parseIndex converts a 1 based position given on the command line.
func parseIndex(what, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", what, raw)
	}
	return n - 1, nil
}

func dayTitle(d int, day plan.DayPlan) string {
	if day.DayName != "" {
		return plan.Weekdays[d] + " - " + day.DayName
	}
	return plan.Weekdays[d]
}

func printTemplate(w io.Writer, index int, t plan.Template, today int) {
	printf(w, "Template %d: %s\n", index+1, t.Name)
	for d, day := range t.Schedule {
		marker := " "
		if d == today {
			marker = "*"
		}
		printf(w, "%s %s\n", marker, dayTitle(d, day))
		if day.IsRest {
			printf(w, "    rest day\n")
			continue
		}
		if len(day.Exercises) == 0 {
			printf(w, "    -\n")
			continue
		}
		for e, ex := range day.Exercises {
			sets := make([]string, 0, len(ex.SetsData))
			for _, set := range ex.SetsData {
				sets = append(sets, formatFloat(set.Weight)+"x"+formatFloat(set.Reps))
			}
			printf(w, "    %d. %s [%s] %s\n", e+1, ex.Name, ex.ID, strings.Join(sets, " "))
		}
	}
}
