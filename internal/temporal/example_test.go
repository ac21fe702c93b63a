package temporal_test

import (
	"fmt"
	"time"

	"assesscal/internal/temporal"
)

func ExampleResolve() {
	inst := temporal.Resolve("2025-01-31", "28:43 PM")
	fmt.Println(inst)
	// Output: 2025-02-01T04:43:00Z
}

func ExampleFormat() {
	inst := temporal.Resolve("31/01/2025", "2:30 PM")
	d := temporal.Format(inst, "UTC")
	fmt.Println(d.LocalDate, d.LocalTime)
	// Output: 31/01/2025 14:30
}

func ExampleSpan_Contains() {
	span := temporal.Span{
		Start: temporal.Resolve("2025-03-01", "09:00"),
		End:   temporal.Resolve("2025-03-03", "17:00"),
	}
	for _, s := range []string{"2025-02-28", "2025-03-02", "2025-03-04"} {
		d, _ := temporal.ParseDay(s)
		fmt.Println(s, span.Contains(d, time.UTC))
	}
	// Output:
	// 2025-02-28 false
	// 2025-03-02 true
	// 2025-03-04 false
}
