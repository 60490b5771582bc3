package repository

import "time"

func testNow() time.Time {
	return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
}
