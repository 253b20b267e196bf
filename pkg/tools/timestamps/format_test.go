package timestamps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 8, 9, 123_000_000, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{DefaultDateFormat, "2024-03-05 07:08:09"},
		{"YYYY/M/D H:m:s", "2024/3/5 7:8:9"},
		{"YY MMM MMMM", "24 Mar March"},
		{"ddd dddd dd d", "Tue Tuesday Tu 2"},
		{"Do [of] MMMM", "5th of March"},
		{"hh:mm A / h a", "07:08 AM / 7 am"},
		{"HH:mm:ss.SSS", "07:08:09.123"},
		{"YYYY-MM-DDTHH:mm:ssZ", "2024-03-05T07:08:09+00:00"},
		{"ZZ", "+0000"},
		{"Q DDD DDDD", "1 65 065"},
		{"X", "1709622489"},
		{"YYYY年MM月DD日", "2024年03月05日"},
		{"[YYYY] YYYY", "YYYY 2024"},
		{"[open", "[open"},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(ts, tt.layout))
		})
	}
}

func TestFormatHours(t *testing.T) {
	midnight := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, "12 24 AM", Format(midnight, "h k A"))

	afternoon := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "01 13 PM", Format(afternoon, "hh kk A"))
}

func TestOrdinal(t *testing.T) {
	for n, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 12: "12th", 13: "13th", 21: "21st", 22: "22nd", 31: "31st"} {
		assert.Equal(t, want, ordinal(n))
	}
}
