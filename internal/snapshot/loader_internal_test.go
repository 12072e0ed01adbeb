package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestCheckCount(t *testing.T) {
	if err := checkCount("churches", 2, 2); err != nil {
		t.Errorf("checkCount(2, 2) = %v, want nil", err)
	}

	err := checkCount("churches", 3, 2)
	if !errors.Is(err, ErrMissingVersion) {
		t.Errorf("checkCount(3, 2) = %v, want %v", err, ErrMissingVersion)
	}
}

func TestDecodeExternalTime(t *testing.T) {
	l := &Loader{logger: slog.Default()}

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{
			name: "valid items",
			raw: `[
				{"church_id": null, "date_rule": {"kind": "weekly", "weekdays_iso8601": [6]}, "start_time": "10:00", "end_time": "11:00"},
				{"church_id": null, "date_rule": {"kind": "daily"}, "start_time": "08:00", "end_time": null}
			]`,
			want: 2,
		},
		{
			name: "invalid item skipped",
			raw: `[
				{"church_id": null, "date_rule": {"kind": "weekly", "weekdays_iso8601": [9]}, "start_time": "10:00", "end_time": null},
				{"church_id": null, "date_rule": {"kind": "daily"}, "start_time": "08:00", "end_time": null}
			]`,
			want: 1,
		},
		{
			name: "unreadable document",
			raw:  `{"not": "a list"}`,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.decodeExternalTime(context.Background(), externalTimeRow{
				ExternalTime: ExternalTime{VersionID: 7},
				raw:          []byte(tt.raw),
			})

			if got.VersionID != 7 {
				t.Errorf("VersionID = %d, want 7", got.VersionID)
			}
			if len(got.Schedules) != tt.want {
				t.Errorf("len(Schedules) = %d, want %d", len(got.Schedules), tt.want)
			}
		})
	}
}
