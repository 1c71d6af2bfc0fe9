package service

import (
	"context"
	"testing"

	"github.com/spotdesk/spot-service/internal/domain"
)

func TestNextSerial(t *testing.T) {
	cases := []struct {
		last    string
		want    int
		wantErr bool
	}{
		{"", 1, false},
		{"ITN_20260828_001", 2, false},
		{"ITN_20260828_042", 43, false},
		{"ITN_20260828_999", 1000, false},
		{"garbage", 0, true},
		{"ITN_20260828_", 0, true},
		{"ITN_20260828_abc", 0, true},
	}
	for _, tc := range cases {
		got, err := nextSerial(tc.last)
		if tc.wantErr {
			if err == nil {
				t.Errorf("nextSerial(%q) expected error", tc.last)
			}
			continue
		}
		if err != nil {
			t.Errorf("nextSerial(%q) failed: %v", tc.last, err)
			continue
		}
		if got != tc.want {
			t.Errorf("nextSerial(%q) = %d, want %d", tc.last, got, tc.want)
		}
	}
}

func TestGenerateContinuesPastThreeDigitSerials(t *testing.T) {
	repo := newFakeTicketRepo(
		&domain.Ticket{TicketNumber: "ITN_20260828_999"},
		&domain.Ticket{TicketNumber: "ITN_20260828_1000"},
	)

	number, err := NewNumberGenerator(&fakeMappingRepo{}).Generate(context.Background(), repo, "ITN", testNow)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if number != "ITN_20260828_1001" {
		t.Errorf("number = %s, want ITN_20260828_1001 (the four-digit serial is the day's max)", number)
	}
}

func TestFormatTicketNumber(t *testing.T) {
	cases := []struct {
		prefix string
		day    string
		serial int
		want   string
	}{
		{"ITN", "20260828", 1, "ITN_20260828_001"},
		{"HR", "20260101", 42, "HR_20260101_042"},
		{"ITN", "20260828", 1000, "ITN_20260828_1000"},
	}
	for _, tc := range cases {
		if got := formatTicketNumber(tc.prefix, tc.day, tc.serial); got != tc.want {
			t.Errorf("formatTicketNumber(%q, %q, %d) = %q, want %q", tc.prefix, tc.day, tc.serial, got, tc.want)
		}
	}
}
