// README: Tests for the time-to-status mapping.
package order

import (
	"testing"
	"time"
)

func TestStatusAt(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    Status
	}{
		{0, StatusConfirmed},
		{1 * time.Minute, StatusConfirmed},
		{2*time.Minute - time.Second, StatusConfirmed},
		{2 * time.Minute, StatusPreparing},
		{10 * time.Minute, StatusPreparing},
		{25*time.Minute - time.Second, StatusPreparing},
		{25 * time.Minute, StatusOutForDelivery},
		{30 * time.Minute, StatusOutForDelivery},
		{55*time.Minute - time.Second, StatusOutForDelivery},
		{55 * time.Minute, StatusDelivered},
		{60 * time.Minute, StatusDelivered},
		{24 * time.Hour, StatusDelivered},
	}
	for _, c := range cases {
		if got := StatusAt(t0, t0.Add(c.elapsed)); got != c.want {
			t.Errorf("StatusAt(+%v) = %s, want %s", c.elapsed, got, c.want)
		}
	}
}

func TestStatusAtNeverCancels(t *testing.T) {
	t0 := time.Now()
	for _, d := range []time.Duration{0, time.Minute, time.Hour, 48 * time.Hour} {
		if got := StatusAt(t0, t0.Add(d)); got == StatusCancelled {
			t.Fatalf("StatusAt must never derive cancelled (elapsed %v)", d)
		}
	}
}
