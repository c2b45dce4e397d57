package wallet

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to WithdrawalStatus
		want     bool
	}{
		{WithdrawalStatusPending, WithdrawalStatusApproved, true},
		{WithdrawalStatusPending, WithdrawalStatusRejected, true},
		{WithdrawalStatusPending, WithdrawalStatusCompleted, false},
		{WithdrawalStatusApproved, WithdrawalStatusCompleted, true},
		{WithdrawalStatusApproved, WithdrawalStatusRejected, false},
		{WithdrawalStatusApproved, WithdrawalStatusPending, false},
		{WithdrawalStatusRejected, WithdrawalStatusCompleted, false},
		{WithdrawalStatusCompleted, WithdrawalStatusPending, false},
		{WithdrawalStatusCompleted, WithdrawalStatusCompleted, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}
