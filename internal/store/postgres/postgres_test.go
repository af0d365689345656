package postgres

import "testing"

func TestQueryLimitNonPositiveMeansAllRows(t *testing.T) {
	if got := queryLimit(0); got != nil {
		t.Fatalf("expected nil limit parameter for 0, got %v", got)
	}
	if got := queryLimit(-3); got != nil {
		t.Fatalf("expected nil limit parameter for negative input, got %v", got)
	}
	if got := queryLimit(25); got != 25 {
		t.Fatalf("expected positive limit to pass through, got %v", got)
	}
}
