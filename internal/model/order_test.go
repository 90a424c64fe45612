package model

import "testing"

var allStatuses = []OrderStatus{
    StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
    StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

func TestCanTransitionTable(t *testing.T) {
    allowed := map[[2]OrderStatus]bool{
        {StatusPending, StatusConfirmed}:   true,
        {StatusPending, StatusCancelled}:   true,
        {StatusConfirmed, StatusPreparing}: true,
        {StatusConfirmed, StatusCancelled}: true,
        {StatusPreparing, StatusReady}:     true,
        {StatusPreparing, StatusCancelled}: true,
        {StatusReady, StatusCancelled}:     true,
    }
    // The table must be total and deterministic: every (from, to) pair not
    // listed above is rejected.
    for _, from := range allStatuses {
        for _, to := range allStatuses {
            want := allowed[[2]OrderStatus{from, to}]
            if got := CanTransition(from, to); got != want {
                t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
            }
        }
    }
}

func TestTerminalStatesAreSinks(t *testing.T) {
    for _, terminal := range []OrderStatus{StatusDelivered, StatusCancelled} {
        if !IsTerminalStatus(terminal) {
            t.Errorf("%s should be terminal", terminal)
        }
        for _, to := range allStatuses {
            if CanTransition(terminal, to) {
                t.Errorf("terminal %s must not transition to %s", terminal, to)
            }
        }
    }
    if IsTerminalStatus(StatusOutForDelivery) {
        t.Error("OUT_FOR_DELIVERY is not terminal; DELIVERED is reached via the delivery endpoint")
    }
}

func TestCanTransitionUnknownStatus(t *testing.T) {
    if CanTransition(OrderStatus("SHIPPED"), StatusDelivered) {
        t.Error("unknown statuses must have no outgoing transitions")
    }
    if CanTransition(StatusPending, OrderStatus("SHIPPED")) {
        t.Error("transitions into unknown statuses must be rejected")
    }
}

func TestNextStatuses(t *testing.T) {
    if got := NextStatuses(StatusOutForDelivery); got == nil || len(got) != 0 {
        t.Errorf("NextStatuses(OUT_FOR_DELIVERY) = %v, want empty non-nil", got)
    }
    if got := NextStatuses(StatusPending); len(got) != 2 {
        t.Errorf("NextStatuses(PENDING) = %v, want two entries", got)
    }
}

func TestValidStatus(t *testing.T) {
    for _, s := range allStatuses {
        if !ValidStatus(s) {
            t.Errorf("ValidStatus(%s) = false", s)
        }
    }
    if ValidStatus(OrderStatus("SHIPPED")) {
        t.Error("SHIPPED is not a valid status")
    }
}
