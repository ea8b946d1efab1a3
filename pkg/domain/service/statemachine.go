package service

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

// Notifier delivers status-change messages to the notification collaborator.
// Delivery is fire-and-forget: a failure is logged and never rolls back the
// transition that produced the event.
type Notifier interface {
	Notify(event model.OrderStatusChanged) error
}

type OrderStateMachine interface {
	Transition(ctx context.Context, orderID uuid.UUID, newStatus model.OrderStatus) (*model.Order, error)
}

// transitions is the full graph of legal status changes; terminal statuses
// have no outgoing edges.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.StatusPending:    {model.StatusProcessing, model.StatusCanceled},
	model.StatusProcessing: {model.StatusCompleted, model.StatusCanceled},
	model.StatusCompleted:  {},
	model.StatusCanceled:   {},
}

func transitionAllowed(from, to model.OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func NewOrderStateMachine(scopes ScopeFactory, ledger InventoryLedger, notifier Notifier, clock Clock) OrderStateMachine {
	return &orderStateMachine{scopes: scopes, ledger: ledger, notifier: notifier, clock: clock}
}

type orderStateMachine struct {
	scopes   ScopeFactory
	ledger   InventoryLedger
	notifier Notifier
	clock    Clock
}

func (m *orderStateMachine) Transition(ctx context.Context, orderID uuid.UUID, newStatus model.OrderStatus) (*model.Order, error) {
	if _, err := model.ParseOrderStatus(string(newStatus)); err != nil {
		return nil, err
	}

	scope, err := m.scopes.Atomic(ctx)
	if err != nil {
		return nil, err
	}
	defer scope.Rollback()

	order, err := scope.Orders().FindForUpdate(orderID)
	if err != nil {
		return nil, err
	}

	// Terminal orders are rejected before the transition table is consulted,
	// which also makes a repeated cancellation fail instead of releasing
	// stock twice.
	if order.Status.IsTerminal() {
		return nil, model.TerminalStateError{OrderID: order.ID, Status: order.Status}
	}
	if !transitionAllowed(order.Status, newStatus) {
		return nil, model.InvalidTransitionError{From: order.Status, To: newStatus}
	}

	if newStatus == model.StatusCanceled {
		// Hand every line's reservation back in the same transaction as the
		// status write; the lines themselves stay for audit access.
		for i := range order.Lines {
			if err := m.ledger.Release(scope, order.Lines[i].ProductID, order.Lines[i].Quantity); err != nil {
				return nil, err
			}
		}
	}

	if err := scope.Orders().UpdateStatus(order.ID, newStatus); err != nil {
		return nil, err
	}
	if err := scope.Commit(); err != nil {
		return nil, err
	}

	oldStatus := order.Status
	order.Status = newStatus

	if err := m.notifier.Notify(model.OrderStatusChanged{
		OrderID:    order.ID,
		UserID:     order.UserID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		OccurredAt: m.clock(),
	}); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"orderID": order.ID,
			"from":    oldStatus,
			"to":      newStatus,
		}).Error("failed to notify order status change")
	}

	return order, nil
}
