package notifier

import (
	"context"

	"github.com/anchorline/anchor-engine/internal/domain/model"
	"github.com/anchorline/anchor-engine/internal/store"
	"github.com/google/uuid"
)

// NotifyingStore decorates a TransactionStore so every committed status
// change is announced through the dispatcher. Reads pass through untouched.
type NotifyingStore struct {
	store.TransactionStore
	dispatcher *Dispatcher
}

func NewNotifyingStore(inner store.TransactionStore, dispatcher *Dispatcher) *NotifyingStore {
	return &NotifyingStore{TransactionStore: inner, dispatcher: dispatcher}
}

var _ store.TransactionStore = (*NotifyingStore)(nil)

func (s *NotifyingStore) Create(ctx context.Context, tx *model.Transaction) error {
	if err := s.TransactionStore.Create(ctx, tx); err != nil {
		return err
	}
	s.dispatcher.Notify(ctx, NewEvent(tx))
	return nil
}

func (s *NotifyingStore) Transition(ctx context.Context, id uuid.UUID, fromSet []model.TransactionStatus, to model.TransactionStatus, mutate store.TransitionFn) (*model.Transaction, error) {
	tx, err := s.TransactionStore.Transition(ctx, id, fromSet, to, mutate)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Notify(ctx, NewEvent(tx))
	return tx, nil
}
