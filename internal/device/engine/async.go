package engine

import (
	"context"

	"github.com/dmitrijs2005/finn/internal/device/models"
	"github.com/dmitrijs2005/finn/internal/device/services"
)

// TriggerActionAsync runs TriggerAction on its own goroutine and hands the
// outcome to fn. fn is skipped if the engine is stopped meanwhile and must
// not call Stop.
func (e *Engine) TriggerActionAsync(ctx context.Context, actionID, alternativeID string, fn func(services.TriggerResult, error)) {
	go func() {
		res, err := e.TriggerAction(ctx, actionID, alternativeID)
		e.callback(func() { fn(res, err) })
	}()
}

// ActionsAsync is the callback form of Actions.
func (e *Engine) ActionsAsync(ctx context.Context, fn func([]models.ActionDescriptor, error)) {
	go func() {
		actions, err := e.Actions(ctx)
		e.callback(func() { fn(actions, err) })
	}()
}

// MessagesAsync is the callback form of Messages.
func (e *Engine) MessagesAsync(ctx context.Context, fn func([]models.Message, error)) {
	go func() {
		msgs, err := e.Messages(ctx)
		e.callback(func() { fn(msgs, err) })
	}()
}
