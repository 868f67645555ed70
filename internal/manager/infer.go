package manager

import (
	"context"
	"errors"

	"llamachat/internal/inference"
	"llamachat/pkg/types"
)

// Infer starts a generation on the model behind h. It waits for admission
// (FIFO queue, one generation per instance) and then returns a stream whose
// producer holds the instance until the generation ends or is cancelled.
// A model that was unloaded since LoadModel is loaded again.
func (m *Manager) Infer(ctx context.Context, h inference.Handle, prompt string, p inference.Params) (*inference.Stream, error) {
	inst, release, err := m.admit(ctx, h.Model)
	if err != nil {
		return nil, err
	}
	lm := inst.model
	return inference.NewStream(ctx, func(ctx context.Context, emit func(string) error) (types.Usage, error) {
		defer release()
		res, err := lm.Generate(ctx, prompt, p, emit)
		if err != nil {
			m.log.Debug().Err(err).Str("model", inst.ID).Msg("generation ended with error")
		}
		return res.Usage, err
	}), nil
}

func (m *Manager) admit(ctx context.Context, modelID string) (*Instance, func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		if !m.IsLoaded(modelID) {
			if _, err := m.LoadModel(ctx, modelID); err != nil {
				return nil, nil, err
			}
		}
		inst, release, err := m.beginGeneration(ctx, modelID)
		if errors.Is(err, errInstanceGone) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return inst, release, nil
	}
	return nil, nil, tooBusyError{modelID: modelID}
}
