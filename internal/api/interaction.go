package api

import (
	"context"
)

// requestInteractor answers the tracker's prompts from what the client already
// sent: the habit name from the body and the confirmation from the query.
type requestInteractor struct {
	name    *string
	confirm bool
}

func (ri requestInteractor) PromptText(_ context.Context, _ string) (string, bool, error) {
	if ri.name == nil {
		return "", false, nil
	}
	return *ri.name, true, nil
}

func (ri requestInteractor) Confirm(_ context.Context, _ string) (bool, error) {
	return ri.confirm, nil
}
