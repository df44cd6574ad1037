package cleanup_test

import (
	"errors"
	"testing"

	"github.com/limbo/habitsync/pkg/cleanup"
	"github.com/stretchr/testify/assert"
)

func TestCleanUpRunsInReverseOrder(t *testing.T) {
	var order []string
	for _, name := range []string{"pool", "feed", "gateway"} {
		name := name
		cleanup.Register(&cleanup.Job{
			Name: name,
			F: func() error {
				order = append(order, name)
				return nil
			},
		})
	}
	cleanup.Register(&cleanup.Job{
		Name: "broken",
		F: func() error {
			return errors.New("boom")
		},
	})

	assert.Equal(t, 1, cleanup.CleanUp())
	assert.Equal(t, []string{"gateway", "feed", "pool"}, order)

	// jobs are forgotten after a run
	assert.Equal(t, 0, cleanup.CleanUp())
	assert.Len(t, order, 3)
}
