package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/makstermee/Gym-planner/internal/app"
)

const syncTimeout = 10 * time.Second

var errNoIdentity = errors.New("no identity configured: set identity in config.toml, GYMPLANNER_IDENTITY or --identity")

// withRuntime opens the runtime, waits for the first remote snapshot and runs
// fn. Edits made by fn are flushed when the runtime closes.
func (o *rootOptions) withRuntime(cmd *cobra.Command, fn func(rt *app.Runtime) error) (err error) {
	rt, err := app.Open(cmd.Context(), o.appOptions())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, rt.Close())
	}()

	if rt.Config.Identity == "" {
		return errNoIdentity
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()
	if err := rt.Store.WaitSynced(ctx); err != nil {
		return fmt.Errorf("wait for remote document: %w", err)
	}
	return fn(rt)
}
