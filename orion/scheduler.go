package orion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prepass/pulse"
	"golang.org/x/sync/errgroup"
)

var ErrIncompleteView = errors.New("view requires a renderer and a camera")

// View is a camera rendered by a renderer.
type View struct {
	Renderer *Renderer
	Camera   *Camera
	Culling  pulse.CullingResults
}

// Scheduler renders independent views in parallel.
type Scheduler struct {
	// maximum number of views rendered at the same time,
	// zero or less means no limit
	Parallelism int
}

// RenderFrame renders all views and waits for them to finish. Views sharing
// a renderer are rendered one after another. The first error cancels the
// views that did not start yet.
func (s *Scheduler) RenderFrame(ctx context.Context, views []View) error {
	for idx, view := range views {
		if view.Renderer == nil || view.Camera == nil {
			return fmt.Errorf("view %d: %w", idx, ErrIncompleteView)
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	if s.Parallelism > 0 {
		group.SetLimit(s.Parallelism)
	}

	for _, view := range views {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			err := view.Renderer.RenderCamera(ctx, view.Camera, view.Culling)
			if err != nil {
				return fmt.Errorf("render camera %q: %w", view.Camera.Name, err)
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	slog.Debug("Rendered frame", slog.Int("views", len(views)))

	return nil
}
