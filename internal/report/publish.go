package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/storage/archive"
)

// Artifact file names inside a run directory.
const (
	ResultFile   = "result.json"
	TextFile     = "report.txt"
	FrontierFile = "frontier.png"
	WeightsFile  = "weights.png"
)

type artifact struct {
	name string
	data []byte
}

// RunDir returns runs/<date>/<run id> for r.
func RunDir(r *pipeline.Result) string {
	return path.Join("runs", r.GeneratedAt.UTC().Format(time.DateOnly), r.RunID)
}

// Publish writes the run's artifacts to store and returns the written paths.
// The frontier chart is written only when the run has a frontier to draw.
func Publish(ctx context.Context, store archive.Storage, r *pipeline.Result) ([]string, error) {
	if r.RunID == "" {
		return nil, core.Errorf(core.ErrInvalidParameter, "result has no run id")
	}
	dir := RunDir(r)

	doc, err := JSON(r)
	if err != nil {
		return nil, err
	}
	var text bytes.Buffer
	if err := WriteText(&text, r); err != nil {
		return nil, fmt.Errorf("report: failed to render text: %w", err)
	}
	artifacts := []artifact{
		{ResultFile, doc},
		{TextFile, text.Bytes()},
	}

	if pie, err := WeightsChart(r); err == nil {
		artifacts = append(artifacts, artifact{WeightsFile, pie})
	}
	if r.Frontier != nil {
		png, err := FrontierChart(r)
		switch {
		case err == nil:
			artifacts = append(artifacts, artifact{FrontierFile, png})
		case !errors.Is(err, core.ErrNoData):
			return nil, err
		}
	}

	written := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		p := path.Join(dir, a.name)
		if err := store.Write(ctx, p, a.data); err != nil {
			return written, fmt.Errorf("report: failed to publish %s: %w", a.name, err)
		}
		written = append(written, p)
	}
	return written, nil
}
