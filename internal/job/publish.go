package job

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/demosdemon/skuwatch/internal/vcs"
	"github.com/demosdemon/skuwatch/pkg/log"
)

// Publish commits and pushes changed snapshots.
type Publish struct {
	log.Logger
	VCS vcs.Publisher
	// Dir is the snapshots directory relative to the repository root.
	Dir     string
	Message string
}

// Do returns the result of every step taken. A nil slice and nil error
// means there was nothing to publish.
func (p *Publish) Do(ctx context.Context) ([]vcs.Result, error) {
	dir := strings.TrimSuffix(path.Clean(filepath.ToSlash(p.Dir)), "/")

	changed, err := p.VCS.Changed(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		p.Infof("No changes detected in %s/. Nothing to commit.", dir)
		return nil, nil
	}
	p.Infof("%d changed files in %s/", len(changed), dir)

	var results []vcs.Result
	res, err := p.VCS.Stage(ctx, dir)
	if err != nil {
		return results, err
	}
	results = append(results, res)

	res, err = p.VCS.Commit(ctx, p.Message)
	if err != nil {
		return results, err
	}
	results = append(results, res)
	p.Infof("committed %s", res.Hash)

	res, err = p.VCS.Push(ctx)
	if err != nil {
		return results, err
	}
	results = append(results, res)
	if res.UpToDate {
		p.Infof("remote already up to date")
	} else {
		p.Infof("pushed to remote")
	}

	return results, nil
}
