package privilege

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/k8ika0s/optimizer-api/internal/store"
)

// GrantWriter upserts grants.
type GrantWriter interface {
	PutGrant(ctx context.Context, g store.Grant) error
}

// SeedResult captures grant seeding stats.
type SeedResult struct {
	Files   int
	Loaded  int
	Skipped int
	Errors  []string
}

// SeedGrantsFromDir loads YAML grant files from a directory and upserts them.
func SeedGrantsFromDir(ctx context.Context, fs afero.Fs, st GrantWriter, dir string) (SeedResult, error) {
	var res SeedResult
	if st == nil || dir == "" {
		return res, nil
	}
	info, err := fs.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, err
	}
	if !info.IsDir() {
		return res, fmt.Errorf("grants path is not a directory: %s", dir)
	}
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return res, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		res.Files++
		data, err := afero.ReadFile(fs, filepath.Join(dir, entry.Name()))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		var grants []store.Grant
		if err := yaml.Unmarshal(data, &grants); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		for _, g := range grants {
			g = NormalizeGrant(g)
			if errs := ValidateGrant(g); len(errs) > 0 {
				label := g.ID
				if label == "" {
					label = "unknown-id"
				}
				res.Errors = append(res.Errors, fmt.Sprintf("%s:%s: %s", entry.Name(), label, strings.Join(errs, "; ")))
				res.Skipped++
				continue
			}
			if err := st.PutGrant(ctx, g); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s:%s: %v", entry.Name(), g.ID, err))
				continue
			}
			res.Loaded++
		}
	}
	return res, nil
}
