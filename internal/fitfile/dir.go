package fitfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSource reads <activity id>.fit files from a local directory
type DirSource struct {
	Dir string
}

// PowerStream returns the activity's power samples
func (d DirSource) PowerStream(ctx context.Context, activityID int64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.Dir, objectName(activityID)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open fit file: %w", err)
	}
	defer f.Close()

	samples, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return samples.Watts, nil
}
