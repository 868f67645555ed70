package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"llamachat/internal/common/fsutil"
	"llamachat/pkg/types"
)

// GGUFScanner discovers *.gguf model files in a directory.
type GGUFScanner struct{}

func NewGGUFScanner() GGUFScanner { return GGUFScanner{} }

// Scan lists the *.gguf files of dir (case-insensitive, not recursive) as
// models sorted by ID. Family and Quant are guessed from names following the
// usual "<family>-...-<quant>.gguf" convention.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		p := filepath.Join(abs, name)
		family, quant := guessFamilyQuant(name)
		size, _ := fsutil.SizeMB(p)
		models = append(models, types.Model{
			ID:     name,
			Name:   name,
			Path:   p,
			Family: family,
			Quant:  quant,
			SizeMB: size,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir is a convenience wrapper around GGUFScanner.Scan.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// Find returns the model with the given id.
func Find(models []types.Model, id string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}

func guessFamilyQuant(filename string) (family, quant string) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '.' })
	if len(parts) < 2 {
		return "", ""
	}
	family = strings.ToLower(parts[0])
	last := parts[len(parts)-1]
	if u := strings.ToUpper(last); strings.HasPrefix(u, "Q") || strings.HasPrefix(u, "F16") || strings.HasPrefix(u, "F32") {
		quant = u
	}
	return family, quant
}
