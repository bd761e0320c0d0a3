package api

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samcharles93/namcore/internal/namfile"
)

// EnvModelsDir names the directory searched for models when none is configured.
const EnvModelsDir = "NAM_MODELS_DIR"

type ModelResolverConfig struct {
	DefaultModelPath string
	ModelsPath       string
}

// ModelResolver turns the model field of a request into a file path.
type ModelResolver struct {
	cfg ModelResolverConfig
}

func NewModelResolver(cfg ModelResolverConfig) *ModelResolver {
	return &ModelResolver{cfg: cfg}
}

// Resolve accepts a path, a file name in the models directory with or
// without the .nam extension, or "" for the default model. When a models
// directory is configured, paths must stay inside it and relative paths are
// taken from it. Without one, paths are used as given.
func (r *ModelResolver) Resolve(modelID string) (string, error) {
	modelID = strings.TrimSpace(modelID)
	if modelID != "" {
		modelsDir := r.ModelsDir()
		if hasSeparator(modelID) {
			return confine(modelsDir, modelID)
		}
		if resolved := resolveInDir(modelsDir, modelID); resolved != "" {
			return resolved, nil
		}
		if modelsDir == "" {
			if strings.HasSuffix(strings.ToLower(modelID), namfile.Ext) {
				return filepath.Clean(modelID), nil
			}
			return "", newInvalidRequest(fmt.Sprintf("a models directory is required to resolve model %q", modelID))
		}
		return "", fmt.Errorf("%w: %q", ErrModelNotFound, modelID)
	}

	if r.cfg.DefaultModelPath != "" {
		return filepath.Clean(r.cfg.DefaultModelPath), nil
	}
	modelsDir := r.ModelsDir()
	if modelsDir == "" {
		return "", newInvalidRequest("model is required")
	}
	models, err := namfile.Discover(modelsDir)
	if err != nil {
		return "", err
	}
	switch len(models) {
	case 0:
		return "", fmt.Errorf("%w: no %s files in %s", ErrModelNotFound, namfile.Ext, modelsDir)
	case 1:
		return models[0], nil
	default:
		return "", newInvalidRequest(fmt.Sprintf("multiple models found in %s; specify model", modelsDir))
	}
}

// ModelsDir is the configured directory, falling back to NAM_MODELS_DIR.
func (r *ModelResolver) ModelsDir() string {
	if dir := strings.TrimSpace(r.cfg.ModelsPath); dir != "" {
		return dir
	}
	return strings.TrimSpace(os.Getenv(EnvModelsDir))
}

// ListModels describes every model in the models directory plus the default
// model when it lives elsewhere.
func (r *ModelResolver) ListModels() ([]ModelInfo, error) {
	var paths []string
	if dir := r.ModelsDir(); dir != "" {
		found, err := namfile.Discover(dir)
		if err != nil {
			return nil, err
		}
		paths = found
	}
	if def := r.cfg.DefaultModelPath; def != "" && !slices.Contains(paths, filepath.Clean(def)) {
		paths = append(paths, filepath.Clean(def))
	}

	out := make([]ModelInfo, 0, len(paths))
	for _, p := range paths {
		info := ModelInfo{ID: modelID(p), Object: "model", Path: p}
		if st, err := os.Stat(p); err == nil {
			info.Size = st.Size()
			info.ModTime = st.ModTime().Unix()
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b ModelInfo) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func modelID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// confine resolves p against dir and rejects results outside dir. An empty
// dir accepts any path.
func confine(dir, p string) (string, error) {
	if dir == "" {
		return filepath.Clean(p), nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(filepath.Clean(dir), p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", newInvalidRequest("model path is outside the models directory")
	}
	return p, nil
}

func hasSeparator(v string) bool {
	return strings.ContainsRune(v, filepath.Separator) || strings.ContainsRune(v, '/')
}

func resolveInDir(dir, name string) string {
	if dir == "" {
		return ""
	}
	cand := filepath.Join(dir, name)
	if fileExists(cand) {
		return cand
	}
	if !strings.HasSuffix(strings.ToLower(name), namfile.Ext) {
		cand = filepath.Join(dir, name+namfile.Ext)
		if fileExists(cand) {
			return cand
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
