package swagger

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Spec is the HTTP contract, parsed and validated once at startup.
type Spec struct {
	raw []byte
	doc *openapi3.T
}

func Load(ctx context.Context, path string) (*Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read openapi spec: %w", err)
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return &Spec{raw: raw, doc: doc}, nil
}

// Paths lists the documented paths in sorted order.
func (s *Spec) Paths() []string {
	paths := make([]string, 0, s.doc.Paths.Len())
	for p := range s.doc.Paths.Map() {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *Spec) Version() string {
	if s.doc.Info == nil {
		return ""
	}
	return s.doc.Info.Version
}

func (s *Spec) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(s.raw)
}

// Handler serves the swagger UI pointed at the spec route.
func Handler(specURL string) http.Handler {
	return httpSwagger.Handler(httpSwagger.URL(specURL))
}
