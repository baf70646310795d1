package reactive

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// Gettable is anything a path expression can walk through.
type Gettable interface {
	Get(key string) any
}

var bailRE = regexp.MustCompile(`[^\p{L}\p{N}_.$]`)

type parsedPath struct {
	path     string
	segments []string
}

// parsePath compiles a dot-delimited path into a Getter. Segments are cached
// per System keyed by the path's hash.
func (s *System) parsePath(path string) (Getter, error) {
	if bailRE.MatchString(path) {
		return nil, errors.Wrapf(ErrBadPath, "failed watching path %q", path)
	}
	h := xxhash.Sum64String(path)
	p, ok := s.paths[h]
	if !ok || p.path != path {
		p = parsedPath{path: path, segments: strings.Split(path, ".")}
		s.paths[h] = p
	}
	segments := p.segments
	return func(target any) (any, error) {
		obj := target
		for _, seg := range segments {
			g, ok := obj.(Gettable)
			if !ok || isNilPointer(obj) {
				return nil, nil
			}
			obj = g.Get(seg)
		}
		return obj, nil
	}, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
