package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/trailpack/internal/model"
)

// ErrBadPath is returned when a path cannot address a value, for example
// when it descends through a string or uses a negative slice index.
var ErrBadPath = errors.New("state: bad path")

// Get returns the value at a dotted path such as "settings.weightUnit" or
// "walks.0.items". Values are returned in their generic JSON form (maps,
// slices, float64, string, bool). An empty path returns the whole tree,
// including the session keys.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	tree, err := s.tree()
	s.mu.RUnlock()
	if err != nil {
		s.logger.Error("building state tree", "error", err)
		return nil, false
	}
	if path == "" {
		return tree, true
	}

	var node any = tree
	for _, seg := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// Set writes value at a dotted path and notifies subscribers once. Paths
// rooted at "sharedWalk" or "activeWalkId" address the session overlay.
// Unknown keys are stored as-is; the document is not validated here.
func (s *Store) Set(path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	v, err := toGeneric(value)
	if err != nil {
		return fmt.Errorf("%w: encoding value for %q: %v", ErrBadPath, path, err)
	}

	return s.write(func() error {
		if model.IsTransientKey(segs[0]) {
			return s.setSession(segs, v)
		}
		return s.setDocument(segs, v)
	})
}

func (s *Store) tree() (map[string]any, error) {
	docTree, err := toGeneric(s.doc)
	if err != nil {
		return nil, err
	}
	m, ok := docTree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document encoded as %T", docTree)
	}
	if s.session.SharedWalk != nil {
		w, err := toGeneric(s.session.SharedWalk)
		if err != nil {
			return nil, err
		}
		m[model.KeySharedWalk] = w
	}
	if s.session.ActiveWalkID != "" {
		m[model.KeyActiveWalkID] = s.session.ActiveWalkID
	}
	return m, nil
}

func (s *Store) setDocument(segs []string, v any) error {
	root, err := toGeneric(s.doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	updated, err := assign(root, segs, v)
	if err != nil {
		return err
	}

	b, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	var next model.Document
	if err := json.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPath, strings.Join(segs, "."), err)
	}
	s.doc = next
	return nil
}

func (s *Store) setSession(segs []string, v any) error {
	switch segs[0] {
	case model.KeyActiveWalkID:
		if len(segs) > 1 {
			return fmt.Errorf("%w: %s is a string", ErrBadPath, model.KeyActiveWalkID)
		}
		switch id := v.(type) {
		case nil:
			s.session.ActiveWalkID = ""
		case string:
			s.session.ActiveWalkID = id
		default:
			return fmt.Errorf("%w: %s must be a string, got %T", ErrBadPath, model.KeyActiveWalkID, v)
		}
		return nil

	case model.KeySharedWalk:
		var current any
		if s.session.SharedWalk != nil {
			c, err := toGeneric(s.session.SharedWalk)
			if err != nil {
				return fmt.Errorf("encoding shared walk: %w", err)
			}
			current = c
		}
		updated, err := assign(current, segs[1:], v)
		if err != nil {
			return err
		}
		if updated == nil {
			s.session.SharedWalk = nil
			return nil
		}
		b, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encoding shared walk: %w", err)
		}
		var w model.Walk
		if err := json.Unmarshal(b, &w); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadPath, strings.Join(segs, "."), err)
		}
		s.session.SharedWalk = &w
		return nil
	}
	return fmt.Errorf("%w: unknown session key %q", ErrBadPath, segs[0])
}

// assign replaces the value at segs inside node and returns the new node.
// Missing intermediate objects are created. A slice index equal to the
// length appends.
func assign(node any, segs []string, v any) (any, error) {
	if len(segs) == 0 {
		return v, nil
	}
	seg, rest := segs[0], segs[1:]

	switch n := node.(type) {
	case nil:
		child, err := assign(nil, rest, v)
		if err != nil {
			return nil, err
		}
		return map[string]any{seg: child}, nil

	case map[string]any:
		child, err := assign(n[seg], rest, v)
		if err != nil {
			return nil, err
		}
		n[seg] = child
		return n, nil

	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i > len(n) {
			return nil, fmt.Errorf("%w: index %q out of range [0,%d]", ErrBadPath, seg, len(n))
		}
		if i == len(n) {
			n = append(n, nil)
		}
		child, err := assign(n[i], rest, v)
		if err != nil {
			return nil, err
		}
		n[i] = child
		return n, nil

	default:
		return nil, fmt.Errorf("%w: cannot descend into %T at %q", ErrBadPath, node, seg)
	}
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrBadPath)
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrBadPath, path)
		}
	}
	return segs, nil
}

// toGeneric converts v into its generic JSON form.
func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
