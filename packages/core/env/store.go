package env

import (
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Store is a string-keyed variable map scoped to one run. Writes are
// last-write-wins; all access is serialized so captures from interleaved
// customer and provider flows never lose updates.
type Store struct {
	mu       sync.RWMutex
	vars     map[string]string
	runID    string
	warnFunc WarnFunc
}

func NewStore() *Store {
	return &Store{
		vars:  make(map[string]string),
		runID: uuid.NewString(),
	}
}

// RunID identifies the run the current contents belong to. It changes on
// Reset.
func (s *Store) RunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// SetRunID adopts an existing run id, used when resuming a persisted run.
func (s *Store) SetRunID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = id
}

// SetWarnFunc sets a function to be called when a placeholder cannot be
// resolved.
func (s *Store) SetWarnFunc(fn WarnFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnFunc = fn
}

func (s *Store) warn(format string, args ...any) {
	s.mu.RLock()
	fn := s.warnFunc
	s.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
}

// SetAll writes a batch of values under one lock.
func (s *Store) SetAll(values map[string]string) {
	if len(values) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.vars[k] = v
	}
}

// Seed writes values that are not already set. Seeds never overwrite
// captures.
func (s *Store) Seed(values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		if _, ok := s.vars[k]; !ok {
			s.vars[k] = v
		}
	}
}

// Update runs fn with the live map while holding the write lock, for
// read-modify-write sequences.
func (s *Store) Update(fn func(vars map[string]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.vars)
}

func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}

// Snapshot returns a copy of the current contents.
func (s *Store) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Keys returns the variable names in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.vars))
	for k := range s.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset empties the store and starts a new run.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars = make(map[string]string)
	s.runID = uuid.NewString()
}

func (s *Store) lookup(expr string) (string, bool) {
	if strings.HasPrefix(expr, "$") {
		if val := os.Getenv(expr[1:]); val != "" {
			return val, true
		}
		return "", false
	}
	return s.Get(expr)
}

// Resolve replaces {{name}} with stored values and {{$NAME}} with OS
// environment variables. Unresolved placeholders are left in place.
func (s *Store) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := s.lookup(expr); ok {
			return val
		}
		if strings.HasPrefix(expr, "$") {
			s.warn("unresolved environment variable: %s", expr)
		} else {
			s.warn("unresolved variable: %s", expr)
		}
		return match
	})
}

func (s *Store) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = s.Resolve(v)
	}
	return result
}

// Unresolved lists the placeholders in input that Resolve would leave in
// place, in order of appearance.
func (s *Store) Unresolved(input string) []string {
	var missing []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, ok := s.lookup(expr); !ok {
			missing = append(missing, expr)
		}
	}
	return missing
}
