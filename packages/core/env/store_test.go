package env

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("service_id")
	assert.False(t, ok)

	s.Set("service_id", "7")
	s.Set("service_id", "8")

	v, ok := s.Get("service_id")
	assert.True(t, ok)
	assert.Equal(t, "8", v, "last write wins")
	assert.Equal(t, 1, s.Len())
}

func TestStore_SetAllAndSnapshot(t *testing.T) {
	s := NewStore()
	s.SetAll(map[string]string{"customer_id": "1", "customer_access_token": "a"})

	snap := s.Snapshot()
	assert.Equal(t, map[string]string{"customer_id": "1", "customer_access_token": "a"}, snap)

	snap["customer_id"] = "tampered"
	v, _ := s.Get("customer_id")
	assert.Equal(t, "1", v, "snapshot must be a copy")
	assert.Equal(t, []string{"customer_access_token", "customer_id"}, s.Keys())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	first := s.RunID()
	require.NotEmpty(t, first)

	s.Set("booking_id", "3")
	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.NotEqual(t, first, s.RunID())

	s.SetRunID("resumed")
	assert.Equal(t, "resumed", s.RunID())
	s.SetRunID("")
	assert.Equal(t, "resumed", s.RunID())
}

func TestStore_Update(t *testing.T) {
	s := NewStore()
	s.Set("counter", "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(func(vars map[string]string) {
				var n int
				fmt.Sscanf(vars["counter"], "%d", &n)
				vars["counter"] = fmt.Sprint(n + 1)
			})
		}()
	}
	wg.Wait()

	v, _ := s.Get("counter")
	assert.Equal(t, "50", v)
}

func TestStore_ConcurrentRoleWrites(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.SetAll(map[string]string{"customer_id": fmt.Sprint(i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			s.SetAll(map[string]string{"provider_id": fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	assert.True(t, s.Has("customer_id"))
	assert.True(t, s.Has("provider_id"))
	assert.Equal(t, 2, s.Len())
}

func TestStore_Resolve(t *testing.T) {
	t.Setenv("PRBAL_TEST_HOST", "api.prbal.test")

	tests := []struct {
		name     string
		input    string
		vars     map[string]string
		expected string
	}{
		{
			name:     "no placeholders",
			input:    "/api/services/",
			expected: "/api/services/",
		},
		{
			name:     "token header",
			input:    "Bearer {{customer_access_token}}",
			vars:     map[string]string{"customer_access_token": "abc"},
			expected: "Bearer abc",
		},
		{
			name:     "path segment with spaces",
			input:    "/api/services/{{ service_id }}/",
			vars:     map[string]string{"service_id": "7"},
			expected: "/api/services/7/",
		},
		{
			name:     "os environment",
			input:    "https://{{$PRBAL_TEST_HOST}}/api",
			expected: "https://api.prbal.test/api",
		},
		{
			name:     "unresolved left intact",
			input:    "/api/bookings/{{booking_id}}/",
			expected: "/api/bookings/{{booking_id}}/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			s.SetAll(tt.vars)
			assert.Equal(t, tt.expected, s.Resolve(tt.input))
		})
	}
}

func TestStore_ResolveWarns(t *testing.T) {
	s := NewStore()
	var warnings []string
	s.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	s.Resolve("{{booking_id}} {{$PRBAL_SURELY_UNSET_VAR}}")

	assert.Equal(t, []string{
		"unresolved variable: booking_id",
		"unresolved environment variable: $PRBAL_SURELY_UNSET_VAR",
	}, warnings)
}

func TestStore_Unresolved(t *testing.T) {
	s := NewStore()
	s.Set("bid_id", "4")

	assert.Nil(t, s.Unresolved("/api/bids/{{bid_id}}/"))
	assert.Equal(t, []string{"request_id", "booking_id"}, s.Unresolved("{{request_id}}/{{bid_id}}/{{booking_id}}"))
}

func TestMergeVariables(t *testing.T) {
	merged := MergeVariables(
		map[string]string{"base_url": "http://a", "x": "1"},
		map[string]string{"base_url": "http://b"},
	)
	assert.Equal(t, map[string]string{"base_url": "http://b", "x": "1"}, merged)
}

func TestLoadEnvironment(t *testing.T) {
	envs := map[string]map[string]string{
		"dev": {"base_url": "http://localhost:8000"},
	}
	assert.Equal(t, "http://localhost:8000", LoadEnvironment("dev", envs)["base_url"])
	assert.Empty(t, LoadEnvironment("prod", envs))
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("PRBALCHECK_VAR_BASE_URL", "http://localhost:8000")

	vars := LoadSystemEnv("PRBALCHECK_VAR_")
	assert.Equal(t, "http://localhost:8000", vars["base_url"])
	assert.Empty(t, LoadSystemEnv(""))
}
