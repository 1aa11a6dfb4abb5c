package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/foundation"
)

func TestSlotAliasNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want PlannedSlot
	}{
		{
			name: "canonical fields",
			in:   `{"label":"working","validFrom":"09:00","validUntil":"18:00","priority":10}`,
			want: PlannedSlot{Label: "working", ValidFrom: "09:00", ValidUntil: "18:00", Priority: 10},
		},
		{
			name: "description alias and snake case bounds",
			in:   `{"description":"deep work","valid_from":"10:00","valid_until":"12:00"}`,
			want: PlannedSlot{Label: "deep work", ValidFrom: "10:00", ValidUntil: "12:00"},
		},
		{
			name: "start end aliases",
			in:   `{"activity":"gym","start":"18:00","end":"19:30"}`,
			want: PlannedSlot{Label: "gym", ValidFrom: "18:00", ValidUntil: "19:30"},
		},
		{
			name: "combined time range",
			in:   `{"text":"lunch","time":"12:00-13:00"}`,
			want: PlannedSlot{Label: "lunch", ValidFrom: "12:00", ValidUntil: "13:00"},
		},
		{
			name: "fullwidth colon and silent alias",
			in:   `{"label":"sleeping","validFrom":"23：00","validUntil":"07：00","is_silent":true}`,
			want: PlannedSlot{Label: "sleeping", ValidFrom: "23:00", ValidUntil: "07:00", Silent: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PlannedSlot
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotCacheRoundTripPreservesCanonicalNames(t *testing.T) {
	slot := PlannedSlot{Label: "working", ValidFrom: "09:00", ValidUntil: "18:00", Priority: 10}
	data, err := json.Marshal(slot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"validFrom"`)

	var back PlannedSlot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, slot, back)
}

func TestDecodeSlotsShapes(t *testing.T) {
	bare := `[{"label":"a","validFrom":"01:00","validUntil":"02:00"}]`
	slots, err := DecodeSlots([]byte(bare))
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	wrapped := `{"slots":[{"label":"a","validFrom":"01:00","validUntil":"02:00"}]}`
	slots, err = DecodeSlots([]byte(wrapped))
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	_, err = DecodeSlots([]byte(`[]`))
	require.Error(t, err)

	_, err = DecodeSlots([]byte(`"nope"`))
	require.Error(t, err)
}

func TestHTTPGeneratorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-08-26", req["day"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"slots":[{"label":"working","validFrom":"09:00","validUntil":"18:00"}]}`))
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(config.GeneratorConfig{
		Endpoint: srv.URL,
		Timeout:  config.Duration(time.Second),
		Retries:  1,
		Backoff:  "fixed",
	})

	slots, err := gen.GenerateDailySchedule(t.Context(), "2026-08-26")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "working", slots[0].Label)
}

func TestHTTPGeneratorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(config.GeneratorConfig{
		Endpoint: srv.URL,
		Timeout:  config.Duration(time.Second),
		Retries:  2,
		Backoff:  "fixed",
	})
	gen.policy.Initial = time.Millisecond

	_, err := gen.GenerateDailySchedule(t.Context(), "2026-08-26")
	require.Error(t, err)
	assert.True(t, foundation.HasCode(err, foundation.ErrorCodeExternal))
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestHTTPGeneratorNoEndpoint(t *testing.T) {
	gen := NewHTTPGenerator(config.GeneratorConfig{})
	_, err := gen.GenerateDailySchedule(t.Context(), "2026-08-26")
	require.Error(t, err)
	assert.True(t, foundation.HasCode(err, foundation.ErrorCodeExternal))
}

func TestCacheRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	assert.True(t, cache.LoadDay("2026-08-26").IsNone())

	slots := []PlannedSlot{{Label: "working", ValidFrom: "09:00", ValidUntil: "18:00"}}
	require.NoError(t, cache.SaveDay("2026-08-26", slots))

	loaded := cache.LoadDay("2026-08-26")
	require.True(t, loaded.IsSome())
	assert.Equal(t, slots, loaded.Unwrap())

	assert.True(t, cache.LoadDay("2026-08-27").IsNone())
}
