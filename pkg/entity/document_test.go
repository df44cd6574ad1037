package entity_test

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/habitsync/internal/error_values"
	"github.com/limbo/habitsync/pkg/datekey"
	"github.com/limbo/habitsync/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleSnapshot() entity.Snapshot {
	return entity.Snapshot{
		Habits: []entity.Habit{
			{ID: "1", Name: "No Sugar", Goal: 90, Completions: map[datekey.Key]bool{"2025-10-01": true}},
			{ID: "a7c2", Name: "Read", Goal: 100, Completions: map[datekey.Key]bool{}},
		},
		Metrics: map[datekey.Key]entity.DailyMetrics{
			"2025-10-01": {Mood: intPtr(4), SleepHours: floatPtr(7.5)},
			"2025-10-02": {SleepHours: floatPtr(0)},
		},
		LastUpdated: time.Date(2025, time.October, 2, 8, 30, 0, 0, time.UTC),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	t.Parallel()
	snap := sampleSnapshot()
	b, err := entity.EncodeDocument(snap)
	require.NoError(t, err)
	decoded, err := entity.DecodeDocument(b)
	require.NoError(t, err)
	assert.True(t, entity.EqualContent(snap, decoded))
	assert.True(t, snap.LastUpdated.Equal(decoded.LastUpdated))
}

func TestDecodeDocument(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		Desc   string
		Input  string
		Error  error
		Verify func(t *testing.T, s entity.Snapshot)
	}{
		{
			Desc:  "numeric ids from older clients",
			Input: `{"habits":[{"id":1733412345678,"name":"Gym","goal":75,"data":{"2025-10-01":true}}],"metrics":{}}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				require.Len(t, s.Habits, 1)
				assert.Equal(t, entity.HabitID("1733412345678"), s.Habits[0].ID)
				assert.True(t, s.Habits[0].Done("2025-10-01"))
			},
		},
		{
			Desc:  "missing habits falls back to seed",
			Input: `{"metrics":{"2025-10-01":{"mood":3}}}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.Len(t, s.Habits, 5)
				require.NotNil(t, s.Metrics["2025-10-01"].Mood)
				assert.Equal(t, 3, *s.Metrics["2025-10-01"].Mood)
			},
		},
		{
			Desc:  "empty habit list is kept empty",
			Input: `{"habits":[],"metrics":{}}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.NotNil(t, s.Habits)
				assert.Empty(t, s.Habits)
			},
		},
		{
			Desc:  "missing metrics become empty mapping",
			Input: `{"habits":[]}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.NotNil(t, s.Metrics)
				assert.Empty(t, s.Metrics)
			},
		},
		{
			Desc:  "false completion marks are dropped",
			Input: `{"habits":[{"id":"x","name":"Walk","goal":100,"data":{"2025-10-01":false,"2025-10-02":true}}]}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.Len(t, s.Habits[0].Completions, 1)
			},
		},
		{
			Desc:  "javascript iso timestamp",
			Input: `{"habits":[],"metrics":{},"lastUpdated":"2025-10-02T08:30:00.000Z"}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.True(t, s.LastUpdated.Equal(time.Date(2025, time.October, 2, 8, 30, 0, 0, time.UTC)))
			},
		},
		{
			Desc: "repeated ids get fresh ones",
			Input: `{"habits":[{"id":1733412345678,"name":"Gym","goal":75,"data":{"2025-10-01":true}},` +
				`{"id":1733412345678,"name":"Read","goal":100},{"id":"","name":"Walk","goal":100}]}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				require.Len(t, s.Habits, 3)
				assert.Equal(t, entity.HabitID("1733412345678"), s.Habits[0].ID)
				assert.True(t, s.Habits[0].Done("2025-10-01"))
				assert.Equal(t, "Read", s.Habits[1].Name)
				assert.NotEqual(t, s.Habits[0].ID, s.Habits[1].ID)
				assert.NotEmpty(t, s.Habits[2].ID)
				assert.NotEqual(t, s.Habits[1].ID, s.Habits[2].ID)
				assert.Equal(t, 1, s.HabitIndex(s.Habits[1].ID))
			},
		},
		{
			Desc:  "malformed day keys are dropped",
			Input: `{"habits":[{"id":"x","name":"Walk","goal":100,"data":{"2025-10-01":true,"10/02/2025":true}}],` +
				`"metrics":{"2025-13-01":{"mood":3},"2025-10-01":{"mood":2}}}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				assert.Len(t, s.Habits[0].Completions, 1)
				assert.True(t, s.Habits[0].Done("2025-10-01"))
				assert.Len(t, s.Metrics, 1)
				assert.Contains(t, s.Metrics, datekey.Key("2025-10-01"))
			},
		},
		{
			Desc:  "out of range metrics are cleared",
			Input: `{"habits":[],"metrics":{"2025-10-01":{"mood":9,"sleep":7},"2025-10-02":{"mood":0},"2025-10-03":{"sleep":-2}}}`,
			Verify: func(t *testing.T, s entity.Snapshot) {
				require.Len(t, s.Metrics, 1)
				day := s.Metrics["2025-10-01"]
				assert.Nil(t, day.Mood)
				require.NotNil(t, day.SleepHours)
				assert.Equal(t, 7.0, *day.SleepHours)
			},
		},
		{
			Desc:  "malformed json",
			Input: `{"habits":`,
			Error: errorvalues.ErrInvalidDocument,
		},
		{
			Desc:  "bad timestamp",
			Input: `{"habits":[],"lastUpdated":"yesterday"}`,
			Error: errorvalues.ErrInvalidDocument,
		},
		{
			Desc:  "object id",
			Input: `{"habits":[{"id":{"v":1},"name":"Walk"}]}`,
			Error: errorvalues.ErrInvalidDocument,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			s, err := entity.DecodeDocument([]byte(tc.Input))
			if tc.Error != nil {
				assert.ErrorIs(t, err, tc.Error)
				return
			}
			require.NoError(t, err)
			tc.Verify(t, s)
		})
	}
}

func TestEncodeExportOmitsTimestamp(t *testing.T) {
	t.Parallel()
	b, err := entity.EncodeExport(sampleSnapshot())
	require.NoError(t, err)
	fields := map[string]any{}
	require.NoError(t, sonic.Unmarshal(b, &fields))
	assert.Contains(t, fields, "habits")
	assert.Contains(t, fields, "metrics")
	assert.NotContains(t, fields, "lastUpdated")
}

func TestEncodeDocumentShape(t *testing.T) {
	t.Parallel()
	b, err := entity.EncodeDocument(entity.Snapshot{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"habits":[],"metrics":{}}`, string(b))

	b, err = entity.EncodeDocument(sampleSnapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"habits":[
			{"id":"1","name":"No Sugar","goal":90,"data":{"2025-10-01":true}},
			{"id":"a7c2","name":"Read","goal":100,"data":{}}
		],
		"metrics":{
			"2025-10-01":{"mood":4,"sleep":7.5},
			"2025-10-02":{"sleep":0}
		},
		"lastUpdated":"2025-10-02T08:30:00Z"
	}`, string(b))
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	t.Parallel()
	snap := sampleSnapshot()
	c := snap.Clone()
	c.Habits[0].Completions["2025-10-09"] = true
	*c.Metrics["2025-10-01"].Mood = 1
	assert.False(t, snap.Habits[0].Done("2025-10-09"))
	assert.Equal(t, 4, *snap.Metrics["2025-10-01"].Mood)
	assert.False(t, entity.EqualContent(snap, c))
}

func TestDefaultSnapshot(t *testing.T) {
	t.Parallel()
	a := entity.DefaultSnapshot()
	b := entity.DefaultSnapshot()
	require.Len(t, a.Habits, 5)
	assert.Equal(t, "Wake up at 5:00 AM", a.Habits[0].Name)
	assert.Equal(t, 75, a.Habits[4].Goal)
	a.Habits[0].Completions["2025-10-01"] = true
	assert.False(t, b.Habits[0].Done("2025-10-01"))
	assert.Equal(t, 2, a.HabitIndex("3"))
	assert.Equal(t, -1, a.HabitIndex("missing"))
}
