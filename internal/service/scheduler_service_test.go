package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("07:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 7 * * *", spec)

	spec, err = buildDailySpec(" 21:00 ")
	require.NoError(t, err)
	assert.Equal(t, "0 0 21 * * *", spec)

	for _, bad := range []string{"7", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	spec, err := buildIntervalSpec(15 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "@every 900s", spec)

	spec, err = buildIntervalSpec(200 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = buildIntervalSpec(0)
	assert.Error(t, err)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSchedulerService(time.UTC, zap.New(core))

	_, err := s.ScheduleDaily("morning-brief", "07:00", func() {})
	require.NoError(t, err)
	_, err = s.ScheduleInterval("process-inbox", time.Minute, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily("night-brief", "25:00", func() {})
	assert.Error(t, err)

	assert.Equal(t, 2, s.Entries())
	assert.Equal(t, 2, logs.FilterMessage("job scheduled").Len())

	s.Start()
	s.Stop()
}

func TestSchedulerRunsIntervalJob(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)
	ran := make(chan struct{}, 1)
	_, err := s.ScheduleInterval("tick", time.Second, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("interval job did not run")
	}
}
