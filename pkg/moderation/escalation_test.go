package moderation

import (
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnCountFollowsModulo(t *testing.T) {
	var rec models.WarnRecord
	for n := 1; n <= 12; n++ {
		var esc *Escalation
		rec, esc = ApplyWarning(rec)

		assert.Equal(t, int64(n%3), rec.WarnCount, "warning %d", n)
		if n%3 == 0 {
			assert.NotNil(t, esc, "warning %d should escalate", n)
		} else {
			assert.Nil(t, esc, "warning %d should not escalate", n)
		}
	}
}

func TestInstanceCycle(t *testing.T) {
	var (
		rec       models.WarnRecord
		instances []int64
		timeouts  []time.Duration
		resets    []bool
	)
	for i := 0; i < 12; i++ {
		var esc *Escalation
		rec, esc = ApplyWarning(rec)
		if esc != nil {
			instances = append(instances, esc.Instance)
			timeouts = append(timeouts, esc.Timeout)
			resets = append(resets, esc.CycleReset)
		}
	}

	assert.Equal(t, []int64{1, 2, 3, 1}, instances)
	assert.Equal(t, []time.Duration{5 * time.Minute, time.Hour, 24 * time.Hour, 5 * time.Minute}, timeouts)
	assert.Equal(t, []bool{false, false, true, false}, resets)
}

func TestThirdInstanceResetsStoredCount(t *testing.T) {
	next, esc := ApplyWarning(models.WarnRecord{WarnCount: 2, InstanceCount: 2})
	require.NotNil(t, esc)
	assert.Equal(t, int64(3), esc.Instance)
	assert.True(t, next.IsZero())
}

func TestApplyWarningClampsBadInput(t *testing.T) {
	next, esc := ApplyWarning(models.WarnRecord{WarnCount: -4, InstanceCount: -1})
	assert.Nil(t, esc)
	assert.Equal(t, models.WarnRecord{WarnCount: 1}, next)

	next, esc = ApplyWarning(models.WarnRecord{WarnCount: 7, InstanceCount: 9})
	require.NotNil(t, esc)
	assert.Equal(t, int64(1), esc.Instance)
	assert.Equal(t, models.WarnRecord{WarnCount: 0, InstanceCount: 1}, next)
}

func TestDescribeTimeout(t *testing.T) {
	assert.Equal(t, "5 minutos", DescribeTimeout(TimeoutFor(1)))
	assert.Equal(t, "1 hora", DescribeTimeout(TimeoutFor(2)))
	assert.Equal(t, "1 día", DescribeTimeout(TimeoutFor(3)))
	assert.Equal(t, "2m0s", DescribeTimeout(2*time.Minute))
}
