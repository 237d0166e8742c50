package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuditPeriod(t *testing.T) {
	tests := []struct {
		name    string
		period  AuditPeriod
		wantErr bool
		in      []time.Time
		out     []time.Time
	}{
		{
			name:   "zero selects everything",
			period: AuditPeriod{},
			in:     []time.Time{month(2024, time.December), month(2025, time.February)},
		},
		{
			name:   "year",
			period: AuditPeriod{Year: 2025},
			in:     []time.Time{month(2025, time.January), month(2025, time.December)},
			out:    []time.Time{month(2024, time.December)},
		},
		{
			name:   "month in every year",
			period: AuditPeriod{Month: 2},
			in:     []time.Time{month(2024, time.February), month(2025, time.February)},
			out:    []time.Time{month(2025, time.March)},
		},
		{
			name:   "year and month",
			period: AuditPeriod{Year: 2025, Month: 2},
			in:     []time.Time{month(2025, time.February)},
			out:    []time.Time{month(2024, time.February), month(2025, time.January)},
		},
		{name: "month 13", period: AuditPeriod{Month: 13}, wantErr: true},
		{name: "negative month", period: AuditPeriod{Month: -1}, wantErr: true},
		{name: "negative year", period: AuditPeriod{Year: -2025}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.period.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
				return
			}
			assert.NoError(t, err)
			for _, m := range tt.in {
				assert.True(t, tt.period.Contains(m), m.Format("2006-01"))
			}
			for _, m := range tt.out {
				assert.False(t, tt.period.Contains(m), m.Format("2006-01"))
			}
		})
	}
	assert.True(t, AuditPeriod{}.IsZero())
	assert.False(t, AuditPeriod{Month: 1}.IsZero())
}
