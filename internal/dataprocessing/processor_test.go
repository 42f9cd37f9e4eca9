package dataprocessing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductcli/internal/analytics"
	"conductcli/internal/config"
	"conductcli/pkg/contracts/domain"
)

func testRecord() domain.CaseRecord {
	return domain.CaseRecord{
		FileID:       "F1",
		SID:          "S1",
		Role:         domain.RoleRespondent,
		IncidentDate: time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC),
		Slots: []domain.ChargeFinding{
			{Charge: "Alcohol - Underage", Finding: " Responsible "},
		},
		Attributes: map[string]string{
			config.ColumnLocation: "Res Hall A",
			"College":             " Engineering ",
		},
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	lookups := &config.LookupTables{
		Violations: map[string]string{"Alcohol - Underage": "Alcohol"},
		Locations:  map[string]string{"Res Hall A": "Residence Hall A"},
		Sanctions:  map[string]string{},
	}

	n := NewNormalizer(lookups, nil, nil)
	out := n.Normalize(context.Background(), []domain.CaseRecord{testRecord()})
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, "Alcohol", got.Slots[0].Charge)
	assert.Equal(t, "Responsible", got.Slots[0].Finding)
	assert.Equal(t, "Residence Hall A", got.Attributes[config.ColumnLocation])
	assert.Equal(t, "Engineering", got.Attributes["College"])
	assert.Equal(t, "AY2324", got.AcademicYear)
}

func TestNormalizer_DoesNotMutateInput(t *testing.T) {
	in := []domain.CaseRecord{testRecord()}

	n := NewNormalizer(nil, nil, nil)
	_ = n.Normalize(context.Background(), in)

	assert.Equal(t, "Alcohol - Underage", in[0].Slots[0].Charge)
	assert.Equal(t, " Engineering ", in[0].Attributes["College"])
	assert.Empty(t, in[0].AcademicYear)
}

func TestNormalizer_KeepsExplicitAcademicYear(t *testing.T) {
	record := testRecord()
	record.AcademicYear = "AY2223"

	n := NewNormalizer(nil, nil, nil)
	out := n.Normalize(context.Background(), []domain.CaseRecord{record})
	assert.Equal(t, "AY2223", out[0].AcademicYear)
}

func TestNormalizer_AnonymizesIdentifiers(t *testing.T) {
	anonymizer, err := analytics.NewAnonymizer([]byte("test-secret-key-material"), analytics.DefaultTokenLength)
	require.NoError(t, err)

	n := NewNormalizer(nil, anonymizer, nil)
	out := n.Normalize(context.Background(), []domain.CaseRecord{testRecord()})

	got := out[0]
	assert.NotEqual(t, "S1", got.SID)
	assert.NotEqual(t, "F1", got.FileID)
	assert.Len(t, got.SID, analytics.DefaultTokenLength)

	// Same identifiers map to the same tokens across a second pass.
	again := n.Normalize(context.Background(), []domain.CaseRecord{testRecord()})
	assert.Equal(t, got.SID, again[0].SID)
	assert.Equal(t, got.FileID, again[0].FileID)
}
