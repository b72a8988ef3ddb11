package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func TestCreateTechnicianOnePerUser(t *testing.T) {
	h := newHarness(t)
	user := h.operator(t, domain.OperatorRoleTechnician)

	technician, err := h.technicians.Create(h.ctx, TechnicianInput{UserID: user.ID, Name: "Ravi", Mobile: "+91 98765 43210"})
	require.NoError(t, err)
	assert.Equal(t, "TECH-00001", technician.Code)
	assert.Equal(t, "9876543210", technician.Mobile)
	assert.Equal(t, domain.TechnicianAvailable, technician.State)

	_, err = h.technicians.Create(h.ctx, TechnicianInput{UserID: user.ID, Name: "Ravi again"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = h.technicians.Create(h.ctx, TechnicianInput{UserID: "ghost", Name: "Nobody"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestServiceAreas(t *testing.T) {
	h := newHarness(t)
	user := h.operator(t, domain.OperatorRoleTechnician)
	technician, err := h.technicians.Create(h.ctx, TechnicianInput{UserID: user.ID, Name: "Ravi"})
	require.NoError(t, err)

	area, err := h.technicians.AddServiceArea(h.ctx, technician.ID, ServiceAreaInput{PostalCode: "560001", City: "Bengaluru"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultServiceAreaPriority, area.Priority)
	assert.True(t, area.Active)

	_, err = h.technicians.AddServiceArea(h.ctx, technician.ID, ServiceAreaInput{PostalCode: "560001"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	area, err = h.technicians.UpdateServiceArea(h.ctx, area.ID, ServiceAreaInput{Active: ptrBool(false)})
	require.NoError(t, err)
	assert.False(t, area.Active)

	candidates, err := h.technicians.TechniciansForPostalCode(h.ctx, "560001")
	require.NoError(t, err)
	assert.Empty(t, candidates)

	areas, err := h.technicians.ListServiceAreas(h.ctx, technician.ID)
	require.NoError(t, err)
	assert.Len(t, areas, 1)
}

func TestSetAvailabilityAndWorkload(t *testing.T) {
	h := newHarness(t)
	technician := h.technician(t, "Ravi", "560001", 10)

	_, err := h.technicians.SetAvailability(h.ctx, nil, technician.ID, "sleeping")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	busy, err := h.technicians.SetAvailability(h.ctx, nil, technician.ID, domain.TechnicianBusy)
	require.NoError(t, err)
	assert.Equal(t, domain.TechnicianBusy, busy.State)

	feed, err := h.activity.List(h.ctx, domain.RecordTypeTechnician, technician.ID)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Contains(t, feed[0].Body, "busy")

	h.loadTechnician(t, technician.ID, 2)
	workload, err := h.technicians.Workload(h.ctx, technician.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, workload.TotalCalls)
	assert.Equal(t, 2, workload.ActiveCalls)
	assert.Equal(t, 0, workload.CompletedCalls)
}
