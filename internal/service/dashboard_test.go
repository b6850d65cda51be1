// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/testutil"
)

func TestDashboardService_KPIs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.actor(t, "nurse@example.com", model.RoleEnfermeria)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")
	gone := testutil.InsertResident(t, env.db, "Old", "Baja")
	require.NoError(t, env.residents.Deactivate(ctx, actor, gone))

	_, err := env.nursing.CreateVital(ctx, actor, rid, VitalInput{HR: ptr(int64(70))})
	require.NoError(t, err)
	_, err = env.nursing.CreateMedication(ctx, actor, rid, MedicationInput{DrugName: "A"})
	require.NoError(t, err)
	_, err = env.nursing.CreateMedication(ctx, actor, rid, MedicationInput{DrugName: "B", Status: model.MedicationAdministered})
	require.NoError(t, err)
	alert, err := env.nursing.CreateObservation(ctx, actor, rid, ObservationInput{Type: model.ObservationAlerta, Text: "caída"})
	require.NoError(t, err)

	kpis, err := env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, &DashboardKPIs{
		ResidentesActivos: 1,
		RegistrosHoy:      4,
		AlertasPendientes: 2,
	}, kpis)

	// Writes outside the services are not seen until the entry expires.
	_, err = env.db.Exec(ctx, "UPDATE observations SET resolved_at = ? WHERE id = ?", time.Now().UTC(), alert.ID)
	require.NoError(t, err)
	cached, err := env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.AlertasPendientes)

	env.dashboard.InvalidateKPIs(ctx)
	fresh, err := env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.AlertasPendientes)
}

func TestDashboardService_WritesRefreshKPIs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.actor(t, "nurse@example.com", model.RoleEnfermeria)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")

	kpis, err := env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), kpis.AlertasPendientes)

	alert, err := env.nursing.CreateObservation(ctx, actor, rid, ObservationInput{Type: model.ObservationAlerta, Text: "caída"})
	require.NoError(t, err)
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kpis.AlertasPendientes)
	assert.Equal(t, int64(1), kpis.RegistrosHoy)

	_, err = env.nursing.ResolveObservation(ctx, actor, alert.ID)
	require.NoError(t, err)
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), kpis.AlertasPendientes)

	created, err := env.residents.Create(ctx, actor, ResidentInput{FirstName: ptr("Luis"), LastName: ptr("Gil")})
	require.NoError(t, err)
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), kpis.ResidentesActivos)

	require.NoError(t, env.residents.Deactivate(ctx, actor, created.ID))
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kpis.ResidentesActivos)

	_, err = env.nursing.CreateMedication(ctx, actor, rid, MedicationInput{
		DrugName: "Insulina", ScheduledAt: ptr(time.Now().UTC().Add(-3 * time.Hour)),
	})
	require.NoError(t, err)
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kpis.AlertasPendientes)

	n, err := env.nursing.MarkLateMedications(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	kpis, err = env.dashboard.KPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kpis.AlertasPendientes, "late medications still count as pending")
}

func TestDashboardService_Quick(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := env.actor(t, "nurse@example.com", model.RoleEnfermeria)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")
	gone := testutil.InsertResident(t, env.db, "Old", "Baja")

	_, err := env.nursing.CreateObservation(ctx, actor, rid, ObservationInput{Type: model.ObservationAlerta, Text: "caída"})
	require.NoError(t, err)
	_, err = env.nursing.CreateObservation(ctx, actor, rid, ObservationInput{Text: "come bien"})
	require.NoError(t, err)
	_, err = env.nursing.CreateMedication(ctx, actor, rid, MedicationInput{DrugName: "Insulina", Status: model.MedicationLate})
	require.NoError(t, err)
	_, err = env.nursing.CreateObservation(ctx, actor, gone, ObservationInput{Type: model.ObservationAlerta, Text: "x"})
	require.NoError(t, err)
	require.NoError(t, env.residents.Deactivate(ctx, actor, gone))

	quick, err := env.dashboard.Quick(ctx)
	require.NoError(t, err)
	require.Len(t, quick.UltimasAlertas, 2)

	latest := quick.UltimasAlertas[0]
	assert.Equal(t, model.SeverityWarning, latest.Severity)
	assert.Equal(t, "Ana Pérez — Medicación: Insulina · late", latest.Titulo)
	assert.Equal(t, rid, latest.ResidentID)

	assert.Equal(t, "Ana Pérez — Observación (ALERTA): caída", quick.UltimasAlertas[1].Titulo)
}

func TestQuickTitle(t *testing.T) {
	tests := []struct {
		name string
		row  quickRow
		want string
	}{
		{"full", quickRow{Title: "T", Summary: ptr("s"), FirstName: "A", LastName: "B"}, "A B — T: s"},
		{"no summary", quickRow{Title: "T", FirstName: "A"}, "A — T"},
		{"no title", quickRow{Summary: ptr("s"), LastName: "B"}, "B — Alerta: s"},
		{"no name", quickRow{Title: "T"}, "T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quickTitle(tt.row))
		})
	}
}
