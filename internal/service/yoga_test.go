// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servimel/servimel-go/internal/apperr"
	"github.com/servimel/servimel-go/internal/model"
	"github.com/servimel/servimel-go/internal/testutil"
)

func sampleSequence(name string) SequenceInput {
	return SequenceInput{
		Name:    name,
		Tone:    " Medio ",
		Minutes: 45,
		Items: []SequenceItemInput{
			{ItemID: 1, Title: "Saludo al sol", Minutes: ptr(10)},
			{ItemID: 2, Title: " Gato-vaca "},
		},
	}
}

func samplePlan(weekStart string) WeekPlanInput {
	days := make([]PlanDayInput, 7)
	for i := range days {
		days[i] = PlanDayInput{DateISO: model.AddDaysISO(weekStart, i)}
	}
	days[0].Intensity = ptr("SUAVE")
	days[0].SequenceID = ptr("1")
	days[0].Minutes = ptr(30)
	return WeekPlanInput{WeekStart: weekStart, Days: days}
}

func TestYogaService_SequenceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)

	id, err := env.yoga.CreateSequence(ctx, instructor, sampleSequence("Mañana"))
	require.NoError(t, err)

	list, err := env.yoga.ListSequences(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	seq := list[0]
	assert.Equal(t, id, seq.ID)
	assert.Equal(t, model.ToneMedio, seq.Tone)
	require.Len(t, seq.Items, 2)
	assert.Equal(t, "Gato-vaca", seq.Items[1].Title)
	assert.Nil(t, seq.Items[1].Minutes)

	in := sampleSequence("Tarde")
	in.Tone = ""
	in.Minutes = 0
	require.NoError(t, env.yoga.UpdateSequence(ctx, instructor, id, in))
	list, err = env.yoga.ListSequences(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Tarde", list[0].Name)
	assert.Equal(t, model.ToneSuave, list[0].Tone)
	assert.Equal(t, 30, list[0].Minutes)

	require.NoError(t, env.yoga.DeleteSequence(ctx, instructor, id))
	list, err = env.yoga.ListSequences(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Updating a deleted sequence brings it back.
	require.NoError(t, env.yoga.UpdateSequence(ctx, instructor, id, sampleSequence("Vuelta")))
	list, err = env.yoga.ListSequences(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = env.yoga.UpdateSequence(ctx, instructor, 999, sampleSequence("X1"))
	requireCode(t, err, apperr.CodeNotFound, http.StatusNotFound)
	err = env.yoga.DeleteSequence(ctx, instructor, 999)
	requireCode(t, err, apperr.CodeNotFound, http.StatusNotFound)

	assert.Equal(t, int64(1), env.auditCount(t, ModuleYoga, "sequence_create"))
	assert.Equal(t, int64(2), env.auditCount(t, ModuleYoga, "sequence_update"))
	assert.Equal(t, int64(1), env.auditCount(t, ModuleYoga, "sequence_delete"))
}

func TestYogaService_SequenceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)

	tests := []struct {
		name  string
		edit  func(*SequenceInput)
		field string
	}{
		{"short name", func(in *SequenceInput) { in.Name = "A" }, "name"},
		{"bad tone", func(in *SequenceInput) { in.Tone = "fuerte" }, "tone"},
		{"too long", func(in *SequenceInput) { in.Minutes = 200 }, "minutes"},
		{"no items", func(in *SequenceInput) { in.Items = nil }, "items"},
		{"item without id", func(in *SequenceInput) { in.Items[0].ItemID = 0 }, "items[0].itemId"},
		{"item without title", func(in *SequenceInput) { in.Items[1].Title = " " }, "items[1].title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleSequence("Valida")
			tt.edit(&in)
			_, err := env.yoga.CreateSequence(ctx, instructor, in)
			ae := requireCode(t, err, apperr.CodeValidation, http.StatusBadRequest)
			issues := ae.Details.([]apperr.FieldIssue)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.field, issues[0].Field)
		})
	}
	assert.Equal(t, int64(0), testutil.CountRows(t, env.db, "yoga_sequences", ""))
}

func TestYogaService_ListSequencesLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)

	for _, name := range []string{"Uno", "Dos", "Tres"} {
		_, err := env.yoga.CreateSequence(ctx, instructor, sampleSequence(name))
		require.NoError(t, err)
	}

	list, err := env.yoga.ListSequences(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Tres", list[0].Name)

	list, err = env.yoga.ListSequences(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestYogaService_WeekPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")

	plan, err := env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	assert.Nil(t, plan)

	require.NoError(t, env.yoga.UpsertWeekPlan(ctx, instructor, rid, samplePlan(testWeek)))

	plan, err = env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, testWeek, plan.WeekStart)
	require.Len(t, plan.Plan.Days, 7)
	assert.Equal(t, model.ToneSuave, *plan.Plan.Days[0].Intensity)
	assert.Equal(t, "1", *plan.Plan.Days[0].SequenceID)
	assert.Nil(t, plan.Plan.Days[1].SequenceID)

	next := samplePlan(testWeek)
	next.Days[2].Notes = ptr("silla")
	require.NoError(t, env.yoga.UpsertWeekPlan(ctx, instructor, rid, next))
	assert.Equal(t, int64(1), testutil.CountRows(t, env.db, "yoga_week_plans", ""))

	plan, err = env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	assert.Equal(t, "silla", *plan.Plan.Days[2].Notes)
	assert.Equal(t, int64(2), env.auditCount(t, ModuleYoga, "weekplan_upsert"))
}

func TestYogaService_WeekPlanValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")

	_, err := env.yoga.GetWeekPlan(ctx, rid, "2026-03-03")
	ae := requireCode(t, err, apperr.CodeValidation, http.StatusBadRequest)
	assert.Equal(t, "weekStart must be a Monday", ae.Message)

	tests := []struct {
		name string
		in   WeekPlanInput
	}{
		{"tuesday", samplePlan("2026-03-03")},
		{"six days", func() WeekPlanInput { p := samplePlan(testWeek); p.Days = p.Days[:6]; return p }()},
		{"bad date", func() WeekPlanInput { p := samplePlan(testWeek); p.Days[3].DateISO = "mañana"; return p }()},
		{"bad intensity", func() WeekPlanInput { p := samplePlan(testWeek); p.Days[1].Intensity = ptr("x"); return p }()},
		{"too many minutes", func() WeekPlanInput { p := samplePlan(testWeek); p.Days[1].Minutes = ptr(300); return p }()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.yoga.UpsertWeekPlan(ctx, instructor, rid, tt.in)
			requireCode(t, err, apperr.CodeValidation, http.StatusBadRequest)
		})
	}

	err = env.yoga.UpsertWeekPlan(ctx, instructor, 999, samplePlan(testWeek))
	requireCode(t, err, apperr.CodeNotFound, http.StatusNotFound)
	assert.Equal(t, int64(0), testutil.CountRows(t, env.db, "yoga_week_plans", ""))
}

func TestYogaPlan_MalformedStoredJSON(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")

	require.NoError(t, env.yoga.UpsertWeekPlan(ctx, instructor, rid, samplePlan(testWeek)))
	_, err := env.db.Exec(ctx, "UPDATE yoga_week_plans SET plan_json = ?", "not json")
	require.NoError(t, err)

	plan, err := env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotNil(t, plan.Plan.Days)
	assert.Empty(t, plan.Plan.Days)
}

func TestYogaService_WeekPlanRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	instructor := env.actor(t, "yoga@example.com", model.RoleYoga)
	rid := testutil.InsertResident(t, env.db, "Ana", "Pérez")

	in := samplePlan(testWeek)
	in.Days[0].Intensity = ptr(model.ToneSuave)
	in.Days[0].Time = ptr("10:30")
	in.Days[0].Notes = ptr("con silla")
	in.Days[2] = PlanDayInput{
		DateISO: model.AddDaysISO(testWeek, 2), Time: ptr("17:00"), Minutes: ptr(45),
		Intensity: ptr(model.ToneIntenso), SequenceID: ptr("7"), Notes: ptr("grupo B"),
	}
	in.Days[5].Minutes = ptr(0)

	want := model.YogaPlan{Days: make([]model.YogaPlanDay, 7)}
	for i := range want.Days {
		want.Days[i] = model.YogaPlanDay{DateISO: model.AddDaysISO(testWeek, i)}
	}
	want.Days[0] = model.YogaPlanDay{
		DateISO: testWeek, Time: ptr("10:30"), Minutes: ptr(30),
		Intensity: ptr(model.ToneSuave), SequenceID: ptr("1"), Notes: ptr("con silla"),
	}
	want.Days[2] = model.YogaPlanDay{
		DateISO: model.AddDaysISO(testWeek, 2), Time: ptr("17:00"), Minutes: ptr(45),
		Intensity: ptr(model.ToneIntenso), SequenceID: ptr("7"), Notes: ptr("grupo B"),
	}
	want.Days[5].Minutes = ptr(0)

	require.NoError(t, env.yoga.UpsertWeekPlan(ctx, instructor, rid, in))

	fetched, err := env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, want, fetched.Plan)
	assert.Equal(t, rid, fetched.ResidentID)
	assert.Equal(t, testWeek, fetched.WeekStart)
	assert.Equal(t, instructor.ID(), *fetched.UpdatedBy)

	// Days left blank keep every optional field unset.
	for _, i := range []int{1, 3, 4, 6} {
		assert.Equal(t, model.YogaPlanDay{DateISO: model.AddDaysISO(testWeek, i)}, fetched.Plan.Days[i])
	}

	// Mixed-case intensity is stored lower-cased.
	in.Days[2].Intensity = ptr(" Intenso ")
	require.NoError(t, env.yoga.UpsertWeekPlan(ctx, instructor, rid, in))
	fetched, err = env.yoga.GetWeekPlan(ctx, rid, testWeek)
	require.NoError(t, err)
	assert.Equal(t, want, fetched.Plan)
}
