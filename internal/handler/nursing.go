// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servimel/servimel-go/internal/middleware"
	"github.com/servimel/servimel-go/internal/service"
)

// NursingHandler serves /enfermeria.
type NursingHandler struct {
	nursing *service.NursingService
}

// NewNursingHandler creates a new NursingHandler.
func NewNursingHandler(nursing *service.NursingService) *NursingHandler {
	return &NursingHandler{nursing: nursing}
}

// Routes registers the nursing routes. Callers must be authenticated.
func (h *NursingHandler) Routes(r chi.Router) {
	r.Use(middleware.RequireRole(clinicalRoles...))
	r.Get("/hoy", h.Today)
	r.Post("/residentes/{residentId}/vitals", h.CreateVital)
	r.Post("/residentes/{residentId}/medications", h.CreateMedication)
	r.Post("/residentes/{residentId}/observations", h.CreateObservation)
	r.Put("/observations/{id}/resolve", h.ResolveObservation)
}

type vitalRequest struct {
	TakenAt     *string         `json:"taken_at" validate:"omitempty,timestamp"`
	TempC       number[float64] `json:"temp_c"`
	BPSystolic  number[int64]   `json:"bp_systolic"`
	BPDiastolic number[int64]   `json:"bp_diastolic"`
	HR          number[int64]   `json:"hr"`
	RR          number[int64]   `json:"rr"`
	SpO2        number[int64]   `json:"spo2"`
	Pain        number[int64]   `json:"pain"`
	Notes       *string         `json:"notes" validate:"omitempty,max=2000"`
}

type medicationRequest struct {
	DrugName       string  `json:"drug_name" validate:"required,max=190"`
	Dose           *string `json:"dose" validate:"omitempty,max=120"`
	Route          *string `json:"route" validate:"omitempty,max=120"`
	Status         string  `json:"status" validate:"max=40"`
	ScheduledAt    *string `json:"scheduled_at" validate:"omitempty,timestamp"`
	AdministeredAt *string `json:"administered_at" validate:"omitempty,timestamp"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
}

type observationRequest struct {
	Type       string  `json:"type" validate:"max=40"`
	ObservedAt *string `json:"observed_at" validate:"omitempty,timestamp"`
	Text       string  `json:"text" validate:"required,max=5000"`
}

// Today handles GET /enfermeria/hoy.
func (h *NursingHandler) Today(w http.ResponseWriter, r *http.Request) {
	counts, err := h.nursing.Today(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, counts)
}

// CreateVital handles POST /enfermeria/residentes/{residentId}/vitals.
func (h *NursingHandler) CreateVital(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req vitalRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	rec, err := h.nursing.CreateVital(r.Context(), middleware.GetActor(r), residentID, service.VitalInput{
		TakenAt:     optTime(req.TakenAt),
		TempC:       req.TempC.ptr(),
		BPSystolic:  req.BPSystolic.ptr(),
		BPDiastolic: req.BPDiastolic.ptr(),
		HR:          req.HR.ptr(),
		RR:          req.RR.ptr(),
		SpO2:        req.SpO2.ptr(),
		Pain:        req.Pain.ptr(),
		Notes:       req.Notes,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, rec)
}

// CreateMedication handles POST /enfermeria/residentes/{residentId}/medications.
func (h *NursingHandler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req medicationRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	rec, err := h.nursing.CreateMedication(r.Context(), middleware.GetActor(r), residentID, service.MedicationInput{
		DrugName:       req.DrugName,
		Dose:           req.Dose,
		Route:          req.Route,
		Status:         req.Status,
		ScheduledAt:    optTime(req.ScheduledAt),
		AdministeredAt: optTime(req.AdministeredAt),
		Notes:          req.Notes,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, rec)
}

// CreateObservation handles POST /enfermeria/residentes/{residentId}/observations.
func (h *NursingHandler) CreateObservation(w http.ResponseWriter, r *http.Request) {
	residentID, err := pathID(r, paramResidentID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	var req observationRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	rec, err := h.nursing.CreateObservation(r.Context(), middleware.GetActor(r), residentID, service.ObservationInput{
		Type:       req.Type,
		ObservedAt: optTime(req.ObservedAt),
		Text:       req.Text,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeCreated(w, rec)
}

// ResolveObservation handles PUT /enfermeria/observations/{id}/resolve.
func (h *NursingHandler) ResolveObservation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, paramID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	res, err := h.nursing.ResolveObservation(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeOK(w, res)
}
