package guardrail

import (
	"strings"
	"testing"
)

func TestContainsUrgentKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"chest pain", "tengo dolor de pecho desde ayer", true},
		{"uppercase match", "SIENTO UN DOLOR EN EL PECHO", true},
		{"embedded keyword", "creo que es una emergencia médica", true},
		{"breathing difficulty", "No puedo respirar bien al subir escaleras", true},
		{"benign question", "¿cuántas porciones de fruta debo comer al día?", false},
		{"empty text", "", false},
		{"similar but distinct", "me duele la cabeza un poco", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsUrgentKeywords(tt.text); got != tt.want {
				t.Errorf("ContainsUrgentKeywords(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestRequiresReferral(t *testing.T) {
	const threshold = 0.6

	tests := []struct {
		name string
		risk float64
		text string
		want bool
	}{
		{"high risk alone", 0.75, "quiero mejorar mi dieta", true},
		{"risk at threshold", 0.6, "", true},
		{"urgent text alone", 0.1, "tengo dolor de pecho", true},
		{"low risk benign text", 0.2, "¿cómo duermo mejor?", false},
		{"just below threshold", 0.59, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresReferral(tt.risk, threshold, tt.text); got != tt.want {
				t.Errorf("RequiresReferral(%v, %v, %q) = %v, want %v", tt.risk, threshold, tt.text, got, tt.want)
			}
		})
	}
}

func TestUrgentResponseIncludesDisclaimer(t *testing.T) {
	if !strings.HasPrefix(UrgentResponse, MedicalDisclaimer) {
		t.Error("UrgentResponse must start with the medical disclaimer")
	}
	if !strings.Contains(UrgentResponse, "🚨 ATENCIÓN") {
		t.Error("UrgentResponse must flag the urgency")
	}
}

func TestSystemPrompt(t *testing.T) {
	got := SystemPrompt(0.6, "=== guia.md ===\ncontenido", "Usuario: hola")

	for _, want := range []string{
		MedicalDisclaimer,
		"≥60%",
		"=== guia.md ===\ncontenido",
		"Historial de conversación:\nUsuario: hola",
		"ÚNICAMENTE en ESPAÑOL",
		"- prescripción de medicamentos",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("SystemPrompt missing %q", want)
		}
	}
}

func TestCoachPrompt(t *testing.T) {
	got := CoachPrompt(`{"age": 45}`, 0.654, []string{"bmi", "sleep_hours"}, "=== sueño.md ===\ndormir bien")

	for _, want := range []string{
		"PUNTUACIÓN DE RIESGO: 65.4%",
		"FACTORES DE RIESGO PRINCIPALES: bmi, sleep_hours",
		`{"age": 45}`,
		"=== sueño.md ===",
		"plan de 2 semanas",
		`"sources"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CoachPrompt missing %q", want)
		}
	}
}
