// Package guardrail implements the medical safety policy applied to every
// generated answer: urgent-symptom detection, referral decisions, and the
// Spanish prompt templates that constrain the model to preventive,
// non-diagnostic guidance grounded in the retrieved knowledge base.
package guardrail

import "strings"

// MedicalDisclaimer is appended to health-related answers and embedded in
// both prompt templates. The text is part of the service contract and must
// not be reworded casually.
const MedicalDisclaimer = `⚠️ IMPORTANTE - DISCLAIMER MÉDICO:
Este sistema NO realiza diagnósticos médicos ni prescribe tratamientos.
Las recomendaciones son de carácter preventivo y educativo únicamente.
Siempre consulta con un profesional de salud calificado para:
- Diagnósticos médicos
- Tratamientos específicos
- Cambios significativos en tu estilo de vida
- Síntomas persistentes o graves

En caso de emergencia médica, contacta inmediatamente a servicios de emergencia.`

// UrgentResponse is returned verbatim, without invoking the model, when a
// question contains urgent-symptom keywords.
const UrgentResponse = MedicalDisclaimer + `

🚨 ATENCIÓN: Has mencionado síntomas que requieren atención médica inmediata.

Por favor, contacta de inmediato con:
- Servicios de emergencia (911 o número local)
- Tu médico de cabecera
- Una sala de emergencias

Este sistema no puede evaluar emergencias médicas. La atención profesional inmediata es esencial.`

// CriticalRiskNotice is appended to coaching plans when the risk score
// meets the critical threshold: the plan is still delivered, but medical
// consultation comes first.
const CriticalRiskNotice = `🚨 Tu puntaje de riesgo es CRÍTICO. Antes de iniciar este plan, agenda una consulta con un profesional de salud lo antes posible.`

// urgentKeywords trigger an immediate referral. Matching is
// case-insensitive substring search over the user's question.
var urgentKeywords = []string{
	"dolor de pecho", "dolor en el pecho", "ataque al corazón", "infarto",
	"dificultad para respirar", "no puedo respirar", "falta de aire",
	"sangrado", "hemorragia", "sangre", "desmayo", "pérdida de conocimiento",
	"convulsión", "convulsiones", "emergencia", "urgencia médica",
	"dolor intenso", "dolor agudo", "síntomas graves",
}

// ProhibitedTopics lists request categories the assistant must decline and
// redirect to a health professional. They are enforced through the system
// prompt rather than by pre-filtering.
var ProhibitedTopics = []string{
	"diagnóstico de enfermedades específicas",
	"prescripción de medicamentos",
	"tratamientos médicos específicos",
	"interpretación de resultados de laboratorio",
}

// ContainsUrgentKeywords reports whether text mentions any urgent-symptom
// keyword.
func ContainsUrgentKeywords(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// RequiresReferral reports whether the user should be directed to a health
// professional: either the risk score meets the high-risk threshold or the
// text mentions urgent symptoms.
func RequiresReferral(riskScore, highThreshold float64, text string) bool {
	if riskScore >= highThreshold {
		return true
	}
	return ContainsUrgentKeywords(text)
}
