package rag

import (
	"fmt"
	"strings"

	"github.com/vidasana/coach/internal/convo"
	"github.com/vidasana/coach/internal/index"
)

// Markers used when retrieval or memory yields nothing; the prompt rules
// instruct the model to say so rather than fabricate.
const (
	noContextMessage = "No se encontró información relevante en la base de conocimiento."
	noHistoryMessage = "No hay historial previo de conversación."
)

// formatContext renders retrieved chunks as citable blocks, each headed
// by its source file name so the model can cite [nombre_archivo].
func formatContext(results []index.Result) string {
	if len(results) == 0 {
		return noContextMessage
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("=== %s ===\n%s", sourceName(r.Entry, i+1), r.Entry.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// sourceName resolves the citation label for an entry, falling back to a
// positional placeholder when the metadata carries no source.
func sourceName(e index.Entry, ordinal int) string {
	if name := e.Metadata["source"]; name != "" {
		return name
	}
	return fmt.Sprintf("fuente_%d.txt", ordinal)
}

// sourceNames returns the distinct citation labels of results in
// retrieval order.
func sourceNames(results []index.Result) []string {
	seen := make(map[string]bool, len(results))
	var names []string
	for i, r := range results {
		name := sourceName(r.Entry, i+1)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// formatHistory renders the conversation window as alternating
// Usuario/Asistente lines in chronological order.
func formatHistory(msgs []convo.Message) string {
	if len(msgs) == 0 {
		return noHistoryMessage
	}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case convo.RoleUser:
			lines = append(lines, "Usuario: "+m.Content)
		case convo.RoleAssistant:
			lines = append(lines, "Asistente: "+m.Content)
		}
	}
	return strings.Join(lines, "\n")
}
