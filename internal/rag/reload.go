package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vidasana/coach/internal/document"
	"github.com/vidasana/coach/internal/index"
)

// sampleKBContent seeds the index when the knowledge root yields no
// documents, so an empty deployment still answers with a well-formed
// context instead of erroring.
const sampleKBContent = `
INFORMACIÓN SOBRE SALUD PREVENTIVA Y BIENESTAR

1. FACTORES DE RIESGO CARDIOMETABÓLICO:
- Edad avanzada aumenta el riesgo
- Índice de masa corporal (BMI) elevado (>25) es un factor de riesgo
- Presión arterial alta (>130/80) aumenta el riesgo cardiovascular
- Niveles elevados de glucosa o hemoglobina A1c indican riesgo de diabetes
- Circunferencia de cintura elevada está asociada con riesgo metabólico

2. RECOMENDACIONES PREVENTIVAS:
- Mantener un peso saludable (BMI entre 18.5 y 24.9)
- Realizar actividad física regular (al menos 150 minutos semanales)
- Seguir una dieta balanceada rica en frutas y verduras
- Limitar el consumo de azúcares y grasas saturadas
- Dormir entre 7-9 horas por noche
- Evitar el tabaquismo
- Controlar el estrés

3. IMPORTANTE:
- Estas recomendaciones son de carácter preventivo y educativo
- Siempre consulta con un profesional de salud para diagnósticos
- Si experimentas síntomas graves, busca atención médica inmediata
`

func sampleDocument() document.Document {
	return document.Document{
		Name:    "salud_preventiva.txt",
		Content: sampleKBContent,
		Metadata: map[string]string{
			"source": "salud_preventiva.txt",
			"format": "txt",
			"origin": "generated",
		},
	}
}

// Reload rebuilds the vector index from the knowledge root and
// atomically installs it. The previous index keeps serving queries until
// the replacement is complete; on any failure it stays active.
//
// Returns the number of chunks indexed.
func (s *Service) Reload(ctx context.Context) (int, error) {
	docs, err := s.documents.List(ctx, s.knowledgeRoot)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		s.logger.Warn("knowledge root yielded no documents, indexing built-in sample",
			"root", s.knowledgeRoot)
		docs = []document.Document{sampleDocument()}
	}

	var entries []index.Entry
	for _, doc := range docs {
		for seq, chunk := range s.splitter.Split(doc.Content) {
			metadata := make(map[string]string, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata["ordinal"] = strconv.Itoa(seq)

			entries = append(entries, index.Entry{
				ID:       index.EntryID(doc.Name, seq, chunk),
				Content:  chunk,
				Metadata: metadata,
			})
		}
	}

	// Rebuilding embeds every chunk; a hung embedding provider must
	// not pin the reload forever.
	rebuildCtx, cancel := context.WithTimeout(ctx, rebuildTimeout)
	defer cancel()
	if err := s.index.Rebuild(rebuildCtx, entries); err != nil {
		return 0, fmt.Errorf("rebuilding index: %w", err)
	}

	s.logger.Info("knowledge base reindexed",
		"documents", len(docs),
		"chunks", len(entries),
	)
	return len(entries), nil
}
