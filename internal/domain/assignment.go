package domain

import "time"

// AssignmentStatus is the `estado` of an assigned exercise.
type AssignmentStatus string

const (
	StatusPending    AssignmentStatus = "pendiente"
	StatusInProgress AssignmentStatus = "en_progreso"
	StatusCompleted  AssignmentStatus = "completado"
)

// Assignment is an entry of a patient's exercise queue, keyed by exercise id.
// Context is a snapshot of the detail `contexto` taken at assignment time.
type Assignment struct {
	PatientID      string           `bson:"id_paciente" json:"-"`
	ExerciseID     string           `bson:"id_ejercicio" json:"id_ejercicio"`
	Context        string           `bson:"contexto" json:"contexto"`
	Therapy        Therapy          `bson:"tipo" json:"tipo"`
	Status         AssignmentStatus `bson:"estado" json:"estado"`
	Priority       int              `bson:"prioridad" json:"prioridad"`
	LastPerformed  *time.Time       `bson:"ultima_fecha_realizado" json:"ultima_fecha_realizado"`
	TimesPerformed int              `bson:"veces_realizado" json:"veces_realizado"`
	AssignedAt     time.Time        `bson:"fecha_asignacion" json:"fecha_asignacion"`
	Personalized   bool             `bson:"personalizado" json:"personalizado"`
}

// MaxPriority returns the highest prioridad in the queue, 0 for an empty queue.
func MaxPriority(queue []Assignment) int {
	highest := 0
	for _, a := range queue {
		if a.Priority > highest {
			highest = a.Priority
		}
	}
	return highest
}
