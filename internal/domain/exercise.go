// internal/domain/exercise.go
package domain

// Therapy identifies the exercise family and, with it, the detail collection.
type Therapy string

const (
	TherapyVNEST Therapy = "VNEST"
	TherapySR    Therapy = "SR"
)

// Valid reports whether t is one of the known therapy families.
func (t Therapy) Valid() bool {
	return t == TherapyVNEST || t == TherapySR
}

// Visibility is the `tipo` of an exercise. Stored values carry no accent.
type Visibility string

const (
	VisibilityPublic  Visibility = "publico"
	VisibilityPrivate Visibility = "privado"
)

// Level is the difficulty of a VNEST exercise.
type Level string

const (
	LevelEasy   Level = "fácil"
	LevelMedium Level = "medio"
	LevelHard   Level = "difícil"
)

func (l Level) Valid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// Exercise is the summary document stored in `ejercicios`.
type Exercise struct {
	ID            string     `bson:"_id" json:"id"`
	Therapy       Therapy    `bson:"terapia,omitempty" json:"terapia,omitempty"`
	Visibility    Visibility `bson:"tipo,omitempty" json:"tipo,omitempty"`
	CreatedBy     string     `bson:"creado_por,omitempty" json:"creado_por,omitempty"` // Therapist id, required for private exercises
	PatientID     *string    `bson:"id_paciente,omitempty" json:"id_paciente,omitempty"`
	Personalized  bool       `bson:"personalizado" json:"personalizado"`
	PatientEmail  string     `bson:"pacienteEmail,omitempty" json:"pacienteEmail,omitempty"`
	Question      string     `bson:"pregunta,omitempty" json:"pregunta,omitempty"`
	CorrectAnswer string     `bson:"rta_correcta,omitempty" json:"rta_correcta,omitempty"`
	Reviewed      bool       `bson:"revisado" json:"revisado"`
}

// IsPublic reports whether every therapist may see the exercise.
func (e *Exercise) IsPublic() bool {
	return e.Visibility == VisibilityPublic
}

// IsPrivate reports whether visibility depends on ownership or patient linkage.
func (e *Exercise) IsPrivate() bool {
	return e.Visibility == VisibilityPrivate
}

// PatientIDValue returns the linked patient id or "" when the exercise is not patient-specific.
func (e *Exercise) PatientIDValue() string {
	if e.PatientID == nil {
		return ""
	}
	return *e.PatientID
}

// ExpansionOptions is one of the donde / por_que / cuando groups of a pair.
type ExpansionOptions struct {
	Options       []string `bson:"opciones" json:"opciones"`
	CorrectOption string   `bson:"opcion_correcta" json:"opcion_correcta"`
}

type Expansions struct {
	Where ExpansionOptions `bson:"donde" json:"donde"`
	Why   ExpansionOptions `bson:"por_que" json:"por_que"`
	When  ExpansionOptions `bson:"cuando" json:"cuando"`
}

// Pair is a subject/object association for the exercise verb.
type Pair struct {
	Subject    string     `bson:"sujeto" json:"sujeto"`
	Object     string     `bson:"objeto" json:"objeto"`
	Expansions Expansions `bson:"expansiones" json:"expansiones"`
}

type Sentence struct {
	Text    string `bson:"oracion" json:"oracion"`
	Correct bool   `bson:"correcta" json:"correcta"`
}

// VNESTDetail is stored in `ejercicios_VNEST` under the summary id.
type VNESTDetail struct {
	ID        string     `bson:"_id" json:"id"`
	Verb      string     `bson:"verbo" json:"verbo"`
	Level     Level      `bson:"nivel" json:"nivel"`
	Context   string     `bson:"contexto" json:"contexto"`
	Pairs     []Pair     `bson:"pares" json:"pares"`
	Sentences []Sentence `bson:"oraciones" json:"oraciones"`
}

// SRDetail is stored in `ejercicios_SR` under the summary id.
type SRDetail struct {
	ID            string `bson:"_id" json:"id"`
	Context       string `bson:"contexto" json:"contexto"`
	Question      string `bson:"pregunta" json:"pregunta"`
	CorrectAnswer string `bson:"rta_correcta" json:"rta_correcta"`
}

// ExerciseDetail holds whichever detail document matches the exercise therapy.
// Exactly one of VNEST or SR is set.
type ExerciseDetail struct {
	Therapy Therapy      `json:"terapia"`
	VNEST   *VNESTDetail `json:"vnest,omitempty"`
	SR      *SRDetail    `json:"sr,omitempty"`
}

// Context returns the `contexto` of the detail as stored, "" when absent.
func (d *ExerciseDetail) Context() string {
	if d == nil {
		return ""
	}
	switch {
	case d.VNEST != nil:
		return d.VNEST.Context
	case d.SR != nil:
		return d.SR.Context
	}
	return ""
}
