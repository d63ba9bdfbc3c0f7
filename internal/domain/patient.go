package domain

// Patient is stored in `pacientes`; the id is the patient email in practice.
type Patient struct {
	ID           string  `bson:"_id" json:"id"`
	Email        string  `bson:"email" json:"email"`
	Name         string  `bson:"nombre,omitempty" json:"nombre,omitempty"`
	TherapistID  *string `bson:"terapeuta,omitempty" json:"terapeuta,omitempty"`
	LastPriority int     `bson:"ultima_prioridad,omitempty" json:"-"` // Highest prioridad ever handed out
}

// IsManagedBy reports whether the patient belongs to the therapist's roster.
func (p *Patient) IsManagedBy(therapistID string) bool {
	return p.TherapistID != nil && *p.TherapistID == therapistID
}

// Therapist is stored in `terapeutas`; the id is the therapist email.
type Therapist struct {
	ID           string   `bson:"_id" json:"id"`
	Name         string   `bson:"nombre" json:"nombre"`
	Email        string   `bson:"email" json:"email"`
	PasswordHash string   `bson:"password_hash" json:"-"` // Never expose this via JSON
	PatientIDs   []string `bson:"pacientes,omitempty" json:"pacientes,omitempty"`
}
