package competition

// =============================================================================
// ACTOR - Who is performing an operation
// =============================================================================

// Role is the competition-facing role of an authenticated user. Token
// issuance and session handling live outside this module; operations only
// check the role they are handed.
type Role string

const (
	RoleDiretor       Role = "DIRETOR"
	RoleGerente       Role = "GERENTE"
	RoleVisualizador  Role = "VISUALIZADOR"
)

// Actor identifies the user behind an operation.
type Actor struct {
	ID   string
	Nome string
	Role Role
}

// Authenticated reports whether the actor carries an identity at all.
func (a Actor) Authenticated() bool { return a.ID != "" }

// CanApprove reports whether the actor may decide exclusion requests.
func (a Actor) CanApprove() bool { return a.Role == RoleDiretor }
