package auth

import "fitpower-web/internal/domain/auth"

// User-facing messages. The dashboards are in Spanish.
const (
	MsgConnectionFailed   = "Error de conexión con el servidor. Inténtelo de nuevo más tarde."
	MsgAccountDisabled    = "Cuenta inhabilitada. Contacte con el administrador de su gimnasio."
	MsgInvalidSignin      = "La respuesta de inicio de sesión no es válida."
	MsgTooManyAttempts    = "Demasiados intentos de inicio de sesión. Inténtelo de nuevo más tarde."
	MsgSessionUnavailable = "No se pudo iniciar la sesión. Inténtelo de nuevo."
)

var roleDataMessages = map[auth.Role]string{
	auth.RoleTrainer:      "No se pudo obtener la información del entrenador",
	auth.RoleNutritionist: "No se pudo obtener la información del nutricionista",
	auth.RoleClient:       "No se pudo obtener la información del cliente",
}
