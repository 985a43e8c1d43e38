package authz

// Роли платформы. Идентификаторы совпадают с role_id в JWT.
const (
	RolePlayer  = 10
	RoleClub    = 20
	RoleAgent   = 25
	RoleAcademy = 30
	RoleTrainer = 35
	RoleSupport = 40
	RoleAdmin   = 50
)

// Operators: кому открыт служебный API доставки кодов.
var Operators = []int{RoleSupport, RoleAdmin}

func IsReadOnly(roleID int) bool {
	return roleID == RoleSupport
}

func Name(roleID int) string {
	switch roleID {
	case RolePlayer:
		return "player"
	case RoleClub:
		return "club"
	case RoleAgent:
		return "agent"
	case RoleAcademy:
		return "academy"
	case RoleTrainer:
		return "trainer"
	case RoleSupport:
		return "support"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}
