package authz

// Role — закрытое перечисление ролей. Добавление роли — изменение,
// проверяемое компилятором: все switch ниже исчерпывающие.
type Role string

const (
	RoleAdmin            Role = "ADMIN"
	RoleGeneralManager   Role = "GENERAL_MANAGER"
	RoleBranchManager    Role = "BRANCH_MANAGER"
	RoleBranchEmployee   Role = "BRANCH_EMPLOYEE"
	RoleCenterManager    Role = "CENTER_MANAGER"
	RoleCenterTechnician Role = "CENTER_TECHNICIAN"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleGeneralManager, RoleBranchManager,
		RoleBranchEmployee, RoleCenterManager, RoleCenterTechnician:
		return Role(s), true
	}
	return "", false
}

// IsGlobalRole — роль, которой не фильтруют данные по филиалам (bypass).
func IsGlobalRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleGeneralManager:
		return true
	case RoleBranchManager, RoleBranchEmployee, RoleCenterManager, RoleCenterTechnician:
		return false
	}
	return false
}

// IsCenterRole — роль сервисного центра, работает с ремонтным циклом.
func IsCenterRole(r Role) bool {
	switch r {
	case RoleCenterManager, RoleCenterTechnician:
		return true
	case RoleAdmin, RoleGeneralManager, RoleBranchManager, RoleBranchEmployee:
		return false
	}
	return false
}

// IsPrivilegedRole — роль, которой разрешено создавать переброски.
func IsPrivilegedRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleGeneralManager, RoleBranchManager, RoleCenterManager:
		return true
	case RoleBranchEmployee, RoleCenterTechnician:
		return false
	}
	return false
}
