package recipient

import "strings"

// 数据库用户角色
const (
	RoleAdmin          = "ADMIN"
	RoleManager        = "MANAGER"
	RoleProjectManager = "PROJECT_MANAGER"
	RoleForeman        = "FOREMAN"
	RoleSubcontractor  = "SUBCONTRACTOR"
)

// 工作流模板中的负责角色
const (
	ResponsibleOffice         = "OFFICE"
	ResponsibleAdministration = "ADMINISTRATION"
	ResponsibleFieldDirector  = "FIELD_DIRECTOR"
)

// escalationRoles 兜底与升级通知使用的角色
var escalationRoles = []string{RoleAdmin, RoleManager}

// roleAliases 负责角色 → 数据库角色
var roleAliases = map[string][]string{
	ResponsibleOffice:         {RoleAdmin, RoleManager},
	ResponsibleAdministration: {RoleAdmin, RoleManager},
	ResponsibleFieldDirector:  {RoleProjectManager, RoleManager},
	RoleProjectManager:        {RoleProjectManager},
	RoleForeman:               {RoleForeman, RoleProjectManager},
	RoleSubcontractor:         {RoleSubcontractor},
	RoleAdmin:                 {RoleAdmin},
	RoleManager:               {RoleManager},
}

// NormalizeRole 统一角色写法（大写、下划线分隔）
func NormalizeRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	r = strings.NewReplacer(" ", "_", "-", "_").Replace(r)
	return r
}

// MapRole 将步骤负责角色映射为数据库角色集合
// 未登记的角色原样作为数据库角色，空角色返回nil
func MapRole(role string) []string {
	r := NormalizeRole(role)
	if r == "" {
		return nil
	}
	if roles, ok := roleAliases[r]; ok {
		out := make([]string, len(roles))
		copy(out, roles)
		return out
	}
	return []string{r}
}
