package auth

import "github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"

type Role string

const (
	RoleOperator Role = "operator" // Prepares and calculates payrolls
	RoleApprover Role = "approver" // Approves, processes and pays payrolls
	RoleAdmin    Role = "admin"    // Full access
)

// RoleNames lists every role a token may carry.
var RoleNames = []string{string(RoleOperator), string(RoleApprover), string(RoleAdmin)}

func (r Role) IsValid() bool {
	return validator.IsInSlice(string(r), RoleNames)
}

type Permission string

const (
	PermissionPayrollView    Permission = "payroll.view"
	PermissionPayrollManage  Permission = "payroll.manage"
	PermissionPayrollApprove Permission = "payroll.approve"
	PermissionPayrollRun     Permission = "payroll.run"
	PermissionPayrollDelete  Permission = "payroll.delete"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOperator: {
		PermissionPayrollView,
		PermissionPayrollManage,
	},
	RoleApprover: {
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollApprove,
		PermissionPayrollRun,
	},
	RoleAdmin: {
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollApprove,
		PermissionPayrollRun,
		PermissionPayrollDelete,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
