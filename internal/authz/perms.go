package authz

// Account module permissions.
const (
	ModuleAccounts = "accounts"

	PermViewUser = "accounts.view_user"
	PermEditUser = "accounts.edit_user"
)

// AccountScopes lists all permissions owned by the accounts module.
func AccountScopes() []string {
	return []string{
		PermViewUser,
		PermEditUser,
	}
}
