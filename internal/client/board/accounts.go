package board

import "context"

// ToggleAdmin flips the admin role on an account and returns the account's
// resulting role. An unknown id is a no-op that reports the current user's
// own role. On success the local record is updated optimistically and, when
// the account is the signed-in user, the role is mirrored into the
// current-user context. The account list is re-fetched either way to
// reconcile with the server; a failed call leaves local state untouched and
// reports the pre-call role.
func (b *Board) ToggleAdmin(ctx context.Context, accountID string) (string, error) {
	b.mu.Lock()
	var prior string
	found := false
	for _, a := range b.accounts {
		if a.ID == accountID {
			prior = a.Role
			found = true
			break
		}
	}
	if !found {
		role := b.user.Role
		b.mu.Unlock()
		return role, nil
	}
	grant := prior != RoleAdmin
	b.mu.Unlock()

	defer b.loadAccounts(ctx)

	if _, err := b.client.ToggleAdmin(ctx, accountID, grant); err != nil {
		b.logger.Error(ctx, "could not toggle admin role", "account", accountID, "error", err)
		return prior, err
	}

	newRole := RoleMember
	if grant {
		newRole = RoleAdmin
	}

	b.mu.Lock()
	for i := range b.accounts {
		if b.accounts[i].ID == accountID {
			b.accounts[i].Role = newRole
			break
		}
	}
	if b.user.ID == accountID {
		b.user.Role = newRole
	}
	b.mu.Unlock()

	return newRole, nil
}
