package service

import (
	"context"

	"github.com/bigkaa/regportal/internal/domain/model"
)

// Directory — операции каталога, которые использует сервисный слой.
// Реализуется *directory.Client.
type Directory interface {
	ValidateCredentials(ctx context.Context, username, password string) (bool, error)
	IsMember(ctx context.Context, principalName, groupName string) (bool, error)
	GetUser(ctx context.Context, principalName string) (*model.DirectoryAccount, error)
	ListGroups(ctx context.Context) ([]model.DirectoryGroup, error)
	GetUserGroups(ctx context.Context, principalName string) ([]model.DirectoryGroup, error)
	AddUserToGroup(ctx context.Context, principalName, groupDN string) error
	RemoveUserFromGroup(ctx context.Context, principalName, groupDN string) error
	ResetPassword(ctx context.Context, principalName string) (string, error)
}
