package services

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"opsboard/internal/common"
	"opsboard/internal/server/models"
)

func TestUserService_ToggleAdmin(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	admin := seedUser(t, m, "boss", "pw", models.RoleAdmin)
	target := seedUser(t, m, "alice", "pw")
	s := NewUserService(db, m, testConfig())

	granted, err := s.ToggleAdmin(context.Background(), admin, target.ID, true)
	require.NoError(t, err)
	assert.True(t, granted.IsAdmin())
	assert.Contains(t, granted.Roles, models.RoleMember)

	revoked, err := s.ToggleAdmin(context.Background(), admin, target.ID, false)
	require.NoError(t, err)
	assert.False(t, revoked.IsAdmin())
}

func TestUserService_ToggleAdmin_Gates(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	member := seedUser(t, m, "alice", "pw")
	other := seedUser(t, m, "bob", "pw")
	admin := seedUser(t, m, "boss", "pw", models.RoleAdmin)
	s := NewUserService(db, m, testConfig())

	_, err := s.ToggleAdmin(context.Background(), member, other.ID, true)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = s.ToggleAdmin(context.Background(), admin, "no-such-user", true)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserService_ToggleAdmin_RevokeNeverLeavesEmptyRoles(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	admin := seedUser(t, m, "boss", "pw", models.RoleAdmin)
	lone := seedUser(t, m, "solo", "pw", models.RoleAdmin)
	s := NewUserService(db, m, testConfig())

	revoked, err := s.ToggleAdmin(context.Background(), admin, lone.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleMember}, revoked.Roles)
}

func TestUserService_List_AdminOnly(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	admin := seedUser(t, m, "boss", "pw", models.RoleAdmin)
	seedUser(t, m, "alice", "pw")
	s := NewUserService(db, m, testConfig())

	items, total, err := s.List(context.Background(), admin, "", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	_, _, err = s.List(context.Background(), memberUser("u1"), "", 1, 50)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestUserService_UpdateProfile(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	user := seedUser(t, m, "alice", "pw")
	s := NewUserService(db, m, testConfig())

	updated, err := s.UpdateProfile(context.Background(), user, "Alice L.", "SRE", "On call too much.")
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", updated.DisplayName)
	assert.Equal(t, "SRE", updated.Headline)

	_, err = s.UpdateProfile(context.Background(), user, "   ", "", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUserService_ChangePassword(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	user := seedUser(t, m, "alice", "oldpassword")
	s := NewUserService(db, m, testConfig())

	assert.ErrorIs(t, s.ChangePassword(context.Background(), user, "oldpassword", "short"), common.ErrValidation)
	assert.ErrorIs(t, s.ChangePassword(context.Background(), user, "nope", "longenough"), common.ErrInvalidCredentials)

	require.NoError(t, s.ChangePassword(context.Background(), user, "oldpassword", "longenough"))
	stored, err := m.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longenough")))
}

func TestUserService_RequestAvatarUpload(t *testing.T) {
	origLoad, origNewClient, origNewPresign, origPut := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, presignPutObject = origLoad, origNewClient, origNewPresign, origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}
	var presignedKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		presignedKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "http://127.0.0.1:9000/avatars/" + *in.Key + "?sig=abc"}, nil
	}

	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	user := seedUser(t, m, "alice", "pw")
	s := NewUserService(db, m, testConfig())

	grant, err := s.RequestAvatarUpload(context.Background(), user)
	require.NoError(t, err)
	assert.Contains(t, grant.UploadURL, "?sig=abc")
	assert.Equal(t, "http://127.0.0.1:9000/avatars/"+presignedKey, grant.AvatarURL)

	stored, err := m.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, grant.AvatarURL, stored.AvatarURL)
}

func TestUserService_RequestAvatarUpload_StorageNotConfigured(t *testing.T) {
	db, _ := newMockDB(t)
	m := newFakeRepoManager()
	user := seedUser(t, m, "alice", "pw")

	cfg := testConfig()
	cfg.S3BaseEndpoint = ""
	s := NewUserService(db, m, cfg)

	_, err := s.RequestAvatarUpload(context.Background(), user)
	require.ErrorIs(t, err, ErrAvatarStorageDisabled)

	stored, err := m.users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AvatarURL)
}
