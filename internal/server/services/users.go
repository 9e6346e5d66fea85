package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"opsboard/internal/common"
	"opsboard/internal/server/config"
	"opsboard/internal/server/models"
	"opsboard/internal/server/repositories/repomanager"
)

// ErrAvatarStorageDisabled is returned when no object store is configured,
// so avatar uploads cannot be granted.
var ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")

// Seams for the AWS SDK so presigning is testable without credentials or a
// running object store.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// UserService manages accounts: profile, password, admin role grants and
// avatar uploads via presigned object-store URLs.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{db: db, repomanager: m, config: cfg}
}

// AvatarUpload is a one-shot upload grant: PUT the image to UploadURL, then
// the avatar is served from AvatarURL.
type AvatarUpload struct {
	UploadURL string
	AvatarURL string
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// List returns a page of accounts. Admin only.
func (s *UserService) List(ctx context.Context, actor *models.User, keyword string, page, pageSize int) ([]*models.User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, common.ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.repomanager.Users(s.db).List(ctx, strings.TrimSpace(keyword), pageSize, (page-1)*pageSize)
}

// ToggleAdmin grants or revokes the admin role. Admin only. The returned
// user reflects the new role set.
func (s *UserService) ToggleAdmin(ctx context.Context, actor *models.User, id string, grant bool) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, common.ErrForbidden
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(user.Roles)+1)
	for _, r := range user.Roles {
		if r != models.RoleAdmin {
			roles = append(roles, r)
		}
	}
	if grant {
		roles = append(roles, models.RoleAdmin)
	}
	if len(roles) == 0 {
		roles = []string{models.RoleMember}
	}

	if err := repo.SetRoles(ctx, id, roles); err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

// UpdateProfile changes the actor's own display name, headline and bio.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, displayName, headline, bio string) (*models.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, common.ErrValidation
	}
	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateProfile(ctx, actor.ID, displayName, headline, bio); err != nil {
		return nil, err
	}
	return repo.GetByID(ctx, actor.ID)
}

// ChangePassword verifies the current password and stores a bcrypt hash of
// the new one.
func (s *UserService) ChangePassword(ctx context.Context, actor *models.User, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return common.ErrValidation
	}
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return common.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrInternal
	}
	return repo.UpdatePassword(ctx, actor.ID, string(hash))
}

// RequestAvatarUpload presigns a PUT for the actor's new avatar and records
// the resulting public URL on the profile.
func (s *UserService) RequestAvatarUpload(ctx context.Context, actor *models.User) (*AvatarUpload, error) {
	if s.config.S3BaseEndpoint == "" || s.config.S3Bucket == "" {
		return nil, ErrAvatarStorageDisabled
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := avatarStorageKey(actor.ID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, err
	}

	avatarURL := strings.TrimSuffix(s.config.S3BaseEndpoint, "/") + "/" + bucket + "/" + key
	if err := s.repomanager.Users(s.db).SetAvatarURL(ctx, actor.ID, avatarURL); err != nil {
		return nil, err
	}

	return &AvatarUpload{UploadURL: req.URL, AvatarURL: avatarURL}, nil
}

// --- helpers below ---

func (s *UserService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

func avatarStorageKey(userID string) string {
	return fmt.Sprintf("users/%s/%s", userID, uuid.NewString())
}
